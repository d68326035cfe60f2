package core

import (
	"context"

	"pkt.systems/cmdweb/schema"
)

// Service is the transport-agnostic API for terminal sessions. Each session
// owns one Editor.
type Service interface {
	OpenSession(ctx context.Context, req schema.OpenSessionRequest) (schema.OpenSessionResponse, error)
	CloseSession(ctx context.Context, req schema.CloseSessionRequest) (schema.CloseSessionResponse, error)
	SendKey(ctx context.Context, req schema.SendKeyRequest) (schema.SendKeyResponse, error)
	SetInput(ctx context.Context, req schema.SetInputRequest) (schema.SetInputResponse, error)
	PickSuggestion(ctx context.Context, req schema.PickSuggestionRequest) (schema.PickSuggestionResponse, error)
	Execute(ctx context.Context, req schema.ExecuteRequest) (schema.ExecuteResponse, error)
	SetPrompt(ctx context.Context, req schema.SetPromptRequest) (schema.SetPromptResponse, error)
	GetState(ctx context.Context, req schema.GetStateRequest) (schema.GetStateResponse, error)
	// Shutdown closes every open session.
	Shutdown(ctx context.Context) error
}
