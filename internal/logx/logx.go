package logx

import (
	"context"

	"pkt.systems/cmdweb/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	sessionKey contextKey = iota
	transportKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSession annotates the context logger with the session id unless the
// context already carries the same session marker.
func WithSession(ctx context.Context, sessionID schema.SessionID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if sessionID != "" {
		if current, ok := ctx.Value(sessionKey).(schema.SessionID); ok && current == sessionID {
			return log
		}
		log = log.With("session", sessionID)
	}
	return log
}

// WithRemote annotates the logger with the transport and peer address.
func WithRemote(log pslog.Logger, transport, remote string) pslog.Logger {
	if transport != "" {
		log = log.With("transport", transport)
	}
	if remote != "" {
		log = log.With("remote", remote)
	}
	return log
}

// ContextWithSession stores the session marker on the context for log de-duplication.
func ContextWithSession(ctx context.Context, sessionID schema.SessionID) context.Context {
	if ctx == nil || sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// ContextWithTransport stores the transport name on the context.
func ContextWithTransport(ctx context.Context, transport string) context.Context {
	if ctx == nil || transport == "" {
		return ctx
	}
	return context.WithValue(ctx, transportKey, transport)
}

// ContextWithSessionLogger attaches the logger and session marker to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, sessionID schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSession(ctx, sessionID)
}

// Transport returns the transport marker, if any.
func Transport(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	transport, _ := ctx.Value(transportKey).(string)
	return transport
}

// CopyContextFields copies session/transport markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if session, ok := src.Value(sessionKey).(schema.SessionID); ok && session != "" {
		dst = ContextWithSession(dst, session)
	}
	if transport, ok := src.Value(transportKey).(string); ok && transport != "" {
		dst = ContextWithTransport(dst, transport)
	}
	return dst
}
