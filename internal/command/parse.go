package command

import (
	"strings"
	"unicode"
)

// Command represents a parsed command line.
type Command struct {
	// Name is the lowercased command token used for dispatch.
	Name string
	// Token is the command token as typed.
	Token string
	Args  []string
	// Raw is the trimmed line.
	Raw string
}

// Parse splits a line into a command token and arguments. It reports false
// for blank input.
func Parse(input string) (Command, bool) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, false
	}
	token, rest := raw, ""
	if i := strings.IndexFunc(raw, unicode.IsSpace); i >= 0 {
		token, rest = raw[:i], raw[i:]
	}
	args := strings.Fields(rest)
	if args == nil {
		args = []string{}
	}
	return Command{
		Name:  strings.ToLower(token),
		Token: token,
		Args:  args,
		Raw:   raw,
	}, true
}
