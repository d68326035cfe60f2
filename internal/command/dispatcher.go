package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"pkt.systems/cmdweb/internal/logx"
	"pkt.systems/cmdweb/schema"
	"pkt.systems/pslog"
)

const (
	dateLayout = "Mon Jan 02 2006"
	timeLayout = "3:04:05 PM"
)

// Config configures the dispatcher.
type Config struct {
	DisableAuditLogging bool
	// Location is used for date and time output. Nil means time.Local.
	Location *time.Location
}

type builtin struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, cmd Command, req schema.CommandRequest) schema.CommandResult
}

// Dispatcher executes the built-in command table. It is stateless apart from
// its clock, so results depend only on the request.
type Dispatcher struct {
	cfg      Config
	now      func() time.Time
	builtins []builtin
	byName   map[string]builtin
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	d := &Dispatcher{cfg: cfg, now: time.Now}
	d.builtins = []builtin{
		{name: "cls", usage: "CLS", summary: "Clears the screen.", run: d.runCls},
		{name: "echo", usage: "ECHO [text]", summary: "Displays messages.", run: d.runEcho},
		{name: "date", usage: "DATE", summary: "Displays the current date.", run: d.runDate},
		{name: "time", usage: "TIME", summary: "Displays the current time.", run: d.runTime},
		{name: "ver", usage: "VER", summary: "Displays the CmdWeb version.", run: d.runVer},
		{name: "help", usage: "HELP", summary: "Provides Help information for commands.", run: d.runHelp},
		{name: "exit", usage: "EXIT", summary: "Exits the CmdWeb (simulated).", run: d.runExit},
	}
	d.byName = make(map[string]builtin, len(d.builtins))
	for _, b := range d.builtins {
		d.byName[b.name] = b
	}
	return d
}

// Execute runs one trimmed command line.
func (d *Dispatcher) Execute(ctx context.Context, req schema.CommandRequest) schema.CommandResult {
	if ctx == nil {
		ctx = context.Background()
	}
	cmd, ok := Parse(req.Line)
	if !ok {
		return schema.CommandResult{}
	}
	log := pslog.Ctx(ctx).With("command", cmd.Name, "args", len(cmd.Args))
	if transport := logx.Transport(ctx); transport != "" {
		log = log.With("transport", transport)
	}
	b, known := d.byName[cmd.Name]
	if !d.cfg.DisableAuditLogging {
		kind := "builtin"
		if !known {
			kind = "unknown"
		}
		log.Debug("audit command", "command_type", kind, "line", cmd.Raw, "prompt", req.Prompt)
	}
	if !known {
		log.Info("command unknown")
		return schema.CommandResult{Lines: []schema.OutputLine{schema.Error(notRecognized(cmd.Token))}}
	}
	result := b.run(ctx, cmd, req)
	log.Debug("command completed", "lines", len(result.Lines), "clear", result.Clear)
	return result
}

// Banner returns the lines shown when a terminal opens or is cleared.
func (d *Dispatcher) Banner(prompt string) []schema.OutputLine {
	return []schema.OutputLine{
		schema.Info(fmt.Sprintf("TermAI [Version %s] (Prompt: %s)", schema.AppVersion, prompt)),
		schema.Info("© TermAI CLI. All rights reserved."),
		schema.Info(""),
	}
}

// Vocabulary returns the built-in command names, sorted.
func (d *Dispatcher) Vocabulary() []string {
	names := make([]string, 0, len(d.builtins))
	for _, b := range d.builtins {
		names = append(names, b.name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) runCls(context.Context, Command, schema.CommandRequest) schema.CommandResult {
	return schema.CommandResult{Clear: true}
}

// runEcho joins arguments with single spaces, collapsing runs of whitespace.
func (d *Dispatcher) runEcho(_ context.Context, cmd Command, _ schema.CommandRequest) schema.CommandResult {
	return output(strings.Join(cmd.Args, " "))
}

func (d *Dispatcher) runDate(context.Context, Command, schema.CommandRequest) schema.CommandResult {
	return output(d.now().In(d.cfg.Location).Format(dateLayout))
}

func (d *Dispatcher) runTime(context.Context, Command, schema.CommandRequest) schema.CommandResult {
	return output(d.now().In(d.cfg.Location).Format(timeLayout))
}

func (d *Dispatcher) runVer(_ context.Context, _ Command, req schema.CommandRequest) schema.CommandResult {
	return output(fmt.Sprintf("CmdWeb [Version %s] (Prompt: %s)", schema.AppVersion, req.Prompt))
}

func (d *Dispatcher) runHelp(context.Context, Command, schema.CommandRequest) schema.CommandResult {
	lines := make([]schema.OutputLine, 0, len(d.builtins)+1)
	lines = append(lines, schema.Output("Available commands:"))
	for _, b := range d.builtins {
		lines = append(lines, schema.Output(fmt.Sprintf("  %-13s- %s", b.usage, b.summary)))
	}
	return schema.CommandResult{Lines: lines}
}

func (d *Dispatcher) runExit(context.Context, Command, schema.CommandRequest) schema.CommandResult {
	return schema.CommandResult{Lines: []schema.OutputLine{schema.Info("Exiting CmdWeb... (This is a simulation)")}}
}

func output(text string) schema.CommandResult {
	return schema.CommandResult{Lines: []schema.OutputLine{schema.Output(text)}}
}

func notRecognized(token string) string {
	return fmt.Sprintf("'%s' is not recognized as an internal or external command, operable program or batch file.", token)
}
