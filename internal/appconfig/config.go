package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/cmdweb/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Editor        EditorConfig  `mapstructure:"editor" yaml:"editor"`
	Suggest       SuggestConfig `mapstructure:"suggest" yaml:"suggest"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	SSH           SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// EditorConfig controls line editor behavior.
type EditorConfig struct {
	PromptName         string `mapstructure:"prompt_name" yaml:"prompt_name"`
	DebounceMS         int    `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	LookupTimeoutMS    int    `mapstructure:"lookup_timeout_ms" yaml:"lookup_timeout_ms"`
	HistoryMax         int    `mapstructure:"history_max" yaml:"history_max"`
	TranscriptMaxLines int    `mapstructure:"transcript_max_lines" yaml:"transcript_max_lines"`
	RestoreDraft       bool   `mapstructure:"restore_draft" yaml:"restore_draft"`
	MaxSessions        int    `mapstructure:"max_sessions" yaml:"max_sessions"`
}

// SuggestConfig selects the completion sources.
type SuggestConfig struct {
	Source         string  `mapstructure:"source" yaml:"source"`
	VocabularyFile string  `mapstructure:"vocabulary_file" yaml:"vocabulary_file"`
	RemoteURL      string  `mapstructure:"remote_url" yaml:"remote_url"`
	Limit          int     `mapstructure:"limit" yaml:"limit"`
	Fuzzy          bool    `mapstructure:"fuzzy" yaml:"fuzzy"`
	RatePerSecond  float64 `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	Burst          int     `mapstructure:"burst" yaml:"burst"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string `mapstructure:"addr" yaml:"addr"`
	SessionCookie   string `mapstructure:"session_cookie" yaml:"session_cookie"`
	SessionTTLHours int    `mapstructure:"session_ttl_hours" yaml:"session_ttl_hours"`
	BaseURL         string `mapstructure:"base_url" yaml:"base_url"`
	BasePath        string `mapstructure:"base_path" yaml:"base_path"`
	HubHistory      int    `mapstructure:"hub_history" yaml:"hub_history"`
}

// SSHConfig configures the SSH server.
type SSHConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	// HostKeyPath is created on first start. Empty means an in-memory key.
	HostKeyPath string `mapstructure:"host_key_path" yaml:"host_key_path"`
}

// LoggingConfig controls audit logging behavior.
type LoggingConfig struct {
	DisableAuditTrails bool `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Editor: EditorConfig{
			PromptName:         schema.DefaultPromptName,
			DebounceMS:         int(schema.DefaultDebounceInterval / time.Millisecond),
			LookupTimeoutMS:    int(schema.DefaultLookupTimeout / time.Millisecond),
			HistoryMax:         0,
			TranscriptMaxLines: 0,
			RestoreDraft:       false,
			MaxSessions:        schema.DefaultMaxSessions,
		},
		Suggest: SuggestConfig{
			Source:         "static",
			VocabularyFile: filepath.Join(home, ".cmdweb", "vocabulary.txt"),
			RemoteURL:      "",
			Limit:          8,
			Fuzzy:          true,
			RatePerSecond:  20,
			Burst:          40,
		},
		HTTP: HTTPConfig{
			Addr:            ":27480",
			SessionCookie:   "cmdweb_session",
			SessionTTLHours: 24,
			BaseURL:         "",
			BasePath:        "",
			HubHistory:      64,
		},
		SSH: SSHConfig{
			Addr:        ":27422",
			HostKeyPath: filepath.Join(home, ".cmdweb", "ssh_host_key"),
		},
		Logging: LoggingConfig{
			DisableAuditTrails: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cmdweb", "config.yaml"), nil
}

// EditorSettings converts the editor section into schema form.
func (c Config) EditorSettings() schema.EditorConfig {
	return schema.EditorConfig{
		PromptName:          c.Editor.PromptName,
		DebounceInterval:    time.Duration(c.Editor.DebounceMS) * time.Millisecond,
		LookupTimeout:       time.Duration(c.Editor.LookupTimeoutMS) * time.Millisecond,
		HistoryMax:          c.Editor.HistoryMax,
		TranscriptMaxLines:  c.Editor.TranscriptMaxLines,
		RestoreDraft:        c.Editor.RestoreDraft,
		MaxSessions:         c.Editor.MaxSessions,
		DisableAuditLogging: c.Logging.DisableAuditTrails,
	}
}
