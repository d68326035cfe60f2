package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"pkt.systems/cmdweb/schema"
)

// EnvPrefix prefixes environment variables that override config keys.
const EnvPrefix = "CMDWEB"

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults; environment
// variables win over both.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	// CMDWEB_HTTP_ADDR overrides http.addr, and so on for every key below.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("editor.prompt_name", cfg.Editor.PromptName)
	v.SetDefault("editor.debounce_ms", cfg.Editor.DebounceMS)
	v.SetDefault("editor.lookup_timeout_ms", cfg.Editor.LookupTimeoutMS)
	v.SetDefault("editor.history_max", cfg.Editor.HistoryMax)
	v.SetDefault("editor.transcript_max_lines", cfg.Editor.TranscriptMaxLines)
	v.SetDefault("editor.restore_draft", cfg.Editor.RestoreDraft)
	v.SetDefault("editor.max_sessions", cfg.Editor.MaxSessions)
	v.SetDefault("suggest.source", cfg.Suggest.Source)
	v.SetDefault("suggest.vocabulary_file", cfg.Suggest.VocabularyFile)
	v.SetDefault("suggest.remote_url", cfg.Suggest.RemoteURL)
	v.SetDefault("suggest.limit", cfg.Suggest.Limit)
	v.SetDefault("suggest.fuzzy", cfg.Suggest.Fuzzy)
	v.SetDefault("suggest.rate_per_second", cfg.Suggest.RatePerSecond)
	v.SetDefault("suggest.burst", cfg.Suggest.Burst)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.session_cookie", cfg.HTTP.SessionCookie)
	v.SetDefault("http.session_ttl_hours", cfg.HTTP.SessionTTLHours)
	v.SetDefault("http.base_url", cfg.HTTP.BaseURL)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("http.hub_history", cfg.HTTP.HubHistory)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("logging.disable_audit_trails", cfg.Logging.DisableAuditTrails)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateEditorConfig(cfg.Editor); err != nil {
		return Config{}, err
	}
	if err := validateSuggestConfig(cfg.Suggest); err != nil {
		return Config{}, err
	}
	if err := validateHTTPConfig(cfg.HTTP); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateEditorConfig(cfg EditorConfig) error {
	if _, err := schema.NormalizePromptName(cfg.PromptName); err != nil {
		return fmt.Errorf("editor.prompt_name %q is invalid: must be 1-64 printable characters without '>'", cfg.PromptName)
	}
	if cfg.DebounceMS < 0 {
		return fmt.Errorf("editor.debounce_ms must not be negative")
	}
	if cfg.LookupTimeoutMS < 0 {
		return fmt.Errorf("editor.lookup_timeout_ms must not be negative")
	}
	if cfg.HistoryMax < 0 {
		return fmt.Errorf("editor.history_max must not be negative")
	}
	if cfg.TranscriptMaxLines < 0 {
		return fmt.Errorf("editor.transcript_max_lines must not be negative")
	}
	return nil
}

func validateSuggestConfig(cfg SuggestConfig) error {
	for _, name := range strings.Split(cfg.Source, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "", "static", "none":
		case "file":
			if strings.TrimSpace(cfg.VocabularyFile) == "" {
				return fmt.Errorf("suggest.vocabulary_file is required for the file source")
			}
		case "remote":
			parsed, err := url.Parse(strings.TrimSpace(cfg.RemoteURL))
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return fmt.Errorf("suggest.remote_url must be an http(s) URL for the remote source")
			}
		default:
			return fmt.Errorf("unsupported suggest.source %q", strings.TrimSpace(name))
		}
	}
	if cfg.RatePerSecond < 0 {
		return fmt.Errorf("suggest.rate_per_second must not be negative")
	}
	if cfg.Limit < 0 {
		return fmt.Errorf("suggest.limit must not be negative")
	}
	if cfg.Burst < 0 {
		return fmt.Errorf("suggest.burst must not be negative")
	}
	return nil
}

func validateHTTPConfig(cfg HTTPConfig) error {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("http.base_url must include scheme and host (e.g. https://example.com)")
		}
	}
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("http.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("http.base_path must not include query or fragment")
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Suggest.VocabularyFile = expandEnv(cfg.Suggest.VocabularyFile)
	cfg.Suggest.RemoteURL = expandEnv(cfg.Suggest.RemoteURL)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
