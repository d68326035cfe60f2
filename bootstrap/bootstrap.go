package bootstrap

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pkt.systems/cmdweb/internal/appconfig"
)

// Files represents generated bootstrap artifacts.
type Files struct {
	ConfigYAML  []byte
	Vocabulary  []byte
	ServiceUnit []byte
}

// Options controls optional bootstrap behaviors.
type Options struct {
	// Binary is the executable path written into the service unit.
	Binary    string
	Overrides []ConfigOverride
}

// Paths reports where bootstrap wrote its outputs.
type Paths struct {
	ConfigPath      string
	VocabularyPath  string
	ServiceUnitPath string
}

const (
	configName      = "config.yaml"
	vocabularyName  = "vocabulary.txt"
	serviceUnitName = "cmdweb.service"
	defaultBinary   = "/usr/local/bin/cmdweb"
)

// ConfigOverride sets a dotted config path (for example suggest.source) in
// the generated config.
type ConfigOverride struct {
	Path  string
	Value any
}

type templateData struct {
	Binary     string
	ConfigPath string
}

// ParseOverride parses key=value into a ConfigOverride. Values are decoded
// as YAML scalars so numbers and booleans keep their type.
func ParseOverride(raw string) (ConfigOverride, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return ConfigOverride{}, fmt.Errorf("invalid override %q: expected key=value", raw)
	}
	var decoded any
	if err := yaml.Unmarshal([]byte(value), &decoded); err != nil || decoded == nil {
		decoded = value
	}
	return ConfigOverride{Path: key, Value: decoded}, nil
}

// DefaultFiles renders the bootstrap artifacts for a bundle rooted at outputDir.
func DefaultFiles(outputDir string, opts Options) (Files, error) {
	rootDir, err := filepath.Abs(outputDir)
	if err != nil {
		rootDir = outputDir
	}
	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		return Files{}, err
	}
	cfg.ConfigVersion = appconfig.CurrentConfigVersion
	cfg.Suggest.VocabularyFile = filepath.Join(rootDir, vocabularyName)
	cfg.SSH.HostKeyPath = filepath.Join(rootDir, "ssh_host_key")

	configYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return Files{}, err
	}
	if configYAML, err = applyOverridesToYAML(configYAML, opts.Overrides); err != nil {
		return Files{}, err
	}
	var check appconfig.Config
	if err := yaml.Unmarshal(configYAML, &check); err != nil {
		return Files{}, fmt.Errorf("config overrides: %w", err)
	}

	vocabulary, err := seedVocabulary()
	if err != nil {
		return Files{}, fmt.Errorf("seed vocabulary: %w", err)
	}
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = defaultBinary
	}
	unit, err := renderTemplate("cmdweb.service.tmpl", templateData{
		Binary:     binary,
		ConfigPath: filepath.Join(rootDir, configName),
	})
	if err != nil {
		return Files{}, err
	}
	return Files{ConfigYAML: configYAML, Vocabulary: vocabulary, ServiceUnit: unit}, nil
}

// WriteBootstrap writes config, vocabulary and service unit into outputDir.
func WriteBootstrap(outputDir string, overwrite bool, opts Options) (Paths, error) {
	if strings.TrimSpace(outputDir) == "" {
		return Paths{}, fmt.Errorf("output directory is required")
	}
	files, err := DefaultFiles(outputDir, opts)
	if err != nil {
		return Paths{}, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Paths{}, err
	}
	paths := Paths{
		ConfigPath:      filepath.Join(outputDir, configName),
		VocabularyPath:  filepath.Join(outputDir, vocabularyName),
		ServiceUnitPath: filepath.Join(outputDir, serviceUnitName),
	}
	if err := writeFile(paths.ConfigPath, files.ConfigYAML, 0o600, overwrite); err != nil {
		return Paths{}, err
	}
	if err := writeFile(paths.VocabularyPath, files.Vocabulary, 0o644, overwrite); err != nil {
		return Paths{}, err
	}
	if err := writeFile(paths.ServiceUnitPath, files.ServiceUnit, 0o644, overwrite); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

func writeFile(path string, data []byte, mode os.FileMode, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s", path)
		}
	}
	return os.WriteFile(path, data, mode)
}

func renderTemplate(name string, data templateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := unitTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func applyOverridesToYAML(configYAML []byte, overrides []ConfigOverride) ([]byte, error) {
	if len(overrides) == 0 {
		return configYAML, nil
	}
	var data map[string]any
	if err := yaml.Unmarshal(configYAML, &data); err != nil {
		return nil, err
	}
	for _, override := range overrides {
		if err := setOverrideValue(data, override.Path, override.Value); err != nil {
			return nil, err
		}
	}
	return yaml.Marshal(data)
}

func setOverrideValue(root map[string]any, path string, value any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("config override path is required")
	}
	parts := strings.Split(path, ".")
	node := root
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return fmt.Errorf("invalid config override path %q", path)
		}
		if i == len(parts)-1 {
			node[part] = value
			return nil
		}
		next, ok := node[part]
		if !ok || next == nil {
			child := map[string]any{}
			node[part] = child
			node = child
			continue
		}
		child, ok := toStringMap(next)
		if !ok {
			return fmt.Errorf("config override %q: %q is not a map", path, part)
		}
		node[part] = child
		node = child
	}
	return nil
}

func toStringMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			ks, ok := key.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}
