package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Widget enumerates every option the editor core consumes.
type Widget struct {
	IndentUnitChars             int     `yaml:"indent_unit_chars" json:"indentUnitChars"`
	IndentingEnabled            bool    `yaml:"indenting_enabled" json:"indentingEnabled"`
	AlwaysIndentOnTab           bool    `yaml:"always_indent_on_tab" json:"alwaysIndentOnTab"`
	AllowIndentingInStarterTray bool    `yaml:"allow_indenting_in_starter_tray" json:"allowIndentingInStarterTray"`
	Language                    string  `yaml:"language" json:"language"`
	CharWidthPx                 float64 `yaml:"char_width_px" json:"charWidthPx"`
	Format                      string  `yaml:"format" json:"format"`
	AnswersName                 string  `yaml:"answers_name" json:"answersName"`
}

type Storage struct {
	Backend string `yaml:"backend" json:"backend"`
	Dir     string `yaml:"dir" json:"dir"`
}

type Logging struct {
	Mode  string `yaml:"mode" json:"mode"`
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

type Config struct {
	Widget  Widget  `yaml:"widget" json:"widget"`
	Storage Storage `yaml:"storage" json:"storage"`
	Logging Logging `yaml:"logging" json:"logging"`
}

const (
	FormatRight  = "right"
	FormatBottom = "bottom"
	// FormatNoCode shows only the solution tray; every line starts there.
	FormatNoCode = "no_code"

	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// ValidationError is a configuration error. It is fatal at construction time.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func DefaultWidget() Widget {
	return Widget{
		IndentUnitChars:  4,
		IndentingEnabled: true,
		CharWidthPx:      1,
		Format:           FormatRight,
	}
}

func Default() Config {
	return Config{
		Widget: DefaultWidget(),
		Storage: Storage{
			Backend: BackendSQLite,
		},
		Logging: Logging{
			Mode:  "dev",
			Level: "info",
		},
	}
}

func (w Widget) Validate() error {
	if w.IndentUnitChars <= 0 {
		return ValidationError{Field: "widget.indent_unit_chars", Reason: "must be > 0"}
	}
	if w.CharWidthPx <= 0 {
		return ValidationError{Field: "widget.char_width_px", Reason: "must be > 0"}
	}
	switch w.Format {
	case FormatRight, FormatBottom, FormatNoCode:
	default:
		return ValidationError{Field: "widget.format", Reason: fmt.Sprintf("unsupported format %q (want right|bottom|no_code)", w.Format)}
	}
	if strings.ContainsAny(w.AnswersName, " \t\n") {
		return ValidationError{Field: "widget.answers_name", Reason: "must not contain whitespace"}
	}
	return nil
}

func (c Config) Validate() error {
	if err := c.Widget.Validate(); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		return ValidationError{Field: "storage.backend", Reason: fmt.Sprintf("unsupported backend %q", c.Storage.Backend)}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return ValidationError{Field: "logging.level", Reason: fmt.Sprintf("unsupported level %q", c.Logging.Level)}
	}
	return nil
}

// Decode reads YAML on top of the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Dir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.parsons).
	if v := strings.TrimSpace(os.Getenv("PARSONS_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".parsons"), nil
}

// Path resolves the config file: explicit path, then $PARSONS_CONFIG, then <dir>/config.yaml.
func Path(explicit string) (string, error) {
	if p := strings.TrimSpace(explicit); p != "" {
		return p, nil
	}
	if p := strings.TrimSpace(os.Getenv("PARSONS_CONFIG")); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the resolved config file. A missing file yields the defaults.
func Load(explicit string) (Config, error) {
	path, err := Path(explicit)
	if err != nil {
		return Config{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && strings.TrimSpace(explicit) == "" {
			cfg := Default()
			return cfg, nil
		}
		return Config{}, err
	}
	cfg, err := Decode(bytes.NewReader(b))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = filepath.Join(filepath.Dir(path), "progress")
	}
	return cfg, nil
}

// StorageDir returns the storage directory, defaulting under the config dir.
func (c Config) StorageDir() (string, error) {
	if d := strings.TrimSpace(c.Storage.Dir); d != "" {
		return d, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "progress"), nil
}
