package exercise

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"parsons-cli/internal/config"
	"parsons-cli/internal/model"
)

const DefaultFileName = "user_code.py"

// File is the YAML structure of an exercise.
type File struct {
	ID        string         `yaml:"id"`
	Title     string         `yaml:"title"`
	Prompt    string         `yaml:"prompt"`
	Language  string         `yaml:"language"`
	FileName  string         `yaml:"file_name"`
	Format    string         `yaml:"format"`
	PreText   string         `yaml:"pre_text"`
	PostText  string         `yaml:"post_text"`
	NoStarter bool           `yaml:"no_starter"`
	CodeLines string         `yaml:"code_lines"`
	Widget    WidgetOverride `yaml:"widget"`
}

// WidgetOverride holds per-exercise widget options; nil fields keep the configured value.
type WidgetOverride struct {
	IndentUnitChars             *int    `yaml:"indent_unit_chars"`
	IndentingEnabled            *bool   `yaml:"indenting_enabled"`
	AlwaysIndentOnTab           *bool   `yaml:"always_indent_on_tab"`
	AllowIndentingInStarterTray *bool   `yaml:"allow_indenting_in_starter_tray"`
	AnswersName                 *string `yaml:"answers_name"`
}

func (o WidgetOverride) apply(w config.Widget) config.Widget {
	if o.IndentUnitChars != nil {
		w.IndentUnitChars = *o.IndentUnitChars
	}
	if o.IndentingEnabled != nil {
		w.IndentingEnabled = *o.IndentingEnabled
	}
	if o.AlwaysIndentOnTab != nil {
		w.AlwaysIndentOnTab = *o.AlwaysIndentOnTab
	}
	if o.AllowIndentingInStarterTray != nil {
		w.AllowIndentingInStarterTray = *o.AllowIndentingInStarterTray
	}
	if o.AnswersName != nil {
		w.AnswersName = *o.AnswersName
	}
	return w
}

// Exercise is a loaded, validated exercise ready to open as a session.
type Exercise struct {
	ID       string
	Title    string
	Prompt   string
	FileName string
	PreText  string
	PostText string
	Path     string
	Widget   config.Widget
	Layout   model.Layout
}

// Load reads an exercise file and merges its widget options over base.
func Load(path string, base config.Widget) (*Exercise, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exercise file: %w", err)
	}
	ex, err := Decode(bytes.NewReader(data), base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ex.Path = path
	if ex.ID == "" {
		ex.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return ex, nil
}

func Decode(r io.Reader, base config.Widget) (*Exercise, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, config.ValidationError{Field: "code_lines", Reason: "empty exercise"}
		}
		return nil, fmt.Errorf("parse exercise file: %w", err)
	}
	return FromFile(f, base)
}

// FromFile validates f and builds the exercise. Configuration problems are ValidationErrors.
func FromFile(f File, base config.Widget) (*Exercise, error) {
	w := f.Widget.apply(base)
	if s := strings.TrimSpace(f.Language); s != "" {
		w.Language = s
	}
	if s := strings.TrimSpace(strings.ReplaceAll(f.Format, "-", "_")); s != "" {
		w.Format = s
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if w.Format != config.FormatBottom && (strings.TrimSpace(f.PreText) != "" || strings.TrimSpace(f.PostText) != "") {
		return nil, config.ValidationError{Field: "pre_text", Reason: `pre/post text requires format "bottom"`}
	}
	if id := strings.TrimSpace(f.ID); strings.ContainsAny(id, `/\ `) || strings.HasPrefix(id, ".") {
		return nil, config.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not a plain name", id)}
	}
	if strings.TrimSpace(f.CodeLines) == "" {
		return nil, config.ValidationError{Field: "code_lines", Reason: "no code lines"}
	}

	name := strings.TrimSpace(f.FileName)
	if name == "" {
		name = DefaultFileName
	}
	return &Exercise{
		ID:       strings.TrimSpace(f.ID),
		Title:    strings.TrimSpace(f.Title),
		Prompt:   f.Prompt,
		FileName: name,
		PreText:  f.PreText,
		PostText: f.PostText,
		Widget:   w,
		Layout:   ParseCodeLines(f.CodeLines, !f.NoStarter && w.Format != config.FormatNoCode),
	}, nil
}

// Submission is the graded file entry: the solution text under the exercise's file name.
type Submission struct {
	Name     string `json:"name"`
	Contents string `json:"contents"`
}

func (e *Exercise) Submission(solution string) Submission {
	return Submission{
		Name:     e.FileName,
		Contents: base64.StdEncoding.EncodeToString([]byte(solution)),
	}
}
