package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Source builds the report for one run. Crawling and keyword matching live
// behind this interface.
type Source interface {
	Build(ctx context.Context) (*Data, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Data, error)

func (f SourceFunc) Build(ctx context.Context) (*Data, error) { return f(ctx) }

// FileSource reads a report snapshot written by an upstream job.
// Files ending in .yaml/.yml are decoded as YAML, everything else as JSON.
type FileSource struct {
	Path string
	// Mode overrides the mode stored in the file when set.
	Mode Mode
}

func (s FileSource) Build(ctx context.Context) (*Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("report: read %s: %w", s.Path, err)
	}
	d, err := Decode(s.Path, raw)
	if err != nil {
		return nil, err
	}
	if s.Mode != "" {
		d.Mode = s.Mode
	}
	if d.Mode == "" {
		d.Mode = ModeDaily
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Decode parses a report snapshot. The format is picked from the file extension.
func Decode(path string, raw []byte) (*Data, error) {
	var d Data
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("report: yaml decode: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("report: json decode: %w", err)
		}
	}
	return &d, nil
}
