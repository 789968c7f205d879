/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// File reads a movie list from disk on every call, so edits take effect
// for the next room without a restart. YAML and JSON (comments allowed)
// are supported, chosen by extension.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Candidates(_ context.Context) ([]Movie, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	movies, err := parseFile(f.path, data)
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, ErrEmpty
	}

	return movies, nil
}

func parseFile(path string, data []byte) ([]Movie, error) {
	var movies []Movie

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &movies); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &movies); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}

	return movies, nil
}
