// Package prompts embeds the LLM prompt templates used by the query
// analyzer, the result ranker and the answer generator. Templates live in
// JSON files (one file per concern, key -> template text) and are parsed
// once per process.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// store parses prompt files lazily and keeps them for the process lifetime.
type store struct {
	mu    sync.Mutex
	files map[string]map[string]string
}

var templates = &store{files: make(map[string]map[string]string)}

func (s *store) file(name string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if parsed, ok := s.files[name]; ok {
		return parsed, nil
	}

	data, err := promptFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
	}

	var parsed map[string]string
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
	}

	s.files[name] = parsed
	return parsed, nil
}

// Get retrieves a prompt template by file name and key. The file name has no
// path component (e.g. "analysis.json").
func Get(filename, key string) (string, error) {
	file, err := templates.file(filename)
	if err != nil {
		return "", err
	}
	template, ok := file[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return template, nil
}

// MustGet is Get for prompts the pipeline cannot run without; a missing
// template is a packaging error, so it panics.
func MustGet(filename, key string) string {
	template, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return template
}

// Format substitutes {{.Key}} placeholders with values from data.
// Placeholders without a corresponding key are left untouched.
func Format(template string, data map[string]string) string {
	for key, value := range data {
		template = strings.ReplaceAll(template, "{{."+key+"}}", value)
	}
	return template
}

// List returns the prompt keys available in a file.
func List(filename string) ([]string, error) {
	file, err := templates.file(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(file))
	for key := range file {
		keys = append(keys, key)
	}
	return keys, nil
}

// ClearCache drops parsed files so the next Get re-reads them. Test helper.
func ClearCache() {
	templates.mu.Lock()
	templates.files = make(map[string]map[string]string)
	templates.mu.Unlock()
}
