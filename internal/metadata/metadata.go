// Package metadata assembles free-form key/value documents from the
// environment, a JSON file, an inline JSON string and key=value flags. It
// backs both the report context and the upload configuration.
package metadata

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
)

// Environment prefixes read by the CLI.
const (
	ContextEnv = "PYJUDGE_CONTEXT"
	UploadEnv  = "PYJUDGE_UPLOAD_CONFIG"
	WebhookEnv = "PYJUDGE_WEBHOOK"
)

// Sources lists every place a document can come from. Later sources win:
// environment, then File, then JSON, then Pairs.
type Sources struct {
	EnvPrefix string
	File      string
	JSON      string
	Pairs     []string
}

// Build merges all configured sources using the process environment.
func Build(src Sources) (any, error) {
	return BuildFrom(src, os.Environ())
}

// BuildFrom is Build with an explicit environment in os.Environ form.
func BuildFrom(src Sources, environ []string) (any, error) {
	var layers []any

	if src.EnvPrefix != "" {
		if m := FromEnviron(src.EnvPrefix, environ); m != nil {
			layers = append(layers, m)
		}
	}

	if src.File != "" {
		data, err := os.ReadFile(src.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", src.File, err)
		}
		v, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", src.File, err)
		}
		layers = append(layers, v)
	}

	if src.JSON != "" {
		v, err := decode([]byte(src.JSON))
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		layers = append(layers, v)
	}

	if len(src.Pairs) > 0 {
		m := make(map[string]any, len(src.Pairs))
		for _, p := range src.Pairs {
			k, v, err := ParsePair(p)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		layers = append(layers, m)
	}

	return Merge(layers...), nil
}

// ParsePair splits key=value and infers the value type.
func ParsePair(pair string) (string, any, error) {
	k, v, ok := strings.Cut(pair, "=")
	if !ok {
		return "", nil, fmt.Errorf("invalid format, expected key=value: %s", pair)
	}
	k = strings.TrimSpace(k)
	if k == "" {
		return "", nil, fmt.Errorf("empty key in %q", pair)
	}
	return k, Infer(strings.TrimSpace(v)), nil
}

// Infer converts s to an int, float64 or bool when it parses as one, in
// that order. Only the literals "true" and "false" become booleans.
func Infer(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// FromEnviron reads PREFIX (a JSON object) and PREFIX_KEY=value entries.
// Keys are lowercased; individual entries override the JSON object.
func FromEnviron(prefix string, environ []string) map[string]any {
	out := make(map[string]any)
	sub := prefix + "_"

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name != prefix || value == "" {
			continue
		}
		if m, ok := mustObject(value); ok {
			maps.Copy(out, m)
		}
	}

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, sub) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, sub))
		if key == "" {
			continue
		}
		out[key] = Infer(strings.TrimSpace(value))
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// Merge folds object layers left to right. A leading non-object layer is
// returned as-is; non-objects after an object are ignored.
func Merge(layers ...any) any {
	out := make(map[string]any)
	for _, l := range layers {
		switch v := l.(type) {
		case nil:
		case map[string]any:
			maps.Copy(out, v)
		default:
			if len(out) == 0 {
				return v
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Object returns doc as a map, or an error when it is not a JSON object.
func Object(doc any) (map[string]any, error) {
	if doc == nil {
		return nil, nil
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", doc)
	}
	return m, nil
}

func decode(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func mustObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	return m, true
}
