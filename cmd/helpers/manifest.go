package helpers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestEntry is one submission in a batch manifest. Spec may be a JSON
// string or an inline mapping. Relative file paths are resolved against the
// manifest's directory.
type ManifestEntry struct {
	ID         string        `yaml:"id"`
	Source     string        `yaml:"source"`
	SourceFile string        `yaml:"source_file"`
	Spec       any           `yaml:"spec"`
	SpecFile   string        `yaml:"spec_file"`
	Timeout    time.Duration `yaml:"timeout"`
}

type manifestDoc struct {
	Submissions []ManifestEntry `yaml:"submissions"`
}

// LoadManifest reads a YAML or JSON manifest. Both a bare list and an object
// with a "submissions" list are accepted.
func LoadManifest(path string) ([]Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var entries []ManifestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		var doc manifestDoc
		if err2 := yaml.Unmarshal(data, &doc); err2 != nil {
			return nil, fmt.Errorf("invalid manifest %s: %w", path, err2)
		}
		entries = doc.Submissions
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("manifest %s lists no submissions", path)
	}

	base := filepath.Dir(path)
	subs := make([]Submission, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		sub, err := e.resolve(base)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i+1, err)
		}
		if sub.ID != "" {
			if j, dup := seen[sub.ID]; dup {
				return nil, fmt.Errorf("manifest entry %d: duplicate id %q (first at entry %d)", i+1, sub.ID, j+1)
			}
			seen[sub.ID] = i
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (e ManifestEntry) resolve(base string) (Submission, error) {
	sub := Submission{ID: e.ID, Timeout: e.Timeout}
	if e.Timeout < 0 {
		return sub, fmt.Errorf("timeout must not be negative")
	}

	switch {
	case e.Source != "" && e.SourceFile != "":
		return sub, fmt.Errorf("source and source_file are mutually exclusive")
	case e.SourceFile != "":
		data, err := os.ReadFile(resolvePath(base, e.SourceFile))
		if err != nil {
			return sub, fmt.Errorf("failed to read source: %w", err)
		}
		sub.Source = string(data)
	case e.Source != "":
		sub.Source = e.Source
	default:
		return sub, fmt.Errorf("one of source or source_file is required")
	}

	switch {
	case e.Spec != nil && e.SpecFile != "":
		return sub, fmt.Errorf("spec and spec_file are mutually exclusive")
	case e.SpecFile != "":
		data, err := os.ReadFile(resolvePath(base, e.SpecFile))
		if err != nil {
			return sub, fmt.Errorf("failed to read spec: %w", err)
		}
		sub.Spec = string(data)
	case e.Spec != nil:
		if s, ok := e.Spec.(string); ok {
			sub.Spec = s
			break
		}
		data, err := json.Marshal(e.Spec)
		if err != nil {
			return sub, fmt.Errorf("spec is not representable as JSON: %w", err)
		}
		sub.Spec = string(data)
	default:
		return sub, fmt.Errorf("one of spec or spec_file is required")
	}

	return sub, nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
