// Package index maps documents to search indices and resolves their
// identifiers.
package index

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry maps document-type codes to index names and index names to their
// creation bodies (settings and mappings). A Registry is immutable after
// construction.
type Registry struct {
	Codes    map[string]string         `yaml:"codes"`
	Fallback string                    `yaml:"fallback"`
	Schema   map[string]any            `yaml:"schema,omitempty"`
	Schemas  map[string]map[string]any `yaml:"schemas,omitempty"`
}

// DefaultRegistry returns the built-in DART type-code table.
func DefaultRegistry() Registry {
	return Registry{
		Codes: map[string]string{
			"11011": "business-report",
			"11012": "half-year-report",
			"11013": "quarterly-report",
			"10001": "securities-registration",
			"00760": "audit-report",
			"00761": "consolidated-audit-report",
		},
		Fallback: "other",
		Schema:   DefaultSchema(),
	}
}

// OpenRegistry loads the registry at path, or returns DefaultRegistry when
// path is empty.
func OpenRegistry(path string) (Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	return LoadRegistry(path)
}

// LoadRegistry reads a registry from a YAML file. An omitted schema falls
// back to DefaultSchema.
func LoadRegistry(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Registry{}, fmt.Errorf("read registry: %w", err)
	}
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Registry{}, fmt.Errorf("decode registry %s: %w", path, err)
	}
	if r.Schema == nil {
		r.Schema = DefaultSchema()
	}
	if err := r.Validate(); err != nil {
		return Registry{}, fmt.Errorf("registry %s: %w", path, err)
	}
	return r, nil
}

// Validate checks that every code and the fallback name a usable index.
func (r Registry) Validate() error {
	if strings.TrimSpace(r.Fallback) == "" {
		return errors.New("fallback index is required")
	}
	if err := validName(r.Fallback); err != nil {
		return err
	}
	for code, name := range r.Codes {
		if err := validName(name); err != nil {
			return fmt.Errorf("code %s: %w", code, err)
		}
	}
	return nil
}

// validName applies the index-name rules shared by OpenSearch and
// Elasticsearch that matter for registry entries.
func validName(name string) error {
	switch {
	case name == "":
		return errors.New("index name is empty")
	case name != strings.ToLower(name):
		return fmt.Errorf("index name %q must be lowercase", name)
	case strings.ContainsAny(name, ` "*\<|,>/?#:`):
		return fmt.Errorf("index name %q contains an invalid character", name)
	case strings.HasPrefix(name, "_") || strings.HasPrefix(name, "-") || strings.HasPrefix(name, "+"):
		return fmt.Errorf("index name %q has an invalid prefix", name)
	}
	return nil
}

// IndexFor returns the index for a document-type code, or the fallback.
func (r Registry) IndexFor(code string) string {
	if name, ok := r.Codes[strings.TrimSpace(code)]; ok {
		return name
	}
	return r.Fallback
}

// Indices returns every index the registry can route to, sorted.
func (r Registry) Indices() []string {
	seen := map[string]bool{r.Fallback: true}
	for _, name := range r.Codes {
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Body returns the creation body for an index.
func (r Registry) Body(index string) map[string]any {
	if body, ok := r.Schemas[index]; ok {
		return body
	}
	if r.Schema != nil {
		return r.Schema
	}
	return DefaultSchema()
}
