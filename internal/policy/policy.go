// Package policy holds the per-schema verification rules: which credential
// domains are checked for a schema and which field names qualify.
package policy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Rule configures one credential domain within a schema.
type Rule struct {
	FieldPatterns []string `yaml:"field_patterns" json:"field_patterns"`
	Required      bool     `yaml:"required" json:"required"`
}

// MatchesField reports whether a field name contains any configured
// pattern, case-insensitively.
func (r Rule) MatchesField(fieldName string) bool {
	name := strings.ToLower(fieldName)
	for _, p := range r.FieldPatterns {
		if p != "" && strings.Contains(name, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// SchemaPolicy configures verification for one extraction schema.
type SchemaPolicy struct {
	SchemaID string          `yaml:"schema_id" json:"schema_id"`
	Domains  map[string]Rule `yaml:"domains" json:"domains"`
}

// Enabled reports whether any domain has at least one field pattern.
func (p *SchemaPolicy) Enabled() bool {
	if p == nil {
		return false
	}
	for _, rule := range p.Domains {
		if len(rule.FieldPatterns) > 0 {
			return true
		}
	}
	return false
}

// Set resolves schema IDs to policies.
type Set struct {
	policies map[string]*SchemaPolicy
	fallback *SchemaPolicy
}

// Default returns the built-in policy set: physician credential checks for
// every schema, matching the fields the retirement-allowance forms carry.
func Default() *Set {
	return &Set{
		policies: map[string]*SchemaPolicy{},
		fallback: &SchemaPolicy{
			Domains: map[string]Rule{
				"physician": {
					FieldPatterns: []string{"physician", "doctor", "npi", "license"},
					Required:      true,
				},
			},
		},
	}
}

// LoadDir reads every *.yaml policy file in dir into a Set. Schemas without
// a file fall back to the built-in default policy.
func LoadDir(dir string) (*Set, error) {
	set := Default()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "policy: read dir %s", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if p.SchemaID == "" {
			return nil, eris.Errorf("policy: %s is missing schema_id", path)
		}
		set.policies[p.SchemaID] = p
		zap.L().Debug("policy: loaded schema policy",
			zap.String("schema_id", p.SchemaID),
			zap.String("file", path),
		)
	}
	return set, nil
}

func loadFile(path string) (*SchemaPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "policy: read %s", path)
	}
	var p SchemaPolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "policy: parse %s", path)
	}
	return &p, nil
}

// ForSchema returns the policy for a schema ID, falling back to the default
// policy when no schema-specific file was loaded.
func (s *Set) ForSchema(schemaID string) *SchemaPolicy {
	if p, ok := s.policies[schemaID]; ok {
		return p
	}
	return s.fallback
}
