// Package catalog holds the versioned document-type rule table used by the
// classifier. The built-in table can be overridden by a YAML file so the
// rule set can evolve without a rebuild.
package catalog

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/taxkit/tax-document-renamer/internal/models"
)

var codePattern = regexp.MustCompile(`^\d{4}$`)

// Catalog is an ordered, validated set of document-type rules.
type Catalog struct {
	version string
	rules   []models.DocumentTypeRule
	byCode  map[string]int
}

// New validates the rule set and builds the lookup index. Codes must be
// unique 4-digit strings and every rule needs a positive priority.
func New(version string, rules []models.DocumentTypeRule) (*Catalog, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("catalog: empty rule set")
	}

	byCode := make(map[string]int, len(rules))
	for i, rule := range rules {
		if !codePattern.MatchString(rule.Code) {
			return nil, fmt.Errorf("catalog: rule %d: invalid code %q", i, rule.Code)
		}
		if _, dup := byCode[rule.Code]; dup {
			return nil, fmt.Errorf("catalog: duplicate code %q", rule.Code)
		}
		if rule.Priority <= 0 {
			return nil, fmt.Errorf("catalog: rule %s: priority must be positive", rule.Code)
		}
		if rule.Label == "" {
			return nil, fmt.Errorf("catalog: rule %s: missing label", rule.Code)
		}
		byCode[rule.Code] = i
	}

	return &Catalog{version: version, rules: rules, byCode: byCode}, nil
}

// Default returns the built-in rule table.
func Default() *Catalog {
	c, err := New("builtin", defaultRules())
	if err != nil {
		// The built-in table is validated by tests; a failure here is a bug.
		panic(err)
	}
	return c
}

type catalogFile struct {
	Version string                    `yaml:"version"`
	Rules   []models.DocumentTypeRule `yaml:"rules"`
}

// Load reads a rule table from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}

	for i := range file.Rules {
		if file.Rules[i].Domain == "" {
			file.Rules[i].Domain = models.DomainForCode(file.Rules[i].Code)
		}
	}

	return New(file.Version, file.Rules)
}

// Version reports where the table came from.
func (c *Catalog) Version() string { return c.version }

// Rules returns the rules in declaration order.
func (c *Catalog) Rules() []models.DocumentTypeRule { return c.rules }

// ByCode looks up a rule by its 4-digit code.
func (c *Catalog) ByCode(code string) (models.DocumentTypeRule, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return models.DocumentTypeRule{}, false
	}
	return c.rules[i], true
}

// Len reports the number of rules.
func (c *Catalog) Len() int { return len(c.rules) }
