package companion

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// ErrNoFallback is returned when a rule table has an empty fallback pool.
var ErrNoFallback = errors.New("rule table has no fallback lines")

// Rule is one keyword group. Name selects the reply handler.
type Rule struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// RulesFile is the top-level YAML structure.
type RulesFile struct {
	Rules    []Rule   `yaml:"rules"`
	Fallback []string `yaml:"fallback"`
}

// RuleTable is an ordered keyword table. Order encodes priority.
type RuleTable struct {
	byName   map[string]*Rule
	order    []string
	fallback []string
}

// ParseRules builds a RuleTable from YAML.
func ParseRules(data []byte) (*RuleTable, error) {
	var f RulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(f.Fallback) == 0 {
		return nil, ErrNoFallback
	}

	t := &RuleTable{
		byName:   make(map[string]*Rule, len(f.Rules)),
		fallback: f.Fallback,
	}
	for i := range f.Rules {
		r := &f.Rules[i]
		if r.Name == "" {
			return nil, fmt.Errorf("parse rules: rule %d has no name", i)
		}
		if _, dup := t.byName[r.Name]; dup {
			return nil, fmt.Errorf("parse rules: duplicate rule %q", r.Name)
		}
		for k := range r.Keywords {
			r.Keywords[k] = strings.ToLower(r.Keywords[k])
		}
		t.byName[r.Name] = r
		t.order = append(t.order, r.Name)
	}
	return t, nil
}

// DefaultRules returns the embedded rule table.
func DefaultRules() *RuleTable {
	t, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return t
}

// LoadRules reads the rule table at path.
// An empty path or a missing file yields the embedded default table.
func LoadRules(path string) (*RuleTable, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRules(), nil
		}
		return nil, err
	}
	return ParseRules(data)
}

// Matches reports whether any keyword is contained in an already lower-cased message.
func (r *Rule) Matches(lowered string) bool {
	for _, kw := range r.Keywords {
		if kw != "" && strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Match returns the first rule with a keyword contained in the lower-cased utterance.
// Rules for which usable returns false are passed over; a nil usable accepts every rule.
func (t *RuleTable) Match(utterance string, usable func(name string) bool) (*Rule, bool) {
	msg := strings.ToLower(utterance)
	for _, name := range t.order {
		if usable != nil && !usable(name) {
			continue
		}
		if r := t.byName[name]; r.Matches(msg) {
			return r, true
		}
	}
	return nil, false
}

// All returns all rules in priority order.
func (t *RuleTable) All() []*Rule {
	result := make([]*Rule, 0, len(t.order))
	for _, name := range t.order {
		result = append(result, t.byName[name])
	}
	return result
}

// Names returns a sorted list of rule names.
func (t *RuleTable) Names() []string {
	names := make([]string, len(t.order))
	copy(names, t.order)
	sort.Strings(names)
	return names
}

// Fallback returns the generic filler lines.
func (t *RuleTable) Fallback() []string {
	return append([]string(nil), t.fallback...)
}
