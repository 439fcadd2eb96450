// Package topics loads topic routing rules from YAML.
//
// Example file:
//
//	legal_pattern: "(?i)(закон|право)"
//	baseline: [zakon-o-zhilishchnykh-otnosheniyakh]
//	rules:
//	  - name: elevators
//	    keywords: [лифт]
//	    documents: [st_rk_lifty]
//
// Document names are converted with domain.DocumentID, so file stems
// such as st_rk_lifty may be used as written.
package topics

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

type fileRule struct {
	Name      string   `yaml:"name"`
	Keywords  []string `yaml:"keywords"`
	Documents []string `yaml:"documents"`
}

type file struct {
	Rules        []fileRule `yaml:"rules"`
	LegalPattern *string    `yaml:"legal_pattern"`
	Baseline     *[]string  `yaml:"baseline"`
}

// Load reads rules from path. An empty path or a missing file yields the
// built-in defaults. Omitted legal_pattern and baseline keep their defaults.
func Load(path string) (domain.TopicRules, error) {
	defaults := domain.DefaultTopicRules()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return domain.TopicRules{}, fmt.Errorf("read topic rules: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML rules. Unknown fields are rejected.
func Parse(data []byte) (domain.TopicRules, error) {
	rules := domain.DefaultTopicRules()

	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return domain.TopicRules{}, fmt.Errorf("parse topic rules: %w", err)
	}

	if len(f.Rules) == 0 {
		return domain.TopicRules{}, fmt.Errorf("%w: topic rules file has no rules", domain.ErrInvalidInput)
	}

	rules.Rules = make([]domain.TopicRule, 0, len(f.Rules))
	for i, r := range f.Rules {
		if len(r.Keywords) == 0 {
			return domain.TopicRules{}, fmt.Errorf("%w: rule %d (%s) has no keywords", domain.ErrInvalidInput, i, r.Name)
		}
		rules.Rules = append(rules.Rules, domain.TopicRule{
			Name:      r.Name,
			Keywords:  r.Keywords,
			Documents: documentIDs(r.Documents),
		})
	}
	if f.LegalPattern != nil {
		rules.LegalPattern = *f.LegalPattern
	}
	if f.Baseline != nil {
		rules.Baseline = documentIDs(*f.Baseline)
	}

	return rules, nil
}

func documentIDs(names []string) []string {
	ids := make([]string, 0, len(names))
	for _, n := range names {
		if id := domain.DocumentID(n); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
