package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

// TopicRouter narrows retrieval to the documents a question is about.
type TopicRouter struct {
	rules    []domain.TopicRule
	legal    *regexp.Regexp
	baseline []string
}

// NewTopicRouter compiles rules. Keywords are lowercased once here.
func NewTopicRouter(rules domain.TopicRules) (*TopicRouter, error) {
	r := &TopicRouter{
		baseline: append([]string(nil), rules.Baseline...),
	}

	if rules.LegalPattern != "" {
		re, err := regexp.Compile(rules.LegalPattern)
		if err != nil {
			return nil, fmt.Errorf("%w: legal pattern: %v", domain.ErrInvalidInput, err)
		}
		r.legal = re
	}

	for _, rule := range rules.Rules {
		if len(rule.Documents) == 0 {
			return nil, fmt.Errorf("%w: topic rule %q has no documents", domain.ErrInvalidInput, rule.Name)
		}
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if kw = strings.ToLower(kw); strings.TrimSpace(kw) != "" {
				keywords = append(keywords, kw)
			}
		}
		r.rules = append(r.rules, domain.TopicRule{
			Name:      rule.Name,
			Keywords:  keywords,
			Documents: append([]string(nil), rule.Documents...),
		})
	}

	return r, nil
}

// Route returns the union of documents of every matching rule, plus the
// baseline documents for legal/definition questions. An empty set means
// no restriction.
func (r *TopicRouter) Route(question string) domain.DocumentSet {
	docs := domain.NewDocumentSet()
	// Padding lets keywords with a leading space match at the start.
	q := " " + strings.ToLower(question) + " "

	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(q, kw) {
				docs.Add(rule.Documents...)
				break
			}
		}
	}

	if r.IsLegalQuestion(question) {
		docs.Add(r.baseline...)
	}

	return docs
}

// IsLegalQuestion reports whether question asks about duties, rights,
// laws, standards or definitions.
func (r *TopicRouter) IsLegalQuestion(question string) bool {
	return r.legal != nil && r.legal.MatchString(question)
}
