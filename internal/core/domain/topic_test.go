package domain

import (
	"regexp"
	"testing"
)

func TestDefaultTopicRules(t *testing.T) {
	rules := DefaultTopicRules()

	if len(rules.Rules) == 0 {
		t.Fatal("expected built-in rules")
	}
	if len(rules.Baseline) != 1 || rules.Baseline[0] != DocHousingLaw {
		t.Errorf("expected housing law as baseline, got %v", rules.Baseline)
	}

	seen := make(map[string]bool)
	for _, r := range rules.Rules {
		if seen[r.Name] {
			t.Errorf("duplicate rule name %s", r.Name)
		}
		seen[r.Name] = true
		if len(r.Keywords) == 0 || len(r.Documents) == 0 {
			t.Errorf("rule %s must have keywords and documents", r.Name)
		}
	}
}

func TestDefaultLegalPattern(t *testing.T) {
	re := regexp.MustCompile(DefaultLegalPattern)

	matches := []string{
		"Что такое капитальный ремонт?",
		"Какие обязанности у председателя?",
		"Закон о жилищных отношениях",
		"ПИБ дегеніміз не?",
		"what does this standard mean",
	}
	for _, q := range matches {
		if !re.MatchString(q) {
			t.Errorf("expected legal match for %q", q)
		}
	}

	misses := []string{
		"Когда вывезут мусор?",
		"Батареи холодные",
	}
	for _, q := range misses {
		if re.MatchString(q) {
			t.Errorf("unexpected legal match for %q", q)
		}
	}
}
