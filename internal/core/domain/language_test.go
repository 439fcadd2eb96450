package domain

import (
	"strings"
	"testing"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
		ok   bool
	}{
		{"RU", LanguageRussian, true},
		{" kz\n", LanguageKazakh, true},
		{"kk", LanguageKazakh, true},
		{"Russian", LanguageRussian, true},
		{"en", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseLanguage(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLanguage(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLanguageTexts(t *testing.T) {
	for _, lang := range []Language{LanguageRussian, LanguageKazakh} {
		if lang.Disclaimer() == "" || lang.Apology() == "" || lang.Welcome() == "" {
			t.Errorf("missing text for %s", lang)
		}
	}
	if LanguageRussian.Disclaimer() == LanguageKazakh.Disclaimer() {
		t.Error("disclaimers should differ per language")
	}
	if LanguageRussian.Apology() != "Извините, сейчас я не могу ответить. Попробуйте позже." {
		t.Errorf("unexpected apology %q", LanguageRussian.Apology())
	}
	if DefaultLanguage != LanguageRussian {
		t.Errorf("expected Russian default, got %s", DefaultLanguage)
	}
}

func TestDocumentRedirectIsBilingual(t *testing.T) {
	if !strings.Contains(DocumentRedirectMessage, "Документы") || !strings.Contains(DocumentRedirectMessage, "Құжаттар") {
		t.Error("redirect should name the documents section in both languages")
	}
}
