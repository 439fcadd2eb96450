package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven/mocks"
	"github.com/neoosi/neoosi-core/internal/observability"
)

func TestClassifier_WantsDocument(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   bool
	}{
		{name: "yes", output: "YES", want: true},
		{name: "yes with punctuation", output: " Yes.", want: true},
		{name: "russian yes", output: "Да", want: true},
		{name: "no", output: "NO", want: false},
		{name: "kazakh no", output: "Жоқ", want: false},
		{name: "unparseable", output: "Возможно, пользователь хочет", want: false},
		{name: "empty", output: "", want: false},
		{name: "backend error", err: errors.New("timeout"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := mocks.NewMockGenerator("probe")
			gen.Script(mocks.MockResponse{Text: tt.output, Err: tt.err})
			c := NewClassifier(gen, nil, nil)

			assert.Equal(t, tt.want, c.WantsDocument(context.Background(), "Составь протокол собрания"))
			assert.Contains(t, gen.LastPrompt(), "Составь протокол собрания")
		})
	}
}

func TestClassifier_DetectLanguage(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   domain.Language
	}{
		{name: "kazakh", output: "KZ", want: domain.LanguageKazakh},
		{name: "kazakh lowercase", output: "kk", want: domain.LanguageKazakh},
		{name: "russian", output: "RU", want: domain.LanguageRussian},
		{name: "russian with trailing text", output: "RU - русский язык", want: domain.LanguageRussian},
		{name: "unparseable defaults", output: "Қазақша", want: domain.DefaultLanguage},
		{name: "backend error defaults", err: errors.New("unavailable"), want: domain.DefaultLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := mocks.NewMockGenerator("probe")
			gen.Script(mocks.MockResponse{Text: tt.output, Err: tt.err})
			c := NewClassifier(gen, nil, nil)

			assert.Equal(t, tt.want, c.DetectLanguage(context.Background(), "Сәлем"))
		})
	}
}

func TestClassifier_CountsDefaults(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	gen := mocks.NewMockGenerator("probe")
	gen.Script(
		mocks.MockResponse{Text: "не знаю"},
		mocks.MockResponse{Text: "English"},
		mocks.MockResponse{Err: errors.New("down")},
	)
	c := NewClassifier(gen, metrics, nil)

	assert.False(t, c.WantsDocument(context.Background(), "q"))
	assert.Equal(t, domain.DefaultLanguage, c.DetectLanguage(context.Background(), "q"))
	assert.Equal(t, domain.DefaultLanguage, c.DetectLanguage(context.Background(), "q"))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ClassificationDefaults.WithLabelValues("intent")))
	// Backend errors are not parse failures
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ClassificationDefaults.WithLabelValues("language")))
}

func TestFirstToken(t *testing.T) {
	assert.Equal(t, "YES", firstToken("  yes, it is"))
	assert.Equal(t, "ЖОҚ", firstToken("«жоқ»"))
	assert.Equal(t, "", firstToken("   "))
}
