package services

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/observability"
)

// Classifier runs the intent and language probes. Both are single-shot
// gateway calls whose output is a hint: anything outside the closed answer
// set, and any call failure, resolves to the default.
type Classifier struct {
	generator TextGenerator
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewClassifier creates a classifier calling generator
func NewClassifier(generator TextGenerator, metrics *observability.Metrics, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		generator: generator,
		metrics:   metrics,
		logger:    logger,
	}
}

// WantsDocument reports whether question asks to create a document.
// Defaults to false.
func (c *Classifier) WantsDocument(ctx context.Context, question string) bool {
	out, err := c.generator.Generate(ctx, IntentPrompt(question), nil)
	if err != nil {
		c.logger.Warn("intent classification failed, assuming NO", "error", err)
		return false
	}

	switch firstToken(out) {
	case "YES", "ДА", "ИӘ":
		return true
	case "NO", "НЕТ", "ЖОҚ":
		return false
	}

	c.parseFailed("intent", out)
	return false
}

// DetectLanguage returns the language of question.
// Defaults to domain.DefaultLanguage.
func (c *Classifier) DetectLanguage(ctx context.Context, question string) domain.Language {
	out, err := c.generator.Generate(ctx, LanguagePrompt(question), nil)
	if err != nil {
		c.logger.Warn("language detection failed, using default", "language", domain.DefaultLanguage, "error", err)
		return domain.DefaultLanguage
	}

	if lang, ok := domain.ParseLanguage(firstToken(out)); ok {
		return lang
	}

	c.parseFailed("language", out)
	return domain.DefaultLanguage
}

func (c *Classifier) parseFailed(classifier, output string) {
	c.metrics.ObserveClassificationDefault(classifier)
	c.logger.Warn("classifier output not understood, using default",
		"error", &domain.ClassificationParseError{Classifier: classifier, Output: output})
}

// firstToken returns the first word of s, uppercased and stripped of
// surrounding punctuation.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	tok := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.ToUpper(tok)
}
