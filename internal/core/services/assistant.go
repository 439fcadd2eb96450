package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/attribute"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
	"github.com/neoosi/neoosi-core/internal/core/ports/driving"
	"github.com/neoosi/neoosi-core/internal/observability"
)

// Verify interface compliance
var _ driving.AssistantService = (*AssistantService)(nil)

const (
	historyWriteTimeout = 10 * time.Second
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// AssistantConfig holds dependencies for AssistantService.
type AssistantConfig struct {
	Classifier *Classifier
	Router     *TopicRouter
	Retriever  Retriever
	Assembler  *ContextAssembler
	Generator  TextGenerator           // Conversation-mode gateway
	History    driven.ChatHistoryStore // Optional

	// HistoryTurns prior turns are sent with the answer request; 0 keeps
	// answer calls single-shot.
	HistoryTurns int

	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// AssistantService runs the answer pipeline:
// intent -> language -> route -> retrieve -> assemble -> generate -> strip.
type AssistantService struct {
	classifier   *Classifier
	router       *TopicRouter
	retriever    Retriever
	assembler    *ContextAssembler
	generator    TextGenerator
	history      driven.ChatHistoryStore
	historyTurns int
	metrics      *observability.Metrics
	logger       *slog.Logger

	pending sync.WaitGroup
}

// NewAssistantService creates a new AssistantService
func NewAssistantService(cfg AssistantConfig) *AssistantService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AssistantService{
		classifier:   cfg.Classifier,
		router:       cfg.Router,
		retriever:    cfg.Retriever,
		assembler:    cfg.Assembler,
		generator:    cfg.Generator,
		history:      cfg.History,
		historyTurns: cfg.HistoryTurns,
		metrics:      cfg.Metrics,
		logger:       logger,
	}
}

// Answer never fails: a failed generation becomes an apology in the
// detected language.
func (s *AssistantService) Answer(ctx context.Context, question, userID string) (answer *domain.Answer) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "assistant.answer")
	outcome := "ok"
	defer func() {
		span.SetAttributes(
			attribute.String("tier", string(answer.Tier)),
			attribute.String("language", string(answer.Language)),
			attribute.String("outcome", outcome),
		)
		span.End()
		s.metrics.ObserveAnswer(string(answer.Tier), outcome, time.Since(start))
	}()

	question = strings.TrimSpace(question)
	if question == "" {
		return canned(domain.EmptyQuestionMessage, domain.DefaultLanguage)
	}

	if s.classifier.WantsDocument(ctx, question) {
		s.logger.Info("document creation intent, redirecting", "user_id", userID)
		answer = canned(domain.DocumentRedirectMessage, domain.DefaultLanguage)
		s.appendHistory(ctx, userID, question, answer.Text)
		return answer
	}

	lang := s.classifier.DetectLanguage(ctx, question)
	turns := s.recentTurns(ctx, userID)

	if isGreeting(question) && len(turns) == 0 {
		answer = canned(lang.Welcome(), lang)
		s.appendHistory(ctx, userID, question, answer.Text)
		return answer
	}

	docs := s.router.Route(question)
	chunks, err := s.retriever.Retrieve(ctx, question, docs)
	if err != nil {
		// Retrieval problems downgrade to an advisory answer.
		s.logger.Warn("retrieval failed, answering without context", "user_id", userID, "error", err)
		chunks = nil
	}

	grounding := s.assembler.Build(chunks)

	answer = &domain.Answer{Language: lang}
	var prompt string
	if grounding == domain.NoRelevantData {
		answer.Tier = domain.AnswerTierAdvisory
		prompt = AdvisoryPrompt(question, lang)
	} else {
		answer.Tier = domain.AnswerTierGrounded
		answer.Sources = documentIDs(chunks)
		prompt = GroundedPrompt(question, grounding, lang)
	}

	s.logger.Debug("answer prepared",
		"user_id", userID,
		"language", lang,
		"routed_documents", len(docs),
		"chunks", len(chunks),
		"tier", answer.Tier)

	var conversation []*domain.ChatTurn
	if s.historyTurns > 0 {
		conversation = turns
	}

	text, err := s.generator.Generate(ctx, prompt, conversation)
	if err != nil {
		outcome = "error"
		s.logger.Error("generation failed", "user_id", userID, "tier", answer.Tier, "error", err)
		return &domain.Answer{Text: lang.Apology(), Language: lang, Tier: answer.Tier}
	}

	answer.Text = strings.TrimSpace(StripMarkup(text))
	s.appendHistory(ctx, userID, question, answer.Text)
	return answer
}

// recentTurns loads the turns needed for greeting detection and
// conversation mode. Failures are logged and read as "no history".
func (s *AssistantService) recentTurns(ctx context.Context, userID string) []*domain.ChatTurn {
	if s.history == nil || userID == "" {
		return nil
	}
	limit := s.historyTurns
	if limit < 1 {
		limit = 1
	}
	turns, err := s.history.List(ctx, userID, domain.ChatCategoryGeneral, limit)
	if err != nil {
		s.logger.Warn("failed to read chat history", "user_id", userID, "error", err)
		return nil
	}
	return turns
}

// appendHistory stores the turn in the background. It never delays the
// answer; failures are logged.
func (s *AssistantService) appendHistory(ctx context.Context, userID, question, answer string) {
	if s.history == nil || userID == "" {
		return
	}
	turn := domain.NewChatTurn(userID, domain.ChatCategoryGeneral, question, answer)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
		defer cancel()

		if err := s.history.Append(ctx, turn); err != nil {
			s.logger.Error("failed to save chat turn", "user_id", userID, "turn_id", turn.ID, "error", err)
		}
	}()
}

// Wait blocks until background history writes have finished
func (s *AssistantService) Wait() {
	s.pending.Wait()
}

// History returns the stored turns of a user, oldest first
func (s *AssistantService) History(ctx context.Context, userID string, category domain.ChatCategory, limit int) ([]*domain.ChatTurn, error) {
	if s.history == nil {
		return nil, domain.ErrServiceUnavailable
	}
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if category == "" {
		category = domain.ChatCategoryGeneral
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, category)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.history.List(ctx, userID, category, limit)
}

func canned(text string, lang domain.Language) *domain.Answer {
	return &domain.Answer{Text: text, Language: lang, Tier: domain.AnswerTierCanned}
}

// documentIDs returns the distinct document ids of chunks in order
func documentIDs(chunks []*domain.Chunk) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, c := range chunks {
		if _, ok := seen[c.DocumentID]; ok {
			continue
		}
		seen[c.DocumentID] = struct{}{}
		ids = append(ids, c.DocumentID)
	}
	return ids
}

var greetings = toSet(
	"привет", "приветствую", "здравствуйте", "здравствуй", "добрый день", "добрый вечер",
	"доброе утро", "доброго дня", "салем", "сәлем", "сәлеметсіз бе", "сәлеметсіздер ме",
	"қайырлы күн", "қайырлы таң", "қайырлы кеш", "ассалаумағалейкум", "hello", "hi",
)

// isGreeting reports whether question is nothing but a greeting
func isGreeting(question string) bool {
	words := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	_, ok := greetings[strings.Join(words, " ")]
	return ok
}
