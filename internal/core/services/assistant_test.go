package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven/mocks"
)

type assistantFixture struct {
	*indexFixture
	probe     *mocks.MockGenerator
	chat      *mocks.MockGenerator
	history   *mocks.MockChatHistoryStore
	assistant *AssistantService
}

func newAssistantFixture(t *testing.T, intent, language string, historyTurns int) *assistantFixture {
	t.Helper()
	f := &assistantFixture{
		indexFixture: newIndexFixture(t),
		probe:        probeGenerator(intent, language),
		chat:         mocks.NewMockGenerator("primary"),
		history:      mocks.NewMockChatHistoryStore(),
	}
	f.initialize(t)

	settings := testSettings()
	settings.HistoryTurns = historyTurns

	f.assistant = NewAssistantService(AssistantConfig{
		Classifier:   NewClassifier(f.probe, nil, nil),
		Router:       newDefaultRouter(t),
		Retriever:    NewRetriever(settings, f.services, nil, nil),
		Assembler:    NewContextAssembler(settings.ContextBudget),
		Generator:    f.chat,
		History:      f.history,
		HistoryTurns: settings.HistoryTurns,
	})
	return f
}

func assertPlainText(t *testing.T, text string) {
	t.Helper()
	for _, c := range []string{"*", "#", "_", "`", "~"} {
		assert.NotContains(t, text, c)
	}
}

func TestAssistant_GroundedAnswer(t *testing.T) {
	f := newAssistantFixture(t, "NO", "RU", 0)
	f.chat.DefaultText = "**Капитальный ремонт** - это замена изношенных конструкций дома.\n_Источник:_ " + domain.DocCapitalRepair

	answer := f.assistant.Answer(context.Background(), "Что такое капитальный ремонт?", "user-1")
	f.assistant.Wait()

	assert.Equal(t, domain.AnswerTierGrounded, answer.Tier)
	assert.Equal(t, domain.LanguageRussian, answer.Language)
	assert.Contains(t, answer.Sources, domain.DocCapitalRepair)
	assertPlainText(t, answer.Text)
	assert.Equal(t, "Капитальный ремонт - это замена изношенных конструкций дома.\nИсточник: "+domain.DocCapitalRepair, answer.Text)

	prompt := f.chat.LastPrompt()
	assert.Contains(t, prompt, "КОНТЕКСТ:")
	assert.Contains(t, prompt, "SOURCE: "+domain.DocCapitalRepair)
	assert.Contains(t, prompt, "100%")
	assert.NotContains(t, prompt, domain.NoRelevantData)
	// Routing keeps unrelated documents out of the context
	assert.NotContains(t, prompt, "SOURCE: "+domain.DocWasteRemoval)
	assert.NotContains(t, prompt, "SOURCE: "+domain.DocHeating)

	assert.Nil(t, f.chat.Calls()[0].History)
	assert.Equal(t, 1, f.history.Len())
}

func TestAssistant_CitationSurvivesPostProcessing(t *testing.T) {
	f := newAssistantFixture(t, "NO", "RU", 0)
	f.chat.GenerateFn = func(ctx context.Context, prompt string, history []*domain.ChatTurn) (string, error) {
		// Cite every SOURCE line of the context, the way the model is told to
		var cites []string
		for _, line := range strings.Split(prompt, "\n") {
			if id, ok := strings.CutPrefix(line, "SOURCE: "); ok {
				cites = append(cites, "*"+id+"*")
			}
		}
		return "Ответ.\nИсточник: " + strings.Join(cites, ", "), nil
	}

	answer := f.assistant.Answer(context.Background(), "Кто отвечает за лифт и капитальный ремонт?", "user-1")

	require.Equal(t, domain.AnswerTierGrounded, answer.Tier)
	require.NotEmpty(t, answer.Sources)
	for _, id := range answer.Sources {
		assert.Contains(t, answer.Text, id)
	}
}

func TestAssistant_AdvisoryWhenRetrievalFails(t *testing.T) {
	f := newAssistantFixture(t, "NO", "KZ", 0)
	f.embedder.SetFailAll(errors.New("quota"))
	f.chat.DefaultText = domain.LanguageKazakh.Disclaimer() + " Жалпы ұсыныс."

	answer := f.assistant.Answer(context.Background(), "Күрделі жөндеу деген не?", "user-1")

	assert.Equal(t, domain.AnswerTierAdvisory, answer.Tier)
	assert.Equal(t, domain.LanguageKazakh, answer.Language)
	assert.Empty(t, answer.Sources)
	assert.True(t, strings.HasPrefix(answer.Text, domain.LanguageKazakh.Disclaimer()))
	assert.Contains(t, f.chat.LastPrompt(), domain.LanguageKazakh.Disclaimer())
}

func TestAssistant_PassthroughRetrieverIsAdvisory(t *testing.T) {
	f := newAssistantFixture(t, "NO", "RU", 0)
	f.assistant.retriever = PassthroughRetriever{}

	answer := f.assistant.Answer(context.Background(), "Что такое капитальный ремонт?", "")

	assert.Equal(t, domain.AnswerTierAdvisory, answer.Tier)
	assert.NotContains(t, f.chat.LastPrompt(), "КОНТЕКСТ:")
}

func TestAssistant_EmptyQuestion(t *testing.T) {
	f := newAssistantFixture(t, "NO", "RU", 0)

	answer := f.assistant.Answer(context.Background(), "   ", "user-1")

	assert.Equal(t, domain.EmptyQuestionMessage, answer.Text)
	assert.Equal(t, domain.AnswerTierCanned, answer.Tier)
	assert.Equal(t, 0, f.probe.CallCount())
	assert.Equal(t, 0, f.chat.CallCount())
}

func TestAssistant_DocumentIntentRedirects(t *testing.T) {
	f := newAssistantFixture(t, "YES", "RU", 0)

	answer := f.assistant.Answer(context.Background(), "Составь протокол общего собрания", "user-1")
	f.assistant.Wait()

	assert.Equal(t, domain.DocumentRedirectMessage, answer.Text)
	assert.Equal(t, domain.AnswerTierCanned, answer.Tier)
	assert.Equal(t, 1, f.probe.CallCount())
	assert.Equal(t, 0, f.chat.CallCount())
	assert.Equal(t, 1, f.history.Len())
}

func TestAssistant_Greeting(t *testing.T) {
	t.Run("fresh conversation", func(t *testing.T) {
		f := newAssistantFixture(t, "NO", "KZ", 0)

		answer := f.assistant.Answer(context.Background(), "Сәлем!", "user-1")

		assert.Equal(t, domain.LanguageKazakh.Welcome(), answer.Text)
		assert.Equal(t, domain.AnswerTierCanned, answer.Tier)
		assert.Equal(t, 0, f.chat.CallCount())
	})

	t.Run("ongoing conversation", func(t *testing.T) {
		f := newAssistantFixture(t, "NO", "RU", 0)
		f.history.Seed(domain.NewChatTurn("user-1", domain.ChatCategoryGeneral, "Кто платит за лифт?", "Собственники."))

		answer := f.assistant.Answer(context.Background(), "Привет", "user-1")

		assert.NotEqual(t, domain.AnswerTierCanned, answer.Tier)
		assert.Equal(t, 1, f.chat.CallCount())
	})
}

func TestAssistant_GenerationFailureApologises(t *testing.T) {
	f := newAssistantFixture(t, "NO", "KZ", 0)
	f.chat.Script(mocks.MockResponse{Err: &domain.GenerationError{Backend: "primary", Attempts: 3, Err: domain.ErrBackendOverloaded}})

	answer := f.assistant.Answer(context.Background(), "Лифт жұмыс істемейді", "user-1")
	f.assistant.Wait()

	assert.Equal(t, domain.LanguageKazakh.Apology(), answer.Text)
	assert.Equal(t, domain.LanguageKazakh, answer.Language)
	assert.Equal(t, 0, f.history.Len())
}

func TestAssistant_ConversationHistory(t *testing.T) {
	f := newAssistantFixture(t, "NO", "RU", 2)
	f.history.Seed(
		domain.NewChatTurn("user-1", domain.ChatCategoryGeneral, "q1", "a1"),
		domain.NewChatTurn("user-1", domain.ChatCategoryGeneral, "q2", "a2"),
		domain.NewChatTurn("user-1", domain.ChatCategoryGeneral, "q3", "a3"),
	)

	f.assistant.Answer(context.Background(), "А капитальный ремонт?", "user-1")

	history := f.chat.Calls()[0].History
	require.Len(t, history, 2)
	assert.Equal(t, "q2", history[0].Question)
	assert.Equal(t, "q3", history[1].Question)
}

func TestAssistant_HistoryFailureDoesNotBlockAnswer(t *testing.T) {
	f := newAssistantFixture(t, "NO", "RU", 0)
	f.history.AppendFn = func(*domain.ChatTurn) error { return errors.New("db down") }
	f.history.ListFn = func(string, domain.ChatCategory, int) ([]*domain.ChatTurn, error) {
		return nil, errors.New("db down")
	}

	answer := f.assistant.Answer(context.Background(), "Что такое капитальный ремонт?", "user-1")
	f.assistant.Wait()

	assert.Equal(t, domain.AnswerTierGrounded, answer.Tier)
	assert.Equal(t, 0, f.history.Len())
}

func TestAssistant_History(t *testing.T) {
	f := newAssistantFixture(t, "NO", "RU", 0)

	var gotLimit int
	f.history.ListFn = func(userID string, category domain.ChatCategory, limit int) ([]*domain.ChatTurn, error) {
		gotLimit = limit
		return nil, nil
	}

	_, err := f.assistant.History(context.Background(), "user-1", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)

	_, err = f.assistant.History(context.Background(), "user-1", domain.ChatCategoryDocument, 1000)
	require.NoError(t, err)
	assert.Equal(t, 200, gotLimit)

	_, err = f.assistant.History(context.Background(), "user-1", "unknown", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.assistant.History(context.Background(), "", domain.ChatCategoryGeneral, 10)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	noStore := NewAssistantService(AssistantConfig{})
	_, err = noStore.History(context.Background(), "user-1", domain.ChatCategoryGeneral, 10)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestIsGreeting(t *testing.T) {
	assert.True(t, isGreeting("Привет!"))
	assert.True(t, isGreeting("  Добрый  день. "))
	assert.True(t, isGreeting("Сәлеметсіз бе?"))
	assert.False(t, isGreeting("Привет, кто чинит лифт?"))
	assert.False(t, isGreeting(""))
}
