package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven/mocks"
	"github.com/neoosi/neoosi-core/internal/core/ports/driving"
	"github.com/neoosi/neoosi-core/internal/normalisers"
	"github.com/neoosi/neoosi-core/internal/postprocessors"
	"github.com/neoosi/neoosi-core/internal/runtime"
	"github.com/neoosi/neoosi-core/internal/vectorindex"
)

// testCorpus is a miniature version of the bundled corpus
func testCorpus() map[string]string {
	return map[string]string{
		domain.DocCapitalRepair: "Капитальный ремонт общего имущества проводится не реже одного раза в двадцать пять лет. " +
			"Капитальный ремонт финансируется из накоплений собственников квартир.",
		domain.DocCommonProperty: "К общему имуществу относятся подъезды, подвалы, крыши и лифты многоквартирного жилого дома.",
		domain.DocHousingLaw:     "Закон устанавливает права и обязанности собственников квартир и нежилых помещений.",
		domain.DocWasteRemoval:   "Вывоз мусора осуществляется по договору с региональным оператором.",
		domain.DocHeating:        "Отопление подается в течение отопительного сезона.",
	}
}

func testSettings() domain.RetrievalSettings {
	s := domain.DefaultRetrievalSettings()
	s.ChunkSize = 200
	s.ChunkOverlap = 20
	return s
}

func newTestLoader(source driven.CorpusSource, settings domain.RetrievalSettings) *CorpusLoader {
	pipeline := postprocessors.NewPipelineWithConfig(postprocessors.ChunkConfig{
		MaxChunkSize: settings.ChunkSize,
		Overlap:      settings.ChunkOverlap,
	})
	return NewCorpusLoader(source, normalisers.DefaultRegistry(), pipeline, nil)
}

func newTestServices(embedder driven.EmbeddingService) *runtime.Services {
	services := runtime.NewServices(domain.NewRuntimeConfig("memory", "inline"))
	if embedder != nil {
		services.SetEmbeddingService(embedder)
	}
	return services
}

type indexFixture struct {
	source   *mocks.MockCorpusSource
	embedder *mocks.MockEmbeddingService
	store    *mocks.MockIndexStore
	lock     *mocks.MockDistributedLock
	services *runtime.Services
	index    driving.IndexService
}

func newIndexFixture(t *testing.T) *indexFixture {
	t.Helper()
	f := &indexFixture{
		source:   mocks.NewMockCorpusSource(testCorpus()),
		embedder: mocks.NewMockEmbeddingService(),
		store:    mocks.NewMockIndexStore(),
		lock:     mocks.NewMockDistributedLock(),
	}
	f.embedder.SetDimensions(16)
	f.services = newTestServices(f.embedder)
	f.index = f.newIndexService(f.services)
	return f
}

func (f *indexFixture) newIndexService(services *runtime.Services) driving.IndexService {
	return NewIndexService(IndexServiceConfig{
		Loader:   newTestLoader(f.source, testSettings()),
		Store:    f.store,
		Services: services,
		Builder:  vectorindex.Build,
		Lock:     f.lock,
		Settings: testSettings(),
	})
}

func (f *indexFixture) initialize(t *testing.T) {
	t.Helper()
	require.NoError(t, f.index.Initialize(context.Background()))
}

// probeGenerator answers the intent and language prompts
func probeGenerator(intent, language string) *mocks.MockGenerator {
	gen := mocks.NewMockGenerator("probe")
	gen.GenerateFn = func(ctx context.Context, prompt string, history []*domain.ChatTurn) (string, error) {
		if strings.Contains(prompt, "YES или NO") {
			return intent, nil
		}
		return language, nil
	}
	return gen
}

func chunkOf(doc string, pos int, text string, embedding ...float32) *domain.Chunk {
	return &domain.Chunk{
		ID:         domain.ChunkID(doc, pos),
		DocumentID: doc,
		Content:    text,
		Position:   pos,
		Embedding:  embedding,
	}
}

func contents(chunks []*domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}
