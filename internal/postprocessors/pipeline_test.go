package postprocessors

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// reconstruct joins chunks ordered by position, dropping each chunk's overlap
// with the previous one.
func reconstruct(chunks []driven.Chunk) string {
	var b strings.Builder
	prevEnd := 0
	for i, c := range chunks {
		runes := []rune(c.Content)
		skip := 0
		if i > 0 {
			skip = prevEnd - c.StartOffset
		}
		b.WriteString(string(runes[skip:]))
		prevEnd = c.EndOffset
	}
	return b.String()
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if len(p.processors) != 0 {
		t.Errorf("expected empty processors, got %d", len(p.processors))
	}
}

func TestPipeline_Process_EmptyContent(t *testing.T) {
	p := DefaultPipeline()

	if chunks := p.Process(""); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
	if chunks := p.Process("  \n\n\t "); len(chunks) != 0 {
		t.Fatalf("expected no chunks for whitespace, got %d", len(chunks))
	}
}

func TestPipeline_Process_SmallContent(t *testing.T) {
	p := DefaultPipeline()

	content := "Статья 1. Основные понятия"
	chunks := p.Process(content)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != content {
		t.Errorf("expected %q, got %q", content, chunks[0].Content)
	}
	if chunks[0].Position != 0 {
		t.Errorf("expected position 0, got %d", chunks[0].Position)
	}
	if chunks[0].EndOffset != utf8.RuneCountInString(content) {
		t.Errorf("expected end offset %d runes, got %d", utf8.RuneCountInString(content), chunks[0].EndOffset)
	}
}

func TestPipeline_Process_FixedOverlapWithoutSeparators(t *testing.T) {
	config := ChunkConfig{MaxChunkSize: 100, Overlap: 20, Separators: []string{}}
	p := NewPipelineWithConfig(config)

	content := strings.Repeat("а", 250)
	chunks := p.Process(content)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		overlap := chunks[i-1].EndOffset - chunks[i].StartOffset
		if overlap != config.Overlap {
			t.Errorf("expected overlap %d, got %d", config.Overlap, overlap)
		}
	}

	for i, chunk := range chunks {
		if chunk.Position != i {
			t.Errorf("expected position %d, got %d", i, chunk.Position)
		}
		if n := utf8.RuneCountInString(chunk.Content); n > config.MaxChunkSize {
			t.Errorf("chunk %d has %d runes, max %d", i, n, config.MaxChunkSize)
		}
	}
}

func TestPipeline_Process_OrderedProcessors(t *testing.T) {
	p := NewPipeline()

	var order []string
	p.Add(&recordingProcessor{name: "late", order: 10, log: &order})
	p.Add(NewChunker(DefaultChunkConfig()))
	p.Add(&recordingProcessor{name: "middle", order: 5, log: &order})

	_ = p.Process("Вывоз мусора")

	names := p.List()
	if len(names) != 3 {
		t.Fatalf("expected 3 processors, got %d", len(names))
	}
	if names[0] != "chunker" || names[1] != "middle" || names[2] != "late" {
		t.Errorf("unexpected processor order %v", names)
	}
	if strings.Join(order, ",") != "middle,late" {
		t.Errorf("unexpected run order %v", order)
	}
}

func TestDefaultPipeline(t *testing.T) {
	p := DefaultPipeline()

	names := p.List()
	if len(names) != 1 || names[0] != "chunker" {
		t.Fatalf("expected only chunker, got %v", names)
	}
}

func TestDefaultChunkConfig(t *testing.T) {
	config := DefaultChunkConfig()

	if config.MaxChunkSize != 1000 {
		t.Errorf("expected MaxChunkSize 1000, got %d", config.MaxChunkSize)
	}
	if config.Overlap != 200 {
		t.Errorf("expected Overlap 200, got %d", config.Overlap)
	}
	if len(config.Separators) == 0 || config.Separators[0] != "\n\n" {
		t.Errorf("expected paragraph separator first, got %v", config.Separators)
	}
}

func TestNewChunker_FixesInvalidConfig(t *testing.T) {
	c := NewChunker(ChunkConfig{MaxChunkSize: 0, Overlap: 5000})
	if c.config.MaxChunkSize != 1000 {
		t.Errorf("expected default size, got %d", c.config.MaxChunkSize)
	}
	if c.config.Overlap >= c.config.MaxChunkSize {
		t.Errorf("overlap %d must be below size %d", c.config.Overlap, c.config.MaxChunkSize)
	}
}

func TestChunker_NameAndOrder(t *testing.T) {
	c := NewChunker(DefaultChunkConfig())
	if c.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got %s", c.Name())
	}
	if c.Order() != 0 {
		t.Errorf("expected order 0, got %d", c.Order())
	}
}

func TestChunker_PrefersParagraphBoundary(t *testing.T) {
	c := NewChunker(ChunkConfig{MaxChunkSize: 80, Overlap: 10})

	first := "Статья 1. Собственники обязаны содержать общее имущество."
	second := "Статья 2. Председатель ОСИ отчитывается перед собранием ежегодно."
	content := first + "\n\n" + second

	chunks := c.Process([]driven.Chunk{{Content: content}})
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != first+"\n\n" {
		t.Errorf("expected first chunk to end at the paragraph break, got %q", chunks[0].Content)
	}
}

func TestChunker_PrefersSentenceOverWord(t *testing.T) {
	c := NewChunker(ChunkConfig{MaxChunkSize: 60, Overlap: 10})

	content := "Вывоз мусора производится ежедневно. Контейнеры моются раз в неделю летом и зимой."
	chunks := c.Process([]driven.Chunk{{Content: content}})

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Content, "ежедневно. ") {
		t.Errorf("expected break after the sentence, got %q", chunks[0].Content)
	}
}

func TestChunker_NoBreakPoint(t *testing.T) {
	c := NewChunker(ChunkConfig{MaxChunkSize: 50, Overlap: 10})

	content := strings.Repeat("x", 100)
	chunks := c.Process([]driven.Chunk{{Content: content}})

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if last := chunks[len(chunks)-1]; last.EndOffset != 100 {
		t.Errorf("chunks don't cover all content: covered %d of 100", last.EndOffset)
	}
}

func TestChunker_RoundTrip(t *testing.T) {
	paragraph := "Капитальный ремонт общего имущества объекта кондоминиума проводится за счёт накоплений собственников. " +
		"Решение принимается собранием; перечень работ утверждается председателем, а смета согласовывается с советом дома.\n"
	tests := []struct {
		name    string
		content string
		config  ChunkConfig
	}{
		{"default config", strings.Repeat(paragraph+"\n", 40), DefaultChunkConfig()},
		{"small chunks", strings.Repeat(paragraph, 10), ChunkConfig{MaxChunkSize: 120, Overlap: 30}},
		{"no overlap", strings.Repeat(paragraph, 10), ChunkConfig{MaxChunkSize: 90, Overlap: 0}},
		{"no separators", strings.Repeat("абв", 500), ChunkConfig{MaxChunkSize: 77, Overlap: 13, Separators: []string{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := NewPipelineWithConfig(tt.config).Process(tt.content)
			if len(chunks) == 0 {
				t.Fatal("expected chunks")
			}

			if got := reconstruct(chunks); got != tt.content {
				t.Errorf("round trip mismatch: got %d runes, want %d", utf8.RuneCountInString(got), utf8.RuneCountInString(tt.content))
			}

			runes := []rune(tt.content)
			for i, c := range chunks {
				if c.Content != string(runes[c.StartOffset:c.EndOffset]) {
					t.Errorf("chunk %d content does not match its offsets", i)
				}
				if i > 0 {
					overlap := chunks[i-1].EndOffset - c.StartOffset
					if overlap < 0 || overlap > tt.config.Overlap {
						t.Errorf("chunk %d overlap %d outside [0, %d]", i, overlap, tt.config.Overlap)
					}
					if c.StartOffset <= chunks[i-1].StartOffset {
						t.Errorf("chunk %d does not advance", i)
					}
				}
			}
		})
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.PostProcessorPipeline = NewPipeline()
	var _ driven.PostProcessor = NewChunker(DefaultChunkConfig())
}

type recordingProcessor struct {
	name  string
	order int
	log   *[]string
}

func (r *recordingProcessor) Process(chunks []driven.Chunk) []driven.Chunk {
	*r.log = append(*r.log, r.name)
	return chunks
}

func (r *recordingProcessor) Name() string { return r.name }
func (r *recordingProcessor) Order() int   { return r.order }
