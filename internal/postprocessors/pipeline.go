package postprocessors

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline implements PostProcessorPipeline.
// It chains multiple post-processors in order, starting with a Chunker.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates a new post-processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order.
// Input is the normalised document content.
// Output is the processed chunks ready for embedding/indexing.
func (p *Pipeline) Process(content string) []driven.Chunk {
	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]driven.PostProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	// Start with a single chunk containing all content
	chunks := []driven.Chunk{
		{
			Content:     content,
			Position:    0,
			StartOffset: 0,
			EndOffset:   utf8.RuneCountInString(content),
		},
	}

	for _, proc := range processors {
		chunks = proc.Process(chunks)
	}

	return chunks
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates a pipeline with the default processors.
func DefaultPipeline() *Pipeline {
	return NewPipelineWithConfig(DefaultChunkConfig())
}

// NewPipelineWithConfig creates a chunking pipeline with the given config.
func NewPipelineWithConfig(config ChunkConfig) *Pipeline {
	p := NewPipeline()
	p.Add(NewChunker(config))
	return p
}

// DefaultSeparators are tried in order when looking for a chunk boundary:
// paragraphs and sections first, then lines, sentences, clauses and words.
var DefaultSeparators = []string{
	"\n\n",
	"\n",
	". ", "! ", "? ", "… ",
	"; ", ": ",
	", ",
	" ",
}

// ChunkConfig configures the chunker behavior. Sizes are in runes.
type ChunkConfig struct {
	// MaxChunkSize is the maximum runes per chunk
	MaxChunkSize int

	// Overlap is the rune overlap between consecutive chunks
	Overlap int

	// Separators in preference order. A boundary is placed right after the
	// first separator (in this order) found in the tail of the window.
	Separators []string
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize: 1000,
		Overlap:      200,
		Separators:   DefaultSeparators,
	}
}

// Chunker splits content into overlapping chunks.
// Chunk content is always an exact slice of the input, so chunks ordered by
// position and stripped of their overlap reconstruct the input.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*Chunker)(nil)

// NewChunker creates a new chunker with the given config.
// Invalid sizes fall back to the defaults.
func NewChunker(config ChunkConfig) *Chunker {
	def := DefaultChunkConfig()
	if config.MaxChunkSize <= 0 {
		config.MaxChunkSize = def.MaxChunkSize
	}
	if config.Overlap < 0 || config.Overlap >= config.MaxChunkSize {
		config.Overlap = config.MaxChunkSize / 5
	}
	if config.Separators == nil {
		config.Separators = DefaultSeparators
	}
	return &Chunker{config: config}
}

// Process splits content into chunks.
func (c *Chunker) Process(chunks []driven.Chunk) []driven.Chunk {
	var result []driven.Chunk
	position := 0

	for _, chunk := range chunks {
		newChunks := c.splitContent(chunk.Content, chunk.StartOffset, &position)
		result = append(result, newChunks...)
	}

	return result
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Order returns 0 - chunker should be first.
func (c *Chunker) Order() int {
	return 0
}

// splitContent splits content into overlapping chunks.
func (c *Chunker) splitContent(content string, baseOffset int, position *int) []driven.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	runes := []rune(content)
	n := len(runes)

	if n <= c.config.MaxChunkSize {
		chunk := driven.Chunk{
			Content:     content,
			Position:    *position,
			StartOffset: baseOffset,
			EndOffset:   baseOffset + n,
		}
		*position++
		return []driven.Chunk{chunk}
	}

	var chunks []driven.Chunk
	start := 0

	for start < n {
		end := start + c.config.MaxChunkSize
		if end > n {
			end = n
		}

		if end < n {
			if bp := c.findBreakPoint(runes, start, end); bp > start {
				end = bp
			}
		}

		chunks = append(chunks, driven.Chunk{
			Content:     string(runes[start:end]),
			Position:    *position,
			StartOffset: baseOffset + start,
			EndOffset:   baseOffset + end,
		})
		*position++

		if end >= n {
			break
		}

		start = c.nextStart(runes, start, end)
	}

	return chunks
}

// nextStart places the next chunk Overlap runes before end, nudged forward
// to a word start when one is close. It always advances past start.
func (c *Chunker) nextStart(runes []rune, start, end int) int {
	next := end - c.config.Overlap
	if next <= start {
		return end
	}

	limit := next + c.config.Overlap/2
	for i := next; i < limit && i < end; i++ {
		if i > 0 && unicode.IsSpace(runes[i-1]) && !unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return next
}

// findBreakPoint returns the rune index right after the preferred separator
// in the second half of the window, or -1 when none is present.
func (c *Chunker) findBreakPoint(runes []rune, start, maxEnd int) int {
	// Boundaries must leave room for the overlap so the next chunk advances.
	searchStart := start + c.config.MaxChunkSize/2
	if floor := start + c.config.Overlap + 1; searchStart < floor {
		searchStart = floor
	}
	if searchStart >= maxEnd {
		return -1
	}

	window := string(runes[searchStart:maxEnd])

	for _, sep := range c.config.Separators {
		if sep == "" {
			continue
		}
		if idx := strings.LastIndex(window, sep); idx != -1 {
			// idx is a byte offset into window; convert to runes
			return searchStart + utf8.RuneCountInString(window[:idx]) + utf8.RuneCountInString(sep)
		}
	}

	return -1
}
