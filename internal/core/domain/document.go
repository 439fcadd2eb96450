package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Document is one named source text of the corpus (a standard or a law).
// Immutable once ingested.
type Document struct {
	ID         string    `json:"id"`   // Stable citation name, see DocumentID
	Path       string    `json:"path"` // Location inside the corpus directory
	Title      string    `json:"title"`
	MimeType   string    `json:"mime_type"`
	Content    string    `json:"-"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Chunk is a contiguous slice of a document's normalised text.
// Chunks are the unit of indexing, matching and context assembly.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Position   int       `json:"position"`   // 0-based ordinal within the document
	StartChar  int       `json:"start_char"` // Rune offset into the document text
	EndChar    int       `json:"end_char"`
}

// ChunkID builds the stable identifier of the chunk at position within documentID.
func ChunkID(documentID string, position int) string {
	return fmt.Sprintf("%s#%d", documentID, position)
}

// DocumentWithChunks combines a document with its chunks
type DocumentWithChunks struct {
	Document *Document `json:"document"`
	Chunks   []*Chunk  `json:"chunks"`
}

// markupRunes are removed from generated answers, so a document id that
// contains one cannot be cited.
const markupRunes = "*#_`~"

// DocumentID turns a file name stem into a document id that survives
// answer post-processing. Markup characters, spaces and dashes collapse
// into single dashes: "st_rk_lifty" becomes "st-rk-lifty".
func DocumentID(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(name) {
		if r == '-' || unicode.IsSpace(r) || strings.ContainsRune(markupRunes, r) {
			dash = b.Len() > 0
			continue
		}
		if dash {
			b.WriteByte('-')
			dash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
