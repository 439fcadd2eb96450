package normalisers

import (
	"mime"
	"sort"
	"strings"
	"sync"

	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry picks a normaliser for each corpus file by MIME type. Entries are
// kept sorted by priority, highest first; equal priorities keep
// registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []driven.Normaliser
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry knows the formats found in the corpus directory.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PlaintextNormaliser{})
	r.Register(&MarkdownNormaliser{})
	r.Register(&HTMLNormaliser{})
	return r
}

func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, n)
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].Priority() > r.entries[j].Priority()
	})
}

// Get returns the highest priority normaliser for mimeType, or nil.
func (r *Registry) Get(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.entries {
		if matchesMIMEType(n.SupportedTypes(), mimeType) {
			return n
		}
	}
	return nil
}

func (r *Registry) GetAll(mimeType string) []driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []driven.Normaliser
	for _, n := range r.entries {
		if matchesMIMEType(n.SupportedTypes(), mimeType) {
			out = append(out, n)
		}
	}
	return out
}

// List returns the registered MIME types, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, n := range r.entries {
		for _, t := range n.SupportedTypes() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// Normalise runs the best-matching normaliser. Content of an unknown type
// passes through unchanged.
func (r *Registry) Normalise(content, mimeType string) string {
	if n := r.Get(mimeType); n != nil {
		return n.Normalise(content, mimeType)
	}
	return content
}

// matchesMIMEType compares media types without parameters. "text/*" and
// "*/*" act as wildcards.
func matchesMIMEType(supported []string, mimeType string) bool {
	want := mediaType(mimeType)
	major, _, _ := strings.Cut(want, "/")

	for _, s := range supported {
		s = strings.ToLower(strings.TrimSpace(s))
		switch {
		case s == "*/*", s == want:
			return true
		case strings.HasSuffix(s, "/*") && strings.TrimSuffix(s, "/*") == major:
			return true
		}
	}
	return false
}

func mediaType(v string) string {
	if mt, _, err := mime.ParseMediaType(v); err == nil {
		return mt
	}
	base, _, _ := strings.Cut(v, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
