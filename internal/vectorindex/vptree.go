// Package vectorindex provides an in-memory vantage-point tree over chunk
// embeddings for cosine nearest-neighbour queries.
package vectorindex

import (
	"fmt"
	"math"
	"sort"

	"github.com/viant/vec/search"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.VectorIndex        = (*Index)(nil)
	_ driven.VectorIndexBuilder = Build
)

// Index is an immutable VP-tree. Distances are angular (arccos of cosine
// similarity, scaled to [0,1]) so the triangle inequality holds and pruning
// never drops a true neighbour. Scores reported to callers are plain cosine
// similarity.
type Index struct {
	chunks []*domain.Chunk
	mags   []float32
	dim    int
	root   *node
}

type node struct {
	idx   int
	thr   float64
	left  *node // distance to vantage point <= thr
	right *node
}

// Build constructs an index over chunks. Every chunk must carry an embedding
// of the same dimension.
func Build(chunks []*domain.Chunk) (driven.VectorIndex, error) {
	return New(chunks)
}

// New constructs an index over chunks.
func New(chunks []*domain.Chunk) (*Index, error) {
	idx := &Index{
		chunks: append([]*domain.Chunk(nil), chunks...),
		mags:   make([]float32, len(chunks)),
	}
	if len(chunks) == 0 {
		return idx, nil
	}

	idx.dim = len(chunks[0].Embedding)
	if idx.dim == 0 {
		return nil, fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, chunks[0].ID)
	}
	for i, c := range chunks {
		if len(c.Embedding) != idx.dim {
			return nil, fmt.Errorf("%w: chunk %s has %d dimensions, expected %d",
				domain.ErrInvalidInput, c.ID, len(c.Embedding), idx.dim)
		}
		idx.mags[i] = search.Float32s(c.Embedding).Magnitude()
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	idx.root = idx.build(order)
	return idx, nil
}

func (i *Index) build(items []int) *node {
	if len(items) == 0 {
		return nil
	}
	// Last item is the vantage point; keeps builds deterministic.
	vp := items[len(items)-1]
	items = items[:len(items)-1]
	if len(items) == 0 {
		return &node{idx: vp}
	}

	vec := i.chunks[vp].Embedding
	dists := make([]float64, len(items))
	for k, j := range items {
		dists[k] = i.distance(vec, i.mags[vp], j)
	}

	order := make([]int, len(items))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })

	mid := len(order) / 2
	left := make([]int, 0, mid+1)
	right := make([]int, 0, len(order)-mid-1)
	for rank, k := range order {
		if rank <= mid {
			left = append(left, items[k])
		} else {
			right = append(right, items[k])
		}
	}

	return &node{
		idx:   vp,
		thr:   dists[order[mid]],
		left:  i.build(left),
		right: i.build(right),
	}
}

type candidate struct {
	idx  int
	dist float64
}

// Query returns up to k chunks ordered by decreasing cosine similarity.
// Ties are broken by insertion order.
func (i *Index) Query(vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 || i.root == nil {
		return nil, nil
	}
	if len(vector) != i.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrInvalidInput, len(vector), i.dim)
	}
	qm := search.Float32s(vector).Magnitude()
	if qm == 0 {
		return nil, nil
	}

	best := make([]candidate, 0, k)
	radius := math.Inf(1)

	// offer keeps best sorted ascending by distance, bounded to k
	offer := func(c candidate) {
		if len(best) == k && !closer(c, best[k-1]) {
			return
		}
		pos := sort.Search(len(best), func(n int) bool { return closer(c, best[n]) })
		if len(best) < k {
			best = append(best, candidate{})
		}
		copy(best[pos+1:], best[pos:len(best)-1])
		best[pos] = c
		if len(best) == k {
			radius = best[k-1].dist
		}
	}

	var visit func(n *node)
	visit = func(n *node) {
		if n == nil {
			return
		}
		d := i.distance(vector, qm, n.idx)
		offer(candidate{idx: n.idx, dist: d})

		if d <= n.thr {
			if d-radius <= n.thr {
				visit(n.left)
			}
			if d+radius >= n.thr {
				visit(n.right)
			}
		} else {
			if d+radius >= n.thr {
				visit(n.right)
			}
			if d-radius <= n.thr {
				visit(n.left)
			}
		}
	}
	visit(i.root)

	results := make([]domain.ScoredChunk, len(best))
	for n, c := range best {
		results[n] = domain.ScoredChunk{
			Chunk: i.chunks[c.idx],
			Score: math.Cos(c.dist * math.Pi),
		}
	}
	return results, nil
}

// Len returns the number of indexed chunks
func (i *Index) Len() int {
	return len(i.chunks)
}

// Dimensions returns the embedding dimension
func (i *Index) Dimensions() int {
	return i.dim
}

// distance is the angular distance between vec and the embedding of chunk j.
func (i *Index) distance(vec []float32, mag float32, j int) float64 {
	if mag == 0 || i.mags[j] == 0 {
		return 0.5 // orthogonal
	}
	cosDist := search.Float32s(vec).CosineDistance(i.chunks[j].Embedding)
	sim := 1 - float64(cosDist)
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return math.Acos(sim) / math.Pi
}

func closer(a, b candidate) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.idx < b.idx
}
