package domain

import "time"

// IndexSource tells how the live index came to be
type IndexSource string

const (
	IndexSourceBuilt  IndexSource = "built"  // Embedded from the corpus
	IndexSourceLoaded IndexSource = "loaded" // Restored from the persisted artifact
)

// IndexArtifactVersion is bumped whenever the persisted layout changes
const IndexArtifactVersion = 1

// IndexArtifact is the persisted form of an index: every chunk with its
// embedding plus enough metadata to detect a stale or foreign artifact.
type IndexArtifact struct {
	Version     int       `json:"version"`
	Fingerprint string    `json:"fingerprint"` // Hash of corpus text and segmentation settings
	Model       string    `json:"model"`
	Dimensions  int       `json:"dimensions"`
	BuiltAt     time.Time `json:"built_at"`
	Chunks      []*Chunk  `json:"chunks"`
}

// IndexStatus describes the live index
type IndexStatus struct {
	Ready       bool        `json:"ready"`
	Source      IndexSource `json:"source,omitempty"`
	Documents   int         `json:"documents"`
	Chunks      int         `json:"chunks"`
	Dimensions  int         `json:"dimensions"`
	Model       string      `json:"model,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
	BuiltAt     *time.Time  `json:"built_at,omitempty"`
	Rebuilding  bool        `json:"rebuilding"`
}
