package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CorpusSource = (*FilesystemSource)(nil)

// mimeTypes maps supported file extensions to their MIME type
var mimeTypes = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
}

// FilesystemSource reads the corpus from a directory tree. Each supported
// file is one document whose id is the file name without extension, passed
// through domain.DocumentID.
type FilesystemSource struct {
	root string
}

// NewFilesystemSource creates a source rooted at dir
func NewFilesystemSource(dir string) *FilesystemSource {
	return &FilesystemSource{root: dir}
}

// Location returns the corpus directory
func (s *FilesystemSource) Location() string {
	return s.root
}

// Documents reads every supported file below the root.
// Hidden files and directories are skipped; duplicate ids are an error.
func (s *FilesystemSource) Documents(ctx context.Context) ([]*domain.Document, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", s.root)
	}

	seen := make(map[string]string)
	var docs []*domain.Document

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") && path != s.root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		mimeType, ok := mimeTypes[ext]
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		id := domain.DocumentID(strings.TrimSuffix(name, filepath.Ext(name)))
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("duplicate document id %q: %s and %s", id, prev, rel)
		}
		seen[id] = rel

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}

		docs = append(docs, &domain.Document{
			ID:         id,
			Path:       filepath.ToSlash(rel),
			Title:      title(id),
			MimeType:   mimeType,
			Content:    string(content),
			IngestedAt: time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// title turns an id like "st-rk-lifty" into "st rk lifty"
func title(id string) string {
	return strings.Join(strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' }), " ")
}
