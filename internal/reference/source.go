package reference

import (
	"context"
	_ "embed"
	"fmt"
	"os"
)

//go:embed data/default.json
var defaultDocument []byte

// Source yields a reference document
type Source interface {
	Name() string
	Load(ctx context.Context) (*Document, error)
}

// EmbeddedSource serves the dataset compiled into the binary
type EmbeddedSource struct{}

// NewEmbeddedSource creates the default source
func NewEmbeddedSource() *EmbeddedSource { return &EmbeddedSource{} }

func (s *EmbeddedSource) Name() string { return "embedded" }

func (s *EmbeddedSource) Load(ctx context.Context) (*Document, error) {
	return Parse(defaultDocument)
}

// FileSource reads a JSON document from disk on every load
type FileSource struct {
	Path string
}

// NewFileSource creates a source for the file at path
func NewFileSource(path string) *FileSource { return &FileSource{Path: path} }

func (s *FileSource) Name() string { return "file:" + s.Path }

func (s *FileSource) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}
	return Parse(data)
}
