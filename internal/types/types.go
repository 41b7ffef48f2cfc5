package types

import (
	"context"

	"github.com/xhad/sowgen/internal/models"
)

// Core interfaces
type Extractor interface {
	Extract(upload models.Upload) (string, error)
}

// Source adapts one external page layout. Layout changes stay inside the
// implementation.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string) FetchResult
}

type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type Processor interface {
	Process(docs []models.Document) ([]models.ProcessedDocument, error)
}

type ClauseLibrary interface {
	Store(ctx context.Context, docs []models.ProcessedDocument) error
	Similar(ctx context.Context, text string, limit int) ([]models.Document, error)
	Close()
}

type FetchStatus string

const (
	StatusOK     FetchStatus = "ok"
	StatusEmpty  FetchStatus = "empty"
	StatusFailed FetchStatus = "failed"
)

// FetchResult separates "nothing matched" from "the fetch broke".
type FetchResult struct {
	Source string
	URL    string
	Items  []string
	Status FetchStatus
	Err    error
}

func (r FetchResult) Failed() bool {
	return r.Status == StatusFailed
}
