package testutil

import (
	"context"
	"sync"

	"github.com/xhad/sowgen/internal/types"
)

// StaticSource is a types.Source that always returns the same result and
// records the queries it was asked.
type StaticSource struct {
	SourceName string
	Result     types.FetchResult

	mu      sync.Mutex
	queries []string
}

func (s *StaticSource) Name() string { return s.SourceName }

func (s *StaticSource) Fetch(_ context.Context, query string) types.FetchResult {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	r := s.Result
	r.Source = s.SourceName
	return r
}

func (s *StaticSource) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}
