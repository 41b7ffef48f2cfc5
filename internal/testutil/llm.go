package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Call records one request made to a FakeModel.
type Call struct {
	System  string
	User    string
	Options llms.CallOptions
}

// FakeModel is an in-memory llms.Model that replies with canned answers in
// order, repeating the last one once they run out.
type FakeModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []Call
}

func NewFakeModel(replies ...string) *FakeModel {
	return &FakeModel{replies: replies}
}

// FailWith makes every subsequent call return err.
func (m *FakeModel) FailWith(err error) *FakeModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *FakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := Call{}
	for _, opt := range options {
		opt(&call.Options)
	}
	for _, msg := range messages {
		text := partsText(msg.Parts)
		switch msg.Role {
		case llms.ChatMessageTypeSystem:
			call.System = text
		case llms.ChatMessageTypeHuman:
			call.User = text
		}
	}
	m.calls = append(m.calls, call)

	if m.err != nil {
		return nil, m.err
	}

	reply := ""
	if n := len(m.calls); n <= len(m.replies) {
		reply = m.replies[n-1]
	} else if len(m.replies) > 0 {
		reply = m.replies[len(m.replies)-1]
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (m *FakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Calls returns a copy of the recorded requests.
func (m *FakeModel) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func partsText(parts []llms.ContentPart) string {
	var b strings.Builder
	for _, p := range parts {
		if text, ok := p.(llms.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

// FakeEmbedder returns a fixed-size vector derived from text length.
type FakeEmbedder struct {
	Dim   int
	Calls int
}

func (e *FakeEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	e.Calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.Dim)
		for j := range vec {
			vec[j] = float32(len(text)+j) / 100
		}
		out[i] = vec
	}
	return out, nil
}
