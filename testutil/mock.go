package testutil

import (
	"context"
	"strings"
	"sync"
)

// MockEmbedder maps text onto a fixed set of keyword axes, one dimension per keyword.
// A text's vector has 1 in every dimension whose keyword it contains (case-insensitive).
// Exact overrides in Vectors win over keyword mapping.
type MockEmbedder struct {
	mu sync.Mutex

	Keywords []string
	Vectors  map[string][]float32

	// Err, when set, is returned by every Generate call.
	Err error

	Calls int
	Texts []string
}

// NewMockEmbedder creates a mock embedder over keywords.
func NewMockEmbedder(keywords ...string) *MockEmbedder {
	return &MockEmbedder{
		Keywords: keywords,
		Vectors:  make(map[string][]float32),
	}
}

// Generate embeds texts.
func (m *MockEmbedder) Generate(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	m.Texts = append(m.Texts, texts...)

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := m.Vectors[text]; ok {
			out[i] = v
			continue
		}
		v := make([]float32, len(m.Keywords))
		lower := strings.ToLower(text)
		for d, kw := range m.Keywords {
			if strings.Contains(lower, kw) {
				v[d] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

// SetErr sets or clears the injected error.
func (m *MockEmbedder) SetErr(err error) {
	m.mu.Lock()
	m.Err = err
	m.mu.Unlock()
}

// CallCount returns the number of Generate calls.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

func (m *MockEmbedder) Dimensions() int { return len(m.Keywords) }
func (m *MockEmbedder) Model() string   { return "mock-keywords" }
func (m *MockEmbedder) Close() error    { return nil }
