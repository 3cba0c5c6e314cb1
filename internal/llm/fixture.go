package llm

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
)

// fixtureDimensions keeps fixture vectors small and cheap to compare.
const fixtureDimensions = 256

// FixtureEmbedder is a deterministic, offline service.EmbeddingProvider.
// Vectors are hashed bags of words, so texts sharing tokens score a positive
// cosine similarity and unrelated texts score near zero. Canned vectors can
// be supplied per text for exact control in tests.
type FixtureEmbedder struct {
	canned map[string][]float32
	mu     sync.RWMutex
	calls  int
}

// NewFixtureEmbedder creates a fixture embedder with optional canned vectors.
func NewFixtureEmbedder(canned map[string][]float32) *FixtureEmbedder {
	return &FixtureEmbedder{canned: canned}
}

// Embed returns one unit vector per input text, in input order.
func (f *FixtureEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := f.canned[text]; ok {
			vectors[i] = vec
			continue
		}
		vectors[i] = bagOfWordsVector(text)
	}
	return vectors, nil
}

// Calls returns the number of Embed invocations, for cache assertions.
func (f *FixtureEmbedder) Calls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls
}

func bagOfWordsVector(text string) []float32 {
	vec := make([]float32, fixtureDimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%fixtureDimensions] += 1
	}
	normalizeVector(vec)
	return vec
}

// FixtureCompleter is an offline service.CompletionClient returning a fixed
// response. An empty response yields a well-formed "keep the current
// assignment" correction payload.
type FixtureCompleter struct {
	response string
	mu       sync.Mutex
	prompts  []string
}

// NewFixtureCompleter creates a fixture completer with the given response.
func NewFixtureCompleter(response string) *FixtureCompleter {
	if response == "" {
		response = `{"commodity": "", "confidence": 0, "reasoning": "no change recommended"}`
	}
	return &FixtureCompleter{response: response}
}

// Complete records the prompt and returns the canned response.
func (f *FixtureCompleter) Complete(_ context.Context, prompt string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.response, nil
}

// Prompts returns the prompts seen so far.
func (f *FixtureCompleter) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}
