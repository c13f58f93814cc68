package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/hrrag/core/index"
	"github.com/siherrmann/hrrag/helper"
	"github.com/siherrmann/hrrag/model"
	"github.com/stretchr/testify/require"
)

const testModel = "test-embedder"

// vectorEmbedder returns fixed vectors for known texts and the zero vector otherwise.
type vectorEmbedder struct {
	vectors map[string][]float32
	dim     int
	model   string
}

func (e *vectorEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := e.vectors[text]
		if !ok {
			v = make([]float32, e.dim)
		}
		out[i] = append([]float32(nil), v...)
	}
	return out, nil
}

func (e *vectorEmbedder) Model() string {
	if e.model != "" {
		return e.model
	}
	return testModel
}

type memStore struct {
	mu       sync.Mutex
	snapshot *index.Snapshot
	err      error
	loads    int
}

func (s *memStore) Save(ctx context.Context, snapshot *index.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	return nil
}

func (s *memStore) Load(ctx context.Context) (*index.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	if s.snapshot == nil {
		return nil, model.ErrNotFound
	}
	return s.snapshot, nil
}

func (s *memStore) Current(ctx context.Context) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return uuid.Nil, s.err
	}
	if s.snapshot == nil {
		return uuid.Nil, model.ErrNotFound
	}
	return s.snapshot.BuildID, nil
}

type recordingGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	calls   int
	system  string
	prompts []string
}

func (g *recordingGenerator) Generate(ctx context.Context, system string, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.system = system
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func testLogger() *slog.Logger {
	return slog.New(helper.NewPrettyHandler(io.Discard, helper.PrettyHandlerOptions{}))
}

type fixtureChunk struct {
	text   string
	source string
	vector []float32
}

// policyFixture holds five chunks from two sources. The three leave chunks
// are closest to the leave question.
var policyFixture = []fixtureChunk{
	{"Employees receive 20 vacation days per year.", "leave_policy.md", []float32{1, 0, 0}},
	{"Unused vacation days carry over until March.", "leave_policy.md", []float32{0.95, 0.3, 0}},
	{"Sick leave requires a doctor's note after 3 days.", "leave_policy.md", []float32{0.9, 0.4, 0}},
	{"Remote work is allowed two days per week.", "remote_policy.md", []float32{0.6, 0, 0.8}},
	{"Remote equipment is reimbursed up to 500 EUR.", "remote_policy.md", []float32{0, 0, 1}},
}

const leaveQuestion = "How many vacation days do I get?"

func newFixtureStore(t *testing.T, fixture []fixtureChunk) (*memStore, *vectorEmbedder) {
	t.Helper()

	embedder := &vectorEmbedder{vectors: map[string][]float32{}, dim: 3}
	flat := index.NewFlat(3)
	chunks := make([]model.Chunk, 0, len(fixture))
	for _, f := range fixture {
		v := append([]float32(nil), f.vector...)
		index.Normalize(v)
		require.NoError(t, flat.Add(v), "Expected adding a fixture vector to succeed")
		chunks = append(chunks, model.Chunk{Text: f.text, Source: f.source, Kind: model.ContentKindProse})
		embedder.vectors[f.text] = f.vector
	}
	embedder.vectors[leaveQuestion] = []float32{1, 0.05, 0}

	snapshot, err := index.NewSnapshot(testModel, flat, chunks)
	require.NoError(t, err, "Expected fixture snapshot to be valid")
	return &memStore{snapshot: snapshot}, embedder
}

func newTestEngine(t *testing.T, store index.Store, embedder *vectorEmbedder, generator Generator, dedup model.DedupPolicy) *Engine {
	t.Helper()

	config := model.DefaultQueryConfig()
	config.Dedup = dedup
	engine, err := NewEngine(store, embedder, generator, config, testLogger())
	require.NoError(t, err, "Expected NewEngine to succeed")
	return engine
}

var errNetwork = errors.New("dial tcp: connection refused")
