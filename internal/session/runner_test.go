package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamgate/internal/genome"
	"dreamgate/internal/growth"
	"dreamgate/internal/guard"
	"dreamgate/internal/pathogen"
	"dreamgate/internal/snapshot"
)

// stubSource builds one clean, in-scope candidate from whatever genome it
// is handed, so every session accepts expansions deterministically.
type stubSource struct{}

func (stubSource) Propose(_ context.Context, g *genome.ConstraintGenome, _ []string) ([]*guard.ExpansionCandidate, error) {
	ligands := g.ObligationLigands()
	if len(ligands) == 0 {
		ligands = g.Ligands
	}
	if len(ligands) == 0 {
		return nil, nil
	}
	l := ligands[0]

	var obligations []string
	if l.ObligationAnchor != "" {
		obligations = []string{l.ObligationAnchor}
	}
	return []*guard.ExpansionCandidate{{
		Content: "The choice pressed closer, and the significance of what she must " +
			"decide gathered weight in the quiet room.",
		TargetLigand:         l,
		ProposedDepth:        l.DepthLevel + 1,
		EmotionalTone:        g.ToneVector,
		ObligationsAddressed: obligations,
	}}, nil
}

func newTestRunner(t *testing.T, store *snapshot.Store) *Runner {
	t.Helper()

	orch, err := growth.NewOrchestrator(&growth.OrchestratorConfig{
		Chain:   guard.NewChain(nil),
		Scanner: pathogen.NewScanner(nil, nil),
	})
	require.NoError(t, err)

	runner, err := NewRunner(&Config{
		Extractor:    genome.NewExtractor(nil),
		Orchestrator: orch,
		Source:       stubSource{},
		Scanner:      pathogen.NewScanner(nil, nil),
		Store:        store,
		Concurrency:  2,
	})
	require.NoError(t, err)
	return runner
}

func TestRunner_ConcurrentSessions(t *testing.T) {
	store, err := snapshot.New(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	defer store.Close()

	runner := newTestRunner(t, store)

	requests := []Request{
		{Chapter: "ch01", Scene: "kitchen", Seed: "Maria must decide before morning. She stood in the kitchen.", MaxIterations: 4},
		{Chapter: "ch01", Scene: "garden", Seed: "Tomas must answer the letter. He waited in the garden.", MaxIterations: 4},
		{Chapter: "ch02", Scene: "kitchen", Seed: "Elena must leave the house. She lingered in the kitchen.", MaxIterations: 4},
	}

	results, err := runner.Run(context.Background(), requests)
	require.NoError(t, err)
	require.Len(t, results, 3)

	seen := make(map[string]bool)
	for i, res := range results {
		require.NotNil(t, res, "results keep request order")
		assert.Equal(t, requests[i].Scene, res.Request.Scene)
		assert.False(t, seen[res.ID], "session IDs are unique")
		seen[res.ID] = true
		assert.NotEmpty(t, res.Pass.Expansions)
		assert.Equal(t, 1.0, res.HealthScore)
	}

	// Each session persisted a snapshot under its own key.
	for _, req := range requests {
		snap, err := store.Latest(context.Background(), req.Chapter, req.Scene)
		require.NoError(t, err)
		assert.Equal(t, req.Seed, snap.SeedText)
		assert.NotEmpty(t, snap.Expansions)
	}
}

func TestRunner_SeedRequired(t *testing.T) {
	runner := newTestRunner(t, nil)

	_, err := runner.Run(context.Background(), []Request{{Chapter: "ch01", Scene: "kitchen"}})
	assert.Error(t, err)
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	_, err := NewRunner(nil)
	assert.Error(t, err)

	_, err = NewRunner(&Config{Source: stubSource{}})
	assert.Error(t, err)
}
