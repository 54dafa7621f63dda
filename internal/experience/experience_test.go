// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package experience_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairn-ai/kairn/internal/events"
	"github.com/kairn-ai/kairn/internal/experience"
	"github.com/kairn-ai/kairn/internal/graph"
	"github.com/kairn-ai/kairn/internal/store"
	"github.com/kairn-ai/kairn/internal/store/sqlite"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

const day = 24 * time.Hour

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store  *sqlite.Store
	graph  *graph.Engine
	engine *experience.Engine
	clock  *clock
	bus    *events.Bus
	seen   map[events.Type]int
}

func newHarness(t *testing.T, wrap func(store.ExperienceStore) store.ExperienceStore) *harness {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "exp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	h := &harness{store: s, clock: &clock{now: t0}, bus: events.NewBus(), seen: map[events.Type]int{}}
	h.bus.OnAll(func(_ context.Context, ev events.Event) error {
		h.seen[ev.Type]++
		return nil
	})

	var es store.ExperienceStore = s.Experiences()
	if wrap != nil {
		es = wrap(es)
	}
	h.graph = graph.New(s, h.bus, graph.WithClock(h.clock.Now))
	h.engine = experience.New(es, h.graph, h.bus, experience.WithClock(h.clock.Now))
	return h
}

func (h *harness) save(t *testing.T, content string, typ store.ExperienceType, conf store.Confidence) *store.Experience {
	t.Helper()
	exp, err := h.engine.Save(context.Background(), experience.SaveInput{Content: content, Type: typ, Confidence: conf})
	require.NoError(t, err)
	return exp
}

func TestRelevance_MonotonicDecay(t *testing.T) {
	for _, typ := range store.ExperienceTypes {
		for _, conf := range []store.Confidence{store.ConfidenceHigh, store.ConfidenceMedium, store.ConfidenceLow} {
			exp := &store.Experience{Score: 1, DecayRate: experience.DecayRate(typ, conf), CreatedAt: t0}
			prev := experience.Relevance(exp, t0)
			assert.InDelta(t, 1.0, prev, 1e-12)
			for d := 1; d <= 1000; d += 7 {
				r := experience.Relevance(exp, t0.Add(time.Duration(d)*day))
				assert.LessOrEqual(t, r, prev, "%s/%s day %d", typ, conf, d)
				prev = r
			}
		}
	}
}

func TestRelevance_HalfLives(t *testing.T) {
	divisors := map[store.Confidence]float64{
		store.ConfidenceHigh:   1,
		store.ConfidenceMedium: 2,
		store.ConfidenceLow:    4,
	}
	for _, typ := range store.ExperienceTypes {
		for conf, div := range divisors {
			t.Run(string(typ)+"/"+string(conf), func(t *testing.T) {
				exp := &store.Experience{Score: 1, DecayRate: experience.DecayRate(typ, conf), CreatedAt: t0}
				days := experience.HalfLife(typ) / div
				at := t0.Add(time.Duration(days * float64(day)))
				assert.InEpsilon(t, 0.5, experience.Relevance(exp, at), 0.01)
			})
		}
	}
}

func TestRelevance_BeforeCreationIsScore(t *testing.T) {
	exp := &store.Experience{Score: 0.8, DecayRate: 0.1, CreatedAt: t0}
	assert.InDelta(t, 0.8, experience.Relevance(exp, t0.Add(-10*day)), 1e-12)
}

func TestDecayRate(t *testing.T) {
	assert.InDelta(t, 0.693147/200, experience.DecayRate(store.ExperienceSolution, store.ConfidenceHigh), 1e-6)
	assert.InDelta(t, 4*0.693147/50, experience.DecayRate(store.ExperienceWorkaround, store.ConfidenceLow), 1e-6)
	assert.Zero(t, experience.DecayRate("insight", store.ConfidenceHigh))
}

func TestSave(t *testing.T) {
	h := newHarness(t, nil)
	exp := h.save(t, "Use context deadlines on RPCs", store.ExperiencePattern, "")

	assert.Equal(t, store.ConfidenceHigh, exp.Confidence, "confidence defaults to high")
	assert.Equal(t, 1.0, exp.Score)
	assert.InDelta(t, experience.DecayRate(store.ExperiencePattern, store.ConfidenceHigh), exp.DecayRate, 1e-12)
	assert.Equal(t, 1, h.seen[events.ExperienceCreated])

	got, err := h.engine.Get(context.Background(), exp.ID)
	require.NoError(t, err)
	assert.Equal(t, exp.Content, got.Content)
	assert.Zero(t, got.AccessCount, "Get does not count as an access")
}

func TestSave_Validation(t *testing.T) {
	h := newHarness(t, nil)
	tests := []struct {
		name string
		in   experience.SaveInput
	}{
		{"empty content", experience.SaveInput{Content: "  ", Type: store.ExperienceSolution}},
		{"bad type", experience.SaveInput{Content: "x", Type: "insight"}},
		{"bad confidence", experience.SaveInput{Content: "x", Type: store.ExperienceSolution, Confidence: "certain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.Save(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, kairnerr.HasCode(err, kairnerr.CodeExperienceSaveInvalid))
		})
	}
}

func TestScenario_SolutionAfter200Days(t *testing.T) {
	h := newHarness(t, nil)
	exp := h.save(t, "Pin the Go toolchain in CI", store.ExperienceSolution, store.ConfidenceHigh)

	h.clock.Advance(200 * day)
	stored, err := h.engine.Get(context.Background(), exp.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, h.engine.Relevance(stored), 0.005)
}

func TestSearch_OrdersByCurrentRelevance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	old := h.save(t, "postgres index bloat", store.ExperienceWorkaround, store.ConfidenceLow)
	h.clock.Advance(30 * day)
	fresh := h.save(t, "postgres autovacuum settings", store.ExperiencePattern, store.ConfidenceHigh)
	h.save(t, "unrelated kubernetes note", store.ExperienceGotcha, store.ConfidenceHigh)

	got, err := h.engine.Search(ctx, experience.SearchInput{Text: "postgres"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, fresh.ID, got[0].Experience.ID)
	assert.Equal(t, old.ID, got[1].Experience.ID)
	assert.Greater(t, got[0].Relevance, got[1].Relevance)

	// 30 days of low-confidence workaround decay leaves ~0.19.
	got, err = h.engine.Search(ctx, experience.SearchInput{Text: "postgres", MinRelevance: 0.5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fresh.ID, got[0].Experience.ID)

	got, err = h.engine.Search(ctx, experience.SearchInput{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = h.engine.Search(ctx, experience.SearchInput{Type: store.ExperienceGotcha})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = h.engine.Search(ctx, experience.SearchInput{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func countPromotedNodes(t *testing.T, h *harness) int {
	t.Helper()
	nodes, err := h.graph.Query(context.Background(), store.NodeQuery{Type: experience.PromotedNodeType, Limit: 50})
	require.NoError(t, err)
	return len(nodes)
}

func TestAccess_PromotesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	exp := h.save(t, "Retry idempotent writes with exponential backoff", store.ExperienceSolution, store.ConfidenceHigh)

	for i := 1; i < experience.PromotionThreshold; i++ {
		got, err := h.engine.Access(ctx, exp.ID)
		require.NoError(t, err)
		assert.Equal(t, i, got.AccessCount)
		assert.Empty(t, got.PromotedToNodeID)
	}

	got, err := h.engine.Access(ctx, exp.ID)
	require.NoError(t, err)
	require.NotEmpty(t, got.PromotedToNodeID)
	nodeID := got.PromotedToNodeID

	node, err := h.graph.GetNode(ctx, nodeID)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, experience.PromotedNodeType, node.Type)
	assert.Equal(t, store.DefaultNamespace, node.Namespace)
	assert.Equal(t, "Solution: Retry idempotent writes with exponential backoff", node.Name)
	assert.Equal(t, exp.Content, node.Description)
	assert.Equal(t, exp.ID, node.Properties["source_experience_id"])
	assert.Equal(t, "promotion", node.SourceType)

	for i := 0; i < 2; i++ {
		again, err := h.engine.Access(ctx, exp.ID)
		require.NoError(t, err)
		assert.Equal(t, nodeID, again.PromotedToNodeID)
	}
	assert.Equal(t, 1, countPromotedNodes(t, h))
	assert.Equal(t, 1, h.seen[events.ExperiencePromoted])
	assert.Equal(t, 7, h.seen[events.ExperienceAccessed])

	pending, err := h.engine.Promotable(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAccess_Missing(t *testing.T) {
	h := newHarness(t, nil)
	got, err := h.engine.Access(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPromotedName_Truncates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	long := "ééééééééééééééééééééééééééééééééééééééééééééééééééééééééééé tail"
	exp := h.save(t, long, store.ExperienceGotcha, store.ConfidenceHigh)
	for i := 0; i < experience.PromotionThreshold; i++ {
		_, err := h.engine.Access(ctx, exp.ID)
		require.NoError(t, err)
	}
	got, err := h.engine.Get(ctx, exp.ID)
	require.NoError(t, err)
	node, err := h.graph.GetNode(ctx, got.PromotedToNodeID)
	require.NoError(t, err)
	assert.Equal(t, "Gotcha: "+experience.TruncateRunes(long, 50), node.Name)
}

// lostRace hides the promotion mark from IncrementAccess, as if another
// writer promoted the experience between the read and the mark.
type lostRace struct {
	store.ExperienceStore
}

func (l lostRace) IncrementAccess(ctx context.Context, id string, at time.Time) (*store.Experience, error) {
	exp, err := l.ExperienceStore.IncrementAccess(ctx, id, at)
	if exp != nil {
		exp.PromotedToNodeID = ""
	}
	return exp, err
}

func TestAccess_LostPromotionRaceWithdrawsNode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, func(s store.ExperienceStore) store.ExperienceStore { return lostRace{s} })
	exp := h.save(t, "Vendor the protobuf plugin", store.ExperienceDecision, store.ConfidenceHigh)

	winner, err := h.graph.AddNode(ctx, graph.NodeInput{Name: "winner", Type: experience.PromotedNodeType})
	require.NoError(t, err)
	ok, err := h.store.Experiences().MarkPromoted(ctx, exp.ID, winner.ID)
	require.NoError(t, err)
	require.True(t, ok)

	var got *store.Experience
	for i := 0; i < experience.PromotionThreshold; i++ {
		got, err = h.engine.Access(ctx, exp.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, winner.ID, got.PromotedToNodeID)
	assert.Equal(t, 1, countPromotedNodes(t, h), "the losing node is soft-deleted")
	assert.Zero(t, h.seen[events.ExperiencePromoted])
}

func TestPromotePending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	exp := h.save(t, "Cache DNS lookups", store.ExperienceSolution, store.ConfidenceHigh)

	// Simulate accesses that never reached the promotion step.
	for i := 0; i < 6; i++ {
		_, err := h.store.Experiences().IncrementAccess(ctx, exp.ID, t0)
		require.NoError(t, err)
	}

	pending, err := h.engine.Promotable(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	done, err := h.engine.PromotePending(ctx)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, exp.ID, done[0].ExperienceID)

	done, err = h.engine.PromotePending(ctx)
	require.NoError(t, err)
	assert.Empty(t, done)
	assert.Equal(t, 1, countPromotedNodes(t, h))
}

func TestPromotePending_ReusesNodeFromInterruptedPromotion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	exp := h.save(t, "Pin the base image digest", store.ExperienceDecision, store.ConfidenceHigh)

	for i := 0; i < experience.PromotionThreshold; i++ {
		_, err := h.store.Experiences().IncrementAccess(ctx, exp.ID, t0)
		require.NoError(t, err)
	}

	// The node insert committed but the mark never happened.
	orphan, err := h.graph.AddNode(ctx, graph.NodeInput{
		Name:       "Decision: Pin the base image digest",
		Type:       experience.PromotedNodeType,
		SourceType: "promotion",
		SourceRef:  exp.ID,
	})
	require.NoError(t, err)

	done, err := h.engine.PromotePending(ctx)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, orphan.ID, done[0].NodeID)
	assert.Equal(t, 1, countPromotedNodes(t, h))

	got, err := h.engine.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, orphan.ID, got.PromotedToNodeID)
}

func TestAccess_ReusesNodeFromInterruptedPromotion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	exp := h.save(t, "Shard the queue by tenant", store.ExperiencePattern, store.ConfidenceHigh)

	for i := 1; i < experience.PromotionThreshold; i++ {
		_, err := h.store.Experiences().IncrementAccess(ctx, exp.ID, t0)
		require.NoError(t, err)
	}
	orphan, err := h.graph.AddNode(ctx, graph.NodeInput{
		Name:      "Pattern: Shard the queue by tenant",
		Type:      experience.PromotedNodeType,
		SourceRef: exp.ID,
	})
	require.NoError(t, err)

	got, err := h.engine.Access(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, orphan.ID, got.PromotedToNodeID)
	assert.Equal(t, 1, countPromotedNodes(t, h))
	assert.Equal(t, 1, h.seen[events.ExperiencePromoted])
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	fast := h.save(t, "temporary workaround for flaky test", store.ExperienceWorkaround, store.ConfidenceLow)
	slow := h.save(t, "architecture decision: event sourcing", store.ExperiencePattern, store.ConfidenceHigh)

	// Low-confidence workaround half-life is 12.5 days; 100 days leaves
	// 2^-8 ≈ 0.0039. The pattern keeps 2^-(1/3) ≈ 0.79.
	h.clock.Advance(100 * day)

	pruned, err := h.engine.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pruned, "a zero threshold deletes nothing")

	pruned, err = h.engine.Prune(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{fast.ID}, pruned)
	assert.Equal(t, 1, h.seen[events.ExperiencePruned])

	gone, err := h.engine.Get(ctx, fast.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := h.engine.Get(ctx, slow.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	pruned, err = h.engine.Prune(ctx, 0.9)
	require.NoError(t, err)
	assert.Equal(t, []string{slow.ID}, pruned)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Solution", experience.Title("solution"))
	assert.Equal(t, "Gotcha", experience.Title("GOTCHA"))
	assert.Equal(t, "", experience.Title(""))
}
