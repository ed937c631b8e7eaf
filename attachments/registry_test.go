package attachments

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamf-go/op-marker/types"
)

func newTestRegistry() *Registry {
	return NewRegistry(log.NewLogger(log.DiscardHandler()))
}

func evidence(name string) types.Attachment {
	return types.Attachment{Name: name, Path: "/tmp/" + name, MediaType: "text/plain"}
}

func TestRegistry_ScopeLifecycle(t *testing.T) {
	r := newTestRegistry()
	id := types.CheckID("A::one")

	assert.False(t, r.Add(id, evidence("early")), "evidence without a scope is dropped")

	r.StartScope(id)
	require.True(t, r.IsOpen(id))
	assert.True(t, r.Add(id, evidence("first")))
	assert.True(t, r.Add(id, evidence("second")))

	got := r.Drain(id)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, "second", got[1].Name)
	assert.Empty(t, r.Drain(id), "drain removes the evidence")

	r.EndScope(id)
	assert.False(t, r.IsOpen(id))
	assert.False(t, r.Add(id, evidence("late")), "evidence after the scope ends is dropped")
	assert.Nil(t, r.Drain(id))
}

func TestRegistry_StartScopeIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	id := types.CheckID("A::one")

	r.StartScope(id)
	r.Add(id, evidence("kept"))
	r.StartScope(id)

	got := r.Drain(id)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Name)
}

func TestRegistry_ReopenAfterEnd(t *testing.T) {
	r := newTestRegistry()
	id := types.CheckID("A::one")

	r.StartScope(id)
	r.Add(id, evidence("old"))
	r.EndScope(id)

	r.StartScope(id)
	assert.Empty(t, r.Drain(id), "a re-opened scope starts empty")
}

func TestRegistry_Reset(t *testing.T) {
	r := newTestRegistry()
	for i := 0; i < 5; i++ {
		id := types.CheckID(fmt.Sprintf("A::c%d", i))
		r.StartScope(id)
		r.Add(id, evidence("e"))
	}
	require.Equal(t, 5, r.OpenScopes())

	r.Reset()
	assert.Equal(t, 0, r.OpenScopes())
	assert.Empty(t, r.Evidence())
	assert.False(t, r.Add("A::c0", evidence("after reset")))
}

func TestHandle(t *testing.T) {
	r := newTestRegistry()
	a := r.For("A::a")
	b := r.For("A::b")
	r.StartScope(a.ID())
	r.StartScope(b.ID())

	assert.True(t, a.Add("a.log", "/tmp/a.log", "text/plain"))
	assert.True(t, b.Add("b.log", "/tmp/b.log", "text/plain"))

	assert.Equal(t, []types.Attachment{{Name: "a.log", Path: "/tmp/a.log", MediaType: "text/plain"}}, r.Drain("A::a"))
	assert.Equal(t, []types.Attachment{{Name: "b.log", Path: "/tmp/b.log", MediaType: "text/plain"}}, r.Drain("A::b"))

	var zero Handle
	assert.False(t, zero.Valid())
	assert.False(t, zero.Add("x", "y", "z"))
}

// Overlapping scopes with interleaved adds must never leak evidence across checks.
func TestRegistry_ConcurrentScopesDoNotMix(t *testing.T) {
	r := newTestRegistry()
	const checks = 16
	const perCheck = 200

	var started sync.WaitGroup
	started.Add(checks)
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([][]types.Attachment, checks)
	for i := 0; i < checks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := types.CheckID(fmt.Sprintf("A::c%02d", i))
			r.StartScope(id)
			started.Done()
			<-release // all scopes are open at the same time
			h := r.For(id)
			for j := 0; j < perCheck; j++ {
				h.Add(fmt.Sprintf("%s#%d", id, j), "/dev/null", "text/plain")
			}
			results[i] = r.Drain(id)
			r.EndScope(id)
		}(i)
	}
	started.Wait()
	close(release)
	wg.Wait()

	for i, items := range results {
		id := fmt.Sprintf("A::c%02d", i)
		require.Len(t, items, perCheck)
		for j, item := range items {
			assert.Equal(t, fmt.Sprintf("%s#%d", id, j), item.Name, "evidence must stay in its own scope, in order")
		}
	}
	assert.Equal(t, 0, r.OpenScopes())
}
