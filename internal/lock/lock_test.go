package lock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorhq/anchor/internal/extract"
	"github.com/anchorhq/anchor/internal/graph"
	"github.com/anchorhq/anchor/internal/mutate"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	fe := &extract.FileExtraction{
		FilePath: "test.rs",
		Symbols: []extract.ExtractedSymbol{
			{Name: "foo", Kind: graph.KindFunction, LineStart: 1, LineEnd: 10, CodeSnippet: "fn foo() {}"},
			{Name: "bar", Kind: graph.KindFunction, LineStart: 12, LineEnd: 20, CodeSnippet: "fn bar() { foo() }"},
			{Name: "baz", Kind: graph.KindFunction, LineStart: 22, LineEnd: 30, CodeSnippet: "fn baz() {}"},
		},
		Calls: []extract.ExtractedCall{{Caller: "bar", Callee: "foo", Line: 13, LineEnd: 13}},
	}
	mutate.BuildFromExtractions(g, []*extract.FileExtraction{fe})
	return g
}

// Seed scenario 3: dependency cone blocks callers.
func TestAcquireBlocksTransitiveCaller(t *testing.T) {
	g := testGraph(t)
	m := New(g)

	res := m.Acquire(Key{File: "test.rs", Name: "foo"}, 0)
	require.Equal(t, Acquired, res.Status)

	res2 := m.Acquire(Key{File: "test.rs", Name: "bar"}, 0)
	require.Equal(t, Blocked, res2.Status)
	assert.Equal(t, Key{File: "test.rs", Name: "foo"}, res2.Blocker)
}

// Seed scenario 4: independent siblings don't block.
func TestAcquireIndependentSiblingSucceeds(t *testing.T) {
	g := testGraph(t)
	m := New(g)

	res := m.Acquire(Key{File: "test.rs", Name: "foo"}, 0)
	require.Equal(t, Acquired, res.Status)

	res2 := m.Acquire(Key{File: "test.rs", Name: "baz"}, 0)
	assert.Equal(t, Acquired, res2.Status)
}

func TestAcquireIsReentrant(t *testing.T) {
	g := testGraph(t)
	m := New(g)

	key := Key{File: "test.rs", Name: "foo"}
	res := m.Acquire(key, 0)
	require.Equal(t, Acquired, res.Status)

	res2 := m.Acquire(key, 0)
	assert.Equal(t, Acquired, res2.Status)
}

func TestReleaseUnblocksWaiter(t *testing.T) {
	g := testGraph(t)
	m := New(g)

	fooKey := Key{File: "test.rs", Name: "foo"}
	barKey := Key{File: "test.rs", Name: "bar"}

	res := m.Acquire(fooKey, 0)
	require.Equal(t, Acquired, res.Status)

	done := make(chan AcquireResult, 1)
	go func() {
		done <- m.Acquire(barKey, 500*time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	m.Release(fooKey)

	select {
	case res := <-done:
		assert.Equal(t, AcquiredAfterWait, res.Status)
	case <-time.After(time.Second):
		t.Fatal("waiter was never woken after release")
	}
}

func TestFileLevelAcquireLocksAllCallers(t *testing.T) {
	g := testGraph(t)
	m := New(g)

	res := m.Acquire(Key{File: "test.rs", Name: FileLockName}, 0)
	require.Equal(t, Acquired, res.Status)

	res2 := m.Acquire(Key{File: "test.rs", Name: "bar"}, 0)
	assert.Equal(t, Blocked, res2.Status)
}

func TestStatusAndActiveLocks(t *testing.T) {
	g := testGraph(t)
	m := New(g)

	_ = m.Acquire(Key{File: "test.rs", Name: "foo"}, 0)

	st := m.Status("test.rs")
	assert.True(t, st.Locked, "a symbol-level lock marks the whole file locked")
	assert.Equal(t, Key{File: "test.rs", Name: "foo"}, st.Primary)

	assert.False(t, m.Status("other.rs").Locked)

	m.Release(Key{File: "test.rs", Name: "foo"})
	assert.False(t, m.Status("test.rs").Locked)

	g2 := testGraph(t)
	m2 := New(g2)
	res := m2.Acquire(Key{File: "test.rs", Name: FileLockName}, 0)
	require.Equal(t, Acquired, res.Status)
	st2 := m2.Status("test.rs")
	assert.True(t, st2.Locked)
	assert.Equal(t, Key{File: "test.rs", Name: FileLockName}, st2.Primary)

	locks := m2.ActiveLocks()
	require.Len(t, locks, 1)
	assert.Equal(t, Key{File: "test.rs", Name: FileLockName}, locks[0].Primary)
}
