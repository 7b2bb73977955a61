package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := New[string, int]()
	assert.NotNil(t, r)
	assert.Equal(t, 0, r.Len())
}

func TestRegisterAndGet(t *testing.T) {
	r := New[string, int]()

	r.Register("one", 1)
	r.Register("two", 2)

	v, ok := r.Get("one")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Get("two")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	// Non-existent key
	v, ok = r.Get("three")
	assert.False(t, ok)
	assert.Equal(t, 0, v) // zero value
}

func TestRegisterOverwriteKeepsPosition(t *testing.T) {
	r := New[string, string]()

	r.Register("a", "old")
	r.Register("b", "b")
	r.Register("a", "new")

	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "new", v)
	assert.Equal(t, []string{"a", "b"}, r.Keys())
}

func TestHas(t *testing.T) {
	r := New[string, int]()
	r.Register("key", 42)

	assert.True(t, r.Has("key"))
	assert.False(t, r.Has("nonexistent"))
}

func TestDelete(t *testing.T) {
	r := New[string, int]()
	r.Register("key", 42)

	r.Delete("key")

	assert.False(t, r.Has("key"))
	assert.Empty(t, r.Keys())
}

func TestDeleteNonexistent(t *testing.T) {
	r := New[string, int]()
	r.Register("key", 42)

	// Should not panic
	r.Delete("nonexistent")

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"key"}, r.Keys())
}

func TestDeleteThenRegisterMovesToEnd(t *testing.T) {
	r := New[string, int]()
	r.Register("x", 1)
	r.Register("y", 2)
	r.Register("z", 3)

	r.Delete("x")
	r.Register("x", 1)

	assert.Equal(t, []string{"y", "z", "x"}, r.Keys())
}

func TestKeysInsertionOrder(t *testing.T) {
	r := New[string, int]()
	r.Register("three", 3)
	r.Register("one", 1)
	r.Register("two", 2)

	assert.Equal(t, []string{"three", "one", "two"}, r.Keys())
}

func TestKeysReturnsCopy(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)

	keys := r.Keys()
	keys[0] = "mutated"

	assert.Equal(t, []string{"a"}, r.Keys())
}

func TestKeysEmpty(t *testing.T) {
	r := New[string, int]()
	assert.Empty(t, r.Keys())
}

func TestClear(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("b", 2)

	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Keys())

	r.Register("c", 3)
	assert.Equal(t, []string{"c"}, r.Keys())
}

func TestKeysNeverNil(t *testing.T) {
	empty := New[string, int]()
	assert.Equal(t, []string{}, empty.Keys())

	cleared := New[string, int]()
	cleared.Register("a", 1)
	cleared.Clear()

	deleted := New[string, int]()
	deleted.Register("a", 1)
	deleted.Delete("a")

	assert.Equal(t, deleted.Keys(), cleared.Keys())
	assert.NotNil(t, cleared.Keys())

	cleared.Locked(func(tx *Tx[string, int]) {
		tx.Register("b", 2)
		tx.Clear()
		assert.Equal(t, []string{}, tx.Keys())
	})
}

func TestRangeInOrder(t *testing.T) {
	r := New[string, int]()
	r.Register("one", 1)
	r.Register("two", 2)
	r.Register("three", 3)

	var visited []string
	r.Range(func(k string, v int) bool {
		visited = append(visited, k)
		return true
	})

	assert.Equal(t, []string{"one", "two", "three"}, visited)
}

func TestRangeEarlyStop(t *testing.T) {
	r := New[string, int]()
	r.Register("one", 1)
	r.Register("two", 2)
	r.Register("three", 3)

	count := 0
	r.Range(func(k string, v int) bool {
		count++
		return false // stop after first
	})

	assert.Equal(t, 1, count)
}

func TestRangeAllowsMutation(t *testing.T) {
	r := New[string, int]()
	r.Register("one", 1)
	r.Register("two", 2)

	// Range should work over a snapshot, allowing mutations
	r.Range(func(k string, v int) bool {
		r.Register("new-"+k, v*10)
		return true
	})

	assert.Equal(t, []string{"one", "two", "new-one", "new-two"}, r.Keys())
}

func TestGetOrCreate(t *testing.T) {
	r := New[string, int]()

	callCount := 0
	factory := func() int {
		callCount++
		return 42
	}

	// First call creates
	v := r.GetOrCreate("key", factory)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, callCount)

	// Second call returns existing
	v = r.GetOrCreate("key", factory)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, callCount) // factory not called again
}

func TestUpdate(t *testing.T) {
	r := New[string, int]()

	v := r.Update("n", func(old int, ok bool) int {
		assert.False(t, ok)
		return old + 1
	})
	assert.Equal(t, 1, v)

	v = r.Update("n", func(old int, ok bool) int {
		assert.True(t, ok)
		return old + 1
	})
	assert.Equal(t, 2, v)
	assert.Equal(t, []string{"n"}, r.Keys())
}

func TestLocked(t *testing.T) {
	r := New[string, int]()
	r.Register("old", 1)

	r.Locked(func(tx *Tx[string, int]) {
		assert.Equal(t, []string{"old"}, tx.Keys())
		tx.Clear()
		tx.Register("b", 2)
		tx.Register("a", 1)
	})

	assert.Equal(t, []string{"b", "a"}, r.Keys())
	assert.False(t, r.Has("old"))
}

func TestStructKeys(t *testing.T) {
	type Key struct {
		Namespace string
		Name      string
	}

	r := New[Key, int]()
	k1 := Key{Namespace: "ns1", Name: "name1"}
	k2 := Key{Namespace: "ns2", Name: "name2"}

	r.Register(k1, 1)
	r.Register(k2, 2)

	v, ok := r.Get(k2)
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, []Key{k1, k2}, r.Keys())
}

// Thread-safety tests

func TestConcurrentRegister(t *testing.T) {
	r := New[int, int]()
	var wg sync.WaitGroup
	n := 1000

	for i := range n {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()
			r.Register(val, val*2)
		}(i)
	}

	wg.Wait()

	assert.Equal(t, n, r.Len())
	assert.Len(t, r.Keys(), n)
}

func TestConcurrentGetOrCreate(t *testing.T) {
	r := New[string, int]()
	var wg sync.WaitGroup
	n := 100
	var callCount atomic.Int32

	factory := func() int {
		callCount.Add(1)
		return 42
	}

	// Many goroutines trying to create the same key
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := r.GetOrCreate("key", factory)
			assert.Equal(t, 42, v)
		}()
	}

	wg.Wait()

	// Factory should only be called once
	assert.Equal(t, int32(1), callCount.Load())
	assert.Equal(t, 1, r.Len())
}

func TestConcurrentUpdate(t *testing.T) {
	r := New[string, int]()
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Update("count", func(old int, _ bool) int { return old + 1 })
		}()
	}

	wg.Wait()

	v, _ := r.Get("count")
	assert.Equal(t, 100, v)
}

func TestConcurrentDelete(t *testing.T) {
	r := New[int, int]()
	for i := range 100 {
		r.Register(i, i)
	}

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(key int) {
			defer wg.Done()
			r.Delete(key)
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Keys())
}

// Edge cases

func TestEmptyStringKey(t *testing.T) {
	r := New[string, int]()
	r.Register("", 42)

	v, ok := r.Get("")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestNilValue(t *testing.T) {
	r := New[string, *int]()
	r.Register("nil", nil)

	v, ok := r.Get("nil")
	assert.True(t, ok)
	assert.Nil(t, v)

	// Distinguish nil value from missing key
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

// Benchmark tests

func BenchmarkGet(b *testing.B) {
	r := New[int, int]()
	for i := range 1000 {
		r.Register(i, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Get(i % 1000)
	}
}

func BenchmarkRegister(b *testing.B) {
	r := New[int, int]()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Register(i, i)
	}
}

func BenchmarkGetOrCreate_Existing(b *testing.B) {
	r := New[int, int]()
	r.Register(0, 42)
	factory := func() int { return 42 }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.GetOrCreate(0, factory)
	}
}
