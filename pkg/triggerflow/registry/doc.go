// Package registry provides a generic thread-safe registry for values indexed by key.
//
// Registry remembers the order in which keys were first registered. Keys and
// Range always follow that order, which makes listings reproducible for the
// same sequence of calls. Re-registering an existing key updates the value in
// place without moving it; deleting and re-registering moves it to the end.
//
// # Basic Usage
//
//	r := registry.New[string, int]()
//	r.Register("one", 1)
//	r.Register("two", 2)
//
//	value, ok := r.Get("one")
//	if ok {
//	    fmt.Println(value) // Output: 1
//	}
//
//	fmt.Println(r.Keys()) // Output: [one two]
//
// # Lazy Initialization
//
// Use GetOrCreate for atomic lazy initialization:
//
//	counters := registry.New[string, *Counter]()
//	c := counters.GetOrCreate("AccountHandler", func() *Counter {
//	    return &Counter{}
//	})
//
// GetOrCreate is atomic - the factory function is called at most once per key,
// even under concurrent access.
//
// # Multi-step Changes
//
// Locked runs a function under the write lock so that several mutations are
// observed as one:
//
//	r.Locked(func(tx *registry.Tx[string, struct{}]) {
//	    tx.Clear()
//	    tx.Register("kept", struct{}{})
//	})
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. The Range method iterates
// over a snapshot of the registry, allowing mutations during iteration without
// affecting the iteration itself.
package registry
