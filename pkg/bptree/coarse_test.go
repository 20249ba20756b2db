package bptree

import (
	"math/rand"
	"sync"
	"testing"
)

func TestCoarseSmoke(t *testing.T) {
	tree := NewCoarseTree[int64, int64]()
	var out int64
	tree.Insert(1, 42)
	if !tree.Lookup(1, &out) || out != 42 {
		t.Fatalf("Lookup(1) = %d, want 42", out)
	}
}

func TestCoarseConcurrentInsertLookup(t *testing.T) {
	const numWorkers = 16
	const perWorker = 400

	tree := NewCoarseTree[int64, int64](WithLeafCapacity(8), WithInnerCapacity(8))
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(base + 1))
			for i := int64(0); i < perWorker; i++ {
				tree.Insert(base+i, base+i)
				var out int64
				tree.Lookup(base+r.Int63n(i+1), &out)
			}
		}(int64(w * perWorker))
	}
	wg.Wait()

	if !tree.CheckTree() {
		t.Fatalf("CheckTree failed after concurrent coarse inserts")
	}
}
