package bptree

import (
	"math/rand"
	"sync"
	"testing"
)

func TestOLCSmoke(t *testing.T) {
	tree := NewOLCTree[int64, int64]()
	var out int64
	if tree.Lookup(1, &out) {
		t.Fatalf("Lookup on empty tree found a key")
	}
	tree.Insert(1, 100)
	if !tree.Lookup(1, &out) || out != 100 {
		t.Fatalf("Lookup(1) = %d, want 100", out)
	}
}

func TestOLCUpsertOverwrites(t *testing.T) {
	tree := NewOLCTree[int64, int64]()
	tree.Insert(5, 1)
	tree.Insert(5, 2)
	var out int64
	if !tree.Lookup(5, &out) || out != 2 {
		t.Fatalf("Lookup(5) = %d, want 2", out)
	}
}

func TestOLCSplitsAndStaysBalanced(t *testing.T) {
	tree := NewOLCTree[int64, int64](WithLeafCapacity(4), WithInnerCapacity(4))
	const n = 1000
	keys := rand.New(rand.NewSource(2)).Perm(n)
	for _, k := range keys {
		tree.Insert(int64(k), int64(k)*10)
	}
	if !tree.CheckTree() {
		t.Fatalf("CheckTree failed after %d inserts", n)
	}
	for i := 0; i < n; i++ {
		var out int64
		if !tree.Lookup(int64(i), &out) || out != int64(i)*10 {
			t.Fatalf("Lookup(%d) = %d, want %d", i, out, i*10)
		}
	}
}

// TestOLCConcurrentInsertLookup is the spec section 8.4 property:
// 40 goroutines racing inserts and lookups against one shared tree must
// leave every inserted key both present and balanced once they finish.
func TestOLCConcurrentInsertLookup(t *testing.T) {
	const numWorkers = 40
	const perWorker = 625 // 40 * 625 = 25000

	tree := NewOLCTree[int64, int64](WithLeafCapacity(8), WithInnerCapacity(8))
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			var out int64
			r := rand.New(rand.NewSource(base))
			for i := int64(0); i < perWorker; i++ {
				k := base + i
				tree.Insert(k, k*2)
				tree.Lookup(base+r.Int63n(i+1), &out)
			}
		}(int64(w * perWorker))
	}
	wg.Wait()

	if !tree.CheckTree() {
		t.Fatalf("CheckTree failed after concurrent inserts")
	}
	for w := 0; w < numWorkers; w++ {
		base := int64(w * perWorker)
		for i := int64(0); i < perWorker; i++ {
			k := base + i
			var out int64
			if !tree.Lookup(k, &out) || out != k*2 {
				t.Fatalf("Lookup(%d) = %d, want %d", k, out, k*2)
			}
		}
	}
}

func TestOLCClear(t *testing.T) {
	tree := NewOLCTree[int64, int64](WithReclamation(ReclaimEpoch))
	tree.Insert(1, 1)
	tree.Clear()
	var out int64
	if tree.Lookup(1, &out) {
		t.Fatalf("Lookup(1) found a key after Clear")
	}
	tree.Close()
}
