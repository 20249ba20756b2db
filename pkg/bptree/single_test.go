package bptree

import (
	"math/rand"
	"testing"
)

func TestSingleThreadedSmoke(t *testing.T) {
	tree := NewSingleThreadedTree[int64, int64]()
	var out int64
	if tree.Lookup(1, &out) {
		t.Fatalf("Lookup on empty tree found a key")
	}
	tree.Insert(1, 100)
	if !tree.Lookup(1, &out) || out != 100 {
		t.Fatalf("Lookup(1) = %d, want 100", out)
	}
}

func TestSingleThreadedUpsertOverwrites(t *testing.T) {
	tree := NewSingleThreadedTree[int64, int64]()
	tree.Insert(5, 1)
	tree.Insert(5, 2)
	var out int64
	if !tree.Lookup(5, &out) || out != 2 {
		t.Fatalf("Lookup(5) = %d, want 2 after overwrite", out)
	}
	if !tree.CheckTree() {
		t.Fatalf("CheckTree failed after upsert")
	}
}

func TestSingleThreadedSplitsAndStaysBalanced(t *testing.T) {
	tree := NewSingleThreadedTree[int64, int64](WithLeafCapacity(4), WithInnerCapacity(4))
	const n = 1000
	keys := rand.New(rand.NewSource(1)).Perm(n)
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

func TestSingleThreadedClear(t *testing.T) {
	tree := NewSingleThreadedTree[int64, int64]()
	tree.Insert(1, 1)
	tree.Clear()
	var out int64
	if tree.Lookup(1, &out) {
		t.Fatalf("Lookup(1) found a key after Clear")
	}
	if !tree.CheckTree() {
		t.Fatalf("CheckTree failed on a cleared tree")
	}
}
