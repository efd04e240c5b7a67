package node

import (
	"fmt"
	"testing"
)

func TestDedupSetSeenOrAdd(t *testing.T) {
	d := newDedupSet(3)

	if d.SeenOrAdd("a") {
		t.Fatal("first sighting must not be seen")
	}
	if !d.SeenOrAdd("a") {
		t.Fatal("second sighting must be seen")
	}
}

func TestDedupSetEvictsOldest(t *testing.T) {
	d := newDedupSet(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		d.SeenOrAdd(id)
	}

	// "a" was evicted when "d" exceeded capacity, so it reads as fresh again.
	if d.SeenOrAdd("a") {
		t.Fatal("evicted entry must read as unseen")
	}
	if !d.SeenOrAdd("d") {
		t.Fatal("recent entry must still be seen")
	}
}

func TestDedupSetStaysBounded(t *testing.T) {
	d := newDedupSet(100)
	for i := 0; i < 1000; i++ {
		d.SeenOrAdd(fmt.Sprintf("id-%d", i))
	}
	if len(d.seen) != 100 || len(d.order) != 100 {
		t.Fatalf("expected bounded set of 100, got seen=%d order=%d", len(d.seen), len(d.order))
	}
}
