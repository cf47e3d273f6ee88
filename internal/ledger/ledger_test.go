package ledger

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestAdd_OnlyGrows(t *testing.T) {
	l := New()
	if !l.Add(Entry{Input: "a/1/1.mscz", Round: 1, Cause: "crash at a/1/1.mscz"}) {
		t.Fatal("first Add should report a new entry")
	}
	if !l.Add(Entry{Input: "a/2/2.mscz", Round: 2}) {
		t.Fatal("second distinct Add should report a new entry")
	}
	if l.Add(Entry{Input: "a/1/1.mscz", Round: 3, Cause: "again"}) {
		t.Error("repeated Add should report false")
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
	e, ok := l.Lookup("a/1/1.mscz")
	if !ok || e.Round != 1 || e.Cause != "crash at a/1/1.mscz" {
		t.Errorf("repeat Add overwrote the original entry: %+v", e)
	}
}

func TestContains(t *testing.T) {
	l := New()
	l.Add(Entry{Input: "x.mscz"})
	if !l.Contains("x.mscz") {
		t.Error("Contains(x.mscz) = false")
	}
	if l.Contains("./x.mscz") {
		t.Error("membership must use exact path equality")
	}
}

func TestEntries_SnapshotIsCopy(t *testing.T) {
	l := New()
	l.Add(Entry{Input: "a"})
	snap := l.Entries()
	snap[0].Input = "mutated"
	l.Add(Entry{Input: "b"})
	if diff := cmp.Diff([]string{"a", "b"}, l.Inputs()); diff != "" {
		t.Errorf("Inputs mismatch (-want +got):\n%s", diff)
	}
	if len(snap) != 1 {
		t.Errorf("snapshot grew with the ledger: %d", len(snap))
	}
}

func TestRestore(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Input: "b", Round: 1, Cause: "b crashed", At: at},
		{Input: "a", Round: 2, Cause: "a crashed", At: at},
	}
	l, err := Restore(entries)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if diff := cmp.Diff(entries, l.Entries()); diff != "" {
		t.Errorf("Entries mismatch (-want +got):\n%s", diff)
	}

	if _, err := Restore([]Entry{{Input: "a"}, {Input: "a"}}); err == nil {
		t.Error("expected error for duplicate input")
	}
	if _, err := Restore([]Entry{{Input: ""}}); err == nil {
		t.Error("expected error for empty input")
	}
}
