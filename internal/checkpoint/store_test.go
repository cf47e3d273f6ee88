package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/backmassage/scorebatch/internal/ledger"
)

func sampleState() State {
	st := New("run-1", []string{"a/1/1.mscz", "a/2/2.mscz", "a/3/3.mscz"}, []ledger.Entry{
		{Input: "a/2/2.mscz", Round: 1, Cause: "convert <a/2/2.mscz>...", At: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
	}, 1)
	st.UpdatedAt = time.Date(2024, 5, 1, 9, 0, 1, 0, time.UTC)
	return st
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "state", "checkpoint.json"))
	if err != nil {
		t.Fatal(err)
	}
	want := sampleState()
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	entries, _ := os.ReadDir(filepath.Dir(s.Path()))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestStore_PendingStallSurvivesReload(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	if err != nil {
		t.Fatal(err)
	}
	want := sampleState().WithLoopState(`a/\d+/\d+\.mscz`, "unattributable", 3)
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Pending != "unattributable" || got.PrevBatch != 3 || got.Pattern != want.Pattern {
		t.Errorf("loop state = %q/%d/%q, want unattributable/3/%q", got.Pending, got.PrevBatch, got.Pattern, want.Pattern)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s, _ := NewStore(filepath.Join(t.TempDir(), "none.json"))
	if _, err := s.Load(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() = %v, want ErrNotFound", err)
	}
}

func TestStore_LoadRejectsCorruptFiles(t *testing.T) {
	valid, err := jsonMarshalStable(sampleState())
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name    string
		content string
	}{
		{"truncated", string(valid[:len(valid)/2])},
		{"trailing content", string(valid) + "{}"},
		{"unknown field", strings.Replace(string(valid), `"round"`, `"rounds"`, 1)},
		{"tampered candidates", strings.Replace(string(valid), "a/3/3.mscz", "a/9/9.mscz", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "checkpoint.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			s, _ := NewStore(path)
			_, err := s.Load()
			if err == nil {
				t.Fatal("Load accepted a corrupt checkpoint")
			}
			if errors.Is(err, ErrNotFound) {
				t.Errorf("corrupt file reported as missing: %v", err)
			}
		})
	}
}

func TestState_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*State)
		wantErr bool
	}{
		{"valid", func(*State) {}, false},
		{"fresh run", func(s *State) { *s = New("r", []string{"x"}, nil, 0) }, false},
		{"wrong version", func(s *State) { s.Version = 99 }, true},
		{"missing run id", func(s *State) { s.RunID = " " }, true},
		{"null candidates", func(s *State) { s.Candidates = nil }, true},
		{"null exclusions", func(s *State) { s.Exclusions = nil }, true},
		{"negative round", func(s *State) { s.Round = -1 }, true},
		{"exclusion from the future", func(s *State) { s.Exclusions[0].Round = 5 }, true},
		{"exclusion without input", func(s *State) { s.Exclusions[0].Input = "" }, true},
		{"pending stall", func(s *State) { *s = s.WithLoopState(`x`, "no-progress", 2) }, false},
		{"pending without batch size", func(s *State) { *s = s.WithLoopState(`x`, "no-progress", 0) }, true},
		{"pending before any round", func(s *State) { *s = New("r", []string{"x"}, nil, 0).WithLoopState(`x`, "no-progress", 1) }, true},
		{"negative batch size", func(s *State) { s.PrevBatch = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := sampleState()
			tt.mutate(&st)
			err := st.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]string{"x", "y"})
	if a != Fingerprint([]string{"x", "y"}) {
		t.Error("Fingerprint is not deterministic")
	}
	if a == Fingerprint([]string{"y", "x"}) {
		t.Error("Fingerprint ignores order")
	}
	if Fingerprint([]string{"ab", "c"}) == Fingerprint([]string{"a", "bc"}) {
		t.Error("Fingerprint confuses element boundaries")
	}
}

func TestNewStore_RequiresPath(t *testing.T) {
	if _, err := NewStore("  "); err == nil {
		t.Error("expected error for empty path")
	}
}
