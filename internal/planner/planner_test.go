package planner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/backmassage/scorebatch/internal/config"
)

// --- Helpers ---

// stubStorage reports existence from a fixed set and optionally fails for
// one path.
type stubStorage struct {
	mu       sync.Mutex
	existing map[string]bool
	failOn   string
	calls    int
}

func (s *stubStorage) Exists(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if path == s.failOn {
		return false, errors.New("permission denied")
	}
	return s.existing[path], nil
}

type setExcluded map[string]bool

func (s setExcluded) Contains(in string) bool { return s[in] }

func newPlanner(st Storage, workers int) *Planner {
	cfg := config.DefaultConfig()
	cfg.StatWorkers = workers
	return New(&cfg, st)
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- Tests ---

func TestPlan_SkipsExcludedAndExisting(t *testing.T) {
	candidates := []string{"s/1/1.mscz", "s/2/2.mscz", "s/3/3.mscz", "s/4/4.mscz"}
	st := &stubStorage{existing: map[string]bool{"s/2/2.musicxml": true}}
	p := newPlanner(st, 4)

	got, err := p.Plan(context.Background(), candidates, setExcluded{"s/3/3.mscz": true})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := Batch{
		{Input: "s/1/1.mscz", Output: "s/1/1.musicxml"},
		{Input: "s/4/4.mscz", Output: "s/4/4.musicxml"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("batch mismatch (-want +got):\n%s", diff)
	}
	if st.calls != 3 {
		t.Errorf("existence checks = %d, want 3 (excluded inputs are not checked)", st.calls)
	}
}

func TestPlan_Properties(t *testing.T) {
	// Every combination of excluded/existing over a small candidate set:
	// no excluded input and no existing output may be planned, and every
	// other candidate must be.
	candidates := []string{"a.mscz", "b.mscz", "c.mscz"}
	for mask := 0; mask < 1<<6; mask++ {
		excluded := setExcluded{}
		existing := map[string]bool{}
		for i, c := range candidates {
			if mask&(1<<i) != 0 {
				excluded[c] = true
			}
			if mask&(1<<(i+3)) != 0 {
				existing[outputOf(c)] = true
			}
		}
		p := newPlanner(&stubStorage{existing: existing}, 2)
		batch, err := p.Plan(context.Background(), candidates, excluded)
		if err != nil {
			t.Fatalf("mask %d: Plan: %v", mask, err)
		}
		planned := map[string]bool{}
		for _, task := range batch {
			if excluded[task.Input] {
				t.Errorf("mask %d: excluded input %s planned", mask, task.Input)
			}
			if existing[task.Output] {
				t.Errorf("mask %d: existing output %s planned", mask, task.Output)
			}
			planned[task.Input] = true
		}
		for _, c := range candidates {
			if !excluded[c] && !existing[outputOf(c)] && !planned[c] {
				t.Errorf("mask %d: outstanding candidate %s missing", mask, c)
			}
		}
	}
}

func outputOf(in string) string { return in[:len(in)-len(".mscz")] + ".musicxml" }

func TestPlan_IdempotentAndDeterministic(t *testing.T) {
	var candidates []string
	existing := map[string]bool{}
	for i := 0; i < 200; i++ {
		in := fmt.Sprintf("corpus/%d/%d.mscz", i, i)
		candidates = append(candidates, in)
		if i%3 == 0 {
			existing[outputOf(in)] = true
		}
	}
	excluded := setExcluded{candidates[1]: true, candidates[50]: true}

	serial, err := newPlanner(&stubStorage{existing: existing}, 1).Plan(context.Background(), candidates, excluded)
	if err != nil {
		t.Fatal(err)
	}
	parallel := newPlanner(&stubStorage{existing: existing}, 16)
	first, err := parallel.Plan(context.Background(), candidates, excluded)
	if err != nil {
		t.Fatal(err)
	}
	second, err := parallel.Plan(context.Background(), candidates, excluded)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(serial, first); diff != "" {
		t.Errorf("worker count changed the batch (-serial +parallel):\n%s", diff)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Plan is not idempotent (-first +second):\n%s", diff)
	}
}

func TestPlan_DeduplicatesCandidates(t *testing.T) {
	p := newPlanner(&stubStorage{}, 2)
	got, err := p.Plan(context.Background(), []string{"b.mscz", "a.mscz", "b.mscz"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b.mscz", "a.mscz"}, got.Inputs()); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_EmptyCandidates(t *testing.T) {
	p := newPlanner(&stubStorage{}, 2)
	got, err := p.Plan(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("batch = %v, want empty", got)
	}
}

func TestPlan_StorageErrorAborts(t *testing.T) {
	st := &stubStorage{failOn: "b.musicxml"}
	p := newPlanner(st, 1)
	_, err := p.Plan(context.Background(), []string{"a.mscz", "b.mscz", "c.mscz"}, nil)
	if err == nil {
		t.Fatal("expected storage error")
	}
}

func TestFS_Exists(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "1", "1.musicxml")
	touch(t, present)

	var fs FS
	ctx := context.Background()
	if ok, err := fs.Exists(ctx, present); err != nil || !ok {
		t.Errorf("Exists(present) = %v, %v", ok, err)
	}
	if ok, err := fs.Exists(ctx, filepath.Join(dir, "2", "2.musicxml")); err != nil || ok {
		t.Errorf("Exists(missing dir) = %v, %v", ok, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := fs.Exists(cancelled, present); !errors.Is(err, context.Canceled) {
		t.Errorf("Exists on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestPlan_OnDisk(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "1", "1.mscz")
	b := filepath.Join(dir, "2", "2.mscz")
	touch(t, a)
	touch(t, b)
	touch(t, filepath.Join(dir, "2", "2.musicxml"))

	p := newPlanner(FS{}, 4)
	got, err := p.Plan(context.Background(), []string{a, b}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{a}, got.Inputs()); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
	if !got.Has(a) || got.Has(b) {
		t.Errorf("Has() disagrees with batch %v", got)
	}
}

func TestPlan_RejectsCandidatesWithoutSourceExt(t *testing.T) {
	dir := t.TempDir()
	withExt := filepath.Join(dir, "001", "1.mscz")
	bare := filepath.Join(dir, "001", "1")
	touch(t, filepath.Join(dir, "001", "1.musicxml"))

	p := newPlanner(FS{}, 2)
	batch, err := p.Plan(context.Background(), []string{withExt, bare}, nil)
	if !errors.Is(err, ErrForeignExt) {
		t.Fatalf("Plan err = %v, want ErrForeignExt", err)
	}
	if batch != nil {
		t.Errorf("batch = %v, want nil on rejection", batch)
	}
	if !strings.Contains(err.Error(), bare) {
		t.Errorf("error does not name the candidate: %v", err)
	}
}

func TestCheckCandidates(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		wantErr    bool
	}{
		{"all source", []string{"a/1.mscz", "b/2.MSCZ"}, false},
		{"empty", nil, false},
		{"bare name", []string{"a/1.mscz", "a/1"}, true},
		{"other extension", []string{"a/1.mxl"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newPlanner(&stubStorage{}, 1).CheckCandidates(tt.candidates)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckCandidates() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
