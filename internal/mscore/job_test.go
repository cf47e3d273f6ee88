package mscore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/backmassage/scorebatch/internal/config"
	"github.com/backmassage/scorebatch/internal/planner"
)

func TestEncodeJob(t *testing.T) {
	batch := planner.Batch{
		{Input: "../MuseScore/1/1.mscz", Output: "../MuseScore/1/1.musicxml"},
		{Input: "a&b.mscz", Output: "a&b.musicxml"},
	}
	got, err := EncodeJob(batch)
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"in":"../MuseScore/1/1.mscz","out":"../MuseScore/1/1.musicxml"},{"in":"a&b.mscz","out":"a&b.musicxml"}]` + "\n"
	if string(got) != want {
		t.Errorf("EncodeJob =\n%s\nwant\n%s", got, want)
	}

	empty, err := EncodeJob(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(empty) != "[]\n" {
		t.Errorf("EncodeJob(nil) = %q, want []", empty)
	}
}

func TestWriteJob_ReplacesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "job.json")
	first := planner.Batch{{Input: "a.mscz", Output: "a.musicxml"}, {Input: "b.mscz", Output: "b.musicxml"}}
	second := planner.Batch{{Input: "b.mscz", Output: "b.musicxml"}}

	if err := WriteJob(path, first); err != nil {
		t.Fatal(err)
	}
	if err := WriteJob(path, second); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := EncodeJob(second)
	if string(got) != string(want) {
		t.Errorf("job file = %q, want %q", got, want)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestBuild(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Converter = "/opt/musescore/mscore"
	cfg.ConverterArgs = []string{"-platform", "offscreen"}
	cfg.JobFile = "state/job.json"
	want := []string{"/opt/musescore/mscore", "-platform", "offscreen", "-j", "state/job.json"}
	if diff := cmp.Diff(want, Build(&cfg)); diff != "" {
		t.Errorf("Build mismatch (-want +got):\n%s", diff)
	}
}
