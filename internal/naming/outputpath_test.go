package naming

import "testing"

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"relative corpus path", "../MuseScore/12/12.mscz", "../MuseScore/12/12.musicxml"},
		{"absolute path", "/data/scores/7/7.mscz", "/data/scores/7/7.musicxml"},
		{"uppercase extension", "scores/A.MSCZ", "scores/A.musicxml"},
		{"dotted directory", "v1.2/score.mscz", "v1.2/score.musicxml"},
		{"foreign extension kept", "scores/a.mxl", "scores/a.mxl.musicxml"},
		{"no extension", "scores/a", "scores/a.musicxml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OutputPath(tt.input, ".mscz", ".musicxml")
			if got != tt.want {
				t.Errorf("OutputPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOutputPath_DistinctInputsDistinctOutputs(t *testing.T) {
	inputs := []string{"a/1.mscz", "a/2.mscz", "a/1.mxl.mscz", "b/1.mscz", "a.mscz/1.mscz"}
	seen := make(map[string]string)
	for _, in := range inputs {
		out := OutputPath(in, ".mscz", ".musicxml")
		if prev, ok := seen[out]; ok {
			t.Errorf("%q and %q both map to %q", prev, in, out)
		}
		seen[out] = in
	}
}

func TestOutputPath_InputWithoutSourceExtCanCollide(t *testing.T) {
	// Callers filter with HasExt because of this.
	with := OutputPath("a/1.mscz", ".mscz", ".musicxml")
	without := OutputPath("a/1", ".mscz", ".musicxml")
	if with != without {
		t.Fatalf("expected a collision, got %q and %q", with, without)
	}
	if HasExt("a/1", ".mscz") {
		t.Error("HasExt accepted an input without the source extension")
	}
}

func TestHasExt(t *testing.T) {
	if !HasExt("x/y.MSCZ", ".mscz") {
		t.Error("HasExt should ignore case")
	}
	if HasExt("x/y.mscx", ".mscz") {
		t.Error("HasExt matched a different extension")
	}
}
