package naming

import (
	"path/filepath"
	"strings"
)

// OutputPath returns input with its final extension replaced by dstExt.
// The directory and base name are kept, so ../MuseScore/12/12.mscz becomes
// ../MuseScore/12/12.musicxml. The extension comparison is case-insensitive.
//
// Distinct inputs that end in srcExt map to distinct outputs, apart from
// inputs differing only in the case of the extension. An input without
// srcExt gets dstExt appended, which can collide with a sibling that has
// it ("a/1" and "a/1.mscz" both give "a/1.musicxml"); callers that need
// one output per input must reject such inputs first (see HasExt).
func OutputPath(input, srcExt, dstExt string) string {
	ext := filepath.Ext(input)
	if ext != "" && strings.EqualFold(ext, srcExt) {
		return strings.TrimSuffix(input, ext) + dstExt
	}
	return input + dstExt
}

// HasExt reports whether path ends in ext, ignoring case.
func HasExt(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}
