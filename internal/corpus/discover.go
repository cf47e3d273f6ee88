package corpus

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/backmassage/scorebatch/internal/naming"
)

// Discover returns every file with extension ext (case-insensitive) that
// sits exactly one directory below root, i.e. <root>/<id>/<file>. Files
// directly in root and anything deeper are ignored. Paths keep root's
// prefix and are sorted lexicographically for a deterministic order.
func Discover(root, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		depth := 0
		if rel != "." {
			depth = len(strings.Split(rel, string(filepath.Separator)))
		}
		if d.IsDir() {
			if depth > 1 {
				return filepath.SkipDir
			}
			return nil
		}
		if depth == 2 && naming.HasExt(path, ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ScoreID returns the identifier a metadata record uses for path: the base
// name without its extension.
func ScoreID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
