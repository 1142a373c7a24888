package ibak

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
)

// Chain selects the entries belonging to dir (exact path equality, no prefix
// matching) and sorts them ascending by timestamp. The sort is stable: entries
// sharing a timestamp keep their registry insertion order.
func Chain(entries []Entry, dir string) []Entry {
	var chain []Entry
	for _, e := range entries {
		if e.Path == dir {
			chain = append(chain, e)
		}
	}

	sort.SliceStable(chain, func(a, b int) bool {
		return CompareEntries(chain[a], chain[b]) < 0
	})

	return chain
}

// LastTimestamp returns the timestamp of the most recent entry of dir's chain,
// or 0 if the chain is empty (meaning every file counts as new).
func LastTimestamp(entries []Entry, dir string) float64 {
	chain := Chain(entries, dir)
	if len(chain) == 0 {
		return 0
	}
	return chain[len(chain)-1].Timestamp
}

// ChangedFiles walks dir recursively and returns the regular files whose
// modification time is strictly greater than sinceTs, minus excluded ones.
// Exclude patterns are globs matched against the slash-separated path relative
// to dir, and against the file's base name.
func ChangedFiles(dir string, sinceTs float64, excludes []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if excluded(rel, excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		if TimeToTimestamp(info.ModTime()) > sinceTs {
			files = append(files, p)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func excluded(rel string, excludes []string) bool {
	if rel == "." {
		return false
	}

	for _, pattern := range excludes {
		if m, err := path.Match(pattern, rel); err == nil && m {
			return true
		}
		if m, err := path.Match(pattern, path.Base(rel)); err == nil && m {
			return true
		}
	}

	return false
}
