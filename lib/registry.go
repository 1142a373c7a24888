package ibak

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Name of the state file, relative to the store directory
const StateFileName = ".meta.json"

var registryLog = logrus.WithFields(logrus.Fields{
	"component": "registry",
})

// MetaStore owns the registry of backup entries: it loads the state file into
// memory, mutates it through CreateBackup/Remove, and rewrites it wholesale on
// every mutation. Archives live in the same directory as the state file.
//
// There is no locking: two concurrent invocations against the same store can
// race on load-mutate-flush and lose an update. Single writer by discipline.
type MetaStore struct {
	options  *Options
	basePath string
	level    int
	excludes []string
	entries  []Entry
}

// OpenStore resolves the store directory from the options and loads the state
// file. A missing state file is not an error: the store directory and an empty
// state file are created. A present but unparsable state file aborts with
// ErrCorruptState.
func OpenStore(options *Options) (*MetaStore, error) {
	basePath := options.GetString("Path", "")
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Join(home, ".backup")
	}

	basePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}

	level, err := options.GetCompressionLevel()
	if err != nil {
		return nil, err
	}

	s := &MetaStore{
		options:  options,
		basePath: basePath,
		level:    level,
		excludes: options.GetExcludes(),
	}

	err = s.load()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *MetaStore) BasePath() string {
	return s.basePath
}

func (s *MetaStore) StatePath() string {
	return filepath.Join(s.basePath, StateFileName)
}

// Entries returns the registry in persisted (insertion) order
func (s *MetaStore) Entries() []Entry {
	return s.entries
}

func (s *MetaStore) load() error {
	s.entries = []Entry{}

	data, err := os.ReadFile(s.StatePath())
	if os.IsNotExist(err) {
		err = os.MkdirAll(s.basePath, 0777)
		if err != nil {
			return err
		}
		return s.Save()
	} else if err != nil {
		return err
	}

	err = json.Unmarshal(data, &s.entries)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptState, s.StatePath(), err)
	}
	if s.entries == nil {
		s.entries = []Entry{}
	}

	return nil
}

// Save rewrites the whole state file from the in-memory registry
func (s *MetaStore) Save() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return err
	}

	return os.WriteFile(s.StatePath(), data, 0o666)
}

// ArchivePath returns the location of an entry's archive inside the store
func (s *MetaStore) ArchivePath(entry Entry) string {
	return filepath.Join(s.basePath, entry.ArchiveName())
}

// Find looks an entry up by its short id
func (s *MetaStore) Find(id string) (Entry, error) {
	for _, e := range s.entries {
		if e.ID() == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// CreateBackup snapshots dir: it selects the files modified since the last entry
// of dir's chain, writes them into a new archive and appends a new entry to the
// registry, persisting it immediately. When nothing changed, no entry is created
// and no archive is written; the returned entry is nil.
func (s *MetaStore) CreateBackup(dir string) (*Entry, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", abs)
	}

	lastTs := LastTimestamp(s.entries, abs)
	files, err := ChangedFiles(abs, lastTs, s.excludes)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		registryLog.WithFields(logrus.Fields{"path": abs}).Info("no files have been added or updated, skipping")
		return nil, nil
	}

	entry := NewEntry(abs, time.Now(), len(files))
	archivePath := s.ArchivePath(entry)

	registryLog.WithFields(logrus.Fields{"path": abs}).Printf("creating backup %s (%d files)", entry.ID(), len(files))
	err = Compress(files, archivePath, abs, s.level)
	if err != nil {
		return nil, err
	}

	s.entries = append(s.entries, entry)
	err = s.Save()
	if err != nil {
		return nil, err
	}

	RunPostCreateHook(registryLog, s.options, entry, archivePath)

	return &entry, nil
}

// Restore replays the chain of the entry identified by id: every entry of the
// same directory up to and including the target one, extracted oldest first so
// later snapshots overwrite earlier ones. Files in the target directory that no
// selected archive contains are left alone. An empty targetDir means the entry's
// own source directory.
func (s *MetaStore) Restore(id string, targetDir string) error {
	target, err := s.Find(id)
	if err != nil {
		return err
	}

	if targetDir == "" {
		targetDir = target.Path
	}

	err = os.MkdirAll(targetDir, 0777)
	if err != nil {
		return err
	}

	for _, e := range Chain(s.entries, target.Path) {
		if e.Timestamp > target.Timestamp {
			break
		}

		registryLog.Printf("restoring %s onto %s", e.ArchiveName(), targetDir)
		err = Extract(s.ArchivePath(e), targetDir)
		if err != nil {
			return err
		}
	}

	return nil
}

// Remove drops the entry identified by id from the registry, deleting its
// archive; with all set, it drops every entry of the same directory. A missing
// archive file is tolerated: the entry is dropped anyway. Remove does not
// persist; the caller saves once per batch.
func (s *MetaStore) Remove(id string, all bool) error {
	target, err := s.Find(id)
	if err != nil {
		return err
	}

	var firstErr error
	removedOne := false
	kept := []Entry{}
	for _, e := range s.entries {
		remove := false
		if all {
			remove = e.Path == target.Path
		} else if !removedOne && e.ID() == id {
			remove = true
		}

		if !remove {
			kept = append(kept, e)
			continue
		}

		removedOne = true
		registryLog.Printf("removing backup %s (%s)", e.ID(), e.ArchiveName())
		err = os.Remove(s.ArchivePath(e))
		if err != nil && !os.IsNotExist(err) {
			registryLog.WithFields(logrus.Fields{"archive": e.ArchiveName()}).Warnf("cannot remove archive: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.entries = kept
	return firstErr
}

const (
	listIDWidth   = 10
	listDirWidth  = 60
	listDateWidth = 20
)

// FormatList renders the registry as a fixed-width table, preceded by the store
// location and the entry count. An empty registry renders a single message.
func (s *MetaStore) FormatList() string {
	if len(s.entries) == 0 {
		return "No backups found"
	}

	lines := []string{
		fmt.Sprintf("State file: %s", s.StatePath()),
		fmt.Sprintf("Total backups: %d", len(s.entries)),
		"",
		fmt.Sprintf("%-*s %-*s %-*s", listIDWidth, "BACKUP ID", listDirWidth, "DIRECTORY", listDateWidth, "DATE"),
		strings.Repeat("-", listIDWidth+listDirWidth+listDateWidth+2),
	}

	for _, e := range s.entries {
		directory := e.Path
		if len(directory) > listDirWidth {
			directory = "..." + directory[len(directory)-listDirWidth+3:]
		}
		lines = append(lines, fmt.Sprintf("%-*s %-*s %-*s", listIDWidth, e.ID(), listDirWidth, directory, listDateWidth, e.DateString()))
	}

	return strings.Join(lines, "\n")
}
