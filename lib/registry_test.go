package ibak

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testStore(t *testing.T, optionLine string) *MetaStore {
	t.Helper()

	kvs := []KeyValuePair{{"Path", filepath.Join(t.TempDir(), "store")}}
	kvs = append(kvs, SplitOptions(optionLine)...)
	options, err := EvalOptions(kvs, nil)
	if err != nil {
		t.Fatal(err)
	}

	store, err := OpenStore(options)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// reopen the same store directory with a fresh in-memory registry
func reopenStore(t *testing.T, store *MetaStore) *MetaStore {
	t.Helper()

	options, err := EvalOptions([]KeyValuePair{{"Path", store.BasePath()}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenStore(options)
	if err != nil {
		t.Fatal(err)
	}
	return reopened
}

func archiveNames(t *testing.T, archivePath string) []string {
	t.Helper()

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestOpenStoreInitializesEmptyState(t *testing.T) {
	store := testStore(t, "")

	if len(store.Entries()) != 0 {
		t.Errorf("expected an empty registry, got %v", store.Entries())
	}

	data, err := os.ReadFile(store.StatePath())
	if err != nil {
		t.Fatalf("state file not created: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("unexpected initial state file: %q", data)
	}
}

func TestOpenStoreCorruptState(t *testing.T) {
	store := testStore(t, "")
	err := os.WriteFile(store.StatePath(), []byte("{not json"), 0o666)
	if err != nil {
		t.Fatal(err)
	}

	options, err := EvalOptions([]KeyValuePair{{"Path", store.BasePath()}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = OpenStore(options)
	if !errors.Is(err, ErrCorruptState) {
		t.Errorf("expected ErrCorruptState, got %v", err)
	}
}

func TestCreateBackupIncremental(t *testing.T) {
	store := testStore(t, "")
	src := t.TempDir()

	writeFile(t, src, "a.txt", "first", time.Now().Add(-time.Minute))

	e1, err := store.CreateBackup(src)
	if err != nil {
		t.Fatal(err)
	}
	if e1 == nil || e1.FileCount != 1 {
		t.Fatalf("expected one captured file, got %v", e1)
	}

	names := archiveNames(t, store.ArchivePath(*e1))
	if len(names) != 1 || names[0] != "a.txt" {
		t.Errorf("first archive should hold only a.txt: %v", names)
	}

	// unchanged directory: no new entry, no new archive
	e, err := store.CreateBackup(src)
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Errorf("idempotence violated: second create made entry %v", e)
	}
	if len(store.Entries()) != 1 {
		t.Errorf("registry grew on a no-op create: %v", store.Entries())
	}

	// one new file, newer than the first entry
	writeFile(t, src, "b.txt", "second", e1.Time().Add(time.Second))

	e2, err := store.CreateBackup(src)
	if err != nil {
		t.Fatal(err)
	}
	if e2 == nil || e2.FileCount != 1 {
		t.Fatalf("expected one captured file, got %v", e2)
	}

	names = archiveNames(t, store.ArchivePath(*e2))
	if len(names) != 1 || names[0] != "b.txt" {
		t.Errorf("second archive should hold only b.txt: %v", names)
	}

	if len(store.Entries()) != 2 {
		t.Fatalf("expected two entries, got %v", store.Entries())
	}

	// the chain is persisted: a reload sees the same entries and ids
	reloaded := reopenStore(t, store)
	if len(reloaded.Entries()) != 2 {
		t.Fatalf("reload lost entries: %v", reloaded.Entries())
	}
	if reloaded.Entries()[0].ID() != e1.ID() || reloaded.Entries()[1].ID() != e2.ID() {
		t.Error("ids changed across reload")
	}
}

func TestCreateBackupMissingDirectory(t *testing.T) {
	store := testStore(t, "")
	_, err := store.CreateBackup(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected an error for a missing source directory")
	}
}

func TestCreateBackupExcludes(t *testing.T) {
	store := testStore(t, "@exclude=*.log")
	src := t.TempDir()

	writeFile(t, src, "a.txt", "keep", time.Time{})
	writeFile(t, src, "noise.log", "skip", time.Time{})

	e, err := store.CreateBackup(src)
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.FileCount != 1 {
		t.Fatalf("excluded file was counted: %v", e)
	}

	names := archiveNames(t, store.ArchivePath(*e))
	if len(names) != 1 || names[0] != "a.txt" {
		t.Errorf("excluded file reached the archive: %v", names)
	}
}

func TestRestoreComposesChain(t *testing.T) {
	store := testStore(t, "")
	src := t.TempDir()

	writeFile(t, src, "a.txt", "version 1", time.Now().Add(-time.Minute))
	e1, err := store.CreateBackup(src)
	if err != nil || e1 == nil {
		t.Fatal(err)
	}

	writeFile(t, src, "a.txt", "version 2", e1.Time().Add(time.Second))
	writeFile(t, src, "b.txt", "new", e1.Time().Add(time.Second))
	e2, err := store.CreateBackup(src)
	if err != nil || e2 == nil {
		t.Fatal(err)
	}

	target := t.TempDir()
	writeFile(t, target, "c.txt", "mine", time.Time{})

	err = store.Restore(e2.ID(), target)
	if err != nil {
		t.Fatal(err)
	}

	for name, content := range map[string]string{
		"a.txt": "version 2", // later snapshot wins
		"b.txt": "new",
		"c.txt": "mine", // never archived, never touched
	} {
		data, err := os.ReadFile(filepath.Join(target, name))
		if err != nil || string(data) != content {
			t.Errorf("%s: expected %q, got %q (%v)", name, content, data, err)
		}
	}
}

func TestRestoreStopsAtTargetEntry(t *testing.T) {
	store := testStore(t, "")
	src := t.TempDir()

	writeFile(t, src, "a.txt", "v1", time.Now().Add(-time.Minute))
	e1, err := store.CreateBackup(src)
	if err != nil || e1 == nil {
		t.Fatal(err)
	}

	writeFile(t, src, "b.txt", "later", e1.Time().Add(time.Second))
	_, err = store.CreateBackup(src)
	if err != nil {
		t.Fatal(err)
	}

	target := t.TempDir()
	err = store.Restore(e1.ID(), target)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(target, "a.txt")); err != nil {
		t.Errorf("a.txt missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "b.txt")); !os.IsNotExist(err) {
		t.Error("restore replayed an entry newer than the target")
	}
}

func TestRestoreUnknownID(t *testing.T) {
	store := testStore(t, "")
	err := store.Restore("deadbeef", t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	store := testStore(t, "")
	src := t.TempDir()

	writeFile(t, src, "a.txt", "v1", time.Now().Add(-time.Minute))
	e1, err := store.CreateBackup(src)
	if err != nil || e1 == nil {
		t.Fatal(err)
	}

	writeFile(t, src, "b.txt", "v2", e1.Time().Add(time.Second))
	e2, err := store.CreateBackup(src)
	if err != nil || e2 == nil {
		t.Fatal(err)
	}

	err = store.Remove(e1.ID(), false)
	if err != nil {
		t.Fatal(err)
	}

	if len(store.Entries()) != 1 || store.Entries()[0].ID() != e2.ID() {
		t.Errorf("expected only the second entry to remain: %v", store.Entries())
	}
	if _, err := os.Stat(store.ArchivePath(*e1)); !os.IsNotExist(err) {
		t.Error("removed entry's archive still present")
	}
	if _, err := os.Stat(store.ArchivePath(*e2)); err != nil {
		t.Error("unrelated archive was deleted")
	}
}

func TestRemoveAllScopedToDirectory(t *testing.T) {
	store := testStore(t, "")
	src1 := t.TempDir()
	src2 := t.TempDir()

	writeFile(t, src1, "a.txt", "x", time.Now().Add(-time.Minute))
	e1, err := store.CreateBackup(src1)
	if err != nil || e1 == nil {
		t.Fatal(err)
	}

	writeFile(t, src1, "b.txt", "y", e1.Time().Add(time.Second))
	e2, err := store.CreateBackup(src1)
	if err != nil || e2 == nil {
		t.Fatal(err)
	}

	writeFile(t, src2, "other.txt", "z", time.Time{})
	other, err := store.CreateBackup(src2)
	if err != nil || other == nil {
		t.Fatal(err)
	}

	err = store.Remove(e2.ID(), true)
	if err != nil {
		t.Fatal(err)
	}
	err = store.Save()
	if err != nil {
		t.Fatal(err)
	}

	if len(store.Entries()) != 1 || store.Entries()[0].ID() != other.ID() {
		t.Errorf("rm --all leaked outside its directory: %v", store.Entries())
	}
	for _, e := range []*Entry{e1, e2} {
		if _, err := os.Stat(store.ArchivePath(*e)); !os.IsNotExist(err) {
			t.Errorf("archive %s still present", e.ArchiveName())
		}
	}
	if _, err := os.Stat(store.ArchivePath(*other)); err != nil {
		t.Error("unrelated directory's archive was deleted")
	}

	reloaded := reopenStore(t, store)
	if len(reloaded.Entries()) != 1 {
		t.Errorf("removal not persisted: %v", reloaded.Entries())
	}
}

func TestRemoveToleratesMissingArchive(t *testing.T) {
	store := testStore(t, "")
	src := t.TempDir()

	writeFile(t, src, "a.txt", "x", time.Time{})
	e, err := store.CreateBackup(src)
	if err != nil || e == nil {
		t.Fatal(err)
	}

	err = os.Remove(store.ArchivePath(*e))
	if err != nil {
		t.Fatal(err)
	}

	err = store.Remove(e.ID(), false)
	if err != nil {
		t.Errorf("missing archive must be tolerated: %v", err)
	}
	if len(store.Entries()) != 0 {
		t.Errorf("entry not dropped: %v", store.Entries())
	}
}

func TestRemoveUnknownID(t *testing.T) {
	store := testStore(t, "")
	err := store.Remove("deadbeef", false)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFormatList(t *testing.T) {
	store := testStore(t, "")

	if store.FormatList() != "No backups found" {
		t.Errorf("unexpected empty listing: %q", store.FormatList())
	}

	src := t.TempDir()
	writeFile(t, src, "a.txt", "x", time.Time{})
	e, err := store.CreateBackup(src)
	if err != nil || e == nil {
		t.Fatal(err)
	}

	listing := store.FormatList()
	for _, want := range []string{store.StatePath(), "Total backups: 1", "BACKUP ID", e.ID(), e.DateString()} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing misses %q:\n%s", want, listing)
		}
	}
}

func TestFormatListTruncatesLongPaths(t *testing.T) {
	store := testStore(t, "")
	long := "/very" + strings.Repeat("/deeply/nested", 6) + "/directory"
	store.entries = []Entry{{Path: long, Timestamp: 1693392000}}

	listing := store.FormatList()
	if !strings.Contains(listing, "...") {
		t.Errorf("long path not ellipsized:\n%s", listing)
	}
	if strings.Contains(listing, long) {
		t.Errorf("full path should not fit the column:\n%s", listing)
	}
}
