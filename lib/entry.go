package ibak

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"
)

// Version tag mixed into the id derivation. Ids are durable external handles:
// bump this only with a migration story for already-persisted registries.
const idDerivationV1 = "ibak-id-v1"

// Time format used in listings, for time.Format
const ListingTimeFormat = "2006-01-02 15:04:05"

// Represents one backup snapshot of a directory: its metadata record as persisted
// in the state file. The archive itself lives next to the state file under ArchiveName().
type Entry struct {
	// Canonicalized absolute path of the backed-up directory. Two entries belong
	// to the same chain iff their paths are equal.
	Path string `json:"path"`

	// Creation time, seconds since epoch. Fractional part is significant: it takes
	// part in the incremental mtime filter and in the id derivation.
	Timestamp float64 `json:"timestamp"`

	// Number of files captured by this entry. Informational only.
	FileCount int `json:"file_count"`
}

// NewEntry creates an entry for dir at time now.
func NewEntry(dir string, now time.Time, fileCount int) Entry {
	return Entry{
		Path:      dir,
		Timestamp: TimeToTimestamp(now),
		FileCount: fileCount,
	}
}

// Canonical decimal rendering of the timestamp. This is the form used in archive
// names and in the id derivation, so it must be reproducible from a reloaded entry:
// FormatFloat with precision -1 yields the shortest representation that round-trips
// the float64, which is also what encoding/json emits and parses.
func (e Entry) TimestampString() string {
	return strconv.FormatFloat(e.Timestamp, 'f', -1, 64)
}

// ID derives the short identifier users pass to restore/rm. It is computed from the
// persisted fields only (path and timestamp), so an entry reloaded from the state
// file yields the same id as the freshly created one. The path is included to keep
// ids distinct across directories backed up at the same instant.
func (e Entry) ID() string {
	h := sha256.Sum256([]byte(idDerivationV1 + "\x00" + e.Path + "\x00" + e.TimestampString()))
	return hex.EncodeToString(h[:4])
}

// Canonical string form: the base name of the backed-up directory plus the timestamp
func (e Entry) String() string {
	return fmt.Sprintf("%s_%s", filepath.Base(e.Path), e.TimestampString())
}

// Shorthand for String() + ".zip"
func (e Entry) ArchiveName() string {
	return e.String() + ".zip"
}

func (e Entry) Time() time.Time {
	sec, frac := math.Modf(e.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Creation time formatted for listings
func (e Entry) DateString() string {
	return e.Time().Format(ListingTimeFormat)
}

// TimeToTimestamp converts a time.Time to epoch seconds, keeping fractional precision.
func TimeToTimestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Compare entries by creation time
func CompareEntries(a, b Entry) int {
	switch {
	case a.Timestamp < b.Timestamp:
		return -1
	case a.Timestamp > b.Timestamp:
		return 1
	default:
		return 0
	}
}
