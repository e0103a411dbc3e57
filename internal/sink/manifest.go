package sink

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	ritaerrors "github.com/princespaghetti/rita/internal/errors"
)

// ManifestFile is the manifest's name inside a local destination.
const ManifestFile = "manifest.json"

const currentSchemaVersion = "1"

// Manifest lists the periods downloaded into a directory.
type Manifest struct {
	Version string  `json:"version"`
	Entries []Entry `json:"entries"`
}

// Entry records one downloaded period.
type Entry struct {
	Period       string    `json:"period"`
	File         string    `json:"file"`
	SHA256       string    `json:"sha256"`
	SizeBytes    int64     `json:"size_bytes"`
	SourceURL    string    `json:"source_url"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// NewManifest returns an empty manifest at the current schema version.
func NewManifest() *Manifest {
	return &Manifest{
		Version: currentSchemaVersion,
		Entries: []Entry{},
	}
}

// Put adds entry, replacing any existing entry for the same period. Entries
// stay sorted by period.
func (m *Manifest) Put(entry Entry) {
	for i := range m.Entries {
		if m.Entries[i].Period == entry.Period {
			m.Entries[i] = entry
			return
		}
	}
	m.Entries = append(m.Entries, entry)
	sort.Slice(m.Entries, func(i, j int) bool {
		return m.Entries[i].Period < m.Entries[j].Period
	})
}

// Find returns the entry for period.
func (m *Manifest) Find(period string) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Period == period {
			return e, true
		}
	}
	return Entry{}, false
}

// ComputeSHA256 returns the hex encoded SHA-256 of data.
func ComputeSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ReadManifest loads the manifest in dir. It returns ErrManifestNotFound
// when nothing has been downloaded there yet.
func ReadManifest(dir string) (*Manifest, error) {
	return NewLocalSink(dir).ReadManifest()
}

// ReadManifest loads the sink's manifest.
func (s *LocalSink) ReadManifest() (*Manifest, error) {
	m, err := s.readManifest()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &ritaerrors.RitaError{
			Op:   "read manifest",
			Path: s.manifestPath(),
			Err:  ritaerrors.ErrManifestNotFound,
		}
	}
	return m, nil
}

// Record stores entry in the sink's manifest. Failures are SinkWriteErrors
// against the manifest file.
func (s *LocalSink) Record(ctx context.Context, entry Entry) error {
	err := s.UpdateManifest(ctx, func(m *Manifest) error {
		m.Put(entry)
		return nil
	})
	if err != nil {
		return &ritaerrors.SinkWriteError{Dest: s.manifestPath(), Err: err}
	}
	return nil
}

// UpdateManifest applies fn to the manifest under the directory lock. A
// missing manifest starts out empty.
func (s *LocalSink) UpdateManifest(ctx context.Context, fn func(*Manifest) error) error {
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return &ritaerrors.RitaError{Op: "create directory", Path: s.dir, Err: err}
	}

	lock := s.locker(s.lockPath())
	if err := lock.Lock(ctx); err != nil {
		return fmt.Errorf("failed to lock manifest: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	m, err := s.readManifest()
	if err != nil {
		return err
	}
	if m == nil {
		m = NewManifest()
	}

	if err := fn(m); err != nil {
		return err
	}

	return s.writeManifest(m)
}

// readManifest returns nil, nil when the manifest does not exist.
func (s *LocalSink) readManifest() (*Manifest, error) {
	data, err := s.fs.ReadFile(s.manifestPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &ritaerrors.RitaError{Op: "read manifest", Path: s.manifestPath(), Err: err}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ritaerrors.RitaError{Op: "parse manifest", Path: s.manifestPath(), Err: err}
	}

	if m.Version != currentSchemaVersion {
		migrateManifest(&m)
	}
	if m.Entries == nil {
		m.Entries = []Entry{}
	}

	return &m, nil
}

func (s *LocalSink) writeManifest(m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &ritaerrors.RitaError{Op: "marshal manifest", Err: err}
	}

	if err := s.writeAtomic(s.manifestPath(), data); err != nil {
		return &ritaerrors.RitaError{Op: "write manifest", Path: s.manifestPath(), Err: err}
	}
	return nil
}

func (s *LocalSink) manifestPath() string {
	return filepath.Join(s.dir, ManifestFile)
}

// migrateManifest handles schema version migrations. Only v1 exists.
func migrateManifest(m *Manifest) {
	m.Version = currentSchemaVersion
}
