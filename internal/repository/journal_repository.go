package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/compozy/autotag/internal/domain"
	"github.com/gofrs/flock"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/afero"
)

const (
	// JournalSchemaVersion defines the current schema version for journal files
	JournalSchemaVersion = "1.0.0"
	// JournalFilePermissions defines the permissions for journal files
	JournalFilePermissions = 0600
	// JournalDirPermissions defines the permissions for the journal directory
	JournalDirPermissions = 0700
	// LockTimeout defines the maximum time to wait for a lock
	LockTimeout = 30 * time.Second
	// LockRetryInterval defines the interval between lock retry attempts
	LockRetryInterval = 100 * time.Millisecond
)

var (
	// ErrJournalNotFound is returned when no record exists for a session.
	ErrJournalNotFound = errors.New("journal record not found")

	errLockBusy = errors.New("journal lock is held by another process")
)

// JournalRepository stores one record per autotag run
type JournalRepository interface {
	Save(ctx context.Context, record *domain.RunRecord) error
	Load(ctx context.Context, sessionID string) (*domain.RunRecord, error)
	LoadLatest(ctx context.Context) (*domain.RunRecord, error)
}

// JournalMetadata contains metadata about the journal file
type JournalMetadata struct {
	SchemaVersion string    `json:"schema_version"`
	Checksum      string    `json:"checksum"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// JournalEntry wraps the record with metadata
type JournalEntry struct {
	Metadata JournalMetadata   `json:"metadata"`
	Record   *domain.RunRecord `json:"record"`
}

// JSONJournalRepository implements JournalRepository using JSON files.
// Data goes through fs; lock files always live on the OS filesystem.
type JSONJournalRepository struct {
	fs  afero.Fs
	dir string
}

// NewJSONJournalRepository creates a new JSON-based journal repository
func NewJSONJournalRepository(fs afero.Fs, dir string) *JSONJournalRepository {
	if dir == "" {
		dir = ".autotag"
	}
	return &JSONJournalRepository{fs: fs, dir: dir}
}

// Save persists the record atomically under an exclusive lock
func (r *JSONJournalRepository) Save(ctx context.Context, record *domain.RunRecord) error {
	if err := r.ensureDir(); err != nil {
		return fmt.Errorf("failed to ensure journal directory: %w", err)
	}
	lock := flock.New(r.lockFilename())
	if err := r.acquireLock(ctx, lock, false); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer r.unlock(lock)
	recordData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record for checksum: %w", err)
	}
	entry := JournalEntry{
		Metadata: JournalMetadata{
			SchemaVersion: JournalSchemaVersion,
			Checksum:      r.calculateChecksum(recordData),
			CreatedAt:     record.StartedAt,
			UpdatedAt:     time.Now(),
		},
		Record: record,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	filename := r.recordFilename(record.SessionID)
	if err := r.writeAtomic(filename, data); err != nil {
		return err
	}
	if err := r.writeAtomic(r.latestLink(), []byte(filepath.Base(filename))); err != nil {
		return fmt.Errorf("failed to update latest link: %w", err)
	}
	return nil
}

// Load retrieves a record by session ID and validates its checksum
func (r *JSONJournalRepository) Load(ctx context.Context, sessionID string) (*domain.RunRecord, error) {
	if err := r.ensureDir(); err != nil {
		return nil, fmt.Errorf("failed to ensure journal directory: %w", err)
	}
	lock := flock.New(r.lockFilename())
	if err := r.acquireLock(ctx, lock, true); err != nil {
		return nil, fmt.Errorf("failed to acquire shared lock: %w", err)
	}
	defer r.unlock(lock)
	data, err := afero.ReadFile(r.fs, r.recordFilename(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: session %s", ErrJournalNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}
	var entry JournalEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal entry: %w", err)
	}
	if entry.Metadata.SchemaVersion != JournalSchemaVersion {
		return nil, fmt.Errorf("incompatible schema version: expected %s, got %s",
			JournalSchemaVersion, entry.Metadata.SchemaVersion)
	}
	recordData, err := json.Marshal(entry.Record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record for checksum validation: %w", err)
	}
	if entry.Metadata.Checksum != r.calculateChecksum(recordData) {
		return nil, fmt.Errorf("journal checksum mismatch: data may be corrupted")
	}
	return entry.Record, nil
}

// LoadLatest retrieves the most recently saved record
func (r *JSONJournalRepository) LoadLatest(ctx context.Context) (*domain.RunRecord, error) {
	data, err := afero.ReadFile(r.fs, r.latestLink())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no runs recorded in %s", ErrJournalNotFound, r.dir)
		}
		return nil, fmt.Errorf("failed to read latest link: %w", err)
	}
	sessionID := r.extractSessionID(strings.TrimSpace(string(data)))
	if sessionID == "" {
		return nil, fmt.Errorf("invalid latest link target: %s", data)
	}
	return r.Load(ctx, sessionID)
}

// acquireLock polls the lock until it is taken or LockTimeout elapses
func (r *JSONJournalRepository) acquireLock(ctx context.Context, lock *flock.Flock, shared bool) error {
	backoff := retry.WithMaxDuration(LockTimeout, retry.NewConstant(LockRetryInterval))
	return retry.Do(ctx, backoff, func(_ context.Context) error {
		var (
			locked bool
			err    error
		)
		if shared {
			locked, err = lock.TryRLock()
		} else {
			locked, err = lock.TryLock()
		}
		if err != nil {
			return err
		}
		if !locked {
			return retry.RetryableError(errLockBusy)
		}
		return nil
	})
}

func (r *JSONJournalRepository) unlock(lock *flock.Flock) {
	if err := lock.Unlock(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to unlock journal: %v\n", err)
	}
}

func (r *JSONJournalRepository) writeAtomic(filename string, data []byte) error {
	tempFile := filename + ".tmp"
	if err := afero.WriteFile(r.fs, tempFile, data, JournalFilePermissions); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := r.fs.Rename(tempFile, filename); err != nil {
		if removeErr := r.fs.Remove(tempFile); removeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to remove temp file: %v\n", removeErr)
		}
		return fmt.Errorf("failed to rename %s: %w", filename, err)
	}
	return nil
}

// calculateChecksum calculates SHA-256 checksum of data
func (r *JSONJournalRepository) calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ensureDir creates the journal directory on both the data and lock filesystems
func (r *JSONJournalRepository) ensureDir() error {
	if err := r.fs.MkdirAll(r.dir, JournalDirPermissions); err != nil {
		return err
	}
	return os.MkdirAll(r.dir, JournalDirPermissions)
}

func (r *JSONJournalRepository) recordFilename(sessionID string) string {
	return filepath.Join(r.dir, fmt.Sprintf("run-%s.json", sessionID))
}

func (r *JSONJournalRepository) lockFilename() string {
	return filepath.Join(r.dir, ".journal.lock")
}

func (r *JSONJournalRepository) latestLink() string {
	return filepath.Join(r.dir, "latest.txt")
}

// extractSessionID extracts session ID from a record filename
func (r *JSONJournalRepository) extractSessionID(filename string) string {
	base := filepath.Base(filename)
	if sessionID, ok := strings.CutPrefix(base, "run-"); ok {
		return strings.TrimSuffix(sessionID, ".json")
	}
	return ""
}
