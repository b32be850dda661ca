package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"dataplug/pkg/optimize"
)

const (
	namePrefix = "snapshot-"
	nameSuffix = ".json"
	nameLayout = "20060102-150405.000"
)

// ErrNoSnapshots is returned by Latest when the storage holds no snapshot.
var ErrNoSnapshots = errors.New("no snapshots found")

// Envelope wraps a snapshot payload with its format version and capture time.
type Envelope struct {
	Version string          `json:"version"`
	TakenAt time.Time       `json:"taken_at"`
	Payload json.RawMessage `json:"payload"`
}

// Storage is a flat namespace of named blobs.
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// Archive writes and reads timestamped JSON snapshots on a Storage.
type Archive struct {
	storage Storage
	version string
	buffers *optimize.BufferPool
	now     func() time.Time
}

func NewArchive(storage Storage, version string) *Archive {
	return &Archive{
		storage: storage,
		version: version,
		buffers: optimize.NewBufferPool(4 << 20),
		now:     time.Now,
	}
}

// Save encodes payload into a new snapshot and returns its name.
func (a *Archive) Save(ctx context.Context, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot payload: %w", err)
	}

	env := Envelope{
		Version: a.version,
		TakenAt: a.now().UTC(),
		Payload: raw,
	}

	buf := a.buffers.Get()
	defer a.buffers.Put(buf)
	if err := json.NewEncoder(buf).Encode(&env); err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	name := SnapshotName(env.TakenAt)
	if err := a.storage.Save(ctx, name, bytes.NewReader(buf.Bytes())); err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}
	return name, nil
}

// Load reads a snapshot and decodes its payload into v.
func (a *Archive) Load(ctx context.Context, name string, v interface{}) (*Envelope, error) {
	rc, err := a.storage.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer rc.Close()

	var env Envelope
	if err := json.NewDecoder(rc).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}
	if env.Version == "" {
		return nil, fmt.Errorf("invalid snapshot %s: missing version", name)
	}
	if v != nil {
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
		}
	}
	return &env, nil
}

// List returns snapshot names, oldest first.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	names, err := a.storage.List(ctx, namePrefix)
	if err != nil {
		return nil, err
	}

	snapshots := names[:0]
	for _, name := range names {
		if _, ok := ParseSnapshotName(name); ok {
			snapshots = append(snapshots, name)
		}
	}
	// the timestamp layout sorts lexically
	sort.Strings(snapshots)
	return snapshots, nil
}

// Latest returns the newest snapshot name.
func (a *Archive) Latest(ctx context.Context) (string, error) {
	names, err := a.List(ctx)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNoSnapshots
	}
	return names[len(names)-1], nil
}

// Prune deletes snapshots taken before cutoff and reports how many went.
func (a *Archive) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	names, err := a.List(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	var errs []error
	for _, name := range names {
		takenAt, _ := ParseSnapshotName(name)
		if !takenAt.Before(cutoff) {
			continue
		}
		if err := a.storage.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

// SnapshotName formats the storage name for a snapshot taken at t.
func SnapshotName(t time.Time) string {
	return namePrefix + t.UTC().Format(nameLayout) + nameSuffix
}

// ParseSnapshotName extracts the capture time from a snapshot name.
func ParseSnapshotName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, nameSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), nameSuffix)
	t, err := time.Parse(nameLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
