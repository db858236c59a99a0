package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Store keeps encoded snapshots by name.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// List returns snapshot names in ascending version order.
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// Save encodes s and stores it under s.Name().
func Save(ctx context.Context, store Store, s *Snapshot) (string, error) {
	data, err := Encode(s)
	if err != nil {
		return "", err
	}
	name := s.Name()
	if err := store.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("failed to store snapshot %s: %w", name, err)
	}
	return name, nil
}

// LoadLatest decodes the newest snapshot in store.
func LoadLatest(ctx context.Context, store Store) (*Snapshot, error) {
	names, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNoSnapshot
	}
	name := names[len(names)-1]
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}
	return Decode(data)
}

// Prune deletes all but the newest keep snapshots.
func Prune(ctx context.Context, store Store, keep int) (int, error) {
	names, err := store.List(ctx)
	if err != nil {
		return 0, err
	}
	if keep < 1 {
		keep = 1
	}
	removed := 0
	for len(names)-removed > keep {
		if err := store.Delete(ctx, names[removed]); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// sortByVersion orders snapshot names and drops foreign objects.
func sortByVersion(names []string) []string {
	out := names[:0]
	for _, n := range names {
		if _, ok := VersionFromName(n); ok {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		va, _ := VersionFromName(a)
		vb, _ := VersionFromName(b)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
		return 0
	})
	return out
}

// FileStore keeps snapshots in a local directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the snapshot directory.
func (s *FileStore) Dir() string { return s.dir }

// Put writes to a temp file and renames it, so readers never see partial snapshots.
func (s *FileStore) Put(_ context.Context, name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+name+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

// Get reads a snapshot.
func (s *FileStore) Get(_ context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, name)
	}
	return data, err
}

// List returns stored snapshot names.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return sortByVersion(names), nil
}

// Delete removes a snapshot. Missing snapshots are ignored.
func (s *FileStore) Delete(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	return nil
}
