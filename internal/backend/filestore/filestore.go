// Package filestore implements a file-per-record backend.
//
// Records of kind K with persistent id N live at
//
//	<root>/<K>/<K>_<id64>.<ext>
//
// where id64 is codec.EncodeID(N). Writes go to a temporary file in the
// same directory followed by a rename, so a reader never observes a
// partially written payload.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/codec"
)

// Store is a directory-backed Backend.
type Store struct {
	root string
	ext  string
}

// Open prepares a store rooted at root. The directory is created if needed.
// ext is the file name extension without the dot, usually the serializer's.
func Open(root, ext string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("filestore: empty root path")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create root: %w", err)
	}
	return &Store{root: root, ext: strings.TrimPrefix(ext, ".")}, nil
}

// Name implements backend.Backend.
func (s *Store) Name() string { return "file" }

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// Path returns the file a record of (kind, id) is stored in.
func (s *Store) Path(kind string, id int64) string {
	return filepath.Join(s.root, kind, codec.RecordName(kind, id)+"."+s.ext)
}

// Load implements backend.Backend.
func (s *Store) Load(ctx context.Context, kind string, id int64) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(s.Path(kind, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("filestore: read: %w", err)
	}
	return data, true, nil
}

// Save implements backend.Backend.
func (s *Store) Save(ctx context.Context, kind string, id int64, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(s.root, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filestore: create kind dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("filestore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("filestore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(kind, id)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: rename: %w", err)
	}
	return nil
}

// Delete implements backend.Backend.
func (s *Store) Delete(ctx context.Context, kind string, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.Path(kind, id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore: remove: %w", err)
	}
	return nil
}

// List implements backend.Backend. Files that do not follow the naming
// scheme (temporaries, foreign files, other extensions) are ignored.
func (s *Store) List(ctx context.Context, kind string) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(0, err)
			return
		}
		entries, err := os.ReadDir(filepath.Join(s.root, kind))
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err != nil {
			yield(0, fmt.Errorf("filestore: read dir: %w", err))
			return
		}

		suffix := "." + s.ext
		var ids []int64
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			base, ok := strings.CutSuffix(e.Name(), suffix)
			if !ok {
				continue
			}
			if id, ok := codec.ParseRecordName(kind, base); ok {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)

		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

// Kinds implements backend.KindLister. A directory counts as a kind when it
// holds at least one record file.
func (s *Store) Kinds(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("filestore: read root: %w", err)
	}
	var kinds []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		for _, err := range s.List(ctx, e.Name()) {
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, e.Name())
			break
		}
	}
	return kinds, nil
}

// Close implements backend.Backend.
func (s *Store) Close() error { return nil }

var _ backend.Backend = (*Store)(nil)
