// Package kvstore is a small JSON key/value store on top of afs. Each key is
// one object under the base URL, so the same code runs against the local
// file system (file://) or process memory (mem://).
package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

var (
	ErrInvalidKey = errors.New("invalid key")

	keyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-.]+$`)
)

type Store struct {
	fs      afs.Service
	baseURL string
}

// New opens a store rooted at baseURL, creating the folder if needed.
func New(ctx context.Context, baseURL string) (*Store, error) {
	fs := afs.New()
	base := url.Normalize(baseURL, file.Scheme)

	exists, err := fs.Exists(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("check kv store location %s: %w", base, err)
	}
	if !exists {
		if err := fs.Create(ctx, base, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("create kv store location %s: %w", base, err)
		}
	}
	return &Store{fs: fs, baseURL: base}, nil
}

func (s *Store) BaseURL() string {
	return s.baseURL
}

func (s *Store) location(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return url.Join(s.baseURL, key+".json"), nil
}

// Get decodes the value stored under key into v. It reports false when the
// key is absent and leaves v untouched.
func (s *Store) Get(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	loc, err := s.location(key)
	if err != nil {
		return nil, false, err
	}
	exists, err := s.fs.Exists(ctx, loc)
	if err != nil {
		return nil, false, fmt.Errorf("check %s: %w", key, err)
	}
	if !exists {
		return nil, false, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, loc)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

// Put replaces the value under key with the JSON encoding of v.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.PutRaw(ctx, key, data)
}

func (s *Store) PutRaw(ctx context.Context, key string, data []byte) error {
	loc, err := s.location(key)
	if err != nil {
		return err
	}
	if err := s.fs.Upload(ctx, loc, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	loc, err := s.location(key)
	if err != nil {
		return err
	}
	exists, err := s.fs.Exists(ctx, loc)
	if err != nil {
		return fmt.Errorf("check %s: %w", key, err)
	}
	if !exists {
		return nil
	}
	if err := s.fs.Delete(ctx, loc); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
