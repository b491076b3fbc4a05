// Package memory implements an in-memory report repository for tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"fleetreports/internal/blob/core"
)

type entry struct {
	info core.Info
	data []byte
}

// Store implements core.Store backed by process memory. Intended for tests.
type Store struct {
	mu      sync.RWMutex
	objs    map[string]entry
	folders map[string]bool
}

// New returns an in-memory store.
func New() *Store {
	return &Store{objs: make(map[string]entry), folders: make(map[string]bool)}
}

// Driver returns the driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// EnsureFolder records the folder; creating it twice is success.
func (s *Store) EnsureFolder(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[path] = true
	return nil
}

// HasFolder reports whether EnsureFolder saw the path. Test hook.
func (s *Store) HasFolder(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.folders[path]
}

// Put stores the file, replacing any previous contents at the key.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	now := time.Now().UTC()
	info := core.Info{Key: key, Size: int64(len(b)), ContentType: opts.ContentType, Metadata: cloneMetadata(opts.Metadata), LastModified: now}
	s.mu.Lock()
	s.objs[key] = entry{info: info, data: b}
	s.mu.Unlock()
	return info, nil
}

// Get returns metadata and a read closer over a copy of the content.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, nil, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)
	infoCopy := obj.info
	infoCopy.Metadata = cloneMetadata(infoCopy.Metadata)
	return infoCopy, io.NopCloser(bytes.NewReader(dataCopy)), nil
}

// Delete removes the file returning true if it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	if ok {
		delete(s.objs, key)
	}
	return ok, nil
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
