package artifact

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memObject struct {
	data    []byte
	modTime time.Time
}

// MemoryStore is an in-process store for development and tests. Failures can
// be injected with FailPuts and FailDeletes.
type MemoryStore struct {
	mu          sync.Mutex
	objects     map[string]memObject
	putErr      error
	deleteErr   error
	deleteCalls int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject)}
}

// FailPuts makes every subsequent Put return err (nil restores normal behavior).
func (s *MemoryStore) FailPuts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

// FailDeletes makes every subsequent Delete return err (nil restores normal behavior).
func (s *MemoryStore) FailDeletes(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = err
}

// Put copies data under a fresh locator.
func (s *MemoryStore) Put(ctx context.Context, data []byte, suggestedName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	locator := NewLocator(suggestedName)
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[locator] = memObject{data: buf, modTime: time.Now()}
	return locator, nil
}

// Delete removes the artifact, returning ErrNotFound when it is absent.
func (s *MemoryStore) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.objects[locator]; !ok {
		return ErrNotFound
	}
	delete(s.objects, locator)
	return nil
}

// Exists reports whether the artifact is stored.
func (s *MemoryStore) Exists(ctx context.Context, locator string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[locator]
	return ok, nil
}

// List returns every stored artifact sorted by locator.
func (s *MemoryStore) List(ctx context.Context) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ObjectInfo, 0, len(s.objects))
	for loc, obj := range s.objects {
		out = append(out, ObjectInfo{Locator: loc, Size: int64(len(obj.data)), ModTime: obj.modTime})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Locator < out[j].Locator })
	return out, nil
}

// Len returns the number of stored artifacts.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// DeleteCalls returns how many times Delete was invoked, successful or not.
func (s *MemoryStore) DeleteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteCalls
}

// Get returns a copy of the stored bytes.
func (s *MemoryStore) Get(locator string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[locator]
	if !ok {
		return nil, false
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, true
}

// Backdate shifts an artifact's modification time into the past. Used to
// exercise grace periods.
func (s *MemoryStore) Backdate(locator string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.objects[locator]; ok {
		obj.modTime = obj.modTime.Add(-d)
		s.objects[locator] = obj
	}
}
