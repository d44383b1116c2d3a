package preview

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	preview Preview
	data    []byte
}

// MemoryStore keeps previews in process memory. Its URLs point back at this
// server, which serves them with Open.
type MemoryStore struct {
	urlFor  func(id string) string
	ttl     time.Duration
	maxSize int64
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore(urlFor func(id string) string, ttl time.Duration, maxSize int64) *MemoryStore {
	return &MemoryStore{
		urlFor:  urlFor,
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Put(ctx context.Context, u Upload) (Preview, error) {
	p, err := inspect(u, s.maxSize)
	if err != nil {
		return Preview{}, err
	}
	p.ID = uuid.New().String()
	p.URL = s.urlFor(p.ID)
	p.ExpiresAt = s.now().Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[p.ID] = memoryEntry{preview: p, data: u.Data}
	return p, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Preview, error) {
	e, err := s.live(id)
	return e.preview, err
}

func (s *MemoryStore) Open(ctx context.Context, id string) (io.ReadCloser, Preview, error) {
	e, err := s.live(id)
	if err != nil {
		return nil, Preview{}, err
	}
	return io.NopCloser(bytes.NewReader(e.data)), e.preview, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if !now.Before(e.preview.ExpiresAt) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) live(id string) (memoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || !s.now().Before(e.preview.ExpiresAt) {
		return memoryEntry{}, ErrNotFound
	}
	return e, nil
}
