package objectstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process, lock-protected object store used by tests
// and local/dev runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object // key: orgID + "/" + id
}

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*Object)}
}

func memKey(orgID, id string) string {
	return orgID + "/" + id
}

func (s *MemoryStore) Put(ctx context.Context, orgID string, data []byte, mimeType string, metadata map[string]string) (string, error) {
	id := uuid.NewString()
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[memKey(orgID, id)] = &Object{
		ID:       id,
		OrgID:    orgID,
		Data:     cp,
		MimeType: mimeType,
		Metadata: metadata,
	}
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, orgID, id string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[memKey(orgID, id)]
	if !ok {
		return nil, &ErrNotFound{OrgID: orgID, ID: id}
	}
	cp := *obj
	data := make([]byte, len(obj.Data))
	copy(data, obj.Data)
	cp.Data = data
	return &cp, nil
}

func (s *MemoryStore) PresignRead(ctx context.Context, orgID, id string, ttl time.Duration) (string, time.Time, error) {
	if _, err := s.Get(ctx, orgID, id); err != nil {
		return "", time.Time{}, err
	}
	return "mem:" + memKey(orgID, id), time.Now().Add(ttl), nil
}

func (s *MemoryStore) Delete(ctx context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, memKey(orgID, id))
	return nil
}
