package cache

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kapu/famescale/internal/domain"
	"github.com/kapu/famescale/pkg/errors"
)

// Store holds the last successfully parsed fame collection in a single slot.
// Read reports ok=false when nothing has been cached yet.
type Store interface {
	Read(ctx context.Context) (records []*domain.FameRecord, ok bool, err error)
	Write(ctx context.Context, records []*domain.FameRecord) error
}

// MemoryStore keeps the slot in process memory as encoded JSON, so readers
// never share record pointers with the writer.
type MemoryStore struct {
	mu      sync.RWMutex
	payload []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Read(_ context.Context) ([]*domain.FameRecord, bool, error) {
	m.mu.RLock()
	payload := m.payload
	m.mu.RUnlock()

	if payload == nil {
		return nil, false, nil
	}
	records, err := Decode(payload)
	if err != nil {
		return nil, false, errors.NewCacheError("unmarshal failed", "read", "memory", err)
	}
	return records, true, nil
}

func (m *MemoryStore) Write(_ context.Context, records []*domain.FameRecord) error {
	payload, err := Encode(records)
	if err != nil {
		return errors.NewCacheError("marshal failed", "write", "memory", err)
	}

	m.mu.Lock()
	m.payload = payload
	m.mu.Unlock()
	return nil
}

// Encode serializes a collection to the slot format. A nil collection is
// stored as an empty JSON array.
func Encode(records []*domain.FameRecord) ([]byte, error) {
	if records == nil {
		records = []*domain.FameRecord{}
	}
	return json.Marshal(records)
}

// Decode parses the slot format. Null entries are skipped.
func Decode(payload []byte) ([]*domain.FameRecord, error) {
	var decoded []*domain.FameRecord
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, err
	}

	records := make([]*domain.FameRecord, 0, len(decoded))
	for _, r := range decoded {
		if r != nil {
			records = append(records, r)
		}
	}
	return records, nil
}
