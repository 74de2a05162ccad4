package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRegistry struct {
	mu  sync.RWMutex
	cfg *Config

	// tenant -> identity -> record
	records map[string]map[string]*Record
}

// NewMemoryRegistry creates a registry that keeps all records in process
// memory. Used as the default backend and in tests.
func NewMemoryRegistry(cfg *Config) RecordRegistry {
	return &memoryRegistry{
		cfg:     cfg,
		records: map[string]map[string]*Record{},
	}
}

func newIdentity() string {
	return "urn:diwise:record:" + uuid.NewString()
}

func (m *memoryRegistry) Create(ctx context.Context, tenant, kind string, fields map[string]any) (*Record, error) {
	if err := m.cfg.allows(tenant, kind); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[tenant]; !ok {
		m.records[tenant] = map[string]*Record{}
	}

	now := time.Now().UTC()

	record := &Record{
		Identity:  newIdentity(),
		Kind:      kind,
		Fields:    copyFields(fields),
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.records[tenant][record.Identity] = record

	return copyRecord(record), nil
}

func (m *memoryRegistry) Retrieve(ctx context.Context, tenant, kind, identity string) (*Record, error) {
	if err := m.cfg.allows(tenant, kind); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, err := m.lookup(tenant, kind, identity)
	if err != nil {
		return nil, err
	}

	return copyRecord(record), nil
}

func (m *memoryRegistry) Update(ctx context.Context, tenant, kind, identity string, set map[string]any, remove []string) (*Record, error) {
	if err := m.cfg.allows(tenant, kind); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.lookup(tenant, kind, identity)
	if err != nil {
		return nil, err
	}

	for name, value := range set {
		record.Fields[name] = value
	}

	for _, name := range remove {
		delete(record.Fields, name)
	}

	record.UpdatedAt = time.Now().UTC()

	return copyRecord(record), nil
}

func (m *memoryRegistry) Delete(ctx context.Context, tenant, kind, identity string) error {
	if err := m.cfg.allows(tenant, kind); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup(tenant, kind, identity); err != nil {
		return err
	}

	delete(m.records[tenant], identity)

	return nil
}

func (m *memoryRegistry) lookup(tenant, kind, identity string) (*Record, error) {
	record, ok := m.records[tenant][identity]
	if !ok || record.Kind != kind {
		return nil, NewNotFoundError(
			fmt.Sprintf("no record of kind %s with identity %s", kind, identity),
		)
	}

	return record, nil
}

func copyFields(fields map[string]any) map[string]any {
	copied := make(map[string]any, len(fields))
	for name, value := range fields {
		copied[name] = value
	}
	return copied
}

func copyRecord(record *Record) *Record {
	return &Record{
		Identity:  record.Identity,
		Kind:      record.Kind,
		Fields:    copyFields(record.Fields),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
