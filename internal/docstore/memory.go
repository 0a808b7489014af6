package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Op names a Store method; used by fault injection.
type Op string

const (
	OpGet       Op = "get"
	OpQuery     Op = "query"
	OpCreate    Op = "create"
	OpSet       Op = "set"
	OpMerge     Op = "merge"
	OpIncrement Op = "increment"
	OpDelete    Op = "delete"
)

// FaultFunc is consulted before every operation; a non-nil result is returned
// to the caller and the operation is not applied.
type FaultFunc func(op Op, collection, id string) error

type memEntry struct {
	fields    map[string]json.RawMessage
	seq       uint64
	createdAt time.Time
	updatedAt time.Time
}

// Memory is an in-process Store used by tests and local runs.
type Memory struct {
	mu    sync.RWMutex
	cols  map[string]map[string]*memEntry
	seq   uint64
	now   func() time.Time
	fault FaultFunc
}

func NewMemory() *Memory {
	return &Memory{
		cols: make(map[string]map[string]*memEntry),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) SetFault(f FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = f
}

func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Count returns the number of documents in a collection.
func (m *Memory) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cols[collection])
}

func (m *Memory) check(op Op, collection, id string) error {
	if err := validate(collection, id); err != nil {
		return err
	}
	m.mu.RLock()
	f := m.fault
	m.mu.RUnlock()
	if f != nil {
		return f(op, collection, id)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := m.check(OpGet, collection, id); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.cols[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return e.document(id)
}

func (m *Memory) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := m.check(OpQuery, collection, ""); err != nil {
		return nil, err
	}
	want := make(map[string]json.RawMessage, len(filters))
	for _, f := range filters {
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("docstore: encode filter %s: %w", f.Field, err)
		}
		want[f.Field] = raw
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.cols[collection]))
	for id, e := range m.cols[collection] {
		if e.matches(want) {
			ids = append(ids, id)
		}
	}
	col := m.cols[collection]
	sort.Slice(ids, func(i, j int) bool { return col[ids[i]].seq < col[ids[j]].seq })

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		d, err := col[id].document(id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (m *Memory) Create(ctx context.Context, collection, id string, doc any) (string, error) {
	if id == "" {
		var err error
		if id, err = newID(); err != nil {
			return "", err
		}
	}
	if err := m.check(OpCreate, collection, id); err != nil {
		return "", err
	}
	fields, err := decodeFields(doc)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cols[collection][id]; ok {
		return "", fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
	}
	m.insertLocked(collection, id, fields)
	return id, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, doc any) error {
	if err := m.check(OpSet, collection, id); err != nil {
		return err
	}
	fields, err := decodeFields(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.cols[collection][id]; ok {
		e.fields = fields
		e.updatedAt = m.now()
		return nil
	}
	m.insertLocked(collection, id, fields)
	return nil
}

func (m *Memory) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := m.check(OpMerge, collection, id); err != nil {
		return err
	}
	patch, err := decodeFields(fields)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cols[collection][id]
	if !ok {
		m.insertLocked(collection, id, patch)
		return nil
	}
	for k, v := range patch {
		e.fields[k] = v
	}
	e.updatedAt = m.now()
	return nil
}

func (m *Memory) Increment(ctx context.Context, collection, id, field string, delta, limit int64) error {
	if err := m.check(OpIncrement, collection, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cols[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	var current int64
	if raw, ok := e.fields[field]; ok {
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("docstore: field %s of %s/%s is not an integer: %w", field, collection, id, err)
		}
	}
	if delta > limit-current {
		return fmt.Errorf("%w: %s/%s.%s is %d, adding %d passes %d", ErrLimitExceeded, collection, id, field, current, delta, limit)
	}
	e.fields[field] = json.RawMessage(strconv.FormatInt(current+delta, 10))
	e.updatedAt = m.now()
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := m.check(OpDelete, collection, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cols[collection], id)
	return nil
}

func (m *Memory) insertLocked(collection, id string, fields map[string]json.RawMessage) {
	col, ok := m.cols[collection]
	if !ok {
		col = make(map[string]*memEntry)
		m.cols[collection] = col
	}
	m.seq++
	now := m.now()
	col[id] = &memEntry{fields: fields, seq: m.seq, createdAt: now, updatedAt: now}
}

func (e *memEntry) matches(want map[string]json.RawMessage) bool {
	for field, raw := range want {
		got, ok := e.fields[field]
		if !ok || !jsonEqual(got, raw) {
			return false
		}
	}
	return true
}

func (e *memEntry) document(id string) (Document, error) {
	raw, err := json.Marshal(e.fields)
	if err != nil {
		return Document{}, fmt.Errorf("docstore: encode document %s: %w", id, err)
	}
	return Document{ID: id, Data: raw, CreatedAt: e.createdAt, UpdatedAt: e.updatedAt}, nil
}

func decodeFields(doc any) (map[string]json.RawMessage, error) {
	raw, err := encode(doc)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("docstore: decode document fields: %w", err)
	}
	return fields, nil
}

func jsonEqual(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
