package feeder

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of the SemaphoreStore interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertIfAbsent(ctx context.Context, key uint16, sig []byte) ([]byte, error) {
	args := m.Called(ctx, key, sig)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, key uint16) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, key uint16, sig []byte) error {
	args := m.Called(ctx, key, sig)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockAlerter is a mock implementation of the netcool.Alerter interface.
type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) SendAlert(alertID, title, message, severity string) error {
	args := m.Called(alertID, title, message, severity)
	return args.Error(0)
}

// memStore is an in-process SemaphoreStore used where the claim protocol
// itself is under test and a real Redis would only add noise.
type memStore struct {
	mu      sync.Mutex
	entries map[uint16][]byte
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[uint16][]byte)}
}

func (s *memStore) InsertIfAbsent(_ context.Context, key uint16, sig []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[key]; ok {
		return append([]byte(nil), prev...), nil
	}
	s.entries[key] = append([]byte(nil), sig...)
	return nil, nil
}

func (s *memStore) Get(_ context.Context, key uint16) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), prev...), nil
}

func (s *memStore) Put(_ context.Context, key uint16, sig []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), sig...)
	return nil
}

func (s *memStore) Close() error {
	return nil
}

// recordProcessor collects the identifiers handed off for processing and
// signals each one on a channel so tests can wait for dispatch.
type recordProcessor struct {
	mu        sync.Mutex
	processed []string
	notify    chan string
}

func newRecordProcessor() *recordProcessor {
	return &recordProcessor{notify: make(chan string, 64)}
}

func (p *recordProcessor) Process(_ context.Context, identifier string) error {
	p.mu.Lock()
	p.processed = append(p.processed, identifier)
	p.mu.Unlock()
	p.notify <- identifier
	return nil
}

func (p *recordProcessor) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.processed...)
}
