package geolib

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type GeocoderMock struct {
	mock.Mock
}

func (m *GeocoderMock) Geocode(ctx context.Context, serviceURL, query string) (GeocodeResponse, error) {
	args := m.Called(ctx, serviceURL, query)

	return args.Get(0).(GeocodeResponse), args.Error(1)
}

type GeolocatorMock struct {
	mock.Mock
}

func (m *GeolocatorMock) Name() string {
	return m.Called().String(0)
}

func (m *GeolocatorMock) Geolocate(ctx context.Context, ip net.IP) (IPLocation, error) {
	args := m.Called(ctx, ip)

	return args.Get(0).(IPLocation), args.Error(1)
}

type LoggerMock struct {
	mock.Mock
}

func (m *LoggerMock) LookupError(ip net.IP, name string, err error) {
	m.Called(ip, name, err)
}

func (m *LoggerMock) GeocodeError(query string, err error) {
	m.Called(query, err)
}

func (m *LoggerMock) StoreError(key string, err error) {
	m.Called(key, err)
}

func (m *LoggerMock) RobotDetected(ip net.IP, userAgent string) {
	m.Called(ip, userAgent)
}

// NewLoggerMock returns a logger which accepts any call.
func NewLoggerMock() *LoggerMock {
	rv := &LoggerMock{}

	rv.On("LookupError", mock.Anything, mock.Anything, mock.Anything).Maybe()
	rv.On("GeocodeError", mock.Anything, mock.Anything).Maybe()
	rv.On("StoreError", mock.Anything, mock.Anything).Maybe()
	rv.On("RobotDetected", mock.Anything, mock.Anything).Maybe()

	return rv
}

type BackingStoreMock struct {
	mock.Mock
}

func (m *BackingStoreMock) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)

	data, _ := args.Get(0).([]byte)

	return data, args.Error(1)
}

func (m *BackingStoreMock) Store(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return m.Called(ctx, key, data, ttl).Error(0)
}

// MemoryStore is a naive BackingStore which is shared between several
// instances of logs in tests to simulate different processes.
type MemoryStore struct {
	mutex sync.Mutex
	data  map[string][]byte
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	value, ok := m.data[key]
	if !ok {
		return nil, ErrNoData
	}

	return append([]byte{}, value...), nil
}

func (m *MemoryStore) Store(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.data[key] = append([]byte{}, data...)

	return nil
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: map[string][]byte{},
	}
}

// FailingStore has nothing to load and rejects every write.
type FailingStore struct {
	Err error
}

func (f FailingStore) Load(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrNoData
}

func (f FailingStore) Store(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return f.Err
}

// SetClassifierClock replaces a time source of a classifier.
func SetClassifierClock(t *TrafficClassifier, now func() time.Time) {
	t.now = now
}

// SetAuditLogClock replaces a time source of an audit log.
func SetAuditLogClock(a *AuditLog, now func() time.Time) {
	a.now = now
}
