package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStorage is a mock implementation of the storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(filename string, data []byte) error {
	args := m.Called(filename, data)
	return args.Error(0)
}

func (m *MockStorage) Retrieve(filename string) ([]byte, error) {
	args := m.Called(filename)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockStorage) List(prefix string) ([]string, error) {
	args := m.Called(prefix)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) Delete(filename string) error {
	args := m.Called(filename)
	return args.Error(0)
}

func TestKey(t *testing.T) {
	a := Key("kubernetes operators", "2026-02-13", "2026-03-15", "both:default")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Key("kubernetes operators", "2026-02-13", "2026-03-15", "both:default"))
	assert.NotEqual(t, a, Key("kubernetes operators", "2026-02-13", "2026-03-15", "both:deep"))
	assert.NotEqual(t, a, Key("kubernetes operators", "2026-02-14", "2026-03-16", "both:default"))
}

func TestCache_SaveLoad(t *testing.T) {
	fs, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	c := New(fs, time.Hour)
	c.now = func() time.Time { return now }

	report := models.NewReport("rust async", "2026-02-13", "2026-03-15", models.ModeXOnly, "", "grok-4", now)
	report.X = []models.XItem{{ID: "1", Text: "tokio", Score: 77}}
	require.NoError(t, c.Save("abc", report))

	got, err := c.Load("abc")
	require.NoError(t, err)
	assert.Equal(t, "rust async", got.Topic)
	assert.Equal(t, "2026-02-13", got.RangeFrom)
	require.Len(t, got.X, 1)
	assert.Equal(t, 77, got.X[0].Score)

	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, keys)

	now = now.Add(2 * time.Hour)
	_, err = c.Load("abc")
	assert.ErrorIs(t, err, ErrMiss, "entries older than the ttl are misses")

	_, savedAt, err := c.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, now.Add(-2*time.Hour), savedAt)
}

func TestCache_Load(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		err     error
		wantErr error
	}{
		{name: "Missing", err: storage.ErrNotFound, wantErr: ErrMiss},
		{name: "Corrupt", data: []byte(`{not json`), wantErr: ErrMiss},
		{name: "No report", data: []byte(`{"saved_at": "2026-03-15T00:00:00Z"}`), wantErr: ErrMiss},
		{name: "Backend failure", err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStorage := &MockStorage{}
			mockStorage.On("Retrieve", "reports/k.json").Return(tt.data, tt.err)

			_, err := New(mockStorage, 0).Load("k")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NotErrorIs(t, err, ErrMiss)
			}
			mockStorage.AssertExpectations(t)
		})
	}
}

func TestCache_SaveError(t *testing.T) {
	mockStorage := &MockStorage{}
	mockStorage.On("Store", "reports/k.json", mock.Anything).Return(errors.New("disk full"))

	err := New(mockStorage, DefaultTTL).Save("k", models.NewReport("t", "a", "b", models.ModeBoth, "", "", time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)))
	assert.Error(t, err)
	mockStorage.AssertExpectations(t)
}
