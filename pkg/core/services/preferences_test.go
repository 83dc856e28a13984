package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/core/window"
	"github.com/example/crewfinder/pkg/db"
)

// mockPreferenceWriter implements PreferenceWriter for testing
type mockPreferenceWriter struct {
	upsertErr error
	deleteErr error
	upserted  []db.PreferredWindow
	deleted   []string
}

func (m *mockPreferenceWriter) UpsertPreferredWindow(ctx context.Context, pref db.PreferredWindow) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, pref)
	return nil
}

func (m *mockPreferenceWriter) DeletePreferredWindow(ctx context.Context, resourceID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, resourceID)
	return nil
}

func TestSavePreferredWindow_UpsertsRecord(t *testing.T) {
	store := &mockPreferenceWriter{}
	pref := &model.PreferredWindow{
		Window: model.Window{
			Start: window.Date(2024, 1, 12),
			End:   window.Date(2024, 1, 14),
		},
		Notes: "mornings only",
	}

	err := SavePreferredWindow(context.Background(), store, zap.NewNop(), "r1", pref)
	require.NoError(t, err)

	require.Len(t, store.upserted, 1)
	assert.Equal(t, "r1", store.upserted[0].ResourceID)
	assert.Equal(t, window.Date(2024, 1, 12), store.upserted[0].StartDate)
	assert.Equal(t, window.Date(2024, 1, 14), store.upserted[0].EndDate)
	assert.Equal(t, "mornings only", store.upserted[0].Notes)
	assert.Empty(t, store.deleted)
}

func TestSavePreferredWindow_NilClearsStoredRecord(t *testing.T) {
	store := &mockPreferenceWriter{}

	err := SavePreferredWindow(context.Background(), store, zap.NewNop(), "r1", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"r1"}, store.deleted)
	assert.Empty(t, store.upserted)
}

func TestSavePreferredWindow_UpsertFailureWrapsPersistError(t *testing.T) {
	store := &mockPreferenceWriter{upsertErr: errors.New("connection refused")}
	pref := &model.PreferredWindow{
		Window: model.Window{
			Start: window.Date(2024, 1, 12),
			End:   window.Date(2024, 1, 14),
		},
	}

	err := SavePreferredWindow(context.Background(), store, zap.NewNop(), "r1", pref)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPreferencePersist)
}

func TestSavePreferredWindow_DeleteFailureWrapsPersistError(t *testing.T) {
	store := &mockPreferenceWriter{deleteErr: errors.New("connection refused")}

	err := SavePreferredWindow(context.Background(), store, zap.NewNop(), "r1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPreferencePersist)
}
