package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolld/internal/progress"
)

func newTestRouter(t *testing.T) (chi.Router, *progress.MemoryTracker) {
	t.Helper()
	tracker := progress.NewMemoryTracker()
	handler := New(tracker)
	r := chi.NewRouter()
	handler.Register(r)
	return r, tracker
}

func TestHandleGet_RowScope(t *testing.T) {
	router, tracker := newTestRouter(t)
	uploadID := uuid.New()
	ctx := context.Background()

	key := progress.RowKey(uploadID.String())
	require.NoError(t, tracker.SetTotal(ctx, key, 4))
	require.NoError(t, tracker.Increment(ctx, key, progress.FieldCurrent, progress.FieldSuccess))
	require.NoError(t, tracker.Increment(ctx, key, progress.FieldCurrent, progress.FieldFailed))

	req := httptest.NewRequest(http.MethodGet, "/progress/rows/"+uploadID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var snapshot progress.Progress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, int64(4), snapshot.Total)
	assert.Equal(t, int64(2), snapshot.Current)
	assert.Equal(t, int64(1), snapshot.Success)
	assert.Equal(t, int64(1), snapshot.Failed)
	assert.Equal(t, int64(50), snapshot.Percent)
}

func TestHandleGet_UnknownKeyReadsZero(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/progress/ledger/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var snapshot progress.Progress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Zero(t, snapshot.Total)
	assert.Zero(t, snapshot.Current)
}

func TestHandleGet_UnknownScope(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/progress/bogus/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGet_BadID(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/progress/rows/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
