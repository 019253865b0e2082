package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbox/internal/credits/models"
	"toolbox/internal/credits/service"
	"toolbox/internal/credits/store"
	id "toolbox/pkg/domain"
	"toolbox/pkg/requestcontext"
)

func newCreditsRouter(t *testing.T) (http.Handler, *service.Service) {
	t.Helper()
	svc, err := service.New(store.NewInMemoryLedgerStore(), service.WithSignupBonus(10))
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r, svc
}

func asUser(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

func TestHandleBalance(t *testing.T) {
	router, _ := newCreditsRouter(t)
	userID := id.UserID(uuid.New())

	t.Run("new user sees signup bonus", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/v1/credits", nil), userID))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.BalanceResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 10, resp.Balance)
		assert.Equal(t, userID, resp.UserID)
	})

	t.Run("missing user is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/credits", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleEntries(t *testing.T) {
	router, svc := newCreditsRouter(t)
	userID := id.UserID(uuid.New())

	_, err := svc.Debit(context.Background(), userID, 2, "lootjes draw")
	require.NoError(t, err)

	t.Run("lists newest first", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/v1/credits/entries?limit=5", nil), userID))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.EntriesResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Entries, 2)
		assert.Equal(t, -2, resp.Entries[0].Delta)
		assert.Equal(t, 8, resp.Entries[0].BalanceAfter)
	})

	t.Run("invalid limit is rejected", func(t *testing.T) {
		for _, q := range []string{"abc", "-1"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/v1/credits/entries?limit="+q, nil), userID))
			assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", q)
		}
	})
}
