package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "toolbox/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("insufficient credits maps to payment required", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInsufficientCredits, "not enough credits"))
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, assert.AnError)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDecodeJSON(t *testing.T) {
	t.Run("rejects unknown fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
		var v struct {
			Name string `json:"name"`
		}
		err := DecodeJSON(httptest.NewRecorder(), req, &v)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("decodes known fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
		var v struct {
			Name string `json:"name"`
		}
		require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &v))
		assert.Equal(t, "x", v.Name)
	})

	t.Run("rejects oversized bodies", func(t *testing.T) {
		body := `{"name":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var v struct {
			Name string `json:"name"`
		}
		err := DecodeJSON(httptest.NewRecorder(), req, &v)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		assert.ErrorIs(t, err, dErrors.New(dErrors.CodeBadRequest, "request body too large"))
	})
}

func TestParseLimit(t *testing.T) {
	cases := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"?limit=25", 25, false},
		{"?limit=0", 0, false},
		{"?limit=-1", 0, true},
		{"?limit=ten", 0, true},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/jobs"+tc.query, nil)
		got, err := ParseLimit(req)
		if tc.wantErr {
			assert.Error(t, err, tc.query)
			continue
		}
		assert.NoError(t, err, tc.query)
		assert.Equal(t, tc.want, got, tc.query)
	}
}
