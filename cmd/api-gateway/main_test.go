package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(name string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, name+" "+r.URL.Path+" "+r.Header.Get("X-Signer"))
	}))
}

func TestGateway_Routes(t *testing.T) {
	escrow, vault, feed := upstream("escrow"), upstream("vault"), upstream("feed")
	defer escrow.Close()
	defer vault.Close()
	defer feed.Close()

	h, err := newHandler(escrow.URL, vault.URL, feed.URL)
	require.NoError(t, err)

	cases := map[string]string{
		"/api/escrow/races/race_1": "escrow /races/race_1 key",
		"/api/vault/vault/deposit": "vault /vault/deposit key",
		"/api/feed/races":          "feed /races key",
	}
	for path, want := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Signer", "key")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, want, rec.Body.String())
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/escrow/races", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Signer")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_InvalidUpstream(t *testing.T) {
	_, err := newHandler("not a url", "http://localhost:1", "http://localhost:2")
	assert.Error(t, err)
}
