// sync_client_test.go - HTTP push client tests

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncClientPush(t *testing.T) {
	rec := SessionRecord{
		ID:             "3fa5c1ae-0000-4000-8000-000000000001",
		StartedAt:      time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC),
		ElapsedSeconds: 1200,
		Completed:      true,
	}

	var gotPath, gotKey string
	var gotBody sessionPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Idempotency-Key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewSyncClient(srv.URL, zerolog.Nop())
	require.NoError(t, client.Push(context.Background(), rec))

	assert.Equal(t, "/v1/sessions", gotPath)
	assert.Equal(t, rec.ID, gotKey)
	assert.Equal(t, rec.ID, gotBody.ID)
	assert.Equal(t, rec.StartedAt.Unix(), gotBody.StartedAt)
	assert.Equal(t, 1200, gotBody.ElapsedSeconds)
	assert.True(t, gotBody.Completed)
}

func TestSyncClientRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewSyncClient(srv.URL, zerolog.Nop())
	err := client.Push(context.Background(), SessionRecord{ID: "x"})
	assert.Error(t, err)
}

func TestSyncClientUnreachable(t *testing.T) {
	client := NewSyncClient("http://127.0.0.1:1", zerolog.Nop())
	err := client.Push(context.Background(), SessionRecord{ID: "x"})
	assert.Error(t, err)
}
