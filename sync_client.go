// sync_client.go - HTTP push client for the remote session backend

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// sessionPayload is the wire shape of a pushed session.
type sessionPayload struct {
	ID             string `json:"id"`
	StartedAt      int64  `json:"started_at"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	Completed      bool   `json:"completed"`
}

// SyncClient pushes session records to the remote backend. The record ID
// doubles as the idempotency key, so retrying a push that actually landed
// cannot create a duplicate session remotely.
type SyncClient struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
}

func NewSyncClient(baseURL string, log zerolog.Logger) *SyncClient {
	return &SyncClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("component", "sync").Logger(),
	}
}

func (c *SyncClient) Push(ctx context.Context, rec SessionRecord) error {
	body, err := json.Marshal(sessionPayload{
		ID:             rec.ID,
		StartedAt:      rec.StartedAt.Unix(),
		ElapsedSeconds: rec.ElapsedSeconds,
		Completed:      rec.Completed,
	})
	if err != nil {
		return fmt.Errorf("encode session %s: %w", rec.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", rec.ID)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("push session %s: %w", rec.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push session %s: remote returned %s", rec.ID, resp.Status)
	}
	c.log.Debug().Str("id", rec.ID).Msg("session pushed")
	return nil
}
