// Package server implements the stateless HTTP client for the ingestion
// API: liveness ping, credential check, and batch upload.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hackystat/hackystat-sensor-shell/internal/domain"
	"github.com/hackystat/hackystat-sensor-shell/internal/ports"
)

// Error classes for a rejected upload. Transport failures are returned as
// wrapped net errors rather than one of these.
var (
	// ErrUnauthorized covers 401 and 403: the credentials do not resolve to
	// a registered user.
	ErrUnauthorized = errors.New("server: invalid credentials")

	// ErrBadRequest covers the remaining 4xx: the server rejected the batch
	// document itself.
	ErrBadRequest = errors.New("server: request rejected")

	// ErrServerFailure covers 5xx.
	ErrServerFailure = errors.New("server: internal server error")
)

// pingTimeout bounds the unauthenticated liveness check, independent of the
// configured call timeout.
const pingTimeout = 5 * time.Second

// Client talks to one ingestion host with one set of credentials. It holds
// no mutable state and is safe for concurrent use.
type Client struct {
	host     string
	user     string
	password string

	httpClient *http.Client
	pingClient *http.Client
}

// NewClient builds a client for the given host (a trailing slash is added
// if absent) with the per-call timeout applied to everything except Ping.
func NewClient(host, user, password string, timeout time.Duration) *Client {
	if !strings.HasSuffix(host, "/") {
		host += "/"
	}
	return &Client{
		host:       host,
		user:       user,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		pingClient: &http.Client{Timeout: pingTimeout},
	}
}

// Host returns the normalized base URL.
func (c *Client) Host() string { return c.host }

// Ping reports whether GET <host>ping answers with a 2xx, unauthenticated,
// within the hardcoded ping timeout.
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"ping", nil)
	if err != nil {
		return false
	}
	resp, err := c.pingClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// IsRegistered reports whether the configured credentials resolve to a
// registered user at the host.
func (c *Client) IsRegistered(ctx context.Context) bool {
	target := c.host + "users/" + url.PathEscape(c.user)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}
	req.SetBasicAuth(c.user, c.password)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// PutBatch uploads the XML-serialized batch with basic auth. A nil return
// means the server acknowledged every record.
func (c *Client) PutBatch(ctx context.Context, batch domain.Batch) error {
	if len(batch) == 0 {
		return nil
	}
	body, err := batch.EncodeXML()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.host+"sensordata", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("server: put batch: %w", err)
	}
	defer resp.Body.Close()

	// Read and discard body to reuse the connection.
	_, _ = io.Copy(io.Discard, resp.Body)

	return classifyStatus(resp.StatusCode)
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w (HTTP %d)", ErrUnauthorized, code)
	case code >= 500:
		return fmt.Errorf("%w (HTTP %d)", ErrServerFailure, code)
	default:
		return fmt.Errorf("%w (HTTP %d)", ErrBadRequest, code)
	}
}

var _ ports.IngestClient = (*Client)(nil)
