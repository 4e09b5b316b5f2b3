package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hackystat/hackystat-sensor-shell/internal/domain"
)

func testBatch() domain.Batch {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.Batch{{
		Timestamp:      ts,
		Runtime:        ts,
		Owner:          "user@example.com",
		Tool:           "Eclipse",
		SensorDataType: "DevEvent",
	}}
}

func TestPutBatchSuccess(t *testing.T) {
	var gotBody string
	var gotContentType string
	var gotUser, gotPass string
	var gotAuth bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/sensordata" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotUser, gotPass, gotAuth = r.BasicAuth()
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "user@example.com", "secret", time.Second)
	if err := client.PutBatch(context.Background(), testBatch()); err != nil {
		t.Fatalf("put batch: %v", err)
	}
	if !gotAuth || gotUser != "user@example.com" || gotPass != "secret" {
		t.Fatalf("basic auth not sent: %q %q %v", gotUser, gotPass, gotAuth)
	}
	if gotContentType != "application/xml" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	if !strings.Contains(gotBody, "<SensorDatas>") {
		t.Fatalf("body is not a batch document:\n%s", gotBody)
	}
}

func TestPutBatchStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusNotFound, ErrBadRequest},
		{http.StatusInternalServerError, ErrServerFailure},
		{http.StatusBadGateway, ErrServerFailure},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := NewClient(srv.URL, "u", "p", time.Second)
		err := client.PutBatch(context.Background(), testBatch())
		srv.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestPutBatchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := NewClient(srv.URL, "u", "p", time.Second)
	err := client.PutBatch(context.Background(), testBatch())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrBadRequest) || errors.Is(err, ErrServerFailure) {
		t.Fatalf("transport failure must not classify as an HTTP error: %v", err)
	}
}

func TestPutBatchEmptyIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "u", "p", time.Second)
	if err := client.PutBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty put: %v", err)
	}
	if called {
		t.Fatal("empty batch must not hit the server")
	}
}

func TestPingAndIsRegistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusOK)
		case "/users/user@example.com":
			if _, pass, ok := r.BasicAuth(); !ok || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	good := NewClient(srv.URL, "user@example.com", "secret", time.Second)
	if !good.Ping(context.Background()) {
		t.Fatal("ping should succeed")
	}
	if !good.IsRegistered(context.Background()) {
		t.Fatal("registered user should verify")
	}

	bad := NewClient(srv.URL, "user@example.com", "wrong", time.Second)
	if bad.IsRegistered(context.Background()) {
		t.Fatal("wrong password must not verify")
	}
}

func TestHostGainsTrailingSlash(t *testing.T) {
	client := NewClient("http://example.com:9876/sensorbase", "u", "p", time.Second)
	if client.Host() != "http://example.com:9876/sensorbase/" {
		t.Fatalf("unexpected host %q", client.Host())
	}
}
