package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pulsemeet/pulsemeet/internal/infrastructure/configs"
)

func newTestClient(baseURL string) *Client {
	return NewClient(configs.DirectoryConfig{
		BaseURL: baseURL,
		Timeout: time.Second,
	})
}

func TestResolveHostMatchesOwner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/meeting/alpha-42" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"meetingCode":"alpha-42","ownerId":"u-1"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	isHost, err := c.ResolveHost(context.Background(), "alpha-42", "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if !isHost {
		t.Fatal("owner should resolve as host")
	}

	isHost, err = c.ResolveHost(context.Background(), "alpha-42", "u-2")
	if err != nil {
		t.Fatal(err)
	}
	if isHost {
		t.Fatal("non-owner should not resolve as host")
	}
}

func TestResolveHostEmptyClaimSkipsLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("directory should not be called for an empty claim")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	isHost, err := c.ResolveHost(context.Background(), "alpha-42", "")
	if err != nil || isHost {
		t.Fatalf("ResolveHost = %v, %v; want false, nil", isHost, err)
	}
}

func TestResolveHostUnknownMeetingIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	isHost, err := c.ResolveHost(context.Background(), "gone", "u-1")
	if err != nil {
		t.Fatalf("404 should not be an error, got %v", err)
	}
	if isHost {
		t.Fatal("unknown meeting cannot have a host")
	}
}

func TestResolveHostServerErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	if _, err := c.ResolveHost(context.Background(), "alpha-42", "u-1"); err == nil {
		t.Fatal("5xx should surface as an error")
	}
}

func TestResolveHostNetworkErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := newTestClient(srv.URL)

	if _, err := c.ResolveHost(context.Background(), "alpha-42", "u-1"); err == nil {
		t.Fatal("network failure should surface as an error")
	}
}

func TestResolveHostEmptyOwnerNeverMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"meetingCode":"alpha-42","ownerId":""}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	isHost, err := c.ResolveHost(context.Background(), "alpha-42", "")
	if err != nil || isHost {
		t.Fatalf("ResolveHost = %v, %v; want false, nil", isHost, err)
	}
}
