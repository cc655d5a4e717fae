package twitchapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestHelix(t *testing.T, handler http.HandlerFunc) *HelixClient {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"app-token","expires_in":3600,"token_type":"bearer"}`))
	})
	mux.HandleFunc("/helix/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &HelixClient{
		AppTokenSource: &TokenSource{
			ClientID:     "cid",
			ClientSecret: "secret",
			TokenURL:     srv.URL + "/oauth2/token",
		},
		ClientID: "cid",
		BaseURL:  srv.URL + "/helix",
	}
}

func TestGetStreams(t *testing.T) {
	hc := newTestHelix(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer app-token" {
			t.Errorf("auth header = %q", got)
		}
		if got := r.Header.Get("Client-Id"); got != "cid" {
			t.Errorf("client id = %q", got)
		}
		logins := r.URL.Query()["user_login"]
		if len(logins) != 2 || logins[0] != "alpha" || logins[1] != "beta" {
			t.Errorf("user_login = %v", logins)
		}
		_, _ = w.Write([]byte(`{"data":[{"user_login":"beta","title":"live now","game_name":"Just Chatting","started_at":"2025-01-01T00:00:00Z"}]}`))
	})

	streams, err := hc.GetStreams(context.Background(), []string{"Alpha", "beta"})
	if err != nil {
		t.Fatalf("GetStreams: %v", err)
	}
	if len(streams) != 1 || streams[0].UserLogin != "beta" {
		t.Errorf("streams = %+v", streams)
	}
}

func TestGetStreamsEmptyLogins(t *testing.T) {
	hc := &HelixClient{AppTokenSource: &TokenSource{}}
	if _, err := hc.GetStreams(context.Background(), nil); err == nil {
		t.Error("expected error for empty logins")
	}
}

func TestGetUserID(t *testing.T) {
	hc := newTestHelix(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("login"); got != "somebody" {
			t.Errorf("login = %q", got)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"12345"}]}`))
	})

	id, err := hc.GetUserID(context.Background(), "somebody")
	if err != nil {
		t.Fatalf("GetUserID: %v", err)
	}
	if id != "12345" {
		t.Errorf("id = %q, want 12345", id)
	}
}

func TestGetUserIDNotFound(t *testing.T) {
	hc := newTestHelix(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	if _, err := hc.GetUserID(context.Background(), "ghost"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestTokenSourceMissingCreds(t *testing.T) {
	ts := &TokenSource{}
	if _, err := ts.Get(context.Background()); err == nil {
		t.Error("expected error without client credentials")
	}
}

func TestTokenSourceCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600,"token_type":"bearer"}`))
	}))
	defer srv.Close()

	ts := &TokenSource{ClientID: "cid", ClientSecret: "sec", TokenURL: srv.URL}
	for i := 0; i < 3; i++ {
		tok, err := ts.Get(context.Background())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if tok != "tok" {
			t.Errorf("token = %q", tok)
		}
	}
	if calls != 1 {
		t.Errorf("token endpoint called %d times, want 1", calls)
	}
}
