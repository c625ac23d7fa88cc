package nakama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	jwt "github.com/form3tech-oss/jwt-go"

	"unosync/internal/domain"
	"unosync/internal/ports"
)

func TestAuthenticateDevice(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"uid": "user-1", "usn": "UnoPlayer_zz9a01"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/account/authenticate/device" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		key, _, ok := r.BasicAuth()
		if !ok || key != "defaultkey" {
			t.Errorf("expected basic auth with server key, got %q", key)
		}
		if got := r.URL.Query().Get("create"); got != "true" {
			t.Errorf("expected create=true, got %q", got)
		}
		if got := r.URL.Query().Get("username"); got != "UnoPlayer_zz9a01" {
			t.Errorf("expected username query, got %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["id"] != "device_abc" {
			t.Errorf("expected device id in body, got %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":true,"token":"`+token+`","refresh_token":"refresh"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "defaultkey")
	session, err := c.AuthenticateDevice(context.Background(), "device_abc", "UnoPlayer_zz9a01", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.UserID != "user-1" || session.Username != "UnoPlayer_zz9a01" {
		t.Fatalf("unexpected session identity: %+v", session)
	}
	if session.Token != token || session.RefreshToken != "refresh" || !session.Created {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestAuthenticateDeviceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":16,"message":"Server key invalid"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "wrong")
	_, err := c.AuthenticateDevice(context.Background(), "device_abc", "", true)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
	if got := err.Error(); got != "nakama.AuthenticateDevice: HTTP 401: Server key invalid" {
		t.Fatalf("unexpected error text: %q", got)
	}
}

func TestCreateMatch(t *testing.T) {
	var sent map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/rpc/"+domain.RpcCreateMatch {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", got)
		}
		var quoted string
		if err := json.NewDecoder(r.Body).Decode(&quoted); err != nil {
			t.Errorf("rpc body should be a JSON string: %v", err)
		}
		if err := json.Unmarshal([]byte(quoted), &sent); err != nil {
			t.Errorf("rpc payload: %v", err)
		}
		_, _ = io.WriteString(w, `{"id":"create_uno_match","payload":"{\"success\":true,\"match_id\":\"m-42.nakama\"}"}`)
	}))
	defer srv.Close()

	mode, _ := domain.LookupMode("4p")
	c := NewClient(srv.URL, "defaultkey")
	matchID, err := c.CreateMatch(context.Background(), &ports.Session{Token: "tok"}, mode)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matchID != "m-42.nakama" {
		t.Fatalf("expected match id, got %q", matchID)
	}
	if sent["gameMode"] != "4p" || sent["playerCount"] != float64(4) {
		t.Fatalf("unexpected mode payload: %v", sent)
	}
	if _, ok := sent["botSettings"]; !ok {
		t.Fatalf("expected botSettings in payload: %v", sent)
	}
}

func TestCreateMatchServerRefuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"payload":"{\"success\":false,\"error\":\"mode disabled\"}"}`)
	}))
	defer srv.Close()

	mode, _ := domain.LookupMode("2p")
	_, err := NewClient(srv.URL, "k").CreateMatch(context.Background(), &ports.Session{Token: "tok"}, mode)
	if err == nil || err.Error() != "nakama.CreateMatch: mode disabled" {
		t.Fatalf("expected refusal error, got %v", err)
	}
}
