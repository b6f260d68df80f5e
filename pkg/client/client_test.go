package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caplink-proto/caplink/pkg/client"
	"github.com/caplink-proto/caplink/pkg/wire"
)

// ── Stub server ─────────────────────────────────────────────────────────

// stubServer fakes just enough of the caplink HTTP surface for SDK tests.
func stubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		json.NewEncoder(w).Encode(wire.Handshake{
			SessionID:       "sess-1",
			ProtocolVersion: wire.ProtocolVersion,
			ServerInfo:      wire.ServerInfo{Name: "stub", Version: "test"},
			Capabilities:    map[string]int{"actions": 2, "resources": 1, "prompts": 1},
		})
	})

	mux.HandleFunc("/v1/session/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/v1/rpc", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Caplink-Session") != "sess-1" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(wire.Fail(wire.Errorf(wire.ErrTransport, "unknown session")))
			return
		}
		var req wire.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(wire.Fail(wire.Errorf(wire.ErrTransport, "bad envelope")))
			return
		}

		switch {
		case req.Kind == wire.KindListActions:
			json.NewEncoder(w).Encode(wire.Ok([]wire.ActionDescriptor{
				{Name: "greet", Description: "Return a greeting.", Parameters: []wire.ParamDescriptor{
					{Name: "name", Type: "string", Required: true},
				}},
				{Name: "add", Parameters: []wire.ParamDescriptor{
					{Name: "a", Type: "integer", Required: true},
					{Name: "b", Type: "integer", Required: true},
				}},
			}))
		case req.Kind == wire.KindCallAction && req.ID == "greet":
			name, _ := req.Arguments["name"].(string)
			json.NewEncoder(w).Encode(wire.Ok("Hello, " + name + "!"))
		case req.Kind == wire.KindCallAction && req.ID == "slow":
			time.Sleep(2 * time.Second)
			json.NewEncoder(w).Encode(wire.Ok("late"))
		case req.Kind == wire.KindCallAction:
			json.NewEncoder(w).Encode(wire.Fail(wire.Errorf(wire.ErrUnknownAction, "unknown action %q", req.ID)))
		case req.Kind == wire.KindReadResource && req.URI == "user://42":
			json.NewEncoder(w).Encode(wire.Ok(map[string]any{"id": "42", "name": "Taro Tanaka"}))
		case req.Kind == wire.KindReadResource:
			json.NewEncoder(w).Encode(wire.Fail(wire.Errorf(wire.ErrResourceNotFound, "no resource matches %q", req.URI)))
		case req.Kind == wire.KindGetPrompt:
			json.NewEncoder(w).Encode(wire.Ok([]wire.PromptMessage{
				{Role: wire.RoleUser, Content: "Explain caplink."},
			}))
		default:
			json.NewEncoder(w).Encode(wire.Fail(wire.Errorf(wire.ErrTransport, "unhandled kind %q", req.Kind)))
		}
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func connected(t *testing.T, ts *httptest.Server, opts ...client.Option) *client.Client {
	t.Helper()
	c := client.New(ts.URL, opts...)
	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestConnect_storesHandshake(t *testing.T) {
	ts := stubServer(t)
	c := connected(t, ts)

	hs := c.Handshake()
	if hs == nil || hs.SessionID != "sess-1" {
		t.Fatalf("handshake = %+v", hs)
	}
	if hs.Capabilities["actions"] != 2 {
		t.Errorf("capabilities = %v", hs.Capabilities)
	}
}

func TestCalls_requireConnect(t *testing.T) {
	ts := stubServer(t)
	c := client.New(ts.URL)

	_, err := c.ListActions(context.Background())
	if !wire.IsKind(err, wire.ErrTransport) {
		t.Fatalf("expected transport_error before Connect, got %v", err)
	}
}

func TestListActions(t *testing.T) {
	ts := stubServer(t)
	c := connected(t, ts)

	actions, err := c.ListActions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 2 || actions[0].Name != "greet" || actions[1].Name != "add" {
		t.Errorf("actions = %+v", actions)
	}
}

func TestCallAction_success(t *testing.T) {
	ts := stubServer(t)
	c := connected(t, ts)

	raw, err := c.CallAction(context.Background(), "greet", map[string]any{"name": "Ford"})
	if err != nil {
		t.Fatal(err)
	}
	var result string
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatal(err)
	}
	if result != "Hello, Ford!" {
		t.Errorf("result = %q", result)
	}
}

// TestCallAction_errorKindSurfacesVerbatim verifies that the errorKind
// and message from the wire envelope are reconstructed unchanged, and
// that the client does not retry.
func TestCallAction_errorKindSurfacesVerbatim(t *testing.T) {
	ts := stubServer(t)
	c := connected(t, ts)

	_, err := c.CallAction(context.Background(), "vanish", nil)
	if !wire.IsKind(err, wire.ErrUnknownAction) {
		t.Fatalf("expected unknown_action, got %v", err)
	}
	want := `unknown_action: unknown action "vanish"`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestReadResource(t *testing.T) {
	ts := stubServer(t)
	c := connected(t, ts)

	raw, err := c.ReadResource(context.Background(), "user://42")
	if err != nil {
		t.Fatal(err)
	}
	var user map[string]any
	if err := json.Unmarshal(raw, &user); err != nil {
		t.Fatal(err)
	}
	if user["id"] != "42" {
		t.Errorf("user = %v", user)
	}

	_, err = c.ReadResource(context.Background(), "ghost://1")
	if !wire.IsKind(err, wire.ErrResourceNotFound) {
		t.Fatalf("expected resource_not_found, got %v", err)
	}
}

func TestGetPrompt(t *testing.T) {
	ts := stubServer(t)
	c := connected(t, ts)

	msgs, err := c.GetPrompt(context.Background(), "explain_topic", map[string]any{"topic": "caplink"})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Role != wire.RoleUser {
		t.Errorf("messages = %+v", msgs)
	}
}

// TestCallTimeout verifies that an elapsed per-call deadline reports a
// timeout error rather than a generic transport failure.
func TestCallTimeout(t *testing.T) {
	ts := stubServer(t)
	c := connected(t, ts, client.WithCallTimeout(100*time.Millisecond))

	_, err := c.CallAction(context.Background(), "slow", nil)
	if !wire.IsKind(err, wire.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestClose_endsSession(t *testing.T) {
	ts := stubServer(t)
	c := connected(t, ts)

	if err := c.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := c.ListActions(context.Background())
	if !wire.IsKind(err, wire.ErrTransport) {
		t.Fatalf("expected transport_error after Close, got %v", err)
	}
	if c.Handshake() != nil {
		t.Error("handshake survived Close")
	}
}

func TestConnect_serverDown(t *testing.T) {
	ts := stubServer(t)
	url := ts.URL
	ts.Close()

	c := client.New(url, client.WithCallTimeout(time.Second))
	_, err := c.Connect(context.Background())
	if !wire.IsKind(err, wire.ErrTransport) {
		t.Fatalf("expected transport_error, got %v", err)
	}
}
