package api_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skillpath/skillpath/internal/api"
	"github.com/skillpath/skillpath/internal/auth"
	"github.com/skillpath/skillpath/internal/config"
	"github.com/skillpath/skillpath/internal/events"
	"github.com/skillpath/skillpath/internal/storage/sqlite"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	bus := events.NewBus()
	service := auth.NewService(sqlite.NewStore(db), bus, time.Hour)

	cfg := &config.Config{Debug: true, SessionMaxAge: 3600}
	handler := api.NewRouter(cfg, service, bus, db.PingContext)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, server *httptest.Server, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, server.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp, decodeBody(t, resp)
}

func getJSON(t *testing.T, server *httptest.Server, path, token string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// registerAndVerify runs the signup flow and returns a session token.
func registerAndVerify(t *testing.T, server *httptest.Server, email string) string {
	t.Helper()

	resp, body := postJSON(t, server, "/api/v1/auth/register", map[string]string{
		"email":      email,
		"password":   "correct-horse",
		"first_name": "Grace",
		"last_name":  "Hopper",
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%v)", resp.StatusCode, body)
	}
	verificationToken, _ := body["verification_token"].(string)
	if verificationToken == "" {
		t.Fatal("register: expected verification token")
	}

	resp, body = postJSON(t, server, "/api/v1/auth/verify", map[string]string{
		"token": verificationToken,
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d (%v)", resp.StatusCode, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("verify: expected session token")
	}
	return token
}

func TestRouter_Health(t *testing.T) {
	server := setupServer(t)

	resp, body := getJSON(t, server, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}

	resp, body = getJSON(t, server, "/ready", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "ready" {
		t.Errorf("expected ready, got %v", body["status"])
	}
}

func TestRouter_RegisterVerifyLogin(t *testing.T) {
	server := setupServer(t)

	resp, body := postJSON(t, server, "/api/v1/auth/register", map[string]string{
		"email":      "grace@example.com",
		"password":   "correct-horse",
		"first_name": "Grace",
		"last_name":  "Hopper",
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.StatusCode, body)
	}

	// Login before verification is rejected
	resp, _ = postJSON(t, server, "/api/v1/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "correct-horse",
	}, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 before verification, got %d", resp.StatusCode)
	}

	verificationToken, _ := body["verification_token"].(string)
	resp, _ = postJSON(t, server, "/api/v1/auth/verify", map[string]string{"token": verificationToken}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d", resp.StatusCode)
	}

	resp, body = postJSON(t, server, "/api/v1/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "correct-horse",
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if body["token"] == "" {
		t.Error("login: expected session token")
	}
}

func TestRouter_Register_Duplicate(t *testing.T) {
	server := setupServer(t)
	registerAndVerify(t, server, "dup@example.com")

	resp, _ := postJSON(t, server, "/api/v1/auth/register", map[string]string{
		"email":    "dup@example.com",
		"password": "correct-horse",
	}, "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}
}

func TestRouter_Register_WeakPassword(t *testing.T) {
	server := setupServer(t)

	resp, _ := postJSON(t, server, "/api/v1/auth/register", map[string]string{
		"email":    "weak@example.com",
		"password": "short",
	}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRouter_Me(t *testing.T) {
	server := setupServer(t)
	token := registerAndVerify(t, server, "me@example.com")

	resp, body := getJSON(t, server, "/api/v1/auth/me", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	session, _ := body["session"].(map[string]any)
	if session["email"] != "me@example.com" {
		t.Errorf("expected email me@example.com, got %v", session["email"])
	}
	if session["first_name"] != "Grace" {
		t.Errorf("expected first name Grace, got %v", session["first_name"])
	}
}

func TestRouter_Me_Unauthenticated(t *testing.T) {
	server := setupServer(t)

	resp, _ := getJSON(t, server, "/api/v1/auth/me", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRouter_Logout(t *testing.T) {
	server := setupServer(t)
	token := registerAndVerify(t, server, "out@example.com")

	resp, _ := postJSON(t, server, "/api/v1/auth/logout", map[string]string{}, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = getJSON(t, server, "/api/v1/auth/me", token)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestRouter_ProfileFlow(t *testing.T) {
	server := setupServer(t)
	token := registerAndVerify(t, server, "profile@example.com")

	// No profile yet
	resp, _ := getJSON(t, server, "/api/v1/profile", token)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before creation, got %d", resp.StatusCode)
	}

	// Create with defaults from session metadata
	resp, body := postJSON(t, server, "/api/v1/profile", map[string]string{}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%v)", resp.StatusCode, body)
	}
	profile, _ := body["profile"].(map[string]any)
	if profile["first_name"] != "Grace" || profile["last_name"] != "Hopper" {
		t.Errorf("expected session metadata defaults, got %v", profile)
	}

	// Second creation conflicts
	resp, _ = postJSON(t, server, "/api/v1/profile", map[string]string{}, token)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 on duplicate, got %d", resp.StatusCode)
	}

	// Read it back
	resp, body = getJSON(t, server, "/api/v1/profile", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
}

func TestRouter_SkillsFlow(t *testing.T) {
	server := setupServer(t)
	token := registerAndVerify(t, server, "skills@example.com")

	resp, body := postJSON(t, server, "/api/v1/skills", map[string]any{
		"skill_name":   "Biathlon",
		"duration":     "3 years",
		"achievements": []string{"First race", "  ", "Podium finish"},
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%v)", resp.StatusCode, body)
	}
	skill, _ := body["skill"].(map[string]any)
	achievements, _ := skill["achievements"].([]any)
	if len(achievements) != 2 {
		t.Errorf("expected blank achievement dropped, got %v", achievements)
	}

	resp, body = getJSON(t, server, "/api/v1/skills", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	skills, _ := body["skills"].([]any)
	if len(skills) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(skills))
	}
}

func TestRouter_Skills_RequiresAuth(t *testing.T) {
	server := setupServer(t)

	resp, _ := getJSON(t, server, "/api/v1/skills", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRouter_SessionEventStream(t *testing.T) {
	server := setupServer(t)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/session/events", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)

	// Initial comment confirms the stream is live
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if !strings.HasPrefix(line, ": connected") {
		t.Fatalf("expected connected comment, got %q", line)
	}

	// A sign-in elsewhere shows up as an SSE event
	go func() {
		payload, _ := json.Marshal(map[string]string{
			"email":      "stream@example.com",
			"password":   "correct-horse",
			"first_name": "Grace",
			"last_name":  "Hopper",
		})
		resp, err := http.Post(server.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(payload))
		if err != nil {
			return
		}
		var body map[string]any
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		verify, _ := json.Marshal(map[string]any{"token": body["verification_token"]})
		if resp, err := http.Post(server.URL+"/api/v1/auth/verify", "application/json", bytes.NewReader(verify)); err == nil {
			resp.Body.Close()
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("failed to read stream: %v", err)
		}
		if strings.HasPrefix(line, "event: signed_in") {
			data, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("failed to read data line: %v", err)
			}
			if !strings.HasPrefix(data, "data: ") {
				t.Fatalf("expected data line, got %q", data)
			}
			var ev events.Event
			if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(data), "data: ")), &ev); err != nil {
				t.Fatalf("failed to decode event payload: %v", err)
			}
			if ev.UserID == "" {
				t.Error("expected event to carry a user ID")
			}
			return
		}
	}
	t.Fatal("no signed_in event before deadline")
}
