package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"goalline/internal/config"
	"goalline/internal/db"
	"goalline/internal/domain"
	"goalline/internal/engine"
	"goalline/internal/migrate"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg, err := config.FromYAML([]byte(config.GenerateDefault("acme", "tester")))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	e := engine.New(conn, cfg)
	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: AuthConfig{JWTSecret: testSecret}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func signToken(t *testing.T, actorID, tenantID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":       actorID,
		"tenant_id": tenantID,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authHeaders(t *testing.T, tenantID string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + signToken(t, "tester", tenantID)}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestUnauthenticatedRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/goals", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	// Health stays open.
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: %d", res.StatusCode)
	}
}

func TestGoalLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	headers := authHeaders(t, "acme")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/goals", map[string]any{
		"title": "Grow revenue",
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create goal: %d %s", res.StatusCode, string(data))
	}
	var created domain.Goal
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal goal: %v", err)
	}
	if created.Code != "GL-1" || created.TenantID != "acme" {
		t.Fatalf("created goal %+v", created)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/goals/"+created.ID, map[string]any{
		"priority": "High",
	}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update goal: %d %s", res.StatusCode, string(data))
	}
	var updated domain.Goal
	_ = json.Unmarshal(data, &updated)
	if updated.Priority != "High" {
		t.Fatalf("priority not applied: %+v", updated)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/goals?search=revenue", nil, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list goals: %d %s", res.StatusCode, string(data))
	}
	var page engine.Page[domain.Goal]
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if page.Meta.TotalRowCount != 1 || len(page.Items) != 1 {
		t.Fatalf("list page: %+v", page)
	}
}

func TestTenantIsolationOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/goals", map[string]any{
		"title": "Acme secret plan",
	}, authHeaders(t, "acme"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", res.StatusCode, string(data))
	}
	var created domain.Goal
	_ = json.Unmarshal(data, &created)

	// Another tenant can neither list nor fetch it.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/goals", nil, authHeaders(t, "globex"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", res.StatusCode, string(data))
	}
	var page engine.Page[domain.Goal]
	_ = json.Unmarshal(data, &page)
	if page.Meta.TotalRowCount != 0 {
		t.Fatalf("globex sees %d goals", page.Meta.TotalRowCount)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/goals/"+created.ID, nil, authHeaders(t, "globex"))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-tenant get: %d", res.StatusCode)
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	headers := authHeaders(t, "acme")

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/goals/not-a-uuid", nil, headers)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id: %d %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "bad_request" {
		t.Fatalf("envelope code %q", envelope.Error.Code)
	}

	// Malformed array filter also maps to a client error.
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/goals?statuses=Completed", nil, headers)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad filter: %d", res.StatusCode)
	}

	// Duplicate title maps to 422.
	doJSON(t, client, http.MethodPost, srv.URL+"/v1/goals", map[string]any{"title": "Twice"}, headers)
	res, _ = doJSON(t, client, http.MethodPost, srv.URL+"/v1/goals", map[string]any{"title": "Twice"}, headers)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate title: %d", res.StatusCode)
	}
}

func TestCascadeOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	headers := authHeaders(t, "acme")

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/objectives", map[string]any{
		"title": "Objective",
	}, headers)
	var obj domain.Objective
	_ = json.Unmarshal(data, &obj)

	_, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"title": "Only task", "objective_id": obj.ID,
	}, headers)
	var task domain.Task
	_ = json.Unmarshal(data, &task)

	res, data := doJSON(t, client, http.MethodPatch, srv.URL+"/v1/tasks/"+task.ID, map[string]any{
		"status": "Completed",
	}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete task: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/objectives/"+obj.ID, nil, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get objective: %d %s", res.StatusCode, string(data))
	}
	var view struct {
		Status   domain.Status `json:"status"`
		Progress int           `json:"progress"`
	}
	_ = json.Unmarshal(data, &view)
	if view.Progress != 100 || view.Status != domain.StatusCompleted {
		t.Fatalf("objective after cascade: %+v", view)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/apikeys", map[string]any{
		"name": "ci",
	}, authHeaders(t, "acme"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create key: %d %s", res.StatusCode, string(data))
	}
	var key APIKeyResponse
	if err := json.Unmarshal(data, &key); err != nil {
		t.Fatalf("unmarshal key: %v", err)
	}
	if key.Key == "" {
		t.Fatal("raw key not returned")
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/goals", map[string]any{
		"title": "Via api key",
	}, map[string]string{"X-Api-Key": key.Key})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create with key: %d %s", res.StatusCode, string(data))
	}
	var g domain.Goal
	_ = json.Unmarshal(data, &g)
	if g.TenantID != "acme" {
		t.Fatalf("api key tenant %q", g.TenantID)
	}

	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/goals", nil, map[string]string{"X-Api-Key": "glk_bogus"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bogus key: %d", res.StatusCode)
	}
}

func TestMoveTasksOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	headers := authHeaders(t, "acme")

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/periods", map[string]any{"name": "Q1"}, headers)
	var period domain.Period
	_ = json.Unmarshal(data, &period)

	_, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "Plan"}, headers)
	var task domain.Task
	_ = json.Unmarshal(data, &task)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks/move", map[string]any{
		"ids":       []string{task.ID, "00000000-0000-0000-0000-000000000000"},
		"period_id": period.ID,
	}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("move: %d %s", res.StatusCode, string(data))
	}
	var result engine.MoveResult
	_ = json.Unmarshal(data, &result)
	if len(result.IDs) != 1 || len(result.ErrorIDs) != 1 {
		t.Fatalf("move result %+v", result)
	}
}
