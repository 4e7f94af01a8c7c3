package api

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage/storagetest"
	"github.com/burenotti/go_bmi_backend/internal/app/authapp"
	bmiservice "github.com/burenotti/go_bmi_backend/internal/app/bmi"
	categoryservice "github.com/burenotti/go_bmi_backend/internal/app/category"
	measurementservice "github.com/burenotti/go_bmi_backend/internal/app/measurement"
	"github.com/burenotti/go_bmi_backend/internal/app/messagebus"
	"github.com/burenotti/go_bmi_backend/internal/app/unitofwork"
	userservice "github.com/burenotti/go_bmi_backend/internal/app/user"
	"golang.org/x/crypto/bcrypt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := storagetest.Open(t)
	bus := messagebus.New(logger)
	t.Cleanup(bus.Close)

	categories := categoryservice.New(logger)
	uow := unitofwork.New(db, categoryservice.NewAtomicContext, bus, logger)
	if _, err := categories.Seed(context.Background(), uow); err != nil {
		t.Fatalf("Seed error: %v", err)
	}

	authorizer := &authapp.Authorizer{
		Cost:           bcrypt.MinCost,
		Secret:         "test-secret",
		AccessTokenTTL: time.Hour,
	}

	base := []Option{
		Logger(logger),
		Database(db),
		MessageBus(bus),
		Authorizer(authorizer),
		BMIService(bmiservice.New(logger, false)),
		CategoryService(categories),
		UserService(userservice.New(authorizer, logger)),
		MeasurementService(measurementservice.New(logger)),
	}
	return NewServer(append(base, opts...)...)
}

type response struct {
	Code int
	Body map[string]any
}

func do(t *testing.T, s *Server, method, path string, body any, token string) response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("can't marshal body: %v", err)
			}
			raw = string(b)
		}
		reader = strings.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	resp := response{Code: rec.Code}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(bytes.TrimSpace(rec.Body.Bytes()), &resp.Body); err != nil {
			t.Fatalf("%s %s: can't decode response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return resp
}

func signUpAndLogin(t *testing.T, s *Server, username string) string {
	t.Helper()

	resp := do(t, s, http.MethodPost, "/users/", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	}, "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("sign up = %d %v, want 201", resp.Code, resp.Body)
	}

	resp = do(t, s, http.MethodPost, "/auth/login", map[string]any{
		"username": username,
		"password": "password123",
	}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("login = %d %v, want 200", resp.Code, resp.Body)
	}
	if resp.Body["token_type"] != "bearer" {
		t.Errorf("token_type = %v, want bearer", resp.Body["token_type"])
	}
	return resp.Body["access_token"].(string)
}

func TestRoot(t *testing.T) {
	s := newTestServer(t)

	resp := do(t, s, http.MethodGet, "/", nil, "")
	if resp.Code != http.StatusOK || resp.Body["message"] != "Hello, World!" {
		t.Errorf("GET / = %d %v", resp.Code, resp.Body)
	}
}

func TestCalculateBMI(t *testing.T) {
	s := newTestServer(t)

	resp := do(t, s, http.MethodPost, "/bmi/", map[string]any{
		"weight":      70,
		"weight_unit": "kg",
		"height":      175,
		"height_unit": "cm",
	}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("POST /bmi/ = %d %v, want 200", resp.Code, resp.Body)
	}

	want := map[string]any{
		"height":   175.0,
		"weight":   70.0,
		"bmi":      22.86,
		"bmi_raw":  22.857142857142858,
		"category": "Normal",
		"formula":  "70.0 kg / (1.75 m) ^ 2 = 22.857142857142858",
	}
	for k, v := range want {
		if resp.Body[k] != v {
			t.Errorf("%s = %v, want %v", k, resp.Body[k], v)
		}
	}
}

func TestCalculateBMIValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"Missing height", map[string]any{"height_unit": "cm", "weight": 70, "weight_unit": "kg"}, http.StatusUnprocessableEntity},
		{"Zero height", map[string]any{"height": 0, "height_unit": "cm", "weight": 70, "weight_unit": "kg"}, http.StatusUnprocessableEntity},
		{"Negative weight", map[string]any{"height": 175, "height_unit": "cm", "weight": -1, "weight_unit": "kg"}, http.StatusUnprocessableEntity},
		{"Missing unit", map[string]any{"height": 175, "weight": 70, "weight_unit": "kg"}, http.StatusUnprocessableEntity},
		{"String height", map[string]any{"height": "175", "height_unit": "cm", "weight": 70, "weight_unit": "kg"}, http.StatusUnprocessableEntity},
		{"String weight", map[string]any{"height": 175, "height_unit": "cm", "weight": "abc", "weight_unit": "kg"}, http.StatusUnprocessableEntity},
		{"Numeric unit", map[string]any{"height": 175, "height_unit": 1, "weight": 70, "weight_unit": "kg"}, http.StatusUnprocessableEntity},
		{"Malformed body", "{not json", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, s, http.MethodPost, "/bmi/", tt.body, "")
			if resp.Code != tt.want {
				t.Errorf("POST /bmi/ = %d %v, want %d", resp.Code, resp.Body, tt.want)
			}
			if _, ok := resp.Body["detail"]; !ok {
				t.Errorf("error body has no detail: %v", resp.Body)
			}
		})
	}
}

func TestCalculateBMITypeErrorDetail(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"height": "175", "height_unit": "cm", "weight": 70, "weight_unit": "kg"}

	resp := do(t, s, http.MethodPost, "/bmi/", body, "")
	if resp.Code != http.StatusUnprocessableEntity || resp.Body["detail"] != "height: value is not a valid number" {
		t.Errorf("POST /bmi/ = %d %v, want 422 with height detail", resp.Code, resp.Body)
	}
}

func TestCalculateBMIEmptyUnits(t *testing.T) {
	empty := map[string]any{"height": 69, "height_unit": "", "weight": 154, "weight_unit": ""}
	imperial := map[string]any{"height": 69, "height_unit": "in", "weight": 154, "weight_unit": "lb"}

	permissive := newTestServer(t)
	got := do(t, permissive, http.MethodPost, "/bmi/", empty, "")
	if got.Code != http.StatusOK {
		t.Fatalf("permissive POST /bmi/ with empty units = %d %v, want 200", got.Code, got.Body)
	}
	want := do(t, permissive, http.MethodPost, "/bmi/", imperial, "")
	if got.Body["bmi_raw"] != want.Body["bmi_raw"] {
		t.Errorf("empty units must follow the inch and pound path: %v != %v", got.Body["bmi_raw"], want.Body["bmi_raw"])
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	strict := newTestServer(t, BMIService(bmiservice.New(logger, true)))
	if resp := do(t, strict, http.MethodPost, "/bmi/", empty, ""); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("strict POST /bmi/ with empty units = %d %v, want 422", resp.Code, resp.Body)
	}
}

func TestCalculateBMIUnknownUnits(t *testing.T) {
	body := map[string]any{"height": 69, "height_unit": "xyz", "weight": 154, "weight_unit": "lb"}

	permissive := newTestServer(t)
	if resp := do(t, permissive, http.MethodPost, "/bmi/", body, ""); resp.Code != http.StatusOK {
		t.Errorf("permissive POST /bmi/ = %d %v, want 200", resp.Code, resp.Body)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	strict := newTestServer(t, BMIService(bmiservice.New(logger, true)))
	if resp := do(t, strict, http.MethodPost, "/bmi/", body, ""); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("strict POST /bmi/ = %d %v, want 422", resp.Code, resp.Body)
	}
}

func TestCategories(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/bmi/categories", "/categories/"} {
		resp := do(t, s, http.MethodGet, path, nil, "")
		if resp.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", path, resp.Code)
		}
		cats := resp.Body["categories"].([]any)
		if len(cats) != 6 {
			t.Fatalf("GET %s returned %d categories, want 6", path, len(cats))
		}
		first := cats[0].(map[string]any)
		if first["name"] != "Underweight" || first["min_value"] != nil || first["max_value"] != 18.5 {
			t.Errorf("GET %s first category = %v", path, first)
		}
		_, hasID := first["id"]
		if wantID := path == "/categories/"; hasID != wantID {
			t.Errorf("GET %s first category has id = %v, want %v", path, hasID, wantID)
		}
	}

	resp := do(t, s, http.MethodGet, "/categories/2", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET /categories/2 = %d", resp.Code)
	}
	if resp.Body["name"] != "Normal" || resp.Body["min_value"] != 18.5 || resp.Body["max_value"] != 25.0 {
		t.Errorf("GET /categories/2 = %v", resp.Body)
	}

	resp = do(t, s, http.MethodGet, "/categories/999", nil, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("GET /categories/999 = %d, want 404", resp.Code)
	}
	if detail, _ := resp.Body["detail"].(string); !strings.Contains(detail, "not found") {
		t.Errorf("detail = %q, want it to contain %q", detail, "not found")
	}

	resp = do(t, s, http.MethodGet, "/categories/lookup?bmi=25", nil, "")
	if resp.Code != http.StatusOK || resp.Body["name"] != "Overweight" {
		t.Errorf("lookup bmi=25 = %d %v, want Overweight", resp.Code, resp.Body)
	}
	if resp := do(t, s, http.MethodGet, "/categories/lookup?bmi=abc", nil, ""); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("lookup bmi=abc = %d, want 422", resp.Code)
	}
}

func TestCategoryMutations(t *testing.T) {
	s := newTestServer(t)

	body := map[string]any{"name": "Heavy", "min_value": 38, "max_value": 45}
	if resp := do(t, s, http.MethodPost, "/categories/", body, ""); resp.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create = %d, want 401", resp.Code)
	}

	token := signUpAndLogin(t, s, "admin")
	if resp := do(t, s, http.MethodPost, "/categories/", body, token); resp.Code != http.StatusConflict {
		t.Errorf("overlapping create = %d %v, want 409", resp.Code, resp.Body)
	}

	body = map[string]any{"name": "Inverted", "min_value": 45, "max_value": 38}
	if resp := do(t, s, http.MethodPost, "/categories/", body, token); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("inverted create = %d %v, want 422", resp.Code, resp.Body)
	}

	body = map[string]any{"name": "Obesity III", "min_value": 40, "max_value": 50}
	if resp := do(t, s, http.MethodPut, "/categories/6", body, token); resp.Code != http.StatusOK {
		t.Fatalf("update = %d %v, want 200", resp.Code, resp.Body)
	}

	body = map[string]any{"name": "Obesity IV", "min_value": 50}
	resp := do(t, s, http.MethodPost, "/categories/", body, token)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create = %d %v, want 201", resp.Code, resp.Body)
	}
	id := int64(resp.Body["id"].(float64))

	if resp := do(t, s, http.MethodDelete, "/categories/2", nil, token); resp.Code != http.StatusNoContent {
		t.Errorf("delete unused = %d %v, want 204", resp.Code, resp.Body)
	}

	weight := map[string]any{"height": 1, "height_unit": "m", "weight": 55, "weight_unit": "kg"}
	if resp := do(t, s, http.MethodPost, "/measurements/", weight, token); resp.Code != http.StatusCreated {
		t.Fatalf("record = %d %v, want 201", resp.Code, resp.Body)
	}
	path := "/categories/" + strconv.FormatInt(id, 10)
	if resp := do(t, s, http.MethodDelete, path, nil, token); resp.Code != http.StatusConflict {
		t.Errorf("delete used = %d %v, want 409", resp.Code, resp.Body)
	}
}

func TestUsers(t *testing.T) {
	s := newTestServer(t)

	token := signUpAndLogin(t, s, "alice")

	dup := map[string]any{"username": "alice", "email": "other@example.com", "password": "password123"}
	if resp := do(t, s, http.MethodPost, "/users/", dup, ""); resp.Code != http.StatusConflict {
		t.Errorf("duplicate sign up = %d, want 409", resp.Code)
	}
	short := map[string]any{"username": "bob", "email": "bob@example.com", "password": "short"}
	if resp := do(t, s, http.MethodPost, "/users/", short, ""); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("short password = %d, want 422", resp.Code)
	}

	bad := map[string]any{"username": "alice", "password": "wrong-password"}
	if resp := do(t, s, http.MethodPost, "/auth/login", bad, ""); resp.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", resp.Code)
	}

	if resp := do(t, s, http.MethodGet, "/users/me", nil, ""); resp.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /users/me = %d, want 401", resp.Code)
	}
	if resp := do(t, s, http.MethodGet, "/users/me", nil, "garbage"); resp.Code != http.StatusUnauthorized {
		t.Errorf("invalid token /users/me = %d, want 401", resp.Code)
	}

	resp := do(t, s, http.MethodGet, "/users/me", nil, token)
	if resp.Code != http.StatusOK || resp.Body["username"] != "alice" {
		t.Fatalf("GET /users/me = %d %v", resp.Code, resp.Body)
	}

	resp = do(t, s, http.MethodPatch, "/users/me", map[string]any{"email": "alice@new.example"}, token)
	if resp.Code != http.StatusOK || resp.Body["email"] != "alice@new.example" {
		t.Fatalf("PATCH /users/me = %d %v", resp.Code, resp.Body)
	}

	resp = do(t, s, http.MethodGet, "/users/?limit=10", nil, token)
	if resp.Code != http.StatusOK || len(resp.Body["users"].([]any)) != 1 {
		t.Errorf("GET /users/ = %d %v", resp.Code, resp.Body)
	}

	if resp := do(t, s, http.MethodDelete, "/users/me", nil, token); resp.Code != http.StatusNoContent {
		t.Fatalf("DELETE /users/me = %d", resp.Code)
	}
	if resp := do(t, s, http.MethodGet, "/users/me", nil, token); resp.Code != http.StatusNotFound {
		t.Errorf("GET /users/me after delete = %d, want 404", resp.Code)
	}
}

func TestMeasurements(t *testing.T) {
	s := newTestServer(t)

	alice := signUpAndLogin(t, s, "alice")
	bob := signUpAndLogin(t, s, "bob")

	body := map[string]any{"height": 175, "height_unit": "cm", "weight": 70, "weight_unit": "kg", "notes": "morning"}
	if resp := do(t, s, http.MethodPost, "/measurements/", body, ""); resp.Code != http.StatusUnauthorized {
		t.Errorf("anonymous record = %d, want 401", resp.Code)
	}

	resp := do(t, s, http.MethodPost, "/measurements/", body, alice)
	if resp.Code != http.StatusCreated {
		t.Fatalf("record = %d %v, want 201", resp.Code, resp.Body)
	}
	if resp.Body["bmi"] != 22.86 || resp.Body["category_id"] != 2.0 || resp.Body["height_m"] != 1.75 {
		t.Errorf("record = %v", resp.Body)
	}
	path := "/measurements/" + strconv.FormatInt(int64(resp.Body["id"].(float64)), 10)

	body = map[string]any{"height": 175, "height_unit": "cm", "weight": 95, "weight_unit": "kg"}
	if resp := do(t, s, http.MethodPost, "/measurements/", body, alice); resp.Code != http.StatusCreated {
		t.Fatalf("second record = %d %v", resp.Code, resp.Body)
	}

	resp = do(t, s, http.MethodGet, "/measurements/", nil, alice)
	if resp.Code != http.StatusOK || len(resp.Body["measurements"].([]any)) != 2 {
		t.Fatalf("list = %d %v", resp.Code, resp.Body)
	}
	resp = do(t, s, http.MethodGet, "/measurements/?category_id=2", nil, alice)
	if resp.Code != http.StatusOK || len(resp.Body["measurements"].([]any)) != 1 {
		t.Errorf("list by category = %d %v", resp.Code, resp.Body)
	}
	resp = do(t, s, http.MethodGet, "/measurements/?since=2000-01-01T00:00:00Z&limit=1", nil, alice)
	if resp.Code != http.StatusOK || len(resp.Body["measurements"].([]any)) != 1 || resp.Body["limit"] != 1.0 {
		t.Errorf("list with since and limit = %d %v", resp.Code, resp.Body)
	}
	if resp := do(t, s, http.MethodGet, "/measurements/?since=yesterday", nil, alice); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("list with bad since = %d, want 422", resp.Code)
	}

	resp = do(t, s, http.MethodGet, "/measurements/latest", nil, alice)
	if resp.Code != http.StatusOK || resp.Body["weight"] != 95.0 {
		t.Errorf("latest = %d %v", resp.Code, resp.Body)
	}
	if resp := do(t, s, http.MethodGet, "/measurements/latest", nil, bob); resp.Code != http.StatusNotFound {
		t.Errorf("latest for bob = %d, want 404", resp.Code)
	}

	resp = do(t, s, http.MethodGet, "/measurements/stats", nil, alice)
	if resp.Code != http.StatusOK || resp.Body["total_measurements"] != 2.0 || resp.Body["min_bmi"] != 22.86 {
		t.Errorf("stats = %d %v", resp.Code, resp.Body)
	}

	if resp := do(t, s, http.MethodGet, path, nil, bob); resp.Code != http.StatusNotFound {
		t.Errorf("foreign get = %d, want 404", resp.Code)
	}

	resp = do(t, s, http.MethodPatch, path, map[string]any{"notes": "edited"}, alice)
	if resp.Code != http.StatusOK || resp.Body["notes"] != "edited" || resp.Body["bmi"] != 22.86 {
		t.Errorf("patch = %d %v", resp.Code, resp.Body)
	}

	if resp := do(t, s, http.MethodDelete, path, nil, bob); resp.Code != http.StatusNotFound {
		t.Errorf("foreign delete = %d, want 404", resp.Code)
	}
	if resp := do(t, s, http.MethodDelete, path, nil, alice); resp.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", resp.Code)
	}
	if resp := do(t, s, http.MethodGet, path, nil, alice); resp.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", resp.Code)
	}
	if resp := do(t, s, http.MethodGet, "/measurements/abc", nil, alice); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("non-numeric id = %d, want 422", resp.Code)
	}
}

func TestBasePath(t *testing.T) {
	s := newTestServer(t, BasePath("/api/v1/"))

	if resp := do(t, s, http.MethodGet, "/api/v1/categories/2", nil, ""); resp.Code != http.StatusOK {
		t.Errorf("GET /api/v1/categories/2 = %d, want 200", resp.Code)
	}
	if resp := do(t, s, http.MethodGet, "/categories/2", nil, ""); resp.Code != http.StatusNotFound {
		t.Errorf("GET /categories/2 without prefix = %d, want 404", resp.Code)
	}
}
