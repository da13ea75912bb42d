package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vctools/vctools/internal/bootiso"
)

func testServer(opts ...Option) http.Handler {
	return New(DefaultConfig(), opts...).setupRoutes()
}

func decodeError(t *testing.T, body string) ErrorResponse {
	t.Helper()
	var errResp ErrorResponse
	if err := json.Unmarshal([]byte(body), &errResp); err != nil {
		t.Fatalf("failed to decode error response %q: %v", body, err)
	}
	return errResp
}

func TestHandleDefault(t *testing.T) {
	handler := testServer(WithVersion("1.2.3"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Name    string   `json:"name"`
		Version string   `json:"version"`
		Routes  []string `json:"routes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "vctools-api" {
		t.Errorf("name = %q, want vctools-api", resp.Name)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", resp.Version)
	}
	if len(resp.Routes) == 0 {
		t.Error("routes list is empty")
	}
}

func TestHandleBootISO_Build(t *testing.T) {
	var got *bootiso.Request
	handler := testServer(WithBuilder(func(ctx context.Context, r *bootiso.Request) (string, int64, error) {
		got = r
		return "/tmp/web01.example.com.iso", 1536, nil
	}))

	body := `{
		"source": "/srv/trees/rhel7",
		"ks": "http://ks.example.com/web01.cfg",
		"options": {"hostname": "web01.example.com"},
		"output": "/tmp"
	}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/mkbootiso", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/mkbootiso status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if want := "/tmp/web01.example.com.iso 1.50 KB\n"; rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}

	if got == nil {
		t.Fatal("builder was not called")
	}
	if got.Source != "/srv/trees/rhel7" {
		t.Errorf("request source = %q, want /srv/trees/rhel7", got.Source)
	}
	if got.Options["hostname"] != "web01.example.com" {
		t.Errorf("request hostname option = %q, want web01.example.com", got.Options["hostname"])
	}
}

func TestHandleBootISO_TrailingSlash(t *testing.T) {
	called := false
	handler := testServer(WithBuilder(func(ctx context.Context, r *bootiso.Request) (string, int64, error) {
		called = true
		return "/tmp/web01.iso", 1024, nil
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/mkbootiso/", strings.NewReader(`{"source":"/srv"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/mkbootiso/ status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !called {
		t.Error("builder was not called for trailing slash route")
	}
}

func TestHandleBootISO_MalformedJSON(t *testing.T) {
	handler := testServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/mkbootiso", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	errResp := decodeError(t, rec.Body.String())
	if errResp.Code != ErrCodeInvalidRequest {
		t.Errorf("error code = %q, want %q", errResp.Code, ErrCodeInvalidRequest)
	}
	if errResp.RequestID == "" {
		t.Error("error response has no request ID")
	}
	if errResp.Timestamp.IsZero() {
		t.Error("error response has no timestamp")
	}
}

func TestHandleBootISO_ValidationFailure(t *testing.T) {
	// The default builder validates before touching genisoimage.
	handler := testServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/mkbootiso", strings.NewReader(`{"source":"/srv/trees/rhel7"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	errResp := decodeError(t, rec.Body.String())
	if errResp.Code != ErrCodeInvalidRequest {
		t.Errorf("error code = %q, want %q", errResp.Code, ErrCodeInvalidRequest)
	}
	if !strings.Contains(errResp.Message, "output is required") {
		t.Errorf("error message = %q, want output is required", errResp.Message)
	}
	if errResp.Retryable {
		t.Error("validation failures must not be retryable")
	}
}

func TestHandleBootISO_BuilderFailure(t *testing.T) {
	handler := testServer(WithBuilder(func(ctx context.Context, r *bootiso.Request) (string, int64, error) {
		return "", 0, errors.New("genisoimage exploded")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/mkbootiso", strings.NewReader(`{"source":"/srv"}`)))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}

	errResp := decodeError(t, rec.Body.String())
	if errResp.Code != ErrCodeBuildFailed {
		t.Errorf("error code = %q, want %q", errResp.Code, ErrCodeBuildFailed)
	}
	if !errResp.Retryable {
		t.Error("builder failures should be retryable")
	}
}

func TestHandleBootISO_MethodNotAllowed(t *testing.T) {
	handler := testServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/mkbootiso", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}

	errResp := decodeError(t, rec.Body.String())
	if errResp.Code != ErrCodeMethodNotAllowed {
		t.Errorf("error code = %q, want %q", errResp.Code, ErrCodeMethodNotAllowed)
	}
}

func TestHandleBootISOUsage(t *testing.T) {
	handler := testServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/mkbootiso", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/mkbootiso status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Usage   string          `json:"usage"`
		Example bootiso.Request `json:"example"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Usage == "" {
		t.Error("usage text is empty")
	}
	if resp.Example.Source == "" {
		t.Error("example request has no source")
	}
}

func TestRequestIDHeader(t *testing.T) {
	handler := testServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("response has no X-Request-Id header")
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("VCTOOLS_API_ADDR", "127.0.0.1")
	t.Setenv("VCTOOLS_API_PORT", "9090")

	cfg := DefaultConfig()
	if cfg.Address != "127.0.0.1" {
		t.Errorf("address = %q, want 127.0.0.1", cfg.Address)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
}
