package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/apperr"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthorizer struct {
	identity models.Identity
	err      error
	gotToken string
	gotClass service.RouteClass
}

func (s *stubAuthorizer) Authorize(token string, class service.RouteClass) (models.Identity, error) {
	s.gotToken, s.gotClass = token, class
	return s.identity, s.err
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Bearer abc":     "abc",
		"bearer abc ":    "abc",
		"BEARER  abc":    "abc",
		"Basic abc":      "",
		"Bearer":         "",
		"":               "",
		"Bearerabc":      "",
		"Token Bearer x": "",
	}
	for header, want := range tests {
		if got := BearerToken(header); got != want {
			t.Errorf("BearerToken(%q): expected %q, got %q", header, want, got)
		}
	}
}

func TestAuthStoresIdentity(t *testing.T) {
	stub := &stubAuthorizer{identity: models.Identity{UserID: 7, Email: "amy@lpu.in"}}

	r := gin.New()
	r.GET("/me", Auth(stub, service.ClassUser), func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, identity.Email)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "amy@lpu.in" {
		t.Fatalf("expected identity in context, got %d %q", rec.Code, rec.Body.String())
	}
	if stub.gotToken != "tok" || stub.gotClass != service.ClassUser {
		t.Fatalf("authorizer saw %q/%v", stub.gotToken, stub.gotClass)
	}
}

func TestAuthRejects(t *testing.T) {
	stub := &stubAuthorizer{err: apperr.Forbidden("forbidden", "admins only")}

	called := false
	r := gin.New()
	r.GET("/admin", Auth(stub, service.ClassAdmin), func(c *gin.Context) { called = true })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	if called {
		t.Fatal("handler must not run after a rejected token")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "forbidden" || body["error"] != "admins only" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	tests := []struct {
		name, header string
		keep         bool
	}{
		{"generated", "", false},
		{"client supplied", "abc-123", true},
		{"too long", strings.Repeat("x", maxRequestIDLen+1), false},
		{"control characters", "abc\x01", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set(requestIDHeader, tt.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		got := rec.Header().Get(requestIDHeader)
		if got == "" || got != rec.Body.String() {
			t.Fatalf("%s: header %q and context %q disagree", tt.name, got, rec.Body.String())
		}
		if tt.keep != (got == tt.header) {
			t.Errorf("%s: got id %q", tt.name, got)
		}
	}
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(zerolog.Nop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Fatalf("panic value leaked into the response: %s", rec.Body.String())
	}
}
