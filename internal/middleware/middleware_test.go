package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "middleware-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func signHS512(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func validClaims(supplierID string, perms ...string) jwt.MapClaims {
	return jwt.MapClaims{
		"uid":         "u1",
		"supplier_id": supplierID,
		"perms":       perms,
		"exp":         time.Now().Add(time.Hour).Unix(),
	}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", JWTAuth(testSecret), RequireSupplier())
	api.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"supplier_id": c.GetString("supplier_id")})
	})
	api.GET("/admin", RequirePermission("reference:write"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newRouter()
	expired := validClaims("acme")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-token", http.StatusUnauthorized},
		{"wrong secret", signToken(t, "other", validClaims("acme")), http.StatusUnauthorized},
		{"other algorithm", signHS512(t, validClaims("acme")), http.StatusUnauthorized},
		{"expired", signToken(t, testSecret, expired), http.StatusUnauthorized},
		{"no supplier", signToken(t, testSecret, validClaims("")), http.StatusForbidden},
		{"valid", signToken(t, testSecret, validClaims("acme")), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := get(r, "/api/whoami", tt.token); w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestJWTAuthQueryToken(t *testing.T) {
	r := newRouter()
	token := signToken(t, testSecret, validClaims("acme"))
	w := get(r, "/api/whoami?token="+token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	r := newRouter()
	tests := []struct {
		name  string
		perms []string
		want  int
	}{
		{"none", nil, http.StatusForbidden},
		{"other", []string{"product:read"}, http.StatusForbidden},
		{"exact", []string{"reference:write"}, http.StatusOK},
		{"wildcard", []string{"*"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signToken(t, testSecret, validClaims("acme", tt.perms...))
			if w := get(r, "/api/admin", token); w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequestIDEchoesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "abc" || w.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("request id = %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Body.String() == "" {
		t.Fatal("expected generated request id")
	}
}

func TestParseTokenFallsBackToSubject(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":         "u-sub",
		"supplier_id": "acme",
		"exp":         time.Now().Add(time.Hour).Unix(),
	})
	claims, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != "u-sub" || claims.SupplierID != "acme" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.HasPermission("reference:write") {
		t.Fatal("token without perms must not grant reference:write")
	}
}

func TestRequireSupplierOnlyGuardsItsGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authOnly := r.Group("/open", JWTAuth(testSecret))
	authOnly.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
	tenant := r.Group("/tenant", JWTAuth(testSecret), RequireSupplier())
	tenant.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })

	token := signToken(t, testSecret, validClaims(""))
	if w := get(r, "/open", token); w.Code != http.StatusOK {
		t.Fatalf("/open status = %d", w.Code)
	}
	w := get(r, "/tenant", token)
	if w.Code != http.StatusForbidden || !strings.Contains(w.Body.String(), "40304") {
		t.Fatalf("/tenant status = %d %s", w.Code, w.Body.String())
	}
}
