package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vida-vod/internal/config"
	"vida-vod/pkg/utils"

	"github.com/gin-gonic/gin"
)

func newRouter(jwtCfg *config.JWTConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(), Metrics())
	authed := r.Group("", AuthRequired(jwtCfg))
	authed.GET("/me", func(c *gin.Context) {
		id, _ := GetCurrentUserID(c)
		c.String(http.StatusOK, id+":"+GetCurrentRole(c))
	})
	authed.GET("/ops", OperatorRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestAuthRequired(t *testing.T) {
	cfg := &config.JWTConfig{Secret: "test", ExpireHours: 1}
	r := newRouter(cfg)
	userToken, _ := utils.GenerateToken(cfg, "test", "u1", "user")
	opsToken, _ := utils.GenerateToken(cfg, "test", "op", "admin")

	tests := []struct {
		name   string
		path   string
		header string
		want   int
		body   string
	}{
		{"missing token", "/me", "", http.StatusUnauthorized, ""},
		{"bad scheme", "/me", "Basic abc", http.StatusUnauthorized, ""},
		{"invalid token", "/me", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid token", "/me", "Bearer " + userToken, http.StatusOK, "u1:user"},
		{"operator route as user", "/ops", "Bearer " + userToken, http.StatusForbidden, ""},
		{"operator route as operator", "/ops", "Bearer " + opsToken, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("Expected body %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	r := newRouter(&config.JWTConfig{Secret: "test", ExpireHours: 1})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
	if body := w.Body.String(); body == "" || strings.Contains(body, "boom") {
		t.Errorf("Panic value must not leak, got %s", body)
	}
}
