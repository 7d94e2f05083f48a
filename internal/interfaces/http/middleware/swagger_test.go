package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSwaggerRouter(cfg SwaggerConfig) *gin.Engine {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, "docs")
	})
	return router
}

func swaggerRequest(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection(t *testing.T) {
	tests := []struct {
		name       string
		cfg        SwaggerConfig
		remoteAddr string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "disabled",
			cfg:        SwaggerConfig{},
			remoteAddr: "127.0.0.1:5000",
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
		},
		{
			name:       "enabled without allow list",
			cfg:        SwaggerConfig{Enabled: true},
			remoteAddr: "203.0.113.9:5000",
			wantStatus: http.StatusOK,
		},
		{
			name:       "client inside CIDR",
			cfg:        SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}},
			remoteAddr: "10.1.2.3:5000",
			wantStatus: http.StatusOK,
		},
		{
			name:       "client matches single IP",
			cfg:        SwaggerConfig{Enabled: true, AllowedIPs: []string{"not-an-ip", " 192.168.1.20 "}},
			remoteAddr: "192.168.1.20:5000",
			wantStatus: http.StatusOK,
		},
		{
			name:       "client outside allow list",
			cfg:        SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8", "192.168.1.20"}},
			remoteAddr: "203.0.113.9:5000",
			wantStatus: http.StatusForbidden,
			wantCode:   dto.ErrCodeForbidden,
		},
		{
			name:       "only unparsable entries deny everyone",
			cfg:        SwaggerConfig{Enabled: true, AllowedIPs: []string{"office"}},
			remoteAddr: "127.0.0.1:5000",
			wantStatus: http.StatusForbidden,
			wantCode:   dto.ErrCodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := swaggerRequest(newSwaggerRouter(tt.cfg), tt.remoteAddr)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode == "" {
				return
			}
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
