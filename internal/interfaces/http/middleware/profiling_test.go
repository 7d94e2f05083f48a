package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestProfiling_LabelsRequestWithRoutePattern(t *testing.T) {
	labels := map[string]string{}
	router := gin.New()
	router.Use(Profiling(true))
	router.POST("/api/v1/invoices/:id/payments", func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			labels[key] = value
			return true
		})
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/invoices/0b8f3c1e-6a55-4d27-9a51-4a0f5c1f0b11/payments", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, map[string]string{
		"method":   "POST",
		"route":    "/api/v1/invoices/:id/payments",
		"resource": "invoices",
	}, labels)
}

func TestProfiling_SkipsHealthAndDisabled(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		path    string
	}{
		{"health check", true, "/api/v1/health"},
		{"docs", true, "/swagger/*any"},
		{"disabled", false, "/api/v1/invoices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var labelled bool
			router := gin.New()
			router.Use(Profiling(tt.enabled))
			router.GET(tt.path, func(c *gin.Context) {
				pprof.ForLabels(c.Request.Context(), func(string, string) bool {
					labelled = true
					return false
				})
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.False(t, labelled)
		})
	}
}

func TestResourceFromRoute(t *testing.T) {
	cases := map[string]string{
		"/api/v1/invoices/:id/payments":            "invoices",
		"/api/v1/customers":                        "customers",
		"/api/v2/payments/:id":                     "payments",
		"/api/v1/invoices/:id/line-items/:item_id": "invoices",
		"/":                                        "",
	}
	for route, want := range cases {
		assert.Equal(t, want, resourceFromRoute(route), route)
	}
}
