package http

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestThrottle_PerWalletBuckets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Throttle(1, 2))
	r.GET("/wallets/:phone/balance", func(c *gin.Context) { c.Status(200) })

	get := func(phone string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/wallets/"+phone+"/balance", nil))
		return w.Code
	}

	assert.Equal(t, 200, get("+263770000001"))
	assert.Equal(t, 200, get("+263770000001"))
	// burst of 2 exhausted for this wallet
	assert.Equal(t, 429, get("+263770000001"))
	// another wallet is unaffected
	assert.Equal(t, 200, get("+263770000002"))
}

func TestThrottle_FallsBackToClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Throttle(1, 1))
	r.GET("/health", func(c *gin.Context) { c.Status(200) })

	get := func(remote string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = remote
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, 200, get("10.0.0.1:1111"))
	assert.Equal(t, 429, get("10.0.0.1:2222"))
	assert.Equal(t, 200, get("10.0.0.2:3333"))
}
