package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/pkg/app"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) app.Res {
	t.Helper()
	var res app.Res
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthToken(t *testing.T) {
	tm := app.NewTokenManager(app.TokenConfig{SecretKey: "secret"})
	r := gin.New()
	r.GET("/p", AuthToken(tm), func(c *gin.Context) {
		c.String(http.StatusOK, app.GetClient(c))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/p", nil))
	assert.Equal(t, 401, decode(t, w).Code)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	assert.Equal(t, 401, decode(t, serve(r, req)).Code)

	token, err := tm.Generate("obsidian", "")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = serve(r, req)
	assert.Equal(t, "obsidian", w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/p?token="+token, nil))
	assert.Equal(t, "obsidian", w.Body.String())
}

func TestAuthToken_DisabledWithoutKey(t *testing.T) {
	r := gin.New()
	r.GET("/p", AuthToken(app.NewTokenManager(app.TokenConfig{})), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/p", nil))
	assert.Equal(t, "ok", w.Body.String())
}

func TestRecoveryWithLogger(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryWithLogger(nil))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	res := decode(t, serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil)))
	assert.Equal(t, 500, res.Code)
	assert.False(t, res.Status)
	assert.Equal(t, "boom", res.Details)
}

func TestNoFound(t *testing.T) {
	r := gin.New()
	r.NoRoute(NoFound())
	res := decode(t, serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil)))
	assert.Equal(t, 404, res.Code)
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(NewIPLimiter(LimiterRule{FillInterval: time.Hour, Capacity: 2})))
	r.GET("/p", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	assert.Equal(t, "ok", serve(r, httptest.NewRequest(http.MethodGet, "/p", nil)).Body.String())
	assert.Equal(t, "ok", serve(r, httptest.NewRequest(http.MethodGet, "/p", nil)).Body.String())
	assert.Equal(t, 1013, decode(t, serve(r, httptest.NewRequest(http.MethodGet, "/p", nil))).Code)
}

func TestRateLimiter_NilPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(nil))
	r.GET("/p", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	for i := 0; i < 5; i++ {
		assert.Equal(t, "ok", serve(r, httptest.NewRequest(http.MethodGet, "/p", nil)).Body.String())
	}
}

func TestTraceMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(TraceMiddleware(""))
	r.GET("/p", func(c *gin.Context) {
		assert.Equal(t, GetTraceIDFromGin(c), GetTraceID(c.Request.Context()))
		c.String(http.StatusOK, GetTraceIDFromGin(c))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/p", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(DefaultTraceIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set(DefaultTraceIDHeader, "abc")
	assert.Equal(t, "abc", serve(r, req).Body.String())
}

func TestContextTimeout(t *testing.T) {
	r := gin.New()
	r.Use(ContextTimeout(time.Minute))
	r.GET("/p", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/p", nil)).Code)
}

func TestContextTimeout_Expired(t *testing.T) {
	r := gin.New()
	r.Use(ContextTimeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	res := decode(t, serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil)))
	assert.Equal(t, 1014, res.Code)
}

func TestContextTimeout_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(ContextTimeout(0))
	r.GET("/p", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.False(t, ok)
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/p", nil)).Code)
}
