package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codeclash/similitude/internal/config"
	"github.com/codeclash/similitude/internal/models"
	"github.com/codeclash/similitude/internal/similarity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxConcurrentCompare: 2,
		CompareTimeout:       10 * time.Second,
		RateLimitRPS:         1000,
		ServerPort:           "8080",
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, err := similarity.New(similarity.DefaultConfig())
	require.NoError(t, err)

	pool := similarity.NewWorkerPool(context.Background())
	t.Cleanup(pool.Close)

	return SetupRoutes(cfg, engine, pool, nil, nil)
}

func doJSON(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, testConfig())
	w := doJSON(router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCompareEndpoint(t *testing.T) {
	router := newTestRouter(t, testConfig())
	src := "int main() {\n    if (x > 0) { return 1; }\n    return 0;\n}"

	t.Run("identical sources", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/compare", models.CompareRequest{
			NameA: "a.cpp", SourceA: src,
			NameB: "b.cpp", SourceB: src,
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.CompareResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ComparisonID)
		assert.False(t, resp.Cached)
		require.NotNil(t, resp.Report)
		assert.InDelta(t, 1.0, resp.Report.Final, 1e-9)
		assert.Equal(t, similarity.RatingVeryHigh, resp.Report.Rating)
		assert.Equal(t, "a.cpp", resp.Report.NameA)
	})

	t.Run("default names", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/compare", models.CompareRequest{
			SourceA: src, SourceB: src,
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.CompareResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Document A", resp.Report.NameA)
		assert.Equal(t, "Document B", resp.Report.NameB)
	})

	t.Run("empty sources are comparable", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/compare", models.CompareRequest{}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.CompareResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.InDelta(t, 1.0, resp.Report.Final, 1e-9)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/compare", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestArchiveEndpointsWithoutMongo(t *testing.T) {
	router := newTestRouter(t, testConfig())

	w := doJSON(router, http.MethodGet, "/api/v1/comparisons", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/comparisons/some-id", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestJWTAuth(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"
	router := newTestRouter(t, cfg)
	src := "int main() { return 0; }"

	body := models.CompareRequest{SourceA: src, SourceB: src}

	t.Run("missing token rejected", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/compare", body, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/compare", body, map[string]string{
			"Authorization": "Bearer not.a.token",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token := signedToken(t, "other-secret")
		w := doJSON(router, http.MethodPost, "/api/v1/compare", body, map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token accepted", func(t *testing.T) {
		token := signedToken(t, cfg.JWTSecret)
		w := doJSON(router, http.MethodPost, "/api/v1/compare", body, map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("health stays open", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func signedToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"api_key": "test-key",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.limiter("key").Allow())
	assert.True(t, rl.limiter("key").Allow())
	// Burst exhausted.
	assert.False(t, rl.limiter("key").Allow())
	// Independent bucket per key.
	assert.True(t, rl.limiter("other").Allow())
}
