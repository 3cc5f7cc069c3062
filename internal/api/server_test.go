package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/config"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/api/rest/handlers"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T, cfg config.Config) *fiber.App {
	t.Helper()
	auth := helper.SetupAuth("server-secret", time.Hour)
	return NewApp(cfg, handlers.NewUserHandler(nil, auth, logging.Nop()), logging.Nop())
}

func body(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestNewApp_Health(t *testing.T) {
	app := testApp(t, config.Config{BaseURL: "*"})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	assert.Equal(t, "ok", body(t, resp)["status"])
}

func TestNewApp_NotFound(t *testing.T) {
	app := testApp(t, config.Config{BaseURL: "*"})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	b := body(t, resp)
	assert.Equal(t, false, b["success"])
	assert.Equal(t, "Route not found", b["message"])
}

func TestNewApp_AuthRoutesMounted(t *testing.T) {
	app := testApp(t, config.Config{BaseURL: "*"})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNewApp_RateLimit(t *testing.T) {
	app := testApp(t, config.Config{BaseURL: "*", RateLimitMax: 2, RateLimitWindow: time.Minute})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestErrorHandler_PanicBecomes500(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(logging.Nop())})
	app.Use(recover.New())
	app.Get("/boom", func(*fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal", body(t, resp)["error"])
}

func TestErrorHandler_KeepsClientErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(logging.Nop())})
	app.Get("/teapot", func(*fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "short and stout", body(t, resp)["message"])
}
