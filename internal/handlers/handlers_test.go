package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/homeplace/internal/catalog"
	"github.com/nfrund/homeplace/internal/filter"
	"github.com/nfrund/homeplace/internal/gateway"
	"github.com/nfrund/homeplace/internal/handlers"
	"github.com/nfrund/homeplace/internal/middleware"
	"github.com/nfrund/homeplace/internal/rendering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	e        *echo.Echo
	presence *gateway.Presence
	defaults filter.Defaults
}

func newTestApp() *testApp {
	e := echo.New()
	e.Validator = handlers.NewValidator()
	e.Renderer = rendering.NewNodeRenderer()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("test-secret-key-for-handlers!!"))))
	e.Use(middleware.Logger)

	defaults := filter.NewDefaults(filter.DefaultPriceRange, 10)
	presence := gateway.NewPresence()
	sessionHandler := handlers.NewSessionHandler("/projects")
	projectsHandler := handlers.NewProjectsHandler(catalog.Sample(), defaults)
	presenceHandler := handlers.NewPresenceHandler(presence)

	e.POST("/api/session", sessionHandler.Create)
	e.GET("/api/session", sessionHandler.Get)
	e.POST("/session", sessionHandler.CreateForm)
	e.GET("/api/projects", projectsHandler.List)
	e.GET("/projects", projectsHandler.Page)
	e.GET("/api/presence", presenceHandler.GetPresence)
	e.GET("/health", presenceHandler.HealthCheck)

	return &testApp{e: e, presence: presence, defaults: defaults}
}

func (a *testApp) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestSessionHandler_CreateThenGet(t *testing.T) {
	app := newTestApp()

	rec := app.do(jsonRequest(http.MethodPost, "/api/session", `{"memberId":"m1","memberNick":"Ana","memberImage":"https://img.example/a.png"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	rec = app.do(httptest.NewRequest(http.MethodGet, "/api/session", nil), cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	var got handlers.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "m1", got.Member.ID)
	assert.Equal(t, "Ana", got.Member.Nick)
}

func TestSessionHandler_CreateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{"memberNick":"Ana"}`},
		{"bad image url", `{"memberId":"m1","memberImage":"not a url"}`},
		{"malformed json", `{"memberId":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestApp().do(jsonRequest(http.MethodPost, "/api/session", tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var errResp handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.Equal(t, "invalid_request", errResp.Code)
		})
	}
}

func TestSessionHandler_GetWithoutSession(t *testing.T) {
	rec := newTestApp().do(httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionHandler_FormSignInFlashesOnListing(t *testing.T) {
	app := newTestApp()

	form := url.Values{"memberId": {"m2"}, "memberNick": {"Bo"}}
	req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := app.do(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/projects", rec.Header().Get(echo.HeaderLocation))

	rec = app.do(httptest.NewRequest(http.MethodGet, "/projects", nil), rec.Result().Cookies()...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Signed in as Bo")
}

func TestProjectsHandler_List(t *testing.T) {
	app := newTestApp()

	f := app.defaults.State.Clone()
	f.Search.TypeList = []filter.PropertyType{filter.TypeHouse}
	q, err := filter.Query(f, app.defaults)
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		total int
	}{
		{"no filter", "", 6},
		{"encoded filter", q.Encode(), 2},
		{"malformed filter falls back", filter.QueryParam + "=%7Bnope", 6},
		{"text search", "q=seaside", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(httptest.NewRequest(http.MethodGet, "/api/projects?"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var page catalog.Page
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
			assert.Equal(t, tt.total, page.Total)
		})
	}
}

func TestProjectsHandler_Page(t *testing.T) {
	rec := newTestApp().do(httptest.NewRequest(http.MethodGet, "/projects", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="project-listing"`)
	assert.Contains(t, rec.Body.String(), "6 projects")
}

func TestPresenceHandler(t *testing.T) {
	app := newTestApp()
	app.presence.Join("m1", "c1")
	app.presence.Join("m1", "c2")
	app.presence.Join("m2", "c3")

	rec := app.do(httptest.NewRequest(http.MethodGet, "/api/presence", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got handlers.PresenceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.TotalClients)
	assert.Equal(t, []string{"m1", "m2"}, got.Members)

	rec = app.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
