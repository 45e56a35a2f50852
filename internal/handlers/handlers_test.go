package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/region"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sale(location, category, seller, price string, date time.Time) models.Sale {
	return models.Sale{
		Product:      category + " item",
		Category:     category,
		Price:        decimal.RequireFromString(price),
		Freight:      decimal.NewFromInt(10),
		PurchaseDate: date,
		Seller:       seller,
		Location:     location,
		Rating:       4,
		PaymentType:  "boleto",
		Installments: 2,
		Region:       region.Classify(location),
	}
}

// fixture: four Southeast sales in SP (R$ 4680.50) and two North sales in
// AM (R$ 1070).
func fixture() []models.Sale {
	return []models.Sale{
		sale("SP", "eletrodomesticos", "Ana", "1800", day(2021, time.January, 5)),
		sale("AM", "eletronicos", "Bruno", "950", day(2021, time.January, 20)),
		sale("SP", "moveis", "Ana", "300", day(2021, time.March, 2)),
		sale("SP", "moveis", "Carla", "80.50", day(2021, time.March, 31)),
		sale("AM", "eletronicos", "Ana", "120", day(2022, time.April, 1)),
		sale("SP", "moveis", "Bruno", "2500", day(2022, time.June, 30)),
	}
}

type testEnv struct {
	analytics *services.Analytics
	sessions  *session.Store
	router    chi.Router
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := discardLogger()
	analytics := services.NewAnalytics(&dataset.Dataset{
		Sales:  fixture(),
		Stats:  dataset.Stats{Total: 6, Loaded: 6},
		Source: "vendas.json",
	}, logger, nil)
	sessions := session.NewStore(config.SessionConfig{
		CookieName:  "sid",
		TTL:         time.Hour,
		MaxSessions: 10,
	})
	exporter := export.NewExporter(cache.NewLRUCache[[]byte](4, time.Minute), nil, logger)

	api := NewAPIHandlers(analytics, sessions, logger, "test")
	sse := NewSSEHandlers(analytics, sessions, logger, 2)
	pages := NewPageHandlers(analytics, sessions, logger, 2)
	exports := NewExportHandlers(analytics, exporter, sessions, "", logger)

	r := chi.NewRouter()
	r.Get("/", pages.Dashboard)
	r.Get("/raw", pages.Raw)
	r.Get("/health", api.HandleHealth)
	r.Get("/admin/stats", api.HandleStats)
	r.Get("/api/report", api.HandleReport)
	r.Post("/api/report", api.HandleReportJSON)
	r.Get("/api/locations/{measure}", api.HandleLocations)
	r.Get("/api/months/{measure}", api.HandleMonths)
	r.Get("/api/categories/{measure}", api.HandleCategories)
	r.Get("/api/sellers", api.HandleSellers)
	r.Get("/api/options", api.HandleOptions)
	r.Get("/api/regions", api.HandleRegions)
	r.Get("/api/session/filters", api.HandleGetSession)
	r.Put("/api/session/filters", api.HandlePutSession)
	r.Delete("/api/session/filters", api.HandleDeleteSession)
	r.Get("/sse/dashboard", sse.HandleDashboard)
	r.Get("/sse/raw", sse.HandleRaw)
	r.Get("/export.csv", exports.HandleCSV)
	r.Get("/export.xlsx", exports.HandleXLSX)

	return &testEnv{analytics: analytics, sessions: sessions, router: r}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.do(t, req)
}

// signalsURL encodes v as the datastar query parameter of path.
func signalsURL(t *testing.T, path string, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return path + "?" + url.Values{datastarQuery: {string(b)}}.Encode()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Fields  []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"fields"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}
