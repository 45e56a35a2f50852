package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/session"
)

func TestHandleReport(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/report?region=Southeast&top=3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report models.Report
	decode(t, rec, &report)
	assert.Equal(t, "R$ 4.68 thousand", report.Metrics.RevenueFormatted)
	assert.Equal(t, 4, report.Metrics.Count)
	assert.Equal(t, 3, report.TopK)
	require.Len(t, report.TopSellersRevenue, 3)
	assert.Equal(t, "Bruno", report.TopSellersRevenue[0].Seller)
	assert.Equal(t, "Ana", report.TopSellersRevenue[1].Seller)
}

func TestHandleReport_InvalidParams(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/report?year=abc&price_min=1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec, nil)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	var fields []string
	for _, f := range body.Error.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"year", "price"}, fields)
}

func TestHandleReport_UnknownRegion(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/report?region=Atlantis")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReportJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/report",
		strings.NewReader(`{"params":{"regions":["North"]},"top_k":2}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report models.Report
	decode(t, rec, &report)
	assert.Equal(t, 2, report.Metrics.Count)
	assert.Equal(t, 2, report.TopK)

	lower := env.do(t, httptest.NewRequest(http.MethodPost, "/api/report",
		strings.NewReader(`{"params":{"regions":["southeast"]}}`)))
	require.Equal(t, http.StatusOK, lower.Code, lower.Body.String())
	decode(t, lower, &report)
	assert.Equal(t, 4, report.Metrics.Count)

	bad := env.do(t, httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "BAD_REQUEST", decode(t, bad, nil).Error.Code)
}

func TestHandleLocations(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/locations/revenue")
	require.Equal(t, http.StatusOK, rec.Code)
	var revenue []models.LocationRevenue
	decode(t, rec, &revenue)
	require.Len(t, revenue, 2)
	assert.Equal(t, "SP", revenue[0].Location)
	assert.Equal(t, "4680.5", revenue[0].Revenue.String())

	rec = env.get(t, "/api/locations/count?region=North")
	var counts []models.LocationCount
	decode(t, rec, &counts)
	assert.Equal(t, []models.LocationCount{{Location: "AM", Count: 2}}, counts)

	assert.Equal(t, http.StatusNotFound, env.get(t, "/api/locations/profit").Code)
}

func TestHandleMonths(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/months/count?year=2021")
	require.Equal(t, http.StatusOK, rec.Code)

	var months []models.MonthlyCount
	decode(t, rec, &months)
	require.Len(t, months, 3)
	assert.Equal(t, []int{2, 0, 2}, []int{months[0].Count, months[1].Count, months[2].Count})
	assert.Equal(t, "February", months[1].Month)
}

func TestHandleCategories(t *testing.T) {
	env := newTestEnv(t)

	var counts []models.CategoryCount
	decode(t, env.get(t, "/api/categories/count"), &counts)
	assert.Equal(t, []models.CategoryCount{
		{Category: "moveis", Count: 3},
		{Category: "eletronicos", Count: 2},
		{Category: "eletrodomesticos", Count: 1},
	}, counts)
}

func TestHandleSellers(t *testing.T) {
	env := newTestEnv(t)

	var byCount []models.SellerStats
	decode(t, env.get(t, "/api/sellers?by=count&top=2"), &byCount)
	require.Len(t, byCount, 2)
	assert.Equal(t, "Ana", byCount[0].Seller)
	assert.Equal(t, 3, byCount[0].Count)
	assert.Equal(t, "Bruno", byCount[1].Seller)

	var byRevenue []models.SellerStats
	decode(t, env.get(t, "/api/sellers?top=1"), &byRevenue)
	// top is clamped to the smallest ranking size.
	require.Len(t, byRevenue, 2)
	assert.Equal(t, "Bruno", byRevenue[0].Seller)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/sellers?by=rating").Code)
}

func TestHandleOptions(t *testing.T) {
	env := newTestEnv(t)

	var opts filter.Options
	decode(t, env.get(t, "/api/options?region=North"), &opts)
	assert.Equal(t, []string{"Bruno", "Ana"}, opts.Sellers)
	assert.Equal(t, []int{2021, 2022}, opts.Years)
}

func TestHandleRegions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/regions")
	assert.Equal(t, cacheMaxAge, rec.Header().Get("Cache-Control"))

	var regions []regionEntry
	decode(t, rec, &regions)
	require.Len(t, regions, 5)
	assert.Equal(t, "North", regions[0].Region.String())
	assert.Contains(t, regions[0].Codes, "AM")
}

func TestHandleHealthAndStats(t *testing.T) {
	env := newTestEnv(t)

	var health map[string]string
	decode(t, env.get(t, "/health"), &health)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "test", health["version"])

	var stats map[string]any
	decode(t, env.get(t, "/admin/stats"), &stats)
	assert.EqualValues(t, 6, stats["record_count"])
	assert.Contains(t, stats, "sessions")
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPut, "/api/session/filters",
		strings.NewReader(`{"params":{"regions":["south"]},"top_k":40,"file_name":"relatorio"}`))
	rec := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(t, rec)

	var state session.State
	decode(t, env.get(t, "/api/session/filters", cookie), &state)
	assert.Equal(t, "South", state.Params.Regions[0].String())
	assert.Equal(t, 10, state.TopK)
	assert.Equal(t, "relatorio", state.FileName)

	bad := httptest.NewRequest(http.MethodPut, "/api/session/filters",
		strings.NewReader(`{"raw":{"columns":["Nope"]}}`))
	assert.Equal(t, http.StatusBadRequest, env.do(t, bad).Code)

	del := httptest.NewRequest(http.MethodDelete, "/api/session/filters", nil)
	del.AddCookie(cookie)
	require.Equal(t, http.StatusOK, env.do(t, del).Code)
	assert.Equal(t, 0, env.sessions.Size())

	state = session.State{}
	decode(t, env.get(t, "/api/session/filters", cookie), &state)
	assert.Empty(t, state.Params.Regions)
	assert.Empty(t, state.FileName)
}
