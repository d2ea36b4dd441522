package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/luanatech/storefront/internal/domain"
	apperrors "github.com/luanatech/storefront/pkg/errors"
	"github.com/luanatech/storefront/pkg/httpclient"
	"github.com/luanatech/storefront/pkg/logger"
)

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) ReportFailure(ctx context.Context, f Failure) {
	m.Called(ctx, f)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHTTPClient(maxRetries int) *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Timeout:         2 * time.Second,
		MaxRetries:      maxRetries,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    2 * time.Millisecond,
		MaxConnsPerHost: 10,
	})
}

func newTestClient(t *testing.T, baseURL string, reporter FailureReporter) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: baseURL}, testHTTPClient(0), reporter, discardLogger())
	require.NoError(t, err)
	return c
}

// serveJSON answers every request with status and body and counts hits.
func serveJSON(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// unreachableURL returns the URL of a server that has already been closed.
func unreachableURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv.URL
}

// --- NewClient ---

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "luanatech.pe", "ftp://luanatech.pe", "https://", "://bad"} {
		_, err := NewClient(Config{BaseURL: raw}, testHTTPClient(0), nil, nil)
		assert.Error(t, err, raw)
	}
}

func TestNewClient_RejectsBadCategoriesOrigin(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://luanatech.pe", CategoriesOrigin: "nope"}, testHTTPClient(0), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "categories origin")
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "https://luanatech.pe/"}, testHTTPClient(0), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://luanatech.pe", c.baseURL)
	assert.Equal(t, "https://luanatech.pe", c.categoriesOrigin)
}

// --- FetchCategory ---

func TestFetchCategory_DecodesPayload(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusOK, `[{"id":"02","name":"Laptops","slug":"laptops"}]`)
	c := newTestClient(t, srv.URL, nil)

	got := c.FetchCategory(context.Background())

	assert.Equal(t, []domain.Category{{ID: "02", Name: "Laptops", Slug: "laptops"}}, got)
}

func TestFetchCategory_ServerErrorReturnsEmpty(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusInternalServerError, `{"detail":"boom"}`)
	c := newTestClient(t, srv.URL, nil)

	got := c.FetchCategory(context.Background())

	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFetchCategory_UnreachableReturnsEmpty(t *testing.T) {
	c := newTestClient(t, unreachableURL(), nil)

	var got []domain.Category
	require.NotPanics(t, func() { got = c.FetchCategory(context.Background()) })

	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFetchCategory_NullBodyIsEmptySlice(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusOK, `null`)
	c := newTestClient(t, srv.URL, nil)

	r := c.Categories(context.Background())

	assert.True(t, r.OK())
	require.NotNil(t, r.Value)
	assert.Empty(t, r.Value)
}

func TestFetchCategory_IdenticalCallsHitOriginEachTime(t *testing.T) {
	srv, hits := serveJSON(t, http.StatusOK, `[{"id":"02","name":"Laptops","slug":"laptops"},{"id":"03","name":"Monitores","slug":"monitores"}]`)
	c := newTestClient(t, srv.URL, nil)

	first := c.FetchCategory(context.Background())
	second := c.FetchCategory(context.Background())

	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestFetchCategory_UsesCategoriesOrigin(t *testing.T) {
	var gotPath string
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `[{"id":"01","name":"Audio","slug":"audio"}]`)
	}))
	defer origin.Close()

	api, apiHits := serveJSON(t, http.StatusOK, `[]`)

	c, err := NewClient(Config{BaseURL: api.URL, CategoriesOrigin: origin.URL}, testHTTPClient(0), nil, discardLogger())
	require.NoError(t, err)

	got := c.FetchCategory(context.Background())

	assert.Equal(t, "/api/categorys/", gotPath)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(0), atomic.LoadInt32(apiHits))

	c.FetchListProductBrand(context.Background(), "ugreen")
	assert.Equal(t, int32(1), atomic.LoadInt32(apiHits), "other queries keep using the base URL")
}

// --- FetchListProductCategory ---

func TestFetchListProductCategory_DecodesListing(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusOK, `{
		"category":{"id":"02","name":"Laptops","slug":"laptops"},
		"subcategory":{"id":"095","name":"Gamer","slug":"gamer"},
		"products":[{"id":10,"name":"Laptop Gamer","price":"4599.00","brand":3}]
	}`)
	c := newTestClient(t, srv.URL, nil)

	got := c.FetchListProductCategory(context.Background(), "02", "095")

	require.NotNil(t, got)
	assert.Equal(t, domain.Category{ID: "02", Name: "Laptops", Slug: "laptops"}, got.Category)
	assert.Equal(t, domain.Subcategory{ID: "095", Name: "Gamer", Slug: "gamer"}, got.Subcategory)
	require.Len(t, got.Products, 1)
	assert.Equal(t, domain.ID("10"), got.Products[0].ID)
	assert.True(t, decimal.RequireFromString("4599").Equal(got.Products[0].Price))
}

func TestFetchListProductCategory_NotFoundReturnsNil(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusNotFound, `{"detail":"No encontrado."}`)
	c := newTestClient(t, srv.URL, nil)

	var got *domain.ProductListing
	require.NotPanics(t, func() { got = c.FetchListProductCategory(context.Background(), "02", "095") })

	assert.Nil(t, got)
}

func TestFetchListProductCategory_NonOKStatusesReturnNil(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusMovedPermanently, http.StatusBadRequest, http.StatusForbidden, http.StatusBadGateway} {
		srv, _ := serveJSON(t, status, `{}`)
		c := newTestClient(t, srv.URL, nil)

		r := c.CategoryListing(context.Background(), "02", "095")

		assert.Nil(t, r.Value, "status %d", status)
		assert.True(t, r.Degraded(), "status %d", status)
	}
}

func TestFetchListProductCategory_MalformedButOKPassesThrough(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusOK, `{"unexpected":"shape"}`)
	c := newTestClient(t, srv.URL, nil)

	r := c.CategoryListing(context.Background(), "02", "095")

	require.True(t, r.OK())
	require.NotNil(t, r.Value)
	assert.Empty(t, r.Value.Category.ID)
	assert.NotNil(t, r.Value.Products)
}

// --- Filter and brand queries ---

func TestFetchFilterProductCategorySubCategory(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `[{"id":1,"name":"Laptop","price":2599.9},{"id":2,"name":"Laptop Pro","price":"3999.90"}]`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, nil)

	got := c.FetchFilterProductCategorySubCategory(context.Background(), "02", "095")

	assert.Equal(t, "/api/products/filter/02/095/", gotPath)
	require.Len(t, got, 2)
	assert.Equal(t, "Laptop Pro", got[1].Name)
}

func TestFetchListProductBrand(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `[{"id":5,"name":"Adaptador HDMI","price":"39.90"}]`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, nil)

	got := c.FetchListProductBrand(context.Background(), "ugreen")

	assert.Equal(t, "/api/brands/ugreen/products/", gotPath)
	require.Len(t, got, 1)
	assert.Equal(t, "Adaptador HDMI", got[0].Name)
}

func TestQueries_FailuresReturnEmptySlices(t *testing.T) {
	c := newTestClient(t, unreachableURL(), nil)
	ctx := context.Background()

	filter := c.FetchFilterProductCategorySubCategory(ctx, "02", "095")
	brand := c.FetchListProductBrand(ctx, "ugreen")

	assert.NotNil(t, filter)
	assert.Empty(t, filter)
	assert.NotNil(t, brand)
	assert.Empty(t, brand)
}

func TestQueries_PathSegmentsAreEscaped(t *testing.T) {
	var rawPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, nil)

	c.FetchListProductBrand(context.Background(), "a/b c")

	assert.Equal(t, "/api/brands/a%2Fb%20c/products/", rawPath)
}

// --- Request shape ---

func TestQueries_SendNoCacheHeadersAndSingleGET(t *testing.T) {
	var hits int32
	var header http.Header
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		header = r.Header.Clone()
		method = r.Method
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, nil)

	ctx := logger.WithCorrelationID(context.Background(), "corr-77")
	c.FetchCategory(ctx)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "no retry by default")
	assert.Equal(t, http.MethodGet, method)
	assert.Equal(t, "no-store", header.Get("Cache-Control"))
	assert.Equal(t, "no-cache", header.Get("Pragma"))
	assert.Equal(t, "application/json", header.Get("Accept"))
	assert.Equal(t, "corr-77", header.Get("X-Correlation-ID"))
}

func TestQueries_RetriesWhenConfigured(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `[{"id":"02","name":"Laptops","slug":"laptops"}]`)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL}, testHTTPClient(2), nil, discardLogger())
	require.NoError(t, err)

	r := c.Categories(context.Background())

	assert.True(t, r.OK())
	assert.Len(t, r.Value, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

// --- Result and failure reasons ---

func TestResult_CarriesFailureReason(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
		code   int
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`, ReasonStatus, 500},
		{"not found", http.StatusNotFound, ``, ReasonStatus, 404},
		{"bad json", http.StatusOK, `[{"id":`, ReasonDecode, 0},
		{"wrong shape", http.StatusOK, `{"id":"02"}`, ReasonDecode, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serveJSON(t, tt.status, tt.body)
			c := newTestClient(t, srv.URL, nil)

			r := c.Categories(context.Background())

			assert.Equal(t, Failed, r.Outcome)
			require.Error(t, r.Err)
			assert.Equal(t, tt.reason, Reason(r.Err))
			assert.Equal(t, tt.code, StatusCode(r.Err))
			assert.Equal(t, []domain.Category{}, r.Value)
		})
	}
}

func TestResult_StatusErrorMapsToSentinel(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusNotFound, `{"detail":"No encontrado."}`)
	c := newTestClient(t, srv.URL, nil)

	r := c.CategoryListing(context.Background(), "02", "095")

	assert.ErrorIs(t, r.Err, apperrors.ErrNotFound)
	assert.Contains(t, r.Err.Error(), "No encontrado.")
	assert.Contains(t, r.Err.Error(), OpCategoryListing)
}

func TestResult_TransportFailure(t *testing.T) {
	c := newTestClient(t, unreachableURL(), nil)

	r := c.Categories(context.Background())

	assert.Equal(t, ReasonTransport, Reason(r.Err))
}

func TestResult_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r := c.Categories(ctx)

	assert.True(t, r.Degraded())
	assert.Equal(t, ReasonTimeout, Reason(r.Err))
}

func TestQueries_EmptyArgumentsSendNothing(t *testing.T) {
	srv, hits := serveJSON(t, http.StatusOK, `[]`)
	reporter := &mockReporter{}
	c := newTestClient(t, srv.URL, reporter)
	ctx := context.Background()

	listing := c.CategoryListing(ctx, "", "095")
	filter := c.CategoryProducts(ctx, "02", "  ")
	brand := c.BrandProducts(ctx, "")

	assert.Nil(t, listing.Value)
	assert.Equal(t, []domain.Product{}, filter.Value)
	assert.Equal(t, []domain.Product{}, brand.Value)
	for _, err := range []error{listing.Err, filter.Err, brand.Err} {
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Equal(t, ReasonInvalidInput, Reason(err))
	}
	assert.Contains(t, listing.Err.Error(), "category must not be empty")
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
	reporter.AssertNotCalled(t, "ReportFailure", mock.Anything, mock.Anything)
}

// --- Reporting, metrics, logging ---

func TestQueries_ReportFailures(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusServiceUnavailable, `{"detail":"mantenimiento"}`)
	reporter := &mockReporter{}
	reporter.On("ReportFailure", mock.Anything, mock.MatchedBy(func(f Failure) bool {
		return f.Operation == OpBrandProducts &&
			f.Path == "/api/brands/ugreen/products/" &&
			f.Reason == ReasonStatus &&
			f.StatusCode == http.StatusServiceUnavailable &&
			f.Err != nil
	})).Once()
	c := newTestClient(t, srv.URL, reporter)

	c.FetchListProductBrand(context.Background(), "ugreen")

	reporter.AssertExpectations(t)
}

func TestQueries_SuccessIsNotReported(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusOK, `[]`)
	reporter := &mockReporter{}
	c := newTestClient(t, srv.URL, reporter)

	c.FetchCategory(context.Background())

	reporter.AssertNotCalled(t, "ReportFailure", mock.Anything, mock.Anything)
}

func TestQueries_CanceledIsNotReported(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusOK, `[]`)
	reporter := &mockReporter{}
	c := newTestClient(t, srv.URL, reporter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := c.Categories(ctx)

	assert.Equal(t, ReasonCanceled, Reason(r.Err))
	reporter.AssertNotCalled(t, "ReportFailure", mock.Anything, mock.Anything)
}

func TestQueries_RecordMetrics(t *testing.T) {
	okSrv, _ := serveJSON(t, http.StatusOK, `[]`)
	badSrv, _ := serveJSON(t, http.StatusOK, `not json`)

	succeededBefore := testutil.ToFloat64(queriesTotal.WithLabelValues(OpCategoryProducts, "succeeded"))
	failedBefore := testutil.ToFloat64(queriesTotal.WithLabelValues(OpCategoryProducts, "failed"))
	decodeBefore := testutil.ToFloat64(queryFailuresTotal.WithLabelValues(OpCategoryProducts, ReasonDecode))

	newTestClient(t, okSrv.URL, nil).FetchFilterProductCategorySubCategory(context.Background(), "02", "095")
	newTestClient(t, badSrv.URL, nil).FetchFilterProductCategorySubCategory(context.Background(), "02", "095")

	assert.Equal(t, succeededBefore+1, testutil.ToFloat64(queriesTotal.WithLabelValues(OpCategoryProducts, "succeeded")))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(queriesTotal.WithLabelValues(OpCategoryProducts, "failed")))
	assert.Equal(t, decodeBefore+1, testutil.ToFloat64(queryFailuresTotal.WithLabelValues(OpCategoryProducts, ReasonDecode)))
}

func TestQueries_LogFailureAtWarnWithContextLogger(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusInternalServerError, ``)
	c := newTestClient(t, srv.URL, nil)

	var buf strings.Builder
	reqLogger := logger.NewWithWriter("storefront", "info", &buf)
	ctx := logger.NewContext(context.Background(), reqLogger)

	c.FetchCategory(ctx)

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"operation":"categories"`)
	assert.Contains(t, out, `"reason":"status"`)
	assert.Contains(t, out, `"status":500`)
}

// --- Circuit breaker ---

func TestQueries_CircuitOpenFallback(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cbCfg := httpclient.DefaultCircuitBreakerConfig("catalog-test-open")
	cbCfg.MinRequests = 2
	cbCfg.FailureRatio = 0.5
	cbCfg.Timeout = time.Minute
	breaker := httpclient.NewCircuitBreakerClient(testHTTPClient(0), cbCfg, discardLogger()).
		WithFallback(CircuitOpenFallback)

	c, err := NewClient(Config{BaseURL: srv.URL}, breaker, nil, discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	first := c.Categories(ctx)
	assert.Equal(t, ReasonStatus, Reason(first.Err))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(first.Err))
	c.Categories(ctx)

	open := c.Categories(ctx)
	assert.Equal(t, ReasonCircuitOpen, Reason(open.Err))
	assert.Equal(t, []domain.Category{}, open.Value)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "open breaker does not reach the origin")

	var appErr *apperrors.AppError
	require.True(t, errors.As(open.Err, &appErr))
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "pending", Outcome(0).String())
}

// newHeaderCapture starts a server that stores the inbound traceparent header.
func newHeaderCapture(t *testing.T, dst *string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*dst = r.Header.Get("traceparent")
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}
