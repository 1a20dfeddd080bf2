package taxo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures the last request a test server received.
type recorder struct {
	hits   int
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
}

func newRecorderServer(status int, respBody string) (*httptest.Server, *recorder) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.hits++
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.Query()
		rec.header = r.Header.Clone()
		rec.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	return srv, rec
}

func TestOperationRouting(t *testing.T) {
	tests := []struct {
		name     string
		call     func(ctx context.Context, c *Client) (any, error)
		host     string // "api" or "reports"
		method   string
		path     string
		wantBody map[string]any // nil means no body expected
	}{
		{
			name: "extract_compliance_opinion",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.ExtractComplianceOpinion(ctx, "XAXX010101000")
			},
			host: "api", method: http.MethodPost, path: "/api/extractions/oc/client",
			wantBody: map[string]any{"rfc": "XAXX010101000"},
		},
		{
			name: "extract_compliance_opinion_by_accountant",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.ExtractComplianceOpinionByAccountant(ctx, "42")
			},
			host: "api", method: http.MethodPost, path: "/api/extractions/oc/accountant",
			wantBody: map[string]any{"accountant_id": "42"},
		},
		{
			name: "extract_compliance_opinion_all",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.ExtractComplianceOpinionAll(ctx)
			},
			host: "api", method: http.MethodPost, path: "/api/extractions/oc/extract-all",
		},
		{
			name: "get_compliance_opinion",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetComplianceOpinion(ctx, "XAXX010101000")
			},
			host: "api", method: http.MethodGet, path: "/api/extractions/oc/client/XAXX010101000",
		},
		{
			name: "extract_tax_status",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.ExtractTaxStatus(ctx, "XAXX010101000")
			},
			host: "api", method: http.MethodPost, path: "/api/extractions/csf/client",
			wantBody: map[string]any{"rfc": "XAXX010101000"},
		},
		{
			name: "extract_tax_status_by_accountant",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.ExtractTaxStatusByAccountant(ctx, "42")
			},
			host: "api", method: http.MethodPost, path: "/api/extractions/csf/accountant",
			wantBody: map[string]any{"accountant_id": "42"},
		},
		{
			name: "extract_tax_status_all",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.ExtractTaxStatusAll(ctx)
			},
			host: "api", method: http.MethodPost, path: "/api/extractions/csf/extract-all",
		},
		{
			name: "get_tax_status",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetTaxStatus(ctx, "XAXX010101000")
			},
			host: "api", method: http.MethodGet, path: "/api/extractions/csf/client/XAXX010101000",
		},
		{
			name: "extract_cfdi",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.ExtractCFDI(ctx, "XAXX010101000", "2024-01-01", "2024-01-31", "issued")
			},
			host: "api", method: http.MethodPost, path: "/api/extractions/cfdi/client",
			wantBody: map[string]any{
				"rfc": "XAXX010101000", "start_date": "2024-01-01",
				"end_date": "2024-01-31", "extraction_type": "issued",
			},
		},
		{
			name: "extract_cfdi_by_accountant",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.ExtractCFDIByAccountant(ctx, "42", "2024-01-01", "2024-01-31")
			},
			host: "api", method: http.MethodPost, path: "/api/extractions/cfdi/accountant",
			wantBody: map[string]any{
				"accountant_id": "42", "start_date": "2024-01-01", "end_date": "2024-01-31",
			},
		},
		{
			name: "get_monthly_tax_report",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetMonthlyTaxReport(ctx, "XAXX010101000", "2024", "3")
			},
			host: "reports", method: http.MethodGet, path: "/api/v1/tax-reports/monthly/XAXX010101000/2024/3",
		},
		{
			name: "get_contacts",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetContacts(ctx, "XAXX010101000")
			},
			host: "reports", method: http.MethodGet, path: "/api/v1/contacts/XAXX010101000",
		},
		{
			name: "get_invoices",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.ListInvoices(ctx, "XAXX010101000", InvoiceFilters{})
			},
			host: "reports", method: http.MethodGet, path: "/api/v1/invoices/XAXX010101000",
		},
		{
			name: "get_categories",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.GetCategories(ctx)
			},
			host: "reports", method: http.MethodGet, path: "/api/categorization/categories",
		},
		{
			name: "create_taxpayer",
			call: func(ctx context.Context, c *Client) (any, error) {
				return c.CreateTaxpayer(ctx, "2896", "ZAHM8212203I2", "secret")
			},
			host: "api", method: http.MethodPost, path: "/api/v1/accountant/2896/clients",
			wantBody: map[string]any{"rfc": "ZAHM8212203I2", "ciec": "secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiSrv, apiRec := newRecorderServer(http.StatusOK, `{"ok":true}`)
			defer apiSrv.Close()
			reportsSrv, reportsRec := newRecorderServer(http.StatusOK, `{"ok":true}`)
			defer reportsSrv.Close()

			c := New("test-token", apiSrv.URL, reportsSrv.URL, nil)
			_, err := tt.call(context.Background(), c)
			require.NoError(t, err)

			rec, other := apiRec, reportsRec
			if tt.host == "reports" {
				rec, other = reportsRec, apiRec
			}
			require.Equal(t, 1, rec.hits, "expected exactly one request to the %s host", tt.host)
			assert.Equal(t, 0, other.hits, "request went to the wrong host")
			assert.Equal(t, tt.method, rec.method)
			assert.Equal(t, tt.path, rec.path)
			assert.Equal(t, "Bearer test-token", rec.header.Get("Authorization"))
			assert.Equal(t, "application/json", rec.header.Get("Accept"))
			assert.Equal(t, "application/json", rec.header.Get("Content-Type"))

			if tt.wantBody != nil {
				var got map[string]any
				require.NoError(t, json.Unmarshal(rec.body, &got))
				assert.Equal(t, tt.wantBody, got)
			} else {
				assert.Empty(t, rec.body)
			}
		})
	}
}

func TestInvoiceFilters(t *testing.T) {
	srv, rec := newRecorderServer(http.StatusOK, `[]`)
	defer srv.Close()
	c := New("tok", srv.URL, srv.URL, nil)

	// Only truthy filters appear in the query string.
	_, err := c.ListInvoices(context.Background(), "XAXX010101000", InvoiceFilters{
		StartDate: "2024-01-01",
		Status:    "paid",
	})
	require.NoError(t, err)
	assert.Equal(t, url.Values{"start_date": {"2024-01-01"}, "status": {"paid"}}, rec.query)

	// No filters, no query string at all.
	_, err = c.ListInvoices(context.Background(), "XAXX010101000", InvoiceFilters{})
	require.NoError(t, err)
	assert.Empty(t, rec.query)
}

func TestUpstreamErrorJSONBody(t *testing.T) {
	srv, _ := newRecorderServer(http.StatusNotFound, `{"detail":"not found"}`)
	defer srv.Close()
	c := New("tok", srv.URL, srv.URL, nil)

	_, err := c.GetContacts(context.Background(), "XAXX010101000")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
	assert.Equal(t, "Not Found", upstream.Message)
	assert.Equal(t, map[string]any{"detail": "not found"}, upstream.Details)
}

func TestUpstreamErrorRawBody(t *testing.T) {
	srv, _ := newRecorderServer(http.StatusInternalServerError, `upstream exploded`)
	defer srv.Close()
	c := New("tok", srv.URL, srv.URL, nil)

	_, err := c.GetCategories(context.Background())
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
	assert.Equal(t, "upstream exploded", upstream.Details)
}

func TestTransportError(t *testing.T) {
	srv, _ := newRecorderServer(http.StatusOK, `{}`)
	srv.Close() // connection refused from here on
	c := New("tok", srv.URL, srv.URL, nil)

	_, err := c.GetCategories(context.Background())
	var transport *TransportError
	require.ErrorAs(t, err, &transport)

	var upstream *UpstreamError
	assert.False(t, errors.As(err, &upstream))
}

func TestSuccessBodyPassthrough(t *testing.T) {
	srv, _ := newRecorderServer(http.StatusOK, `{"items":[{"rfc":"XAXX010101000","isr":123.45}],"total":1}`)
	defer srv.Close()
	c := New("tok", srv.URL, srv.URL, nil)

	got, err := c.GetCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"items": []any{map[string]any{"rfc": "XAXX010101000", "isr": 123.45}},
		"total": 1.0,
	}, got)
}

func TestDefaultBaseURLs(t *testing.T) {
	c := New("tok", "", "", nil)
	assert.Equal(t, DefaultAPIBase, c.APIBase)
	assert.Equal(t, DefaultReportsBase, c.ReportsBase)
	require.NotNil(t, c.HTTP)
}
