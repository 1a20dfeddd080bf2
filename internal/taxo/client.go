// Package taxo provides a minimal client for the Taxo MX tax-data API.
//
// The API is split across two hosts: extractions, taxpayer management and
// account operations live on the primary host, while reporting, contacts,
// invoices and categories live on the reports host. The split is fixed and
// baked into the operation methods below.
package taxo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultAPIBase is the primary host (extractions, taxpayer management).
	DefaultAPIBase = "https://api.taxo.mx"
	// DefaultReportsBase is the secondary host (reports, contacts, invoices, categories).
	DefaultReportsBase = "https://reports.taxo.mx"
)

// Client is a stateless HTTP client for the Taxo MX API, bound to one bearer
// token. Construct one per token; it holds no mutable state.
type Client struct {
	Token       string
	APIBase     string
	ReportsBase string
	HTTP        *http.Client
}

// New returns a new client. Empty base URLs fall back to the production
// defaults. If httpClient is nil, a default with a 10s timeout is used.
func New(token, apiBase, reportsBase string, httpClient *http.Client) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if reportsBase == "" {
		reportsBase = DefaultReportsBase
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		Token:       token,
		APIBase:     strings.TrimRight(apiBase, "/"),
		ReportsBase: strings.TrimRight(reportsBase, "/"),
		HTTP:        httpClient,
	}
}

// InvoiceFilters are the optional filters for ListInvoices. Empty fields are
// omitted from the query string.
type InvoiceFilters struct {
	StartDate string
	EndDate   string
	Type      string
	Status    string
	Page      string
	Limit     string
}

// ExtractComplianceOpinion starts a compliance-opinion extraction for one taxpayer.
func (c *Client) ExtractComplianceOpinion(ctx context.Context, rfc string) (any, error) {
	return c.doJSON(ctx, http.MethodPost, c.APIBase, "/api/extractions/oc/client", map[string]string{"rfc": rfc})
}

// ExtractComplianceOpinionByAccountant starts compliance-opinion extractions
// for every client of an accountant.
func (c *Client) ExtractComplianceOpinionByAccountant(ctx context.Context, accountantID string) (any, error) {
	return c.doJSON(ctx, http.MethodPost, c.APIBase, "/api/extractions/oc/accountant", map[string]string{"accountant_id": accountantID})
}

// ExtractComplianceOpinionAll starts compliance-opinion extractions for every
// taxpayer on the account.
func (c *Client) ExtractComplianceOpinionAll(ctx context.Context) (any, error) {
	return c.doJSON(ctx, http.MethodPost, c.APIBase, "/api/extractions/oc/extract-all", nil)
}

// GetComplianceOpinion fetches the stored compliance opinion for one taxpayer.
func (c *Client) GetComplianceOpinion(ctx context.Context, rfc string) (any, error) {
	return c.doJSON(ctx, http.MethodGet, c.APIBase, "/api/extractions/oc/client/"+url.PathEscape(rfc), nil)
}

// ExtractTaxStatus starts a tax-status-certificate extraction for one taxpayer.
func (c *Client) ExtractTaxStatus(ctx context.Context, rfc string) (any, error) {
	return c.doJSON(ctx, http.MethodPost, c.APIBase, "/api/extractions/csf/client", map[string]string{"rfc": rfc})
}

// ExtractTaxStatusByAccountant starts tax-status extractions for every client
// of an accountant.
func (c *Client) ExtractTaxStatusByAccountant(ctx context.Context, accountantID string) (any, error) {
	return c.doJSON(ctx, http.MethodPost, c.APIBase, "/api/extractions/csf/accountant", map[string]string{"accountant_id": accountantID})
}

// ExtractTaxStatusAll starts tax-status extractions for every taxpayer on the account.
func (c *Client) ExtractTaxStatusAll(ctx context.Context) (any, error) {
	return c.doJSON(ctx, http.MethodPost, c.APIBase, "/api/extractions/csf/extract-all", nil)
}

// GetTaxStatus fetches the stored tax-status certificate for one taxpayer.
func (c *Client) GetTaxStatus(ctx context.Context, rfc string) (any, error) {
	return c.doJSON(ctx, http.MethodGet, c.APIBase, "/api/extractions/csf/client/"+url.PathEscape(rfc), nil)
}

// ExtractCFDI starts a CFDI invoice extraction for one taxpayer over a date
// range. extractionType is one of "all", "issued" or "received"; the value is
// passed through untouched, validation happens before dispatch.
func (c *Client) ExtractCFDI(ctx context.Context, rfc, startDate, endDate, extractionType string) (any, error) {
	return c.doJSON(ctx, http.MethodPost, c.APIBase, "/api/extractions/cfdi/client", map[string]string{
		"rfc":             rfc,
		"start_date":      startDate,
		"end_date":        endDate,
		"extraction_type": extractionType,
	})
}

// ExtractCFDIByAccountant starts CFDI extractions for every client of an
// accountant over a date range.
func (c *Client) ExtractCFDIByAccountant(ctx context.Context, accountantID, startDate, endDate string) (any, error) {
	return c.doJSON(ctx, http.MethodPost, c.APIBase, "/api/extractions/cfdi/accountant", map[string]string{
		"accountant_id": accountantID,
		"start_date":    startDate,
		"end_date":      endDate,
	})
}

// GetMonthlyTaxReport fetches the monthly tax report for a taxpayer.
func (c *Client) GetMonthlyTaxReport(ctx context.Context, rfc, year, month string) (any, error) {
	p := "/api/v1/tax-reports/monthly/" + url.PathEscape(rfc) + "/" + url.PathEscape(year) + "/" + url.PathEscape(month)
	return c.doJSON(ctx, http.MethodGet, c.ReportsBase, p, nil)
}

// GetContacts fetches the contacts registered for a taxpayer.
func (c *Client) GetContacts(ctx context.Context, rfc string) (any, error) {
	return c.doJSON(ctx, http.MethodGet, c.ReportsBase, "/api/v1/contacts/"+url.PathEscape(rfc), nil)
}

// ListInvoices fetches invoices for a taxpayer, filtered by the truthy fields
// of f.
func (c *Client) ListInvoices(ctx context.Context, rfc string, f InvoiceFilters) (any, error) {
	p := "/api/v1/invoices/" + url.PathEscape(rfc)
	q := url.Values{}
	setIfPresent(q, "start_date", f.StartDate)
	setIfPresent(q, "end_date", f.EndDate)
	setIfPresent(q, "type", f.Type)
	setIfPresent(q, "status", f.Status)
	setIfPresent(q, "page", f.Page)
	setIfPresent(q, "limit", f.Limit)
	if len(q) > 0 {
		p += "?" + q.Encode()
	}
	return c.doJSON(ctx, http.MethodGet, c.ReportsBase, p, nil)
}

// GetCategories fetches the invoice categorization catalog.
func (c *Client) GetCategories(ctx context.Context) (any, error) {
	return c.doJSON(ctx, http.MethodGet, c.ReportsBase, "/api/categorization/categories", nil)
}

// CreateTaxpayer enrolls a taxpayer under an accountant. The CIEC is the
// taxpayer's SAT portal password, passed through untouched.
func (c *Client) CreateTaxpayer(ctx context.Context, accountantID, rfc, ciec string) (any, error) {
	p := "/api/v1/accountant/" + url.PathEscape(accountantID) + "/clients"
	return c.doJSON(ctx, http.MethodPost, c.APIBase, p, map[string]string{"rfc": rfc, "ciec": ciec})
}

func setIfPresent(q url.Values, key, val string) {
	if val != "" {
		q.Set(key, val)
	}
}

// doJSON performs one authenticated round-trip and decodes the JSON response.
// Non-2xx statuses become *UpstreamError; failures before a response becomes
// available are *TransportError.
func (c *Client) doJSON(ctx context.Context, method, base, path string, body any) (any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var details any
		if err := json.Unmarshal(raw, &details); err != nil {
			details = string(raw)
		}
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Details:    details,
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		// Tolerate non-JSON success bodies; they are opaque pass-through.
		return string(raw), nil
	}
	return out, nil
}
