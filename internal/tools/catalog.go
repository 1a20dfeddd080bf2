// Package tools defines the MCP tool catalog for the Taxo MX API and the
// dispatch layer that turns validated tool calls into client requests. Both
// transports (stdio and HTTP) consume this one catalog.
package tools

import (
	"context"
	"fmt"

	"taxo-mcp/internal/taxo"
)

// Property describes one input parameter of a tool.
type Property struct {
	Type        string
	Description string
	Enum        []string
}

// Tool is one catalog entry: the externally visible name, description and
// input schema, plus the bound client call.
type Tool struct {
	Name        string
	Description string
	Properties  map[string]Property
	Required    []string

	call func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error)
}

// InputSchema renders the tool's parameters as a JSON-schema object suitable
// for the MCP tool declaration.
func (t Tool) InputSchema() map[string]any {
	props := map[string]any{}
	for name, p := range t.Properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			enum := make([]any, len(p.Enum))
			for i, v := range p.Enum {
				enum[i] = v
			}
			prop["enum"] = enum
		}
		props[name] = prop
	}
	required := t.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Validate checks args against the tool's schema: every required key must be
// present with the declared type, and enum-constrained values must match one
// of the allowed values. Unknown keys are ignored, not rejected.
func (t Tool) Validate(args map[string]any) error {
	for _, key := range t.Required {
		if _, ok := args[key]; !ok {
			return &ValidationError{Message: fmt.Sprintf("%s: missing required argument %q", t.Name, key)}
		}
	}
	for key, p := range t.Properties {
		v, ok := args[key]
		if !ok {
			continue
		}
		s, isString := v.(string)
		if p.Type == "string" && !isString {
			return &ValidationError{Message: fmt.Sprintf("%s: argument %q must be a string", t.Name, key)}
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			return &ValidationError{Message: fmt.Sprintf("%s: argument %q must be one of %v, got %q", t.Name, key, p.Enum, s)}
		}
	}
	return nil
}

func contains(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

// str returns the string value for key, or "" when absent. Call only after
// Validate has accepted the arguments.
func str(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

var rfcProp = Property{Type: "string", Description: "RFC (Mexican taxpayer ID) of the taxpayer"}
var accountantProp = Property{Type: "string", Description: "Identifier of the accountant"}

// catalog is the fixed, ordered tool list. Names, required parameters and
// enumerations are part of the external contract; do not rename.
var catalog = []Tool{
	{
		Name:        "extract_compliance_opinion",
		Description: "Start extraction of the SAT compliance opinion (opinión de cumplimiento) for a taxpayer. The result is delivered asynchronously by the platform.",
		Properties:  map[string]Property{"rfc": rfcProp},
		Required:    []string{"rfc"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.ExtractComplianceOpinion(ctx, str(args, "rfc"))
		},
	},
	{
		Name:        "extract_compliance_opinion_by_accountant",
		Description: "Start compliance-opinion extractions for every client of an accountant.",
		Properties:  map[string]Property{"accountantId": accountantProp},
		Required:    []string{"accountantId"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.ExtractComplianceOpinionByAccountant(ctx, str(args, "accountantId"))
		},
	},
	{
		Name:        "extract_compliance_opinion_all",
		Description: "Start compliance-opinion extractions for every taxpayer on the account.",
		Properties:  map[string]Property{},
		call: func(ctx context.Context, c *taxo.Client, _ map[string]any) (any, error) {
			return c.ExtractComplianceOpinionAll(ctx)
		},
	},
	{
		Name:        "get_compliance_opinion",
		Description: "Get the most recently extracted compliance opinion for a taxpayer.",
		Properties:  map[string]Property{"rfc": rfcProp},
		Required:    []string{"rfc"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.GetComplianceOpinion(ctx, str(args, "rfc"))
		},
	},
	{
		Name:        "extract_tax_status",
		Description: "Start extraction of the tax status certificate (constancia de situación fiscal) for a taxpayer.",
		Properties:  map[string]Property{"rfc": rfcProp},
		Required:    []string{"rfc"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.ExtractTaxStatus(ctx, str(args, "rfc"))
		},
	},
	{
		Name:        "extract_tax_status_by_accountant",
		Description: "Start tax-status-certificate extractions for every client of an accountant.",
		Properties:  map[string]Property{"accountantId": accountantProp},
		Required:    []string{"accountantId"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.ExtractTaxStatusByAccountant(ctx, str(args, "accountantId"))
		},
	},
	{
		Name:        "extract_tax_status_all",
		Description: "Start tax-status-certificate extractions for every taxpayer on the account.",
		Properties:  map[string]Property{},
		call: func(ctx context.Context, c *taxo.Client, _ map[string]any) (any, error) {
			return c.ExtractTaxStatusAll(ctx)
		},
	},
	{
		Name:        "get_tax_status",
		Description: "Get the most recently extracted tax status certificate for a taxpayer.",
		Properties:  map[string]Property{"rfc": rfcProp},
		Required:    []string{"rfc"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.GetTaxStatus(ctx, str(args, "rfc"))
		},
	},
	{
		Name:        "extract_cfdi",
		Description: "Start extraction of CFDI invoices for a taxpayer over a date range.",
		Properties: map[string]Property{
			"rfc":       rfcProp,
			"startDate": {Type: "string", Description: "Start of the date range (YYYY-MM-DD)"},
			"endDate":   {Type: "string", Description: "End of the date range (YYYY-MM-DD)"},
			"extractionType": {
				Type:        "string",
				Description: "Which invoices to extract",
				Enum:        []string{"all", "issued", "received"},
			},
		},
		Required: []string{"rfc", "startDate", "endDate", "extractionType"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.ExtractCFDI(ctx, str(args, "rfc"), str(args, "startDate"), str(args, "endDate"), str(args, "extractionType"))
		},
	},
	{
		Name:        "extract_cfdi_by_accountant",
		Description: "Start CFDI invoice extractions for every client of an accountant over a date range.",
		Properties: map[string]Property{
			"accountantId": accountantProp,
			"startDate":    {Type: "string", Description: "Start of the date range (YYYY-MM-DD)"},
			"endDate":      {Type: "string", Description: "End of the date range (YYYY-MM-DD)"},
		},
		Required: []string{"accountantId", "startDate", "endDate"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.ExtractCFDIByAccountant(ctx, str(args, "accountantId"), str(args, "startDate"), str(args, "endDate"))
		},
	},
	{
		Name:        "get_monthly_tax_report",
		Description: "Get the monthly tax report (ISR/IVA figures) for a taxpayer.",
		Properties: map[string]Property{
			"rfc":   rfcProp,
			"year":  {Type: "string", Description: "Four-digit year"},
			"month": {Type: "string", Description: "Month number, 1-12"},
		},
		Required: []string{"rfc", "year", "month"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.GetMonthlyTaxReport(ctx, str(args, "rfc"), str(args, "year"), str(args, "month"))
		},
	},
	{
		Name:        "get_contacts",
		Description: "Get the contacts registered for a taxpayer.",
		Properties:  map[string]Property{"rfc": rfcProp},
		Required:    []string{"rfc"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.GetContacts(ctx, str(args, "rfc"))
		},
	},
	{
		Name:        "get_invoices",
		Description: "List invoices for a taxpayer, optionally filtered by date range, type and status.",
		Properties: map[string]Property{
			"rfc":         rfcProp,
			"startDate":   {Type: "string", Description: "Only invoices on or after this date (YYYY-MM-DD)"},
			"endDate":     {Type: "string", Description: "Only invoices on or before this date (YYYY-MM-DD)"},
			"invoiceType": {Type: "string", Description: "Invoice type filter"},
			"status":      {Type: "string", Description: "Invoice status filter"},
			"page":        {Type: "string", Description: "Page number"},
			"limit":       {Type: "string", Description: "Page size"},
		},
		Required: []string{"rfc"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.ListInvoices(ctx, str(args, "rfc"), taxo.InvoiceFilters{
				StartDate: str(args, "startDate"),
				EndDate:   str(args, "endDate"),
				Type:      str(args, "invoiceType"),
				Status:    str(args, "status"),
				Page:      str(args, "page"),
				Limit:     str(args, "limit"),
			})
		},
	},
	{
		Name:        "get_categories",
		Description: "Get the invoice categorization catalog.",
		Properties:  map[string]Property{},
		call: func(ctx context.Context, c *taxo.Client, _ map[string]any) (any, error) {
			return c.GetCategories(ctx)
		},
	},
	{
		Name:        "create_taxpayer",
		Description: "Enroll a taxpayer under an accountant using the taxpayer's RFC and CIEC.",
		Properties: map[string]Property{
			"accountantId": accountantProp,
			"rfc":          rfcProp,
			"ciec":         {Type: "string", Description: "The taxpayer's CIEC (SAT portal password)"},
		},
		Required: []string{"accountantId", "rfc", "ciec"},
		call: func(ctx context.Context, c *taxo.Client, args map[string]any) (any, error) {
			return c.CreateTaxpayer(ctx, str(args, "accountantId"), str(args, "rfc"), str(args, "ciec"))
		},
	},
}

// Catalog returns the fixed tool list in declaration order.
func Catalog() []Tool { return catalog }

// Lookup finds a tool by name.
func Lookup(name string) (Tool, bool) {
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
