package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Amount is a monetary value the portal sends either as a JSON number or
// as a string with comma digit grouping ("1,234.5").
type Amount float64

// UnmarshalJSON accepts numbers, numeric strings, and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*a = Amount(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("amount %s: %w", data, err)
	}
	*a = Amount(f)
	return nil
}

// ParseAmount parses a decimal string that may carry comma grouping.
// An empty string is zero.
func ParseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	return v, nil
}

// InvoiceSummary is one row of the carrier invoice listing. DetailToken is
// an opaque per-invoice token required by the detail and datetime calls.
type InvoiceSummary struct {
	Number      string `json:"invoiceNumber"`
	SellerName  string `json:"sellerName"`
	TotalAmount Amount `json:"totalAmount"`
	InvoiceDate string `json:"invoiceDate"`
	DetailToken string `json:"token"`
}

type tokenRequest struct {
	CardCode        string `json:"cardCode"`
	CarrierID2      string `json:"carrierId2"`
	SearchStartDate string `json:"searchStartDate"`
	SearchEndDate   string `json:"searchEndDate"`
	InvoiceStatus   string `json:"invoiceStatus"`
	IsSearchAll     string `json:"isSearchAll"`
}

type listRequest struct {
	Token string `json:"token"`
}

type listPage struct {
	TotalPages    int              `json:"totalPages"`
	TotalElements int              `json:"totalElements"`
	Content       []InvoiceSummary `json:"content"`
}

type detailItem struct {
	Item      string `json:"item"`
	Quantity  Amount `json:"quantity"`
	UnitPrice Amount `json:"unitPrice"`
	Amount    Amount `json:"amount"`
}

type detailPage struct {
	Content []detailItem `json:"content"`
}

type datetimeReply struct {
	InvoiceDate string `json:"invoiceDate"`
	InvoiceTime string `json:"invoiceTime"`
}
