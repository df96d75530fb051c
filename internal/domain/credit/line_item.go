package credit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/retailpos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// LineItem is one product line of a credit sale
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// LineItemInput describes a line before validation; Total is optional
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       *decimal.Decimal
}

// NewLineItem validates a line and computes its total when not provided
func NewLineItem(in LineItemInput) (LineItem, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return LineItem{}, NewValidationError(CodeInvalidItems, "Item description cannot be empty")
	}
	if !in.Quantity.IsPositive() {
		return LineItem{}, NewValidationError(CodeInvalidItems, fmt.Sprintf("Item %q quantity must be positive", desc))
	}
	if in.UnitPrice.IsNegative() {
		return LineItem{}, NewValidationError(CodeInvalidItems, fmt.Sprintf("Item %q unit price cannot be negative", desc))
	}

	total := in.Quantity.Mul(in.UnitPrice)
	if in.Total != nil {
		if in.Total.IsNegative() {
			return LineItem{}, NewValidationError(CodeInvalidItems, fmt.Sprintf("Item %q total cannot be negative", desc))
		}
		total = *in.Total
	}

	return LineItem{
		Description: desc,
		Quantity:    in.Quantity,
		UnitPrice:   valueobject.Round2(in.UnitPrice),
		Total:       valueobject.Round2(total),
	}, nil
}

// LineItems is the ordered item list, stored as a JSON column
type LineItems []LineItem

// Sum returns round2 of the item totals
func (items LineItems) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total)
	}
	return valueobject.Round2(sum)
}

// Summary joins the item descriptions for use as a sale description
func (items LineItems) Summary() string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.Description)
	}
	return strings.Join(parts, ", ")
}

// Value implements driver.Valuer
func (items LineItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (items *LineItems) Scan(value interface{}) error {
	if value == nil {
		*items = LineItems{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(raw) == 0 {
		*items = LineItems{}
		return nil
	}
	return json.Unmarshal(raw, items)
}
