package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderColumn(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		dir      string
		wantCol  string
		wantDesc bool
	}{
		{"allowed column ascending", "total", "asc", "total", false},
		{"allowed column descending", "remaining_amount", "desc", "remaining_amount", true},
		{"case and spaces are ignored", "  Customer_Name ", " DESC ", "customer_name", true},
		{"empty field uses default", "", "", "charge_date", false},
		{"unknown column uses default", "items", "desc", "charge_date", true},
		{"injection attempt uses default", "total; DROP TABLE credit_sales;--", "asc", "charge_date", false},
		{"unknown direction sorts ascending", "sale_date", "sideways", "sale_date", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := orderColumn(creditSaleSortColumns, tt.field, tt.dir, "charge_date")
			assert.Equal(t, tt.wantCol, got.Column.Name)
			assert.Equal(t, tt.wantDesc, got.Desc)
		})
	}
}
