package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// creditSaleSortColumns lists the credit_sales columns a listing may be ordered by.
var creditSaleSortColumns = map[string]struct{}{
	"created_at":       {},
	"updated_at":       {},
	"customer_name":    {},
	"sale_date":        {},
	"charge_date":      {},
	"total":            {},
	"remaining_amount": {},
	"status":           {},
}

// orderColumn turns a requested sort into a quoted ORDER BY column. Columns
// outside allowed fall back to def, and any direction but "desc" sorts ascending,
// so caller input never reaches the SQL text.
func orderColumn(allowed map[string]struct{}, field, dir, def string) clause.OrderByColumn {
	col := strings.ToLower(strings.TrimSpace(field))
	if _, ok := allowed[col]; !ok {
		col = def
	}
	return clause.OrderByColumn{
		Column: clause.Column{Table: clause.CurrentTable, Name: col},
		Desc:   strings.EqualFold(strings.TrimSpace(dir), "desc"),
	}
}
