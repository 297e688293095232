package procedures

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/dmitrijs2005/eumgrid/internal/dateutil"
	"github.com/dmitrijs2005/eumgrid/internal/wire"
)

// maxSalesDays bounds the P_1010 date range.
const maxSalesDays = 366

var regions = []string{"North", "South", "East", "West"}

// Fixtures returns a registry with the demo procedures:
//
//	P_1010 daily sales between two YYYYMMDD dates (default: this month)
//	P_1020 product catalogue
//	P_1030 an empty result with headers only
func Fixtures(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	r := NewRegistry()
	r.Register("P_1010", dailySales(now))
	r.Register("P_1020", products)
	r.Register("P_1030", emptyReport)
	return r
}

func dailySales(now func() time.Time) Func {
	h := dateutil.Helpers{Now: now}

	return func(_ context.Context, c Call) (wire.Data, error) {
		from := h.FirstWeekdayOfMonth(time.Time{})
		to := h.Today()
		if len(c.Params) > 0 {
			from = fmt.Sprint(c.Params[0])
		}
		if len(c.Params) > 1 {
			to = fmt.Sprint(c.Params[1])
		}

		start, ok := dateutil.ParseYYYYMMDD(from, time.UTC)
		if !ok {
			return wire.Data{}, fmt.Errorf("%w: from date %q is not YYYYMMDD", common.ErrValidation, from)
		}
		end, ok := dateutil.ParseYYYYMMDD(to, time.UTC)
		if !ok {
			return wire.Data{}, fmt.Errorf("%w: to date %q is not YYYYMMDD", common.ErrValidation, to)
		}
		if end.Before(start) {
			return wire.Data{}, fmt.Errorf("%w: %s is before %s", common.ErrValidation, to, from)
		}
		if end.Sub(start) > maxSalesDays*24*time.Hour {
			return wire.Data{}, fmt.Errorf("%w: range exceeds %d days", common.ErrValidation, maxSalesDays)
		}

		var rows []map[string]any
		i := 0
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			amount := 1000 + float64((i*37)%500) + 0.25
			rows = append(rows, map[string]any{
				"sale_day": dateutil.FormatYYYYMMDD(d),
				"region":   regions[i%len(regions)],
				"amount":   strconv.FormatFloat(amount, 'f', 2, 64),
				"qty":      10 + (i*7)%40,
				"closed":   d.Before(end),
				"row_hash": fmt.Sprintf("%08x", uint32(i)*2654435761),
			})
			i++
		}

		return wire.Data{
			Headers: []wire.Header{
				{Seq: 1, ColumnName: "Day", ColumnFormat: "d", Width: 100},
				{Seq: 2, ColumnName: "Region", ColumnFormat: "S", Width: 100},
				{Seq: 3, ColumnName: "Amount", ColumnFormat: "F", ColumnFormatNumber: 2, Width: 120, FooterFormat: "sum"},
				{Seq: 4, ColumnName: "Qty", ColumnFormat: "i", Width: 80},
				{Seq: 5, ColumnName: "Closed", Width: 80},
				{Seq: 6, ColumnName: "Hash", ColumnFormat: "s", Width: 0},
			},
			DataField: []wire.Field{
				{Name: "sale_day", Type: "string"},
				{Name: "region", Type: "string"},
				{Name: "amount", Type: "number"},
				{Name: "qty", Type: "number"},
				{Name: "closed", Type: "boolean"},
				{Name: "row_hash", Type: "string"},
			},
			Rows: rows,
		}, nil
	}
}

func products(_ context.Context, _ Call) (wire.Data, error) {
	return wire.Data{
		Headers: []wire.Header{
			{Seq: 1, ColumnName: "Code", ColumnFormat: "SR", Width: 80},
			{Seq: 2, ColumnName: "Name", ColumnFormat: "s", Width: 200},
			{Seq: 3, ColumnName: "Price", ColumnFormat: "F", Width: 100},
			{Seq: 4, ColumnName: "Active", Width: 60},
			{Seq: 5, ColumnName: "Created", ColumnFormat: "dt", Width: 120},
		},
		DataField: []wire.Field{
			{Name: "code", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "price", Type: "number"},
			{Name: "active", Type: "boolean"},
			{Name: "created", Type: "date"},
		},
		Rows: []map[string]any{
			{"code": "A-100", "name": "Widget", "price": 9.5, "active": true, "created": "2024-01-15T10:00:00Z"},
			{"code": "A-200", "name": "Gadget", "price": "24.00", "active": 1, "created": "20240201"},
			{"code": "B-300", "name": "gizmo", "price": 120, "active": "", "created": "2023-12-31"},
			{"code": "B-400", "name": "Doohickey", "price": nil, "active": false},
		},
	}, nil
}

func emptyReport(_ context.Context, _ Call) (wire.Data, error) {
	return wire.Data{
		Headers:   []wire.Header{{Seq: 1, ColumnName: "Nothing", ColumnFormat: "s", Width: 100}},
		DataField: []wire.Field{{Name: "nothing", Type: "string"}},
	}, nil
}
