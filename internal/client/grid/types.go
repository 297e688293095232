package grid

import "github.com/dmitrijs2005/eumgrid/internal/wire"

// ColumnType is the semantic type of a column.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeDate    ColumnType = "date"
	TypeBoolean ColumnType = "boolean"
)

// Align is a column's text alignment.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Wire types shared with the dev server.
type (
	Header   = wire.Header
	Field    = wire.Field
	Metadata = wire.Metadata
	Request  = wire.Request
	Data     = wire.Data
)

// Column is the client-side column model derived from a Header.
type Column struct {
	Field      string     `json:"field"`
	Title      string     `json:"title"`
	Type       ColumnType `json:"type"`
	Width      string     `json:"width,omitempty"`
	Format     string     `json:"format,omitempty"`
	Filterable bool       `json:"filterable"`
	Sortable   bool       `json:"sortable"`
	Hidden     bool       `json:"hidden"`
	TextAlign  Align      `json:"textAlign"`
	ClassName  string     `json:"className"`
}

// Row maps a column field to its coerced value: float64, time.Time, nil,
// bool or string.
type Row map[string]any

// Response is the normalised grid response. A failed fetch has Status 500,
// empty Data, the server or transport message and the cause in Err.
type Response struct {
	Status    int            `json:"status"`
	Message   string         `json:"message"`
	Data      Data           `json:"data"`
	Timestamp float64        `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
	Err       error          `json:"-"`
}

// OK reports whether the response carries usable data.
func (r Response) OK() bool {
	return r.Err == nil && r.Status == 200
}

// ColumnOverride replaces selected Column attributes after mapping. Nil
// fields keep the mapped value.
type ColumnOverride struct {
	Title      *string     `json:"title,omitempty"`
	Type       *ColumnType `json:"type,omitempty"`
	Width      *string     `json:"width,omitempty"`
	Format     *string     `json:"format,omitempty"`
	Filterable *bool       `json:"filterable,omitempty"`
	Sortable   *bool       `json:"sortable,omitempty"`
	Hidden     *bool       `json:"hidden,omitempty"`
	TextAlign  *Align      `json:"textAlign,omitempty"`
	ClassName  *string     `json:"className,omitempty"`
}

func (o ColumnOverride) apply(c Column) Column {
	if o.Title != nil {
		c.Title = *o.Title
	}
	if o.Type != nil {
		c.Type = *o.Type
	}
	if o.Width != nil {
		c.Width = *o.Width
	}
	if o.Format != nil {
		c.Format = *o.Format
	}
	if o.Filterable != nil {
		c.Filterable = *o.Filterable
	}
	if o.Sortable != nil {
		c.Sortable = *o.Sortable
	}
	if o.Hidden != nil {
		c.Hidden = *o.Hidden
	}
	if o.TextAlign != nil {
		c.TextAlign = *o.TextAlign
	}
	if o.ClassName != nil {
		c.ClassName = *o.ClassName
	}
	return c
}

// ApplyOverrides returns a copy of cols with overrides keyed by field applied.
func ApplyOverrides(cols []Column, overrides map[string]ColumnOverride) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		if o, ok := overrides[c.Field]; ok {
			c = o.apply(c)
		}
		out[i] = c
	}
	return out
}
