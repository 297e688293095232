package grid

import (
	"fmt"
	"strings"
)

type presentation struct {
	typ   ColumnType
	align Align
}

// formatCodes maps lower-cased format codes to their presentation. The
// exact code "S" is matched before this table.
var formatCodes = map[string]presentation{
	"s":  {TypeString, AlignLeft},
	"sr": {TypeString, AlignRight},
	"i":  {TypeNumber, AlignRight},
	"f":  {TypeNumber, AlignRight},
	"fm": {TypeNumber, AlignCenter},
	"d":  {TypeDate, AlignCenter},
	"dd": {TypeDate, AlignCenter},
	"dt": {TypeDate, AlignCenter},
	"da": {TypeDate, AlignCenter},
}

var centeredString = presentation{TypeString, AlignCenter}

// fieldTypes is the fallback for unrecognised codes, keyed by the
// lower-cased Field.Type. Anything else is a left-aligned string.
var fieldTypes = map[string]presentation{
	"number":  {TypeNumber, AlignRight},
	"date":    {TypeDate, AlignCenter},
	"boolean": {TypeBoolean, AlignCenter},
}

// lookupPresentation resolves a format code, falling back to the paired
// field's type. A recognised code wins over the field type. known is false
// when neither the code nor a field is available.
func lookupPresentation(code string, field *Field) (p presentation, known bool) {
	if code == "S" {
		return centeredString, true
	}
	if p, ok := formatCodes[strings.ToLower(code)]; ok {
		return p, true
	}
	if field == nil {
		return presentation{TypeString, AlignLeft}, false
	}
	if p, ok := fieldTypes[strings.ToLower(field.Type)]; ok {
		return p, true
	}
	return presentation{TypeString, AlignLeft}, true
}

// numberFormat derives the display format. Only f/F and i/I produce one.
func numberFormat(code string, decimals int) string {
	switch code {
	case "f", "F":
		if decimals > 0 {
			return fmt.Sprintf("{0:n%d}", decimals)
		}
		return "{0:n}"
	case "i", "I":
		return "{0:n0}"
	}
	return ""
}

// MapColumns derives one Column per header, in input order. headers[i] is
// paired with fields[i] by position only; names are never matched. A header
// without a paired field gets the placeholder field name col_<i>.
func MapColumns(headers []Header, fields []Field) []Column {
	cols := make([]Column, 0, len(headers))

	for i, h := range headers {
		var field *Field
		if i < len(fields) {
			field = &fields[i]
		}

		p, known := lookupPresentation(h.ColumnFormat, field)

		c := Column{
			Field:      fmt.Sprintf("col_%d", i),
			Title:      h.ColumnName,
			Type:       p.typ,
			Format:     numberFormat(h.ColumnFormat, h.ColumnFormatNumber),
			Filterable: true,
			Sortable:   true,
			Hidden:     h.Width == 0,
			TextAlign:  p.align,
		}
		if field != nil && field.Name != "" {
			c.Field = field.Name
		}
		if h.Width > 0 {
			c.Width = fmt.Sprintf("%dpx", h.Width)
		}
		if known {
			c.ClassName = "eum-text-" + string(p.align)
		}

		cols = append(cols, c)
	}

	return cols
}

// VisibleColumns filters out hidden columns, keeping order.
func VisibleColumns(cols []Column) []Column {
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	return out
}
