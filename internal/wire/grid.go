// Package wire holds the JSON shapes of the grid endpoint shared by the
// client pipeline and the dev server.
package wire

import (
	"fmt"

	"github.com/dmitrijs2005/eumgrid/internal/common"
)

// Header describes one server column. The JSON names follow the wire
// format, including the "comumntype" spelling.
type Header struct {
	Seq                  int    `json:"seq"`
	BandName             string `json:"bandname"`
	ColumnName           string `json:"columnname"`
	ColumnFormat         string `json:"columnformat"`
	ColumnFormatNumber   int    `json:"columnformatnumber"`
	ColumnType           string `json:"comumntype"`
	Width                int    `json:"width"`
	FooterName           string `json:"footername"`
	FooterFormat         string `json:"footerformat"`
	ProtocolFormatString string `json:"protocolFormatString"`
}

// Field names the row key for the header at the same index.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Metadata travels with every grid request.
type Metadata struct {
	Source    string `json:"source"`
	RequestID string `json:"requestId"`
	UserID    string `json:"userId"`
}

// Request asks the server to run a stored procedure. Parameters and
// ParameterTypes are positional and of equal length.
type Request struct {
	CallID         string   `json:"callId"`
	Parameters     []any    `json:"parameters"`
	ParameterTypes []string `json:"parametertype"`
	Metadata       Metadata `json:"metadata"`
	Timestamp      string   `json:"timestamp"`
}

// Validate rejects requests that must never reach the network.
func (r Request) Validate() error {
	if r.CallID == "" {
		return fmt.Errorf("%w: callId is required", common.ErrValidation)
	}
	if r.ParameterTypes != nil && len(r.Parameters) != len(r.ParameterTypes) {
		return fmt.Errorf("%w: %d parameters but %d parameter types",
			common.ErrValidation, len(r.Parameters), len(r.ParameterTypes))
	}
	return nil
}

// Data is the payload of a grid response.
type Data struct {
	Headers   []Header         `json:"headers"`
	DataField []Field          `json:"datafield"`
	Rows      []map[string]any `json:"rows"`
}

// Normalised returns d with nil slices replaced by empty ones, so they
// encode as [] rather than null.
func (d Data) Normalised() Data {
	if d.Headers == nil {
		d.Headers = []Header{}
	}
	if d.DataField == nil {
		d.DataField = []Field{}
	}
	if d.Rows == nil {
		d.Rows = []map[string]any{}
	}
	return d
}
