package grid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/client/session"
	"github.com/dmitrijs2005/eumgrid/internal/client/transport"
	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/dmitrijs2005/eumgrid/internal/logging"
	"github.com/tidwall/gjson"
)

// DefaultSource is metadata.source for requests built without one.
const DefaultSource = "web"

// Fetcher loads grid data. Implementations never fail outright: errors
// come back as a normalised Response.
type Fetcher interface {
	FetchGridData(ctx context.Context, req Request) Response
}

// poster is the slice of transport.Transport the API needs.
type poster interface {
	Do(ctx context.Context, path string, in any) (*transport.Response, error)
}

// API fetches grid data over the authenticated transport.
type API struct {
	transport poster
	logger    logging.Logger
}

var _ Fetcher = (*API)(nil)

// NewAPI returns an API posting through t.
func NewAPI(t *transport.Transport, logger logging.Logger) *API {
	if logger == nil {
		logger = logging.Nop()
	}
	return &API{transport: t, logger: logger}
}

// FetchGridData posts req to the grid endpoint. Missing parameter lists are
// sent as empty arrays.
func (a *API) FetchGridData(ctx context.Context, req Request) Response {
	if req.Parameters == nil {
		req.Parameters = []any{}
	}
	if req.ParameterTypes == nil {
		req.ParameterTypes = []string{}
	}

	a.logger.Info(ctx, "grid request started",
		"call_id", req.CallID, "parameters", len(req.Parameters), "user_id", req.Metadata.UserID)

	resp, err := a.transport.Do(ctx, common.GridDataPath, req)
	if err != nil {
		a.logger.Error(ctx, "grid request failed", "call_id", req.CallID, "error", err)
		return failedResponse(err)
	}

	var out Response
	if err := decodeResponse(resp.Body, &out); err != nil {
		a.logger.Error(ctx, "grid response malformed", "call_id", req.CallID, "error", err)
		return failedResponse(err)
	}

	a.logger.Info(ctx, "grid request completed",
		"call_id", req.CallID, "status", out.Status, "rows", len(out.Data.Rows), "columns", len(out.Data.Headers))
	return out
}

func decodeResponse(body []byte, out *Response) error {
	var wire struct {
		Status   int            `json:"status"`
		Message  string         `json:"message"`
		Data     *Data          `json:"data"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return fmt.Errorf("decode grid response: %w", err)
	}

	out.Status = wire.Status
	out.Message = wire.Message
	out.Metadata = wire.Metadata
	if wire.Data != nil {
		out.Data = *wire.Data
	}
	out.Data = out.Data.Normalised()
	if ts := gjson.GetBytes(body, "timestamp"); ts.Type == gjson.Number {
		out.Timestamp = ts.Float()
	}
	return nil
}

// failedResponse is the normalised 500 response for err.
func failedResponse(err error) Response {
	msg := err.Error()
	var serr *transport.StatusError
	if errors.As(err, &serr) && serr.Message != "" {
		msg = serr.Message
	}
	return Response{
		Status:    http.StatusInternalServerError,
		Message:   msg,
		Data:      Data{}.Normalised(),
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
		Metadata:  map[string]any{},
		Err:       err,
	}
}

// NewRequest builds a grid request. An empty userID becomes "admin".
func NewRequest(callID string, params []any, types []string, userID string) Request {
	return RequestFactory{}.build(callID, params, types, userID)
}

// RequestFactory builds requests for the session's user.
type RequestFactory struct {
	Session session.Accessor
	Source  string
	Now     func() time.Time
}

// New builds a request for callID with the logged-in user's id, or
// "admin" when nobody is logged in.
func (f RequestFactory) New(callID string, params []any, types []string) Request {
	var userID string
	if f.Session != nil {
		userID = f.Session.Snapshot().UserID()
	}
	return f.build(callID, params, types, userID)
}

func (f RequestFactory) build(callID string, params []any, types []string, userID string) Request {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	source := f.Source
	if source == "" {
		source = DefaultSource
	}
	if userID == "" {
		userID = common.DefaultGridUserID
	}

	t := now()
	return Request{
		CallID:         callID,
		Parameters:     params,
		ParameterTypes: types,
		Metadata: Metadata{
			Source:    source,
			RequestID: fmt.Sprintf("REQ-%d", t.UnixMilli()),
			UserID:    userID,
		},
		Timestamp: t.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}
