package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/tidwall/gjson"
)

// Envelope is the normalised result of Call. Success is decided by the
// transport outcome, never by the body. On failure Data is nil, Status is
// the HTTP status or 500 and Err holds the cause for errors.Is.
type Envelope[T any] struct {
	Status    int            `json:"status"`
	Message   string         `json:"message"`
	Data      *T             `json:"data"`
	Timestamp float64        `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Success   bool           `json:"success"`
	Err       error          `json:"-"`
}

type wireEnvelope[T any] struct {
	Message  string         `json:"message"`
	Data     *T             `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

// Call posts body to path with "userId" and a fresh time-ordered
// "requestId" added, and normalises the outcome into an Envelope. It never
// returns an error; inspect Success and Err.
func Call[T any](ctx context.Context, t *Transport, path string, body map[string]any) Envelope[T] {
	start := time.Now()
	startTS := float64(start.UnixMilli()) / 1000

	userID := t.session.Snapshot().UserID()
	if userID == "" {
		userID = common.AnonymousUserID
	}
	requestID := newRequestID()

	final := make(map[string]any, len(body)+2)
	for k, v := range body {
		final[k] = v
	}
	final["userId"] = userID
	final["requestId"] = requestID

	fail := func(err error) Envelope[T] {
		env := Envelope[T]{
			Status:    http.StatusInternalServerError,
			Message:   err.Error(),
			Timestamp: startTS,
			RequestID: requestID,
			UserID:    userID,
			Err:       err,
		}
		var serr *StatusError
		if errors.As(err, &serr) {
			env.Status = serr.Code
			env.Message = serr.Message
		}
		return env
	}

	resp, err := t.do(ctx, path, final, requestID)
	if err != nil {
		return fail(err)
	}

	var wire wireEnvelope[T]
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return fail(fmt.Errorf("decode %s response: %w", path, err))
	}

	env := Envelope[T]{
		Status:    resp.Status,
		Message:   wire.Message,
		Data:      wire.Data,
		Timestamp: startTS,
		Metadata:  wire.Metadata,
		RequestID: gjson.GetBytes(resp.Body, "metadata.requestId").String(),
		UserID:    userID,
		Success:   true,
	}
	if env.Message == "" {
		env.Message = "Success"
	}
	if ts := gjson.GetBytes(resp.Body, "timestamp"); ts.Type == gjson.Number {
		env.Timestamp = ts.Float()
	}
	return env
}
