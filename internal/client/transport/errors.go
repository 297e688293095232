package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/tidwall/gjson"
)

// StatusError is a non-2xx response. Message is the server's "message"
// field when present, otherwise the status text.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Is lets a 401 match common.ErrUnauthorized.
func (e *StatusError) Is(target error) bool {
	return e.Code == http.StatusUnauthorized && target == common.ErrUnauthorized
}

func newStatusError(code int, body []byte) *StatusError {
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = http.StatusText(code)
	}
	return &StatusError{Code: code, Message: msg}
}

// mapError classifies a failed exchange. Caller cancellation is returned
// as is; every other network failure, timeouts included, becomes
// common.ErrUnavailable.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: request timed out: %w", common.ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
}
