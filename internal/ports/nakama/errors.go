package nakama

import (
	"errors"
	"fmt"
)

// HTTPError is a non-2xx response from the Nakama HTTP API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err wraps an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// SocketError is an error envelope returned on the realtime socket.
type SocketError struct {
	Code    int32
	Message string
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("socket error %d: %s", e.Code, e.Message)
}

var (
	ErrSocketClosed  = errors.New("socket closed")
	ErrSendQueueFull = errors.New("send queue full")
)
