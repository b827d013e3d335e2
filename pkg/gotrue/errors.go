package gotrue

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrNetwork wraps transport failures (DNS, refused connections, timeouts).
	ErrNetwork = errors.New("gotrue: network error")
	// ErrInvalidConfig is returned by New for a malformed base URL or empty key.
	ErrInvalidConfig = errors.New("gotrue: invalid configuration")
	// ErrUnexpectedResponse is returned when a 2xx body cannot be decoded.
	ErrUnexpectedResponse = errors.New("gotrue: unexpected response")
)

// Error is a non-2xx reply from the auth service.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("gotrue: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(http.StatusText(e.Status))
	}
	fmt.Fprintf(&b, " (status=%d", e.Status)
	if e.Code != "" {
		b.WriteString(", code=" + e.Code)
	}
	b.WriteString(")")
	return b.String()
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}

// errorBody covers the shapes GoTrue has used over time: the current
// {"code":400,"error_code":"...","msg":"..."}, the OAuth style
// {"error":"...","error_description":"..."} and {"message":"..."}.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func parseError(status int, body []byte) *Error {
	e := &Error{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		e.Message = strings.TrimSpace(string(body))
		if len(e.Message) > 200 {
			e.Message = e.Message[:200]
		}
		return e
	}

	e.Code = eb.ErrorCode
	if e.Code == "" && len(eb.Code) > 0 {
		if s, err := strconv.Unquote(string(eb.Code)); err == nil {
			e.Code = s
		}
	}
	if e.Code == "" {
		e.Code = eb.Error
	}

	for _, m := range []string{eb.Msg, eb.Message, eb.ErrorDescription, eb.Error} {
		if m != "" {
			e.Message = m
			break
		}
	}
	return e
}
