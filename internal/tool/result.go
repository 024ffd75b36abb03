package tool

import (
	"encoding/json"

	perrors "github.com/p-blackswan/questplan/internal/errors"
)

// Result codes beyond the shared error codes.
const (
	CodeUnknownTool perrors.Code = "unknown_tool"
	CodeInternal                 = perrors.CodeInternal
)

// Result is the tagged outcome of an operation.
type Result struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Code    perrors.Code `json:"code,omitempty"`
	Data    any          `json:"data,omitempty"`
}

// Text is the message shown in chat: Message on success, Error otherwise.
func (r Result) Text() string {
	if r.Success {
		return r.Message
	}
	return r.Error
}

// JSON encodes the result as tool output for the model.
func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(Result{Error: "result could not be encoded", Code: CodeInternal})
	}
	return string(b)
}

// Fail converts err into a failure result. Not-found and denied collapse
// into one message so the caller cannot tell them apart.
func Fail(err error) Result {
	code := perrors.CodeOf(err)
	msg := err.Error()
	switch code {
	case perrors.CodeNotFound:
		msg = perrors.ErrNotFound.Error()
	case perrors.CodeUnauthenticated:
		msg = perrors.ErrUnauthenticated.Error()
	}
	return Result{Error: msg, Code: code}
}

// ok builds a success result.
func ok(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}
