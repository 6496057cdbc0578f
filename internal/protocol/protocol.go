// Package protocol defines the wire contract between a command client and
// the executor embedded in the scene host: one newline-terminated JSON
// object per direction, one exchange per connection.
package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recognized command types.
const (
	TypePing        = "ping"
	TypeExecuteCode = "execute_code"
)

// Command is one request sent to the executor, discriminated by Type.
type Command struct {
	Type string `json:"type"`
	Code string `json:"code,omitempty"`
}

// Response is one reply from the executor, discriminated by Status.
type Response struct {
	Status    string `json:"status"`
	Result    string `json:"result,omitempty"`
	Message   string `json:"message,omitempty"`
	Traceback string `json:"traceback,omitempty"`
}

func (r *Response) OK() bool {
	return r.Status == StatusSuccess
}

func Success(result, message string) *Response {
	return &Response{Status: StatusSuccess, Result: result, Message: message}
}

func Errorf(format string, args ...any) *Response {
	return &Response{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// Encode serializes v followed by the line terminator. JSON string escaping
// guarantees the payload itself contains no raw newline.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
