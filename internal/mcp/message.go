package mcp

import (
	"encoding/json"
	"fmt"
)

const jsonrpcVersion = "2.0"

// ID is a JSON-RPC request id, which may arrive as a number or a string.
type ID struct {
	num *int64
	str *string
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.num != nil {
		return json.Marshal(*id.num)
	}
	if id.str != nil {
		return json.Marshal(*id.str)
	}
	return []byte("null"), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var num int64
	if err := json.Unmarshal(data, &num); err == nil {
		id.num = &num
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		id.str = &str
		return nil
	}

	return fmt.Errorf("id must be number, string, or null")
}

type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

func (m *Message) IsRequest() bool {
	return m.ID != nil && m.Method != ""
}

func (m *Message) IsNotification() bool {
	return m.ID == nil && m.Method != ""
}

func newResponse(id ID, result any) (*Message, error) {
	rawResult, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &Message{
		JSONRPC: jsonrpcVersion,
		ID:      &id,
		Result:  rawResult,
	}, nil
}

func newErrorResponse(id ID, code int, message string) *Message {
	return &Message{
		JSONRPC: jsonrpcVersion,
		ID:      &id,
		Error: &RPCError{
			Code:    code,
			Message: message,
		},
	}
}
