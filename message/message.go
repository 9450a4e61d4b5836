// Package message defines the request/response envelope exchanged between
// client and server.
//
// Exactly one Request is sent per logical call and exactly one Response
// answers it. The protocol is strictly request/response: there are no
// unsolicited server pushes.
package message

import (
	"fmt"

	"remotecmd/value"
)

// ControlTag marks a Response's semantic kind.
type ControlTag byte

const (
	TagOK    ControlTag = iota // success, no meaningful return value
	TagError                   // failure, payload is a *value.Error
	TagData                    // success, payload is the return value
	TagHelp                    // documentation payload
	TagClose                   // session-termination acknowledgement
)

func (t ControlTag) String() string {
	switch t {
	case TagOK:
		return "OK"
	case TagError:
		return "ERROR"
	case TagData:
		return "DATA"
	case TagHelp:
		return "HELP"
	case TagClose:
		return "CLOSE"
	}
	return fmt.Sprintf("ControlTag(%d)", byte(t))
}

// Request carries the data for a single command invocation.
type Request struct {
	Command string
	Args    []any
	Kwargs  map[string]any
}

// Response carries the result of a single command invocation.
type Response struct {
	Tag     ControlTag
	Payload any
}

// ErrorResponse builds an ERROR response with the given kind tag.
func ErrorResponse(kind, format string, a ...any) *Response {
	return &Response{
		Tag:     TagError,
		Payload: &value.Error{Kind: kind, Message: fmt.Sprintf(format, a...)},
	}
}

// EncodeRequest serializes req as the fixed three-element list
// [command, args, kwargs].
func EncodeRequest(req *Request) ([]byte, error) {
	args := make([]any, len(req.Args))
	copy(args, req.Args)
	kwargs := map[string]any{}
	for k, v := range req.Kwargs {
		kwargs[k] = v
	}
	return value.Marshal([]any{req.Command, args, kwargs})
}

// DecodeRequest parses one Request, validating the envelope shape.
func DecodeRequest(data []byte) (*Request, error) {
	v, err := value.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	fields, ok := v.([]any)
	if !ok || len(fields) != 3 {
		return nil, fmt.Errorf("%w: request envelope must be a 3-element list", value.ErrCodec)
	}
	command, ok := fields[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: request command must be a string", value.ErrCodec)
	}
	args, ok := fields[1].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: request args must be a list", value.ErrCodec)
	}
	kwargs, ok := fields[2].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: request kwargs must be a mapping", value.ErrCodec)
	}
	return &Request{Command: command, Args: args, Kwargs: kwargs}, nil
}

// EncodeResponse serializes resp as the fixed two-element list
// [tag, payload].
func EncodeResponse(resp *Response) ([]byte, error) {
	return value.Marshal([]any{int64(resp.Tag), resp.Payload})
}

// DecodeResponse parses one Response, validating the envelope shape and tag.
func DecodeResponse(data []byte) (*Response, error) {
	v, err := value.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	fields, ok := v.([]any)
	if !ok || len(fields) != 2 {
		return nil, fmt.Errorf("%w: response envelope must be a 2-element list", value.ErrCodec)
	}
	tag, ok := fields[0].(int64)
	if !ok || tag < 0 || tag > int64(TagClose) {
		return nil, fmt.Errorf("%w: invalid response tag", value.ErrCodec)
	}
	return &Response{Tag: ControlTag(tag), Payload: fields[1]}, nil
}
