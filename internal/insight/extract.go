package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const fence = "```"

// ParseError reports a reply that did not contain a JSON object. Raw keeps the
// full reply for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse AI response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractJSON finds the JSON object in a model reply. It tries, in order, the
// first ```json fenced block, the first fenced block of any language and the
// whole reply. Numbers are kept as json.Number.
func ExtractJSON(reply string) (map[string]any, error) {
	obj, err := decodeObject(jsonCandidate(reply))
	if err != nil {
		return nil, &ParseError{Raw: reply, Err: err}
	}
	return obj, nil
}

func jsonCandidate(reply string) string {
	if i := strings.Index(reply, fence+"json"); i >= 0 {
		return strings.TrimSpace(fencedBody(reply[i+len(fence)+len("json"):]))
	}
	if i := strings.Index(reply, fence); i >= 0 {
		body := reply[i+len(fence):]
		// Drop an info string such as "JSON" or "javascript" unless the
		// payload starts on the opening line.
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
			body = body[nl+1:]
		}
		return strings.TrimSpace(fencedBody(body))
	}
	return strings.TrimSpace(reply)
}

// fencedBody returns s up to its closing fence. A fence at the start of a line
// wins over one embedded in a line; without any, the rest of s is the body.
func fencedBody(s string) string {
	if i := strings.Index(s, "\n"+fence); i >= 0 {
		return s[:i]
	}
	if i := strings.Index(s, fence); i >= 0 {
		return s[:i]
	}
	return s
}

func decodeObject(s string) (map[string]any, error) {
	if s == "" {
		return nil, errors.New("empty JSON payload")
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("JSON payload is not an object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON object")
	}
	return obj, nil
}
