package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var errHTML = errors.New("received HTML where JSON was expected")

// messageBody is the {message} response most mutations return.
type messageBody struct {
	Message string `json:"message"`
}

func checkJSON(body []byte) ([]byte, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '<' {
		return nil, errHTML
	}
	return body, nil
}

// unwrapData decodes body into T, taking the "data" member when the body is
// an object that has one.
func unwrapData[T any](endpoint string, body []byte) (T, error) {
	var out T
	body, err := checkJSON(body)
	if err != nil {
		return out, decodeError(endpoint, err)
	}
	if len(body) > 0 && body[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return out, decodeError(endpoint, err)
		}
		if data, ok := obj["data"]; ok && isObject(data) {
			body = data
		}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, decodeError(endpoint, err)
	}
	return out, nil
}

// unwrapList decodes a list that may arrive bare, as {"data": [...]}, or as
// {"data": {<nested>: [...]}}. A missing or null list yields an empty slice.
func unwrapList[T any](endpoint string, body []byte, nested string) ([]T, error) {
	body, err := checkJSON(body)
	if err != nil {
		return nil, decodeError(endpoint, err)
	}
	raw, err := findList(body, nested)
	if err != nil {
		return nil, decodeError(endpoint, err)
	}

	out := make([]T, 0)
	if raw == nil {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, decodeError(endpoint, err)
	}
	if out == nil {
		out = make([]T, 0)
	}
	return out, nil
}

func findList(body []byte, nested string) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	switch {
	case len(body) == 0 || string(body) == "null":
		return nil, nil
	case body[0] == '[':
		return body, nil
	case body[0] != '{':
		return nil, fmt.Errorf("unexpected list body %.40q", body)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	if nested != "" {
		if inner, ok := obj[nested]; ok {
			return findList(inner, "")
		}
	}
	data, ok := obj["data"]
	if !ok {
		return nil, nil
	}
	return findList(data, nested)
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func decodeError(endpoint string, err error) *Error {
	return &Error{Kind: KindDecode, Endpoint: endpoint, Err: err}
}

// unwrapWhole decodes the full body into T, without looking for "data".
func unwrapWhole[T any](endpoint string, body []byte) (T, error) {
	var out T
	body, err := checkJSON(body)
	if err != nil {
		return out, decodeError(endpoint, err)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, decodeError(endpoint, err)
	}
	return out, nil
}

// message returns the body's message field. An empty body has no message.
func message(endpoint string, body []byte) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}
	m, err := unwrapWhole[messageBody](endpoint, body)
	if err != nil {
		return "", err
	}
	return m.Message, nil
}
