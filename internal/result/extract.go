// Package result turns the decision-maker's final text into a validated JSON document.
package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoJSON         = errors.New("no JSON object or array found")
	ErrUnterminated   = errors.New("JSON value is not terminated")
	ErrMalformedJSON  = errors.New("malformed JSON")
	errMismatchedNest = errors.New("mismatched bracket")
)

// Extract finds the first JSON object or array in raw and returns it verbatim.
// Code fences, a language tag or prose around the value are ignored; the value
// itself is never repaired, so malformed JSON is an error.
func Extract(raw string) (json.RawMessage, error) {
	text := strings.TrimSpace(raw)

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return nil, ErrNoJSON
	}

	end, err := matchingEnd(text, start)
	if err != nil {
		return nil, err
	}

	doc := []byte(text[start : end+1])
	if !json.Valid(doc) {
		return nil, fmt.Errorf("%w: %s", ErrMalformedJSON, firstSyntaxError(doc))
	}

	return json.RawMessage(doc), nil
}

// matchingEnd returns the index of the bracket closing the one at start.
// Brackets inside string literals are skipped.
func matchingEnd(text string, start int) (int, error) {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, fmt.Errorf("%w: %w at offset %d", ErrMalformedJSON, errMismatchedNest, i)
			}

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, nil
			}
		}
	}

	return 0, ErrUnterminated
}

func firstSyntaxError(doc []byte) string {
	var v any

	if err := json.Unmarshal(doc, &v); err != nil {
		return err.Error()
	}

	return "invalid"
}

// Decode extracts and decodes into generic values, keeping numbers as json.Number.
func Decode(raw string) (any, error) {
	doc, err := Extract(raw)
	if err != nil {
		return nil, err
	}

	return decodeDocument(doc)
}

func decodeDocument(doc json.RawMessage) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(doc))
	decoder.UseNumber()

	var v any
	if err := decoder.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}

	return v, nil
}

// ExtractInto extracts and unmarshals into v.
func ExtractInto(raw string, v any) error {
	doc, err := Extract(raw)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(doc, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}

	return nil
}
