package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ExtractJSONObject locates the first balanced {...} object inside free-form model
// output and decodes it into a field map. Surrounding prose, code fences and
// trailing commas are tolerated. Key lookups are left to the caller.
func ExtractJSONObject(response string) (map[string]json.RawMessage, error) {
	cleaned := cleanModelOutput(response)
	if cleaned == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}
	// Some models wrap the whole object into a JSON string.
	if cleaned[0] == '"' {
		var asString string
		if err := json.Unmarshal([]byte(cleaned), &asString); err == nil {
			return ExtractJSONObject(asString)
		}
	}
	start := strings.IndexByte(cleaned, '{')
	if start == -1 {
		return nil, fmt.Errorf("no JSON object start found")
	}
	end := matchingBrace(cleaned, start)
	if end == -1 {
		return nil, fmt.Errorf("unterminated JSON object")
	}
	candidate := cleaned[start : end+1]

	var fields map[string]json.RawMessage
	err := json.Unmarshal([]byte(candidate), &fields)
	if err == nil {
		return fields, nil
	}
	repaired := stripTrailingCommas(candidate)
	if repaired != candidate {
		if err2 := json.Unmarshal([]byte(repaired), &fields); err2 == nil {
			return fields, nil
		}
	}
	return nil, fmt.Errorf("parse JSON: %w", err)
}

func cleanModelOutput(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil && strings.Contains(m[1], "{") {
		s = strings.TrimSpace(m[1])
	}
	return s
}

// stripTrailingCommas drops commas that directly precede a closing } or ],
// ignoring whitespace. String literals are copied untouched.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && strings.IndexByte(" \t\r\n", s[j]) >= 0 {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}

// matchingBrace returns the index of the brace closing the object opened at start,
// skipping braces inside string literals. It returns -1 when none is found.
func matchingBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// JSONText renders a raw JSON value as plain text: strings are unquoted,
// anything else keeps its JSON encoding. Null and missing values become "".
func JSONText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

// JSONStrings reads a raw value as a list of strings. A single string becomes a
// one-element list; non-string array members keep their JSON encoding.
func JSONStrings(raw json.RawMessage) []string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []string{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, it := range items {
			if v := JSONText(it); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	if v := JSONText(raw); v != "" {
		return []string{v}
	}
	return []string{}
}
