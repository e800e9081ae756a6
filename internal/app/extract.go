package app

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object in response")

var fence = regexp.MustCompile("(?s)```[A-Za-z]*[ \\t]*\\r?\\n?(.*?)```")

// ExtractJSON returns the single JSON value in a model answer. A Markdown
// fence is preferred; otherwise the first balanced object or array that
// parses is used.
func ExtractJSON(text string) (json.RawMessage, error) {
	if m := fence.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if json.Valid([]byte(inner)) {
			return json.RawMessage(inner), nil
		}
		if v, ok := firstBalanced(inner); ok {
			return v, nil
		}
	}
	if v, ok := firstBalanced(text); ok {
		return v, nil
	}
	return nil, ErrNoJSON
}

// firstBalanced scans for '{' or '[' and returns the first balanced span that
// is valid JSON. Brackets inside strings and escaped quotes are ignored.
func firstBalanced(s string) (json.RawMessage, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' && s[start] != '[' {
			continue
		}
		end := matchClose(s, start)
		if end < 0 {
			continue
		}
		if cand := s[start : end+1]; json.Valid([]byte(cand)) {
			return json.RawMessage(cand), true
		}
	}
	return nil, false
}

func matchClose(s string, start int) int {
	var stack []byte
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
