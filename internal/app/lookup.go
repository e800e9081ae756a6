package app

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

/********** tiny helpers over decoded feed maps **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the text at path or "". Numbers are formatted, XML
// elements with attributes contribute their "#text".
func lookupStr(m map[string]any, path string) string {
	return strings.TrimSpace(asText(lookupAny(m, path)))
}

func asText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case map[string]any:
		if s, ok := t["#text"].(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: first path holding a parseable, non-zero number.
func getFloatFlexible(m map[string]any, paths ...string) float64 {
	for _, k := range paths {
		if f := toFloat(lookupAny(m, k)); f != 0 {
			return f
		}
	}
	return 0
}

func toFloat(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		f, _ = t.Float64()
	case string:
		f = ParseNumber(t)
	case map[string]any:
		if s, ok := t["#text"].(string); ok {
			f = ParseNumber(s)
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseNumber reads human-formatted numbers such as "1.250.000", "8,5",
// "€ 299,000" or "120 m2". It returns 0 when nothing sensible is found.
func ParseNumber(s string) float64 {
	var b strings.Builder
	started := false
scan:
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
			started = true
		case r == '.' || r == ',':
			if started {
				b.WriteRune(r)
			}
		case r == '-' && !started:
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '\'':
			// thousands spacing
		default:
			if started {
				break scan
			}
		}
	}
	num := strings.TrimRight(b.String(), ".,")
	if num == "" || num == "-" {
		return 0
	}

	dots, commas := strings.Count(num, "."), strings.Count(num, ",")
	switch {
	case dots > 0 && commas > 0:
		// the separator that comes last is the decimal one
		if strings.LastIndex(num, ",") > strings.LastIndex(num, ".") {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.Replace(num, ",", ".", 1)
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case commas > 1:
		num = strings.ReplaceAll(num, ",", "")
	case commas == 1:
		if groupedThousands(num, ",") {
			num = strings.ReplaceAll(num, ",", "")
		} else {
			num = strings.Replace(num, ",", ".", 1)
		}
	case dots > 1:
		num = strings.ReplaceAll(num, ".", "")
	case dots == 1:
		if groupedThousands(num, ".") {
			num = strings.ReplaceAll(num, ".", "")
		}
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// groupedThousands reports whether a single separator is followed by exactly
// three digits, as in "299,000" or "1.250".
func groupedThousands(num, sep string) bool {
	i := strings.LastIndex(num, sep)
	if i <= 0 || strings.TrimLeft(num[:i], "-") == "0" {
		return false
	}
	return len(num)-i-1 == 3
}

// listOf flattens a value that may be a single item, a slice, or a Kyero
// wrapper like {"image": [...]} into a slice.
func listOf(v any, wrappers ...string) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case map[string]any:
		for _, w := range wrappers {
			if inner, ok := t[w]; ok {
				return listOf(inner)
			}
		}
		return []any{t}
	default:
		return []any{t}
	}
}

// firstSliceStrings: accept lists of strings or {url/src/name} objects.
func firstSliceStrings(m map[string]any, paths []string, wrappers ...string) []string {
	for _, k := range paths {
		raw := listOf(lookupAny(m, k), wrappers...)
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				for _, key := range []string{"url", "src", "name", "#text"} {
					if s := strings.TrimSpace(asText(t[key])); s != "" {
						out = append(out, s)
						break
					}
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// truthy accepts true, "yes", "1", "true", "si" and non-zero numbers.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		f, _ := t.Float64()
		return f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "1", "true", "y", "si", "sí":
			return true
		}
	case map[string]any:
		return truthy(t["#text"])
	}
	return false
}

func anyTruthy(m map[string]any, paths ...string) bool {
	for _, p := range paths {
		if truthy(lookupAny(m, p)) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
