package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// span key synonyms models like to invent
var spanKeyRenames = map[string]string{
	"class":      "extraction_class",
	"label":      "extraction_class",
	"text":       "extraction_text",
	"value":      "extraction_text",
	"start":      "start_pos",
	"start_char": "start_pos",
	"end":        "end_pos",
	"end_char":   "end_pos",
}

var spanAllowedKeys = map[string]struct{}{
	"extraction_class": {}, "extraction_text": {}, "attributes": {},
	"start_pos": {}, "end_pos": {}, "group_index": {}, "extraction_index": {},
}

// NormalizeAndSanitizeSpans coerces a loosely shaped model reply into the
// strict span payload:
//   - Accepts a bare array or an object wrapping it under "extractions"
//   - Renames known key synonyms (class -> extraction_class, start -> start_pos)
//   - Coerces integral floats to ints for offset/index fields, drops the rest
//   - Drops entries missing an extraction_class
//   - Removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeAndSanitizeSpans(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		if arr, ok := t["extractions"].([]any); ok {
			items = arr
		} else if arr, ok := t["spans"].([]any); ok {
			items = arr
		} else {
			return nil, nil, fmt.Errorf("sanitize: no extractions array in object")
		}
	default:
		return nil, nil, fmt.Errorf("sanitize: unexpected top-level %T", v)
	}

	var dropped []string
	out := make([]any, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("extractions[%d](not object)", i))
			continue
		}

		for from, to := range spanKeyRenames {
			if v, ok := m[from]; ok {
				if _, exists := m[to]; !exists {
					m[to] = v
				}
				delete(m, from)
			}
		}

		cls, _ := m["extraction_class"].(string)
		if strings.TrimSpace(cls) == "" {
			dropped = append(dropped, fmt.Sprintf("extractions[%d](no class)", i))
			continue
		}
		if _, ok := m["extraction_text"].(string); !ok {
			// text is required by the schema; an absent value means the span
			// carries nothing worth grounding
			if m["extraction_text"] == nil {
				dropped = append(dropped, fmt.Sprintf("extractions[%d](no text)", i))
				continue
			}
			m["extraction_text"] = fmt.Sprintf("%v", m["extraction_text"])
		}

		for _, k := range []string{"start_pos", "end_pos", "group_index", "extraction_index"} {
			if v, ok := m[k]; ok {
				switch n := v.(type) {
				case float64:
					if n == math.Trunc(n) && n >= 0 {
						m[k] = int(n)
					} else {
						delete(m, k)
						dropped = append(dropped, fmt.Sprintf("extractions[%d].%s(non-integer)", i, k))
					}
				case nil:
					delete(m, k)
				default:
					delete(m, k)
					dropped = append(dropped, fmt.Sprintf("extractions[%d].%s(type)", i, k))
				}
			}
		}

		if v, ok := m["attributes"]; ok {
			if _, isMap := v.(map[string]any); !isMap {
				delete(m, "attributes")
				dropped = append(dropped, fmt.Sprintf("extractions[%d].attributes(type)", i))
			}
		}

		for k := range m {
			if _, ok := spanAllowedKeys[k]; !ok {
				delete(m, k)
				dropped = append(dropped, fmt.Sprintf("extractions[%d].%s(unknown)", i, k))
			}
		}

		out = append(out, m)
	}

	b, err := json.Marshal(map[string]any{"extractions": out})
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return b, dropped, nil
}

// StripCodeFences removes a surrounding markdown code fence if present.
func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	// drop a language tag like "json" on the fence line
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		first := strings.TrimSpace(t[:i])
		if len(first) <= 8 && !strings.ContainsAny(first, "{}[]") {
			t = t[i+1:]
		}
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
