package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// JSONExtractor handles JSON files by flattening them into "path: value"
// lines, which embed far better than raw syntax.
type JSONExtractor struct{}

func (e *JSONExtractor) Extract(r io.Reader, filename string) (string, int, error) {
	data, err := io.ReadAll(io.LimitReader(r, 32<<20))
	if err != nil {
		return "", 0, err
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return "", 0, fmt.Errorf("parse json: %w", err)
	}

	var lines []string
	flattenJSON("", value, &lines)
	return strings.Join(lines, "\n"), 0, nil
}

func flattenJSON(path string, value any, lines *[]string) {
	switch v := value.(type) {
	case map[string]any:
		// Sorted keys keep extraction deterministic across runs.
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			flattenJSON(joinPath(path, key), v[key], lines)
		}
	case []any:
		for i, child := range v {
			flattenJSON(fmt.Sprintf("%s[%d]", path, i), child, lines)
		}
	case string:
		*lines = append(*lines, path+": "+v)
	case nil:
		*lines = append(*lines, path+": null")
	default:
		*lines = append(*lines, fmt.Sprintf("%s: %v", path, v))
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
