package mcpserver

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func boolPtr(v bool) *bool { return &v }

// decodeArg decodes an object argument into target. Agents send objects
// either inline or as a JSON string; both are accepted. Unknown fields are
// rejected.
func decodeArg(req mcp.CallToolRequest, key string, target any) (bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return false, nil
	}
	var data []byte
	if str, isStr := raw.(string); isStr {
		if str == "" {
			return false, nil
		}
		data = []byte(str)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return false, fmt.Errorf("%s: %w", key, err)
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return true, nil
}

// optionalInt returns a pointer to an integer argument, or nil when absent.
func optionalInt(req mcp.CallToolRequest, key string) *int {
	if _, ok := req.GetArguments()[key]; !ok {
		return nil
	}
	v := req.GetInt(key, 0)
	return &v
}
