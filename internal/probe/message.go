package probe

import (
	"encoding/json"
	"fmt"
	"io"
)

// The probe speaks line-delimited JSON-RPC 2.0 over the child's stdio.
const (
	jsonrpcVersion  = "2.0"
	protocolVersion = "2024-11-05"

	methodInitialize = "initialize"
	methodToolsList  = "tools/list"

	initializeID = 1
	toolsListID  = 2

	clientName = "mcpman"
)

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      clientInfo     `json:"clientInfo"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// id decodes the echoed request id. Responses whose id is absent or not
// numeric decode to 0 and match nothing, which is how non-conforming
// messages end up ignored.
func (r *response) id() int64 {
	var id int64
	if err := json.Unmarshal(r.ID, &id); err != nil {
		return 0
	}
	return id
}

type toolsListResult struct {
	Tools []struct {
		Name string `json:"name"`
	} `json:"tools"`
}

// toolNames extracts the capability names from a tools/list result.
func toolNames(result json.RawMessage) []string {
	var parsed toolsListResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil
	}
	var names []string
	for _, tool := range parsed.Tools {
		if tool.Name != "" {
			names = append(names, tool.Name)
		}
	}
	return names
}

func writeRequest(w io.Writer, id int64, method string, params any) error {
	data, err := json.Marshal(request{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s request: %w", method, err)
	}
	return nil
}
