package toolproto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

const protocolVersion = "2024-11-05"

// ToolFunc executes a tool call with already-validated arguments and returns
// the textual result.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool describes a callable tool and its input schema.
type Tool struct {
	Name        string
	Description string
	Schema      Schema
	Call        ToolFunc
}

// ResourceFunc produces the current contents of a resource.
type ResourceFunc func(ctx context.Context) (string, error)

// Resource describes a readable resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Read        ResourceFunc
}

// Server exposes registered tools and resources over a JSON-RPC 2.0 HTTP
// endpoint.
type Server struct {
	name    string
	version string
	logger  *logging.Logger

	mu        sync.RWMutex
	tools     map[string]Tool
	resources map[string]Resource
}

// NewServer creates an empty tool protocol server.
func NewServer(name, version string, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		name:      name,
		version:   version,
		logger:    logger,
		tools:     make(map[string]Tool),
		resources: make(map[string]Resource),
	}
}

// RegisterTool adds a tool to the registry. Registering a tool with an
// existing name replaces it.
func (s *Server) RegisterTool(tool Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[tool.Name] = tool
}

// RegisterResource adds a resource to the registry keyed by URI.
func (s *Server) RegisterResource(res Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[res.URI] = res
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type toolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

type resourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ServeHTTP handles a single JSON-RPC request per POST body.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}})
		return
	}

	result, rpcErr := s.dispatch(r.Context(), req)
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	writeRPC(w, resp)
}

func (s *Server) dispatch(ctx context.Context, req rpcRequest) (any, *rpcError) {
	switch req.Method {
	case "initialize":
		return s.initializeResult(), nil
	case "tools/list":
		return s.listTools(), nil
	case "tools/call":
		return s.callTool(ctx, req.Params)
	case "resources/list":
		return s.listResources(), nil
	case "resources/read":
		return s.readResource(ctx, req.Params)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}
}

func (s *Server) initializeResult() any {
	return map[string]any{
		"protocolVersion": protocolVersion,
		"serverInfo": map[string]string{
			"name":    s.name,
			"version": s.version,
		},
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
		},
	}
}

func (s *Server) listTools() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	descriptors := make([]toolDescriptor, 0, len(s.tools))
	for _, tool := range s.tools {
		descriptors = append(descriptors, toolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Schema,
		})
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })
	return map[string]any{"tools": descriptors}
}

func (s *Server) listResources() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	descriptors := make([]resourceDescriptor, 0, len(s.resources))
	for _, res := range s.resources {
		descriptors = append(descriptors, resourceDescriptor{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MimeType:    res.MimeType,
		})
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].URI < descriptors[j].URI })
	return map[string]any{"resources": descriptors}
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, *rpcError) {
	var params callParams
	if err := json.Unmarshal(raw, &params); err != nil || params.Name == "" {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid params: name is required"}
	}

	s.mu.RLock()
	tool, ok := s.tools[params.Name]
	s.mu.RUnlock()
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("unknown tool: %s", params.Name)}
	}

	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}
	if err := tool.Schema.Validate(params.Arguments); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}

	text, err := tool.Call(ctx, params.Arguments)
	if err != nil {
		s.logger.Error("tool call failed", "tool", params.Name, "error", err)
		return nil, &rpcError{Code: codeInternalError, Message: "tool execution failed"}
	}
	return callResult{Content: []textContent{{Type: "text", Text: text}}}, nil
}

type readParams struct {
	URI string `json:"uri"`
}

func (s *Server) readResource(ctx context.Context, raw json.RawMessage) (any, *rpcError) {
	var params readParams
	if err := json.Unmarshal(raw, &params); err != nil || params.URI == "" {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid params: uri is required"}
	}

	s.mu.RLock()
	res, ok := s.resources[params.URI]
	s.mu.RUnlock()
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("unknown resource: %s", params.URI)}
	}

	text, err := res.Read(ctx)
	if err != nil {
		s.logger.Error("resource read failed", "uri", params.URI, "error", err)
		return nil, &rpcError{Code: codeInternalError, Message: "resource read failed"}
	}
	mime := res.MimeType
	if mime == "" {
		mime = "text/plain"
	}
	return map[string]any{
		"contents": []map[string]string{
			{"uri": params.URI, "mimeType": mime, "text": text},
		},
	}, nil
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
