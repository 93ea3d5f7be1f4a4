package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ironsheep/diecast-scan/internal/collection"
	"github.com/ironsheep/diecast-scan/internal/i18n"
	"github.com/ironsheep/diecast-scan/internal/ocr"
	"github.com/ironsheep/diecast-scan/internal/scan"
)

// maxRequestBytes bounds one JSON-RPC line. scan_image may carry a base64
// photo inline.
const maxRequestBytes = 48 << 20

// Server handles MCP protocol communication
type Server struct {
	scanner   *scan.Scanner
	store     collection.Store
	localizer *i18n.Localizer
	ocrOpts   ocr.Options
	lang      string
	version   string
	logger    *slog.Logger

	outMu sync.Mutex
	out   *json.Encoder
}

// Options wires a Server to the rest of the application.
type Options struct {
	Scanner   *scan.Scanner
	Store     collection.Store
	Localizer *i18n.Localizer
	// OCR is reported by ocr_info.
	OCR ocr.Options
	// Lang is the default message language when a call does not name one.
	Lang    string
	Version string
	Logger  *slog.Logger
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a new MCP server instance
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Localizer == nil {
		opts.Localizer = i18n.MustNew()
	}
	if opts.Scanner == nil {
		opts.Scanner = scan.NewScanner(scan.Config{Finder: opts.Store, Logger: opts.Logger})
	}
	if opts.OCR.Whitelist == "" {
		opts.OCR = ocr.DefaultOptions()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Server{
		scanner:   opts.Scanner,
		store:     opts.Store,
		localizer: opts.Localizer,
		ocrOpts:   opts.OCR,
		lang:      opts.Lang,
		version:   opts.Version,
		logger:    opts.Logger,
		out:       json.NewEncoder(io.Discard),
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads line-delimited requests from r and writes responses and
// notifications to w until r is exhausted. tools/call requests run
// concurrently so scan_cancel can interrupt a capture in flight.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	s.outMu.Lock()
	s.out = json.NewEncoder(w)
	s.outMu.Unlock()

	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxRequestBytes)

	var wg sync.WaitGroup
	defer wg.Wait()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			s.send(s.errorResponse(nil, -32700, "Parse error", err.Error()))
			continue
		}

		if req.Method == "tools/call" {
			wg.Add(1)
			go func(req MCPRequest) {
				defer wg.Done()
				s.send(s.handleRequest(&req))
			}(req)
			continue
		}
		s.send(s.handleRequest(&req))
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// send writes one message. A nil response is skipped.
func (s *Server) send(v interface{}) {
	if resp, ok := v.(*MCPResponse); ok && resp == nil {
		return
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if err := s.out.Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// notify emits a JSON-RPC notification.
func (s *Server) notify(method string, params interface{}) {
	s.send(&MCPNotification{JSONRPC: "2.0", Method: method, Params: params})
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools":   map[string]interface{}{},
				"logging": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "diecast-scan",
				"version": s.version,
			},
		},
	}
}
