package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ironsheep/diecast-scan/internal/basecode"
	"github.com/ironsheep/diecast-scan/internal/capture"
	"github.com/ironsheep/diecast-scan/internal/collection"
	"github.com/ironsheep/diecast-scan/internal/i18n"
	"github.com/ironsheep/diecast-scan/internal/imaging"
	"github.com/ironsheep/diecast-scan/internal/ocr"
	"github.com/ironsheep/diecast-scan/internal/scan"
)

// errNoStore is returned by collection tools when the server runs without a
// database.
var errNoStore = errors.New("no collection database configured")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "scan_image", "code_parse").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// Scan failures such as a missing camera are not errors: they come back as a
// normal result with the failure reason and a localized message.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(context.Background(), params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Code Parsing
	case "code_parse":
		return s.handleCodeParse(args)
	case "code_validate":
		return s.handleCodeValidate(args)
	case "code_format":
		return s.handleCodeFormat(args)
	case "code_extract_legacy":
		return s.handleCodeExtractLegacy(args)

	// Scanning
	case "scan_image":
		return s.handleScanImage(ctx, args)
	case "scan_camera_start":
		return s.handleScanCameraStart(ctx, args)
	case "scan_capture":
		return s.handleScanCapture(ctx, args)
	case "scan_cancel":
		return s.handleScanCancel(args)
	case "scan_retry":
		return s.handleScanRetry(args)
	case "scan_manual":
		return s.handleScanManual(args)
	case "scan_status":
		return s.handleScanStatus(args)
	case "scan_lookup":
		return s.handleScanLookup(args)

	// Collection
	case "collection_add":
		return s.handleCollectionAdd(args)
	case "collection_list":
		return s.handleCollectionList(args)
	case "collection_import_csv":
		return s.handleCollectionImportCSV(args)
	case "collection_stats":
		return s.handleCollectionStats(args)

	// OCR
	case "ocr_info":
		return ocr.GetInfo(s.ocrOpts), nil
	case "image_preprocess":
		return s.handleImagePreprocess(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// message localizes key for the call's language, or the server default.
func (s *Server) message(lang, key string, args ...interface{}) string {
	if lang == "" {
		lang = s.lang
	}
	return s.localizer.Message(lang, key, args...)
}

// === Code Parsing Handlers ===

type textArgs struct {
	Text string `json:"text"`
}

type codeParseResult struct {
	Parsed   basecode.ParsedCode `json:"parsed"`
	Valid    bool                `json:"valid"`
	Display  string              `json:"display"`
	FullYear string              `json:"full_year,omitempty"`
}

func (s *Server) handleCodeParse(args json.RawMessage) (interface{}, error) {
	var a textArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	p := basecode.ParseBaseCode(a.Text)
	return codeParseResult{
		Parsed:   p,
		Valid:    p.HasIdentity(),
		Display:  basecode.FormatCodeForDisplay(p),
		FullYear: p.FullYear(),
	}, nil
}

func (s *Server) handleCodeValidate(args json.RawMessage) (interface{}, error) {
	var a struct {
		Code string `json:"code"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"valid":            basecode.IsValidBaseCode(a.Code),
		"collector_number": basecode.ExtractCollectorNumber(a.Code),
	}, nil
}

func (s *Server) handleCodeFormat(args json.RawMessage) (interface{}, error) {
	var p basecode.ParsedCode
	if err := decodeArgs(args, &p); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"display":   basecode.FormatCodeForDisplay(p),
		"full_year": p.FullYear(),
	}, nil
}

func (s *Server) handleCodeExtractLegacy(args json.RawMessage) (interface{}, error) {
	var a textArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	code, ok := basecode.ExtractProductCode(a.Text)
	return map[string]interface{}{
		"found": ok,
		"code":  code,
	}, nil
}

// === Scanning Handlers ===

type scanArgs struct {
	Flow string `json:"flow"`
	Lang string `json:"lang"`
}

type scanResult struct {
	Session  scan.Snapshot `json:"session"`
	Message  string        `json:"message,omitempty"`
	// Canceled is set when scan_cancel or a newer scan interrupted the call.
	Canceled bool          `json:"canceled,omitempty"`
	Lookup   *lookupResult `json:"lookup,omitempty"`
}

type lookupResult struct {
	scan.Outcome
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// openSession starts a fresh session whose events are forwarded as
// notifications.
func (s *Server) openSession(flowName, lang string) (*scan.Session, error) {
	var opts []scan.SessionOption
	if flowName != "" {
		flow, err := scan.ParseFlow(flowName)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scan.WithFlow(flow))
	}
	opts = append(opts, scan.WithListener(s.sessionListener(lang)))
	return s.scanner.Open(opts...), nil
}

// currentSession returns the open session, opening one when there is none.
func (s *Server) currentSession(lang string) *scan.Session {
	if cur := s.scanner.Current(); cur != nil {
		return cur
	}
	sess, _ := s.openSession("", lang)
	return sess
}

// sessionListener forwards session events to the client.
func (s *Server) sessionListener(lang string) scan.Listener {
	var sessionID atomic.Value
	sessionID.Store("")
	return scan.Callbacks{
		StateChange: func(snap scan.Snapshot) {
			sessionID.Store(snap.ID)
			data := map[string]interface{}{
				"event":   "state",
				"session": snap,
			}
			level := "info"
			if snap.MessageKey != "" {
				data["message"] = s.message(lang, snap.MessageKey)
			}
			if snap.State == scan.Failed {
				level = "warning"
			}
			s.notify("notifications/message", map[string]interface{}{
				"level":  level,
				"logger": "scan",
				"data":   data,
			})
		},
		Progress: func(percent int) {
			s.notify("notifications/progress", map[string]interface{}{
				"progressToken": sessionID.Load(),
				"progress":      percent,
				"total":         100,
				"message":       s.message(lang, i18n.KeyProcessing),
			})
		},
		BaseCodeDetected: func(p basecode.ParsedCode) {
			s.notify("notifications/message", map[string]interface{}{
				"level":  "info",
				"logger": "scan",
				"data": map[string]interface{}{
					"event":  "base_code_detected",
					"parsed": p,
				},
			})
		},
		CodeDetected: func(code string) {
			s.notify("notifications/message", map[string]interface{}{
				"level":  "info",
				"logger": "scan",
				"data": map[string]interface{}{
					"event": "code_detected",
					"code":  code,
				},
			})
		},
		Cancel: func() {
			s.notify("notifications/message", map[string]interface{}{
				"level":  "info",
				"logger": "scan",
				"data": map[string]interface{}{
					"event":   "canceled",
					"message": s.message(lang, i18n.KeyCanceled),
				},
			})
		},
	}
}

// scanResponse turns a session call into a tool result. A *scan.Failure or
// an interruption by cancel is reported in the result; any other error fails
// the call.
func (s *Server) scanResponse(sess *scan.Session, snap scan.Snapshot, err error, lang string) (*scanResult, error) {
	if errors.Is(err, scan.ErrSuperseded) {
		return &scanResult{
			Session:  sess.Snapshot(),
			Message:  s.message(lang, i18n.KeyCanceled),
			Canceled: true,
		}, nil
	}
	var f *scan.Failure
	if err != nil && !errors.As(err, &f) {
		return nil, err
	}
	res := &scanResult{Session: snap}
	switch {
	case snap.MessageKey != "":
		res.Message = s.message(lang, snap.MessageKey)
	case snap.State == scan.Succeeded:
		res.Message = s.message(lang, i18n.KeyScannedCode, snap.Code)
	}
	return res, nil
}

func (s *Server) lookupResponse(out scan.Outcome, lang string) *lookupResult {
	res := &lookupResult{Outcome: out, Message: s.message(lang, out.MessageKey)}
	if !out.Found {
		res.Hint = s.message(lang, i18n.KeyNotFoundHint)
	}
	return res
}

type scanImageArgs struct {
	scanArgs
	Path        string `json:"path"`
	Data        string `json:"data"`
	ContentType string `json:"content_type"`
}

func (s *Server) handleScanImage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a scanImageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	var r io.Reader
	switch {
	case a.Path != "":
		f, err := os.Open(a.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open image: %w", err)
		}
		defer f.Close()
		r = f
	case a.Data != "":
		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 image data: %w", err)
		}
		r = bytes.NewReader(data)
	default:
		return nil, errors.New("path or data is required")
	}

	sess, err := s.openSession(a.Flow, a.Lang)
	if err != nil {
		return nil, err
	}
	snap, err := sess.UploadFile(ctx, r, a.ContentType)
	res, err := s.scanResponse(sess, snap, err, a.Lang)
	if err != nil {
		return nil, err
	}
	if res.Canceled || snap.State != scan.Succeeded || s.store == nil {
		return res, nil
	}

	out, err := sess.Lookup()
	if err != nil {
		return nil, err
	}
	res.Lookup = s.lookupResponse(out, a.Lang)
	return res, nil
}

func (s *Server) handleScanCameraStart(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a scanArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.openSession(a.Flow, a.Lang)
	if err != nil {
		return nil, err
	}
	err = sess.StartCamera(ctx)
	res, err := s.scanResponse(sess, sess.Snapshot(), err, a.Lang)
	if err != nil {
		return nil, err
	}
	if !res.Canceled && res.Session.State == scan.Capturing {
		res.Message = s.message(a.Lang, i18n.KeyAlignCode)
	}
	return res, nil
}

func (s *Server) handleScanCapture(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a scanArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess := s.currentSession(a.Lang)
	snap, err := sess.Capture(ctx)
	return s.scanResponse(sess, snap, err, a.Lang)
}

func (s *Server) handleScanCancel(args json.RawMessage) (interface{}, error) {
	var a scanArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess := s.scanner.Current()
	if sess == nil {
		return map[string]interface{}{"canceled": false}, nil
	}
	sess.Cancel()
	return map[string]interface{}{
		"canceled": true,
		"session":  sess.Snapshot(),
		"message":  s.message(a.Lang, i18n.KeyCanceled),
	}, nil
}

func (s *Server) handleScanRetry(args json.RawMessage) (interface{}, error) {
	var a scanArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess := s.currentSession(a.Lang)
	if err := sess.Retry(); err != nil {
		return nil, err
	}
	return &scanResult{Session: sess.Snapshot(), Message: s.message(a.Lang, i18n.KeyInstructions)}, nil
}

type scanManualArgs struct {
	scanArgs
	Text string `json:"text"`
}

func (s *Server) handleScanManual(args json.RawMessage) (interface{}, error) {
	var a scanManualArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	sess := s.scanner.Current()
	if sess == nil || (a.Flow != "" && string(sess.Flow()) != a.Flow) {
		var err error
		if sess, err = s.openSession(a.Flow, a.Lang); err != nil {
			return nil, err
		}
	}

	snap, err := sess.SubmitManual(a.Text)
	if err != nil {
		return nil, err
	}
	return s.scanResponse(sess, snap, nil, a.Lang)
}

func (s *Server) handleScanStatus(args json.RawMessage) (interface{}, error) {
	var a scanArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess := s.currentSession(a.Lang)
	snap := sess.Snapshot()
	res, _ := s.scanResponse(sess, snap, nil, a.Lang)
	if res.Message == "" && snap.State == scan.Idle {
		res.Message = s.message(a.Lang, i18n.KeyInstructions)
	}
	return res, nil
}

func (s *Server) handleScanLookup(args json.RawMessage) (interface{}, error) {
	var a scanArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, errNoStore
	}
	out, err := s.currentSession(a.Lang).Lookup()
	if err != nil {
		return nil, err
	}
	return s.lookupResponse(out, a.Lang), nil
}

// === Collection Handlers ===

func (s *Server) handleCollectionAdd(args json.RawMessage) (interface{}, error) {
	if s.store == nil {
		return nil, errNoStore
	}
	var r collection.Record
	if err := decodeArgs(args, &r); err != nil {
		return nil, err
	}
	// Identity and timestamps are always assigned by the store.
	r.ID = ""
	r.CreatedAt = time.Time{}
	if strings.TrimSpace(r.Modelo) == "" {
		return nil, errors.New("modelo is required")
	}
	if err := s.store.Save(&r); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"record":  r,
		"message": s.message("", i18n.KeyCarAdded),
	}, nil
}

func (s *Server) handleCollectionList(args json.RawMessage) (interface{}, error) {
	if s.store == nil {
		return nil, errNoStore
	}
	var a struct {
		Search string `json:"search"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	records, err := s.store.List()
	if err != nil {
		return nil, err
	}
	records = collection.Filter(records, a.Search)
	return map[string]interface{}{
		"count":   len(records),
		"records": records,
	}, nil
}

func (s *Server) handleCollectionImportCSV(args json.RawMessage) (interface{}, error) {
	if s.store == nil {
		return nil, errNoStore
	}
	var a struct {
		Path string `json:"path"`
		Lang string `json:"lang"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	f, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	records, err := collection.ImportCSV(f)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveAll(records); err != nil {
		return nil, err
	}
	s.logger.Info("collection imported", "path", a.Path, "records", len(records))

	return map[string]interface{}{
		"imported": len(records),
		"message":  s.message(a.Lang, i18n.KeyImportedCount, len(records)),
	}, nil
}

func (s *Server) handleCollectionStats(args json.RawMessage) (interface{}, error) {
	if s.store == nil {
		return nil, errNoStore
	}
	records, err := s.store.List()
	if err != nil {
		return nil, err
	}
	return collection.Summarize(records), nil
}

// === Image Handlers ===

type imagePreprocessArgs struct {
	Path      string `json:"path"`
	Region    string `json:"region"`
	RedInk    bool   `json:"red_ink"`
	Threshold int    `json:"threshold"`
}

func (s *Server) handleImagePreprocess(args json.RawMessage) (interface{}, error) {
	var a imagePreprocessArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Threshold < 0 || a.Threshold > 255 {
		return nil, fmt.Errorf("threshold %d out of range [0, 255]", a.Threshold)
	}

	raw, err := capture.NewAcquirer(nil, capture.WithLogger(s.logger)).LoadFile(a.Path)
	if err != nil {
		return nil, err
	}

	opts := imaging.DefaultOptions()
	opts.Region = imaging.Region(a.Region)
	opts.Threshold = uint8(a.Threshold)
	if a.RedInk {
		ink := imaging.RedInk
		opts.Ink = &ink
	}

	img, err := imaging.Preprocess(raw.Image, opts)
	if err != nil {
		return nil, err
	}
	png, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"width":        img.Bounds().Dx(),
		"height":       img.Bounds().Dy(),
		"source":       raw.Format,
		"red_coverage": imaging.InkCoverage(raw.Image, imaging.RedInk),
		"image_base64": base64.StdEncoding.EncodeToString(png),
		"mime_type":    "image/png",
	}, nil
}
