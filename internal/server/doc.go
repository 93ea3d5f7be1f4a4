// Package server implements the MCP (Model Context Protocol) server for the
// die-cast code scanner.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// tools/call requests run concurrently, so scan_cancel can abort a capture
// that is still being recognized.
//
// # Available Tools
//
// Code Parsing:
//   - code_parse: Split a base code into series, collector number, year, factory
//   - code_validate: Check for a SERIES-COLLECTOR pattern
//   - code_format: Rebuild the printed form from parts
//   - code_extract_legacy: Find a flat product code in OCR text
//
// Scanning:
//   - scan_image: Recognize a photo and look the code up
//   - scan_camera_start, scan_capture: Camera flow
//   - scan_cancel, scan_retry: Abort or clear the current attempt
//   - scan_manual: Typed entry
//   - scan_status, scan_lookup: Inspect the session and search the collection
//
// Collection:
//   - collection_add, collection_list, collection_import_csv, collection_stats
//
// OCR:
//   - ocr_info: Tesseract availability
//   - image_preprocess: Show what the recognizer sees
//
// # Notifications
//
// Scan sessions report progress as notifications/progress and every state
// change, detected code and cancellation as notifications/message, with the
// user-facing text localized for the call's lang argument.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Scan failures (no camera, permission denied, no code found...) are not
// errors. They are returned as results carrying the failure reason, message
// key and localized message, since the client is expected to show them.
package server
