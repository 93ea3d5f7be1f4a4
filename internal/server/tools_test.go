package server

import (
	"encoding/json"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"code_parse",
		"code_validate",
		"code_format",
		"code_extract_legacy",
		"scan_image",
		"scan_camera_start",
		"scan_capture",
		"scan_cancel",
		"scan_retry",
		"scan_manual",
		"scan_status",
		"scan_lookup",
		"collection_add",
		"collection_list",
		"collection_import_csv",
		"collection_stats",
		"ocr_info",
		"image_preprocess",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

// Every advertised tool must be dispatched by executeTool.
func TestToolDefinitions_AllDispatched(t *testing.T) {
	s, _ := newTestServer(t, "", nil)
	for _, tool := range GetToolDefinitions() {
		resp := s.handleRequest(toolRequest(t, tool.Name, nil))
		if resp.Error != nil {
			if data, _ := resp.Error.Data.(string); data == "unknown tool: "+tool.Name {
				t.Errorf("%s is listed but not dispatched", tool.Name)
			}
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema.type: got %v, want object", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema.properties should be a map")
			}

			required, _ := tool.InputSchema["required"].([]string)
			for _, name := range required {
				if _, ok := props[name]; !ok {
					t.Errorf("required parameter %s has no property", name)
				}
			}
		})
	}
}

func TestToolDefinitions_Enums(t *testing.T) {
	tools := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		tools[tool.Name] = tool
	}

	enumOf := func(tool, prop string) []string {
		props := tools[tool].InputSchema["properties"].(map[string]interface{})
		p, ok := props[prop].(map[string]interface{})
		if !ok {
			t.Fatalf("%s.%s missing", tool, prop)
		}
		enum, _ := p["enum"].([]string)
		return enum
	}

	for _, tool := range []string{"scan_image", "scan_camera_start", "scan_manual"} {
		enum := enumOf(tool, "flow")
		if len(enum) != 2 || enum[0] != "structured" || enum[1] != "legacy" {
			t.Errorf("%s.flow enum: %v", tool, enum)
		}
	}

	regions := enumOf("image_preprocess", "region")
	found := map[string]bool{}
	for _, r := range regions {
		found[r] = true
	}
	for _, want := range []string{"full", "top-half", "bottom-half", "center"} {
		if !found[want] {
			t.Errorf("region %s not in enum", want)
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s, _ := newTestServer(t, "", nil)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1})

	if resp == nil {
		t.Fatal("handleToolsList returned nil")
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(tools) != len(GetToolDefinitions()) {
		t.Errorf("got %d tools", len(tools))
	}
}

func TestTool_MarshalsInputSchema(t *testing.T) {
	data, err := json.Marshal(GetToolDefinitions()[0])
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if _, ok := decoded["inputSchema"]; !ok {
		t.Errorf("inputSchema key missing: %s", data)
	}
}
