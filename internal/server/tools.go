package server

import "github.com/ironsheep/diecast-scan/internal/imaging"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

var (
	langProp = stringProp("Message language: en, pt, or an Accept-Language list. Defaults to the server language")
	flowProp = map[string]interface{}{
		"type":        "string",
		"description": "structured parses SERIES-COLLECTOR YEARFACTORY base codes; legacy finds flat product codes",
		"enum":        []string{"structured", "legacy"},
		"default":     "structured",
	}
	regionProp = map[string]interface{}{
		"type":        "string",
		"description": "Part of the frame to read. Default full",
		"enum":        regionNames(),
		"default":     "full",
	}
)

func regionNames() []string {
	names := make([]string, len(imaging.Regions))
	for i, r := range imaging.Regions {
		names[i] = string(r)
	}
	return names
}

func recordProperties() map[string]interface{} {
	return map[string]interface{}{
		"marca":             stringProp("Brand"),
		"modelo":            stringProp("Model"),
		"ano_modelo":        stringProp("Model year"),
		"cor_principal":     stringProp("Primary color"),
		"cores_secundarias": stringProp("Secondary colors"),
		"codigo":            stringProp("Product code as printed on the base, e.g. JJJ26-N521 21A"),
		"upc":               stringProp("UPC barcode digits"),
		"fabricante":        stringProp("Manufacturer"),
		"notas_tema":        stringProp("Notes or theme"),
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Code Parsing
		{
			Name:        "code_parse",
			Description: "Parse a die-cast base code (e.g. \"JJJ26-N521 21A\") into series, collector number, production year and factory. Never fails; unrecognized fields are empty.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": stringProp("Code or raw OCR text, may span lines"),
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "code_validate",
			Description: "Check whether text contains a SERIES-COLLECTOR pattern.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"code": stringProp("Code to check"),
				},
				"required": []string{"code"},
			},
		},
		{
			Name:        "code_format",
			Description: "Rebuild the printed form of a code from its parts. Incomplete segments are left out.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"series_code":      stringProp("3 letters + 2 digits, e.g. JJJ26"),
					"collector_number": stringProp("1 letter + 3-4 digits, e.g. N521"),
					"production_year":  stringProp("2 digits, e.g. 21"),
					"factory_code":     stringProp("1 letter, e.g. A"),
					"full_code":        stringProp("Returned when no segment is complete"),
				},
			},
		},
		{
			Name:        "code_extract_legacy",
			Description: "Find a flat product code (e.g. JBC17-N521 21A) in OCR text using the ordered legacy patterns.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": stringProp("Raw OCR text"),
				},
				"required": []string{"text"},
			},
		},

		// Scanning
		{
			Name:        "scan_image",
			Description: "Read the code from a photo of a car base and look it up in the collection. Starts a new scan session. Supports PNG, JPEG, GIF, BMP, TIFF, WebP and HEIC.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":         stringProp("Absolute path to the image file"),
					"data":         stringProp("Base64-encoded image, used when path is empty"),
					"content_type": stringProp("MIME type of data, e.g. image/heic. Optional"),
					"flow":         flowProp,
					"lang":         langProp,
				},
			},
		},
		{
			Name:        "scan_camera_start",
			Description: "Start a new scan session and open the camera, preferring the rear camera at 1080p.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"flow": flowProp,
					"lang": langProp,
				},
			},
		},
		{
			Name:        "scan_capture",
			Description: "Capture the current camera frame, release the camera and read the code. Progress is sent as notifications/progress.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"lang": langProp,
				},
			},
		},
		{
			Name:        "scan_cancel",
			Description: "Abort the current scan and release the camera. A recognition still running is discarded.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "scan_retry",
			Description: "Clear a failed scan so a new attempt can start.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"lang": langProp,
				},
			},
		},
		{
			Name:        "scan_manual",
			Description: "Enter a code by hand instead of scanning. Text without a recognizable code is accepted and flagged.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": stringProp("Code as typed"),
					"flow": flowProp,
					"lang": langProp,
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "scan_status",
			Description: "Report the current scan session: state, progress, detected text and any failure message.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"lang": langProp,
				},
			},
		},
		{
			Name:        "scan_lookup",
			Description: "Look up the last scanned code in the collection and report whether the car is already owned.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"lang": langProp,
				},
			},
		},

		// Collection
		{
			Name:        "collection_add",
			Description: "Add a car to the collection. The collector number is derived from codigo.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": recordProperties(),
				"required":   []string{"modelo"},
			},
		},
		{
			Name:        "collection_list",
			Description: "List cars in insertion order, optionally filtered by a case-insensitive search over brand, model, code, manufacturer, color and notes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"search": stringProp("Search term. Optional"),
				},
			},
		},
		{
			Name:        "collection_import_csv",
			Description: "Import cars from a CSV export with the headers Marca, Modelo, Ano do Modelo, Cor Principal, Cor(es) Segundária(s), Código, UPC, Fabricante, Notas/Tema.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": stringProp("Absolute path to the CSV file"),
					"lang": langProp,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "collection_stats",
			Description: "Count cars in the collection by brand, manufacturer, model year and primary color.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// OCR
		{
			Name:        "ocr_info",
			Description: "Report whether Tesseract is available and which language, whitelist and tessdata directory the scanner uses.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "image_preprocess",
			Description: "Apply the OCR preprocessing to an image and return the result as base64-encoded PNG, to check what the recognizer sees.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   stringProp("Absolute path to the image file"),
					"region": regionProp,
					"red_ink": map[string]interface{}{
						"type":        "boolean",
						"description": "Keep only red print before converting to grayscale",
						"default":     false,
					},
					"threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Binarize at this luminance (1-255). 0 disables",
						"default":     0,
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
