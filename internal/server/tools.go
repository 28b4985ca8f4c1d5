package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// reduceOptionProperties are the schema properties shared by the reduce tools.
func reduceOptionProperties() map[string]interface{} {
	return map[string]interface{}{
		"max_colors": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum palette size, 1 to 256. Default 256",
			"minimum":     1,
			"maximum":     256,
			"default":     256,
		},
		"method": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"mediancut", "kmeans"},
			"description": "Palette algorithm. Default mediancut",
			"default":     "mediancut",
		},
		"quality": map[string]interface{}{
			"type":        "boolean",
			"description": "Report the CIEDE2000 color error introduced by the reduction",
			"default":     false,
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_reduce",
			Description: "Reduce an image to an indexed palette of at most max_colors colors and write it as PNG. Images with transparency keep their alpha channel and every fully transparent pixel stays fully transparent. Overwrites the input unless output_path is given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional destination path. Default overwrites the input",
					},
					"swatch_dir": map[string]interface{}{
						"type":        "string",
						"description": "Optional directory for a <name>.palette.png preview of the palette",
					},
				}, reduceOptionProperties()),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_reduce_batch",
			Description: "Reduce every listed file in a folder, or every PNG in it when files is omitted. One bad file never stops the batch; the result lists one outcome per file (success, not-found or failed).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"folder": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the sprite folder",
					},
					"files": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Optional file names relative to folder. Default scans for *.png",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Optional destination directory. Default overwrites inputs",
					},
					"output_suffix": map[string]interface{}{
						"type":        "string",
						"description": "Optional suffix appended to each output file name, e.g. _256",
					},
				}, reduceOptionProperties()),
				"required": []string{"folder"},
			},
		},
		{
			Name:        "image_inspect",
			Description: "Report an image's dimensions, format, color mode (RGB, RGBA, L, LA, P), bit depth, transparency, distinct color count and dominant color.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}
