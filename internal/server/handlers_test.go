package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// createTestImageFile writes a PNG with many colors and a clear corner into
// dir and returns its path.
func createTestImageFile(t *testing.T, dir, name string) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			if x < 5 && y < 5 {
				continue
			}
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 6), uint8(y * 8), 77, 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool sends a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{"name": name, "arguments": args}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeContent extracts the JSON text of a tool result into v.
func decodeContent(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(toolResult)
	if !ok {
		t.Fatalf("Result should be a toolResult, got %T", resp.Result)
	}
	if len(result.Content) != 1 {
		t.Fatalf("content should hold one item, got %d", len(result.Content))
	}
	if result.Content[0].Type != "text" {
		t.Errorf("content type: got %q, want text", result.Content[0].Type)
	}
	text := result.Content[0].Text
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result: %v\n%s", err, text)
	}
}

func TestHandleToolsCall_ImageReduce(t *testing.T) {
	dir := t.TempDir()
	path := createTestImageFile(t, dir, "hero.png")
	outPath := filepath.Join(dir, "hero_16.png")

	resp := callTool(t, newTestServer(), "image_reduce", map[string]interface{}{
		"path":        path,
		"output_path": outPath,
		"max_colors":  16,
		"quality":     true,
	})

	var result struct {
		OutputPath  string `json:"output_path"`
		Transparent bool   `json:"transparent"`
		After       struct {
			Mode   string `json:"mode"`
			Colors int    `json:"colors"`
		} `json:"after"`
		Palette []struct {
			Hex string `json:"hex"`
		} `json:"palette"`
		Quality *struct {
			Samples int `json:"samples"`
		} `json:"quality"`
	}
	decodeContent(t, resp, &result)

	if result.OutputPath != outPath {
		t.Errorf("output_path: got %s, want %s", result.OutputPath, outPath)
	}
	if !result.Transparent || result.After.Mode != "RGBA" {
		t.Errorf("got transparent %v mode %s, want RGBA output", result.Transparent, result.After.Mode)
	}
	if result.After.Colors > 16 {
		t.Errorf("colors: got %d, want at most 16", result.After.Colors)
	}
	if len(result.Palette) == 0 || len(result.Palette) > 16 {
		t.Errorf("palette: got %d entries", len(result.Palette))
	}
	if result.Quality == nil || result.Quality.Samples == 0 {
		t.Error("quality report should be present")
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestHandleToolsCall_ImageReduce_Errors(t *testing.T) {
	dir := t.TempDir()
	path := createTestImageFile(t, dir, "hero.png")

	tests := []struct {
		name string
		args interface{}
	}{
		{"missing path", map[string]interface{}{}},
		{"nonexistent file", map[string]interface{}{"path": filepath.Join(dir, "nope.png")}},
		{"too many colors", map[string]interface{}{"path": path, "max_colors": 512}},
		{"bad method", map[string]interface{}{"path": path, "method": "octree"}},
		{"no arguments", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, newTestServer(), "image_reduce", tt.args)
			if resp.Error == nil {
				t.Fatal("expected an error response")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_ImageReduceBatch(t *testing.T) {
	dir := t.TempDir()
	createTestImageFile(t, dir, "a.png")
	createTestImageFile(t, dir, "b.png")
	if err := os.WriteFile(filepath.Join(dir, "c.png"), []byte("broken"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	outDir := filepath.Join(dir, "out")

	resp := callTool(t, newTestServer(), "image_reduce_batch", map[string]interface{}{
		"folder":     dir,
		"files":      []string{"a.png", "missing.png", "c.png", "b.png"},
		"output_dir": outDir,
		"max_colors": 32,
		"method":     "kmeans",
	})

	var result struct {
		RunID     string `json:"run_id"`
		Succeeded int    `json:"succeeded"`
		NotFound  int    `json:"not_found"`
		Failed    int    `json:"failed"`
		Results   []struct {
			Outcome string `json:"outcome"`
			Message string `json:"message"`
		} `json:"results"`
		Error string `json:"error"`
	}
	decodeContent(t, resp, &result)

	if result.RunID == "" {
		t.Error("run_id should be set")
	}
	if result.Succeeded != 2 || result.NotFound != 1 || result.Failed != 1 {
		t.Errorf("counts: got %d/%d/%d, want 2/1/1", result.Succeeded, result.NotFound, result.Failed)
	}
	if len(result.Results) != 4 {
		t.Fatalf("got %d results, want 4", len(result.Results))
	}
	if result.Results[2].Outcome != "failed" || result.Results[2].Message == "" {
		t.Errorf("c.png: got %+v, want failed with a message", result.Results[2])
	}
	if result.Error != "" {
		t.Errorf("error: got %q, want empty", result.Error)
	}
	for _, name := range []string{"a.png", "b.png"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not written to output dir: %v", name, err)
		}
	}
}

func TestHandleToolsCall_ImageReduceBatch_MissingFolder(t *testing.T) {
	resp := callTool(t, newTestServer(), "image_reduce_batch", map[string]interface{}{
		"folder": filepath.Join(t.TempDir(), "missing"),
	})

	var result struct {
		Error string `json:"error"`
	}
	decodeContent(t, resp, &result)
	if result.Error == "" {
		t.Error("error should describe the failed folder scan")
	}
}

func TestHandleToolsCall_ImageInspect(t *testing.T) {
	path := createTestImageFile(t, t.TempDir(), "hero.png")

	resp := callTool(t, newTestServer(), "image_inspect", map[string]interface{}{"path": path})

	var info struct {
		Width           int    `json:"width"`
		Height          int    `json:"height"`
		Format          string `json:"format"`
		Mode            string `json:"mode"`
		HasTransparency bool   `json:"has_transparency"`
		Colors          int    `json:"colors"`
	}
	decodeContent(t, resp, &info)

	if info.Width != 40 || info.Height != 30 {
		t.Errorf("size: got %dx%d, want 40x30", info.Width, info.Height)
	}
	if info.Format != "png" || info.Mode != "RGBA" || !info.HasTransparency {
		t.Errorf("got %+v, want transparent RGBA png", info)
	}
	if info.Colors <= 256 {
		t.Errorf("colors: got %d, want more than 256", info.Colors)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	resp := callTool(t, newTestServer(), "image_crop", map[string]interface{}{"path": "/x.png"})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("unknown tool: got %+v, want -32000 error", resp.Error)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	resp := newTestServer().handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp == nil || resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}
