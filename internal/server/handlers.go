package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/palette-reducer/internal/batch"
	"github.com/ironsheep/palette-reducer/internal/imaging"
	"github.com/ironsheep/palette-reducer/internal/quantize"
	"github.com/ironsheep/palette-reducer/internal/reducer"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_reduce", "image_inspect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// toolResult is the MCP content envelope of a tools/call result: one text
// block holding the tool's JSON output.
type toolResult struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// handleToolsCall runs the named tool. Tool failures are reported with
// codeToolFailed; per-file batch failures are part of a successful result.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	out, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	text, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}
	return result(req.ID, toolResult{Content: []contentBlock{{Type: "text", Text: string(text)}}})
}

// executeTool dispatches to the tool handler. Reducer progress lines are
// discarded since stdout carries the protocol.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_reduce":
		return s.handleImageReduce(args)
	case "image_reduce_batch":
		return s.handleImageReduceBatch(ctx, args)
	case "image_inspect":
		return s.handleImageInspect(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

var errMissingArgs = errors.New("missing arguments")

// reduceOptionArgs are the optional overrides shared by the reduce tools.
type reduceOptionArgs struct {
	MaxColors *int   `json:"max_colors"`
	Method    string `json:"method"`
	Quality   *bool  `json:"quality"`
}

// options merges the overrides into the server defaults.
func (a reduceOptionArgs) options(defaults reducer.Options) (reducer.Options, error) {
	opts := defaults
	if a.MaxColors != nil {
		opts.MaxColors = *a.MaxColors
	}
	if a.Method != "" {
		m, err := quantize.ParseMethod(a.Method)
		if err != nil {
			return opts, err
		}
		opts.Method = m
	}
	if a.Quality != nil {
		opts.Quality = *a.Quality
	}
	return opts, nil
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return errMissingArgs
	}
	return json.Unmarshal(args, v)
}

// === Reduction Handlers ===

type imageReduceArgs struct {
	reduceOptionArgs
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
	SwatchDir  string `json:"swatch_dir"`
}

// handleImageReduce reduces one image.
//
// Arguments: path (required), output_path, swatch_dir and the shared
// max_colors, method and quality overrides.
//
// Returns the *reducer.Result, or an error for a missing path, bad options or
// a failed reduction.
func (s *Server) handleImageReduce(args json.RawMessage) (interface{}, error) {
	var a imageReduceArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	opts, err := a.options(s.defaults)
	if err != nil {
		return nil, err
	}
	if a.SwatchDir != "" {
		opts.SwatchDir = a.SwatchDir
	}

	return reducer.New(opts, io.Discard).Reduce(a.Path, a.OutputPath)
}

type imageReduceBatchArgs struct {
	reduceOptionArgs
	Folder       string   `json:"folder"`
	Files        []string `json:"files"`
	OutputDir    string   `json:"output_dir"`
	OutputSuffix string   `json:"output_suffix"`
}

// batchResult is the image_reduce_batch payload. Summary.Err is not
// serialized, so its message travels in Error.
type batchResult struct {
	*batch.Summary
	Error string `json:"error,omitempty"`
}

// handleImageReduceBatch runs the batch runner over a folder.
//
// Arguments: folder (required), files, output_dir, output_suffix and the
// shared reduce overrides.
//
// Failed and missing files do not fail the call; they are outcomes in the
// returned batchResult, whose Error carries a discovery failure.
func (s *Server) handleImageReduceBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageReduceBatchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Folder == "" {
		return nil, fmt.Errorf("folder is required")
	}

	opts, err := a.options(s.defaults)
	if err != nil {
		return nil, err
	}

	runner := batch.NewRunner(
		reducer.New(opts, io.Discard),
		batch.NewReporter(io.Discard),
		batch.WithOutputDir(a.OutputDir),
		batch.WithOutputSuffix(a.OutputSuffix),
	)
	summary := runner.Run(ctx, a.Folder, a.Files)

	res := batchResult{Summary: summary}
	if summary.Err != nil {
		res.Error = summary.Err.Error()
	}
	return res, nil
}

// === Inspection Handlers ===

type imageInspectArgs struct {
	Path string `json:"path"`
}

// handleImageInspect returns the imaging.ImageInfo of one file, including
// its dominant color.
func (s *Server) handleImageInspect(args json.RawMessage) (interface{}, error) {
	var a imageInspectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.Inspect(a.Path)
}
