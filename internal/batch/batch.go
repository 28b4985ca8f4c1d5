// Package batch runs the reducer over a folder of sprites.
//
// A batch resolves its file list (explicit, or every *.png in the folder),
// reduces each file in order and reports one outcome per file. A failure on
// one file never stops the others.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ironsheep/palette-reducer/internal/reducer"
)

// Outcome is the result category of one file.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeNotFound Outcome = "not-found"
	OutcomeFailed   Outcome = "failed"
)

// Task is one unit of batch work.
type Task struct {
	// Name is the file name as listed or discovered, relative to the folder.
	Name string `json:"name"`

	// InputPath is the folder joined with Name.
	InputPath string `json:"input_path"`

	// OutputPath is where the reduced PNG goes. Equal to InputPath when
	// overwriting.
	OutputPath string `json:"output_path"`
}

// Result is the outcome of one Task.
type Result struct {
	Task    Task    `json:"task"`
	Outcome Outcome `json:"outcome"`

	// Message is the error text for failed tasks.
	Message string `json:"message,omitempty"`

	// ErrorKind is the reducer error kind for failed tasks, when known.
	ErrorKind string `json:"error_kind,omitempty"`

	// Object is the uploaded object name when a publisher is configured.
	Object string `json:"object,omitempty"`

	Duration time.Duration `json:"duration"`

	// Reduction is the reducer's report for successful tasks.
	Reduction *reducer.Result `json:"reduction,omitempty"`
}

// Summary aggregates the results of one run.
type Summary struct {
	RunID   string    `json:"run_id"`
	Folder  string    `json:"folder"`
	Started time.Time `json:"started"`

	Results []Result `json:"results"`

	Succeeded int `json:"succeeded"`
	NotFound  int `json:"not_found"`
	Failed    int `json:"failed"`

	// Skipped counts files left unprocessed because the run was cancelled.
	Skipped int `json:"skipped,omitempty"`

	Duration time.Duration `json:"duration"`

	// Err is set when the run could not complete: file discovery failed or
	// the context was cancelled.
	Err error `json:"-"`
}

// OK reports whether every file was reduced.
func (s *Summary) OK() bool {
	return s.Err == nil && s.NotFound == 0 && s.Failed == 0 && s.Skipped == 0
}

// ExitCode returns the process exit code for the run: 0 when OK, 1 otherwise.
func (s *Summary) ExitCode() int {
	if s.OK() {
		return 0
	}
	return 1
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeSuccess:
		s.Succeeded++
	case OutcomeNotFound:
		s.NotFound++
	case OutcomeFailed:
		s.Failed++
	}
}

// Discover lists the PNG files in folder, matching the extension without
// regard to case. Directories are skipped. Names come back in os.ReadDir
// order, which is sorted by name.
func Discover(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".png") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ErrOutsideOutputDir is returned by OutputPath when a listed name would
// resolve outside the output directory.
var ErrOutsideOutputDir = errors.New("file name escapes the output directory")

// OutputPath resolves where a reduced file goes.
//
// With neither outputDir nor suffix the input is overwritten. Otherwise the
// file lands in outputDir (or next to the input) named <stem><suffix>.png;
// an existing .png extension keeps its case.
//
// Parameters:
//   - inputPath: The folder joined with name.
//   - name: The file name as listed, relative to the folder. Subdirectories
//     in it are kept under outputDir.
//   - outputDir: Destination directory, empty for next to the input.
//   - suffix: Appended to the stem, may be empty.
//
// Returns ErrOutsideOutputDir when outputDir is set and name is absolute or
// climbs out with "..".
func OutputPath(inputPath, name, outputDir, suffix string) (string, error) {
	if outputDir == "" && suffix == "" {
		return inputPath, nil
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if !strings.EqualFold(ext, ".png") {
		ext = ".png"
	}

	dir := filepath.Dir(inputPath)
	if outputDir != "" {
		if !filepath.IsLocal(name) {
			return "", fmt.Errorf("%w: %s", ErrOutsideOutputDir, name)
		}
		dir = filepath.Join(outputDir, filepath.Dir(name))
	}
	return filepath.Join(dir, filepath.Base(stem)+suffix+ext), nil
}
