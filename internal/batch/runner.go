package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/palette-reducer/internal/reducer"
)

// Publisher receives each successfully reduced file, e.g. an object store.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

// Runner processes batches sequentially with one reducer.
type Runner struct {
	reducer      *reducer.Reducer
	report       *Reporter
	publisher    Publisher
	outputDir    string
	outputSuffix string
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutputDir writes results under dir instead of next to the inputs.
func WithOutputDir(dir string) Option {
	return func(r *Runner) { r.outputDir = dir }
}

// WithOutputSuffix appends suffix to each output file stem.
func WithOutputSuffix(suffix string) Option {
	return func(r *Runner) { r.outputSuffix = suffix }
}

// WithPublisher uploads every successful output through p.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// NewRunner creates a Runner. Progress lines go to report; the reducer should
// write to the same destination (see Reporter.Writer).
func NewRunner(red *reducer.Reducer, report *Reporter, opts ...Option) *Runner {
	if report == nil {
		report = NewReporter(nil)
	}
	r := &Runner{reducer: red, report: report}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reduces every file of the batch and returns the summary.
//
// Files are processed one at a time in list order. Per-file errors become
// failed outcomes and the run continues; a missing file is a not-found
// outcome. The start banner, per-file lines and summary go to the Reporter.
//
// Parameters:
//   - ctx: Checked before each file. Once cancelled the run stops and the
//     unprocessed files are counted in Summary.Skipped.
//   - folder: Directory the names are relative to.
//   - files: Names to process. Empty means every *.png in folder.
//
// Returns the summary, never nil. Summary.Err holds a discovery failure or
// the cancellation error; use Summary.ExitCode for the process status.
func (r *Runner) Run(ctx context.Context, folder string, files []string) *Summary {
	s := &Summary{
		RunID:   uuid.NewString(),
		Folder:  folder,
		Started: time.Now(),
	}
	logger := log.With().Str("run_id", s.RunID).Logger()

	r.report.Start()
	defer func() {
		s.Duration = time.Since(s.Started)
		r.report.Finish(s)
		logger.Info().
			Int("succeeded", s.Succeeded).
			Int("not_found", s.NotFound).
			Int("failed", s.Failed).
			Int("skipped", s.Skipped).
			Dur("duration", s.Duration).
			Msg("batch finished")
	}()

	if len(files) == 0 {
		names, err := Discover(folder)
		if err != nil {
			s.Err = err
			r.report.Error(err)
			logger.Error().Err(err).Str("folder", folder).Msg("discovery failed")
			return s
		}
		files = names
	}
	logger.Info().Str("folder", folder).Int("files", len(files)).Msg("batch started")

	for i, name := range files {
		if err := ctx.Err(); err != nil {
			s.Err = err
			s.Skipped = len(files) - i
			logger.Warn().Err(err).Int("skipped", s.Skipped).Msg("batch interrupted")
			return s
		}

		res := r.process(ctx, folder, name)
		s.add(res)
		r.report.Outcome(res)

		ev := logger.Info()
		if res.Outcome != OutcomeSuccess {
			ev = logger.Warn()
		}
		ev.Str("file", name).
			Str("outcome", string(res.Outcome)).
			Str("error", res.Message).
			Dur("duration", res.Duration).
			Msg("file processed")
	}

	return s
}

func (r *Runner) process(ctx context.Context, folder, name string) (res Result) {
	start := time.Now()
	input := filepath.Join(folder, name)
	res = Result{Task: Task{Name: name, InputPath: input}}
	defer func() { res.Duration = time.Since(start) }()

	if _, err := os.Stat(input); err != nil {
		res.Outcome = OutcomeNotFound
		return res
	}

	r.report.Processing(name)

	output, err := OutputPath(input, name, r.outputDir, r.outputSuffix)
	if err != nil {
		return failed(res, err)
	}
	res.Task.OutputPath = output
	task := res.Task

	if task.OutputPath != task.InputPath {
		if err := os.MkdirAll(filepath.Dir(task.OutputPath), 0o755); err != nil {
			return failed(res, fmt.Errorf("failed to create output directory: %w", err))
		}
	}

	red, err := r.reducer.Reduce(task.InputPath, task.OutputPath)
	if err != nil {
		return failed(res, err)
	}
	res.Reduction = red

	if r.publisher != nil {
		object, err := r.publisher.Publish(ctx, task.OutputPath)
		if err != nil {
			return failed(res, err)
		}
		res.Object = object
	}

	res.Outcome = OutcomeSuccess
	return res
}

func failed(res Result, err error) Result {
	res.Outcome = OutcomeFailed
	res.Message = err.Error()
	if k := reducer.KindOf(err); k != 0 {
		res.ErrorKind = k.String()
	}
	return res
}
