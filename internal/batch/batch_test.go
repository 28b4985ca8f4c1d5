package batch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	img "github.com/ironsheep/palette-reducer/internal/imaging"
	"github.com/ironsheep/palette-reducer/internal/reducer"
)

// savePNG writes a small opaque gradient PNG to dir/name.
func savePNG(t *testing.T, dir, name string) string {
	t.Helper()
	m := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			m.Set(x, y, color.RGBA{uint8(x * 10), uint8(y * 10), 90, 255})
		}
	}

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, m); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

func newTestRunner(out *bytes.Buffer, opts ...Option) *Runner {
	report := NewReporter(out)
	return NewRunner(reducer.New(reducer.DefaultOptions(), report.Writer()), report, opts...)
}

type fakePublisher struct {
	published []string
	fail      string
}

func (p *fakePublisher) Publish(_ context.Context, path string) (string, error) {
	if filepath.Base(path) == p.fail {
		return "", errors.New("bucket unavailable")
	}
	p.published = append(p.published, path)
	return "sprites/" + filepath.Base(path), nil
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	savePNG(t, dir, "b.png")
	savePNG(t, dir, "A.PNG")
	writeFile(t, dir, "notes.txt", "hello")
	writeFile(t, dir, "c.Png", "not really")
	if err := os.Mkdir(filepath.Join(dir, "dir.png"), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	got, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	want := []string{"A.PNG", "b.png", "c.Png"}
	if !slices.Equal(got, want) {
		t.Errorf("Discover: got %v, want %v", got, want)
	}
}

func TestDiscover_MissingFolder(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Discover should fail for a missing folder")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		file      string
		outputDir string
		suffix    string
		want      string
		wantErr   bool
	}{
		{"overwrite", "/s/a.png", "a.png", "", "", "/s/a.png", false},
		{"overwrite non-png", "/s/a.jpg", "a.jpg", "", "", "/s/a.jpg", false},
		{"suffix", "/s/a.png", "a.png", "", "_256", "/s/a_256.png", false},
		{"suffix keeps case", "/s/a.PNG", "a.PNG", "", "_q", "/s/a_q.PNG", false},
		{"output dir", "/s/a.png", "a.png", "/out", "", "/out/a.png", false},
		{"output dir nested name", "/s/ui/a.png", "ui/a.png", "/out", "", "/out/ui/a.png", false},
		{"dir and suffix on jpeg", "/s/a.jpg", "a.jpg", "/out", "_r", "/out/a_r.png", false},
		{"parent name with output dir", "/x.png", "../x.png", "/out", "", "", true},
		{"nested parent name with output dir", "/s/x.png", "ui/../../x.png", "/out", "_r", "", true},
		{"absolute name with output dir", "/x.png", "/x.png", "/out", "", "", true},
		{"parent name with suffix only", "/x.png", "../x.png", "", "_r", "/x_r.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OutputPath(filepath.FromSlash(tt.input), filepath.FromSlash(tt.file), filepath.FromSlash(tt.outputDir), tt.suffix)
			if tt.wantErr {
				if !errors.Is(err, ErrOutsideOutputDir) {
					t.Errorf("OutputPath: got (%s, %v), want ErrOutsideOutputDir", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("OutputPath: unexpected error %v", err)
			}
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("OutputPath: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRun_ExplicitListWithFailures(t *testing.T) {
	dir := t.TempDir()
	savePNG(t, dir, "gamewon.png")
	writeFile(t, dir, "broken.png", "definitely not a png")
	savePNG(t, dir, "controls.png")

	var out bytes.Buffer
	s := newTestRunner(&out).Run(context.Background(), dir, []string{"gamewon.png", "broken.png", "missing.png", "controls.png"})

	if s.Err != nil {
		t.Fatalf("Summary.Err: %v", s.Err)
	}
	if len(s.Results) != 4 {
		t.Fatalf("got %d results, want 4", len(s.Results))
	}
	wantOutcomes := []Outcome{OutcomeSuccess, OutcomeFailed, OutcomeNotFound, OutcomeSuccess}
	for i, want := range wantOutcomes {
		if s.Results[i].Outcome != want {
			t.Errorf("result %d (%s): got %s, want %s", i, s.Results[i].Task.Name, s.Results[i].Outcome, want)
		}
	}
	if s.Succeeded != 2 || s.Failed != 1 || s.NotFound != 1 {
		t.Errorf("counts: got %d/%d/%d, want 2/1/1", s.Succeeded, s.NotFound, s.Failed)
	}
	if s.OK() || s.ExitCode() != 1 {
		t.Error("run with failures should not be OK")
	}
	if s.RunID == "" {
		t.Error("RunID should be set")
	}
	if s.Results[1].ErrorKind != "decode" {
		t.Errorf("ErrorKind: got %q, want decode", s.Results[1].ErrorKind)
	}

	for _, name := range []string{"gamewon.png", "controls.png"} {
		bm, err := img.Load(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("failed to load %s: %v", name, err)
		}
		if bm.Mode != img.ModeP {
			t.Errorf("%s mode: got %s, want P", name, bm.Mode)
		}
	}

	report := out.String()
	for _, want := range []string{
		"Turbo Game Engine - PNG Color Reducer",
		"Processing: gamewon.png",
		"Original mode: RGB, Size: (24, 24)",
		"Output mode: P, Size: (24, 24)",
		"✓ Successfully processed gamewon.png",
		"✗ Error processing broken.png: ",
		"✗ File not found: missing.png",
		"✓ Successfully processed controls.png",
		"Summary: 2 succeeded, 1 not found, 1 failed",
		"Done! Images are now compatible with Turbo.",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
	if strings.Contains(report, "Processing: missing.png") {
		t.Error("missing file should not be announced as processing")
	}
}

func TestRun_DiscoversFolder(t *testing.T) {
	dir := t.TempDir()
	savePNG(t, dir, "one.png")
	savePNG(t, dir, "TWO.PNG")
	writeFile(t, dir, "readme.md", "# sprites")

	var out bytes.Buffer
	s := newTestRunner(&out).Run(context.Background(), dir, nil)

	if !s.OK() {
		t.Fatalf("run not OK: %+v", s)
	}
	if s.Succeeded != 2 {
		t.Errorf("Succeeded: got %d, want 2", s.Succeeded)
	}
	if strings.Contains(out.String(), "readme.md") {
		t.Error("non-PNG file should not be processed")
	}
}

func TestRun_DiscoveryFailure(t *testing.T) {
	var out bytes.Buffer
	s := newTestRunner(&out).Run(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)

	if s.Err == nil {
		t.Fatal("Summary.Err should be set")
	}
	if s.ExitCode() != 1 {
		t.Errorf("ExitCode: got %d, want 1", s.ExitCode())
	}
	if !strings.Contains(out.String(), "Summary: 0 succeeded") {
		t.Errorf("summary should still be printed:\n%s", out.String())
	}
}

func TestRun_OutputDirAndSuffix(t *testing.T) {
	dir := t.TempDir()
	in := savePNG(t, dir, "hero.png")
	before, err := os.ReadFile(in)
	if err != nil {
		t.Fatalf("failed to read input: %v", err)
	}
	outDir := filepath.Join(t.TempDir(), "reduced")

	var out bytes.Buffer
	s := newTestRunner(&out, WithOutputDir(outDir), WithOutputSuffix("_256")).
		Run(context.Background(), dir, []string{"hero.png"})

	if !s.OK() {
		t.Fatalf("run not OK: %+v", s.Results)
	}
	want := filepath.Join(outDir, "hero_256.png")
	if got := s.Results[0].Task.OutputPath; got != want {
		t.Errorf("OutputPath: got %s, want %s", got, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("output not written: %v", err)
	}
	after, err := os.ReadFile(in)
	if err != nil {
		t.Fatalf("failed to read input: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("input should be untouched when an output dir is set")
	}
}

func TestRun_NameEscapingOutputDir(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "sprites")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	outside := savePNG(t, root, "x.png")
	before, err := os.ReadFile(outside)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	savePNG(t, folder, "hero.png")
	outDir := filepath.Join(root, "out")

	var out bytes.Buffer
	s := newTestRunner(&out, WithOutputDir(outDir)).
		Run(context.Background(), folder, []string{"../x.png", "hero.png"})

	if s.Failed != 1 || s.Succeeded != 1 {
		t.Fatalf("counts: got %d failed, %d succeeded, want 1 and 1", s.Failed, s.Succeeded)
	}
	if s.Results[0].Outcome != OutcomeFailed || !strings.Contains(s.Results[0].Message, "escapes the output directory") {
		t.Errorf("../x.png: got %+v", s.Results[0])
	}
	after, err := os.ReadFile(outside)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("a file outside the output directory was overwritten")
	}
	if _, err := os.Stat(filepath.Join(outDir, "hero.png")); err != nil {
		t.Errorf("hero.png not written to the output dir: %v", err)
	}
}

func TestRun_Publisher(t *testing.T) {
	dir := t.TempDir()
	savePNG(t, dir, "a.png")
	savePNG(t, dir, "b.png")

	pub := &fakePublisher{fail: "b.png"}
	var out bytes.Buffer
	s := newTestRunner(&out, WithPublisher(pub)).Run(context.Background(), dir, nil)

	if s.Succeeded != 1 || s.Failed != 1 {
		t.Fatalf("counts: got %d succeeded %d failed, want 1/1", s.Succeeded, s.Failed)
	}
	if s.Results[0].Object != "sprites/a.png" {
		t.Errorf("Object: got %q, want sprites/a.png", s.Results[0].Object)
	}
	if !strings.Contains(s.Results[1].Message, "bucket unavailable") {
		t.Errorf("Message: got %q", s.Results[1].Message)
	}
	if len(pub.published) != 1 {
		t.Errorf("published %d files, want 1", len(pub.published))
	}
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	savePNG(t, dir, "a.png")
	savePNG(t, dir, "b.png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	s := newTestRunner(&out).Run(ctx, dir, nil)

	if !errors.Is(s.Err, context.Canceled) {
		t.Errorf("Summary.Err: got %v, want context.Canceled", s.Err)
	}
	if s.Skipped != 2 || len(s.Results) != 0 {
		t.Errorf("got %d skipped, %d results; want 2 skipped, 0 results", s.Skipped, len(s.Results))
	}
	if !strings.Contains(out.String(), "Interrupted: 2 file(s) not processed") {
		t.Errorf("report should mention the interruption:\n%s", out.String())
	}
}
