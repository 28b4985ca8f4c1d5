// Package cli wires configuration, logging and the reducer components into
// the palette-reducer command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ironsheep/palette-reducer/internal/config"
)

// BuildInfo is version information, set by ldflags in main.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// exitError carries a non-zero exit code without an error message, e.g. a
// batch that completed with failed files.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

type app struct {
	info       BuildInfo
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	cfg        *config.Config
}

// Execute runs the command line with args and returns the process exit code.
func Execute(ctx context.Context, info BuildInfo, args []string, stdout, stderr io.Writer) int {
	a := &app{info: info, stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "palette-reducer [folder]",
		Short: "Reduce PNG sprites to a 256-color palette",
		Long: `palette-reducer reduces the color palette of PNG sprites to at most 256
colors so a game engine's asset pipeline accepts them. Images with
transparency keep their alpha channel; opaque images become indexed PNGs.

Without a subcommand it runs a batch over a folder (see "run").

Configuration is read from ./palette-reducer.yml (or --config), then
PALETTE_* environment variables, then flags.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
		RunE:              a.runBatch,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ./palette-reducer.yml)")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")

	addBatchFlags(root.Flags())

	root.AddCommand(
		a.runCommand(),
		a.reduceCommand(),
		a.inspectCommand(),
		a.serveCommand(),
		a.versionCommand(),
	)
	return root
}

// loadConfig merges the config sources and sets up logging before any
// command runs.
func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	setupLogging(cfg.Log, a.stderr)
	return nil
}

// addReduceFlags registers the flags that shape a single reduction.
func addReduceFlags(fs *pflag.FlagSet) {
	fs.Int("max-colors", 256, "maximum palette size (1-256)")
	fs.String("method", "mediancut", "palette algorithm: mediancut or kmeans")
	fs.Bool("verify", true, "re-decode outputs and report their mode and size")
	fs.Bool("quality", false, "report the CIEDE2000 error of each reduction")
	fs.String("swatch-dir", "", "write a <name>.palette.png preview of each palette here")
}

// addBatchFlags registers the batch flags, including the reduce flags.
func addBatchFlags(fs *pflag.FlagSet) {
	addReduceFlags(fs)
	fs.String("folder", ".", "folder holding the sprites")
	fs.StringSlice("files", nil, "files to process, relative to the folder (default: every *.png)")
	fs.String("output-dir", "", "write results here instead of overwriting the inputs")
	fs.String("output-suffix", "", "append this suffix to output file names")
}
