package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/palette-reducer/internal/batch"
	"github.com/ironsheep/palette-reducer/internal/imaging"
	"github.com/ironsheep/palette-reducer/internal/reducer"
	"github.com/ironsheep/palette-reducer/internal/server"
	"github.com/ironsheep/palette-reducer/internal/storage"
)

func (a *app) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [folder]",
		Short: "Reduce every listed or discovered PNG in a folder",
		Long: `Reduce each file of --files, or every *.png in the folder when no files
are listed. A missing or broken file is reported and the batch moves on.
Exits non-zero when any file was not found or failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runBatch,
	}
	addBatchFlags(cmd.Flags())
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	folder := cfg.Folder
	if len(args) == 1 {
		folder = args[0]
	}

	report := batch.NewReporter(a.stdout)
	opts := []batch.Option{
		batch.WithOutputDir(cfg.OutputDir),
		batch.WithOutputSuffix(cfg.OutputSuffix),
	}
	if cfg.Storage.Enabled {
		bucket, err := storage.New(cmd.Context(), cfg.Storage.Config)
		if err != nil {
			return err
		}
		opts = append(opts, batch.WithPublisher(bucket))
	}

	runner := batch.NewRunner(reducer.New(cfg.ReducerOptions(), report.Writer()), report, opts...)
	summary := runner.Run(cmd.Context(), folder, cfg.Files)
	if code := summary.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func (a *app) reduceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reduce <input> [output]",
		Short: "Reduce a single image",
		Long: `Reduce one image to at most --max-colors colors and write it as PNG.
The input is overwritten unless an output path is given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := ""
			if len(args) == 2 {
				output = args[1]
			}
			_, err := reducer.New(a.cfg.ReducerOptions(), a.stdout).Reduce(args[0], output)
			return err
		},
	}
	addReduceFlags(cmd.Flags())
	return cmd
}

func (a *app) inspectCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <path>...",
		Short: "Show mode, size, transparency and color count of images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var infos []*imaging.ImageInfo
			failed := 0
			for _, path := range args {
				info, err := imaging.Inspect(path)
				if err != nil {
					fmt.Fprintf(a.stderr, "✗ %s: %v\n", path, err)
					failed++
					continue
				}
				infos = append(infos, info)
				if !asJSON {
					fmt.Fprintf(a.stdout, "%s: %s %s, Size: (%d, %d), %d colors, transparency: %t, dominant %s\n",
						path, info.Format, info.Mode, info.Width, info.Height, info.Colors, info.HasTransparency, info.DominantColor)
				}
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(infos); err != nil {
					return err
				}
			}
			if failed > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run as an MCP server over stdin/stdout",
		Long: `Serve the image_reduce, image_reduce_batch and image_inspect tools over
the MCP protocol (JSON-RPC 2.0, one message per line on stdin/stdout).
Configure it in your MCP client. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return server.New(a.cfg.ReducerOptions(), a.info.Version).Run(cmd.Context())
		},
	}
	addReduceFlags(cmd.Flags())
	return cmd
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "palette-reducer %s\n", a.info.Version)
			fmt.Fprintf(a.stdout, "  Build time: %s\n", a.info.BuildTime)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", a.info.GitCommit)
		},
	}
}
