package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuanying/epubmaker/internal/config"
	"github.com/yuanying/epubmaker/internal/converter"
)

// cliOptions is everything the root command resolved from flags and config.
type cliOptions struct {
	converter.ConvertOptions
	Summary bool
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epubmaker <zipfile | directory>",
		Short: "Build an EPUB from a directory or zip of images and text",
		Long: `epubmaker packs the files of a directory or zip archive, in name order,
into an EPUB book. Images and plain text that readers cannot show directly
get an XHTML wrapper page, and JPEG pages can be trimmed and shrunk to fit
a device screen with --size.`,
		Args:          exactlyOneInput,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			opts.Logger.Info("converting", "input", opts.InputPath, "output", opts.OutputPath)

			result, err := converter.NewPipeline(opts.ConvertOptions).Convert()
			if err != nil {
				return fmt.Errorf("conversion failed: %w", err)
			}

			if opts.Summary {
				fmt.Fprintln(cmd.OutOrStdout(), renderSummary(result, shouldColorize(cmd.OutOrStdout())))
			}
			opts.Logger.Info("done", "output", result.OutputPath)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "Output file path (default: ./<input name>.epub)")
	flags.StringP("title", "t", "", "Book title (default: input name)")
	flags.StringP("author", "a", "", "Book author")
	flags.StringP("size", "s", "", "Fit JPEG images into WIDTHxHEIGHT pixels")
	flags.String("language", "", "Book language (default: ja)")
	flags.String("text-encoding", "", "Character set of .txt sources, e.g. shift_jis (default: keep bytes)")
	flags.String("config", "", "Config file (default: ~/.config/epubmaker/config.toml)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.BoolP("verbose", "v", false, "Verbose output (same as --log-level debug)")
	flags.Bool("no-verify", false, "Skip re-reading the written package")
	flags.Bool("summary", false, "Print the manifest as a table when done")

	return cmd
}

func exactlyOneInput(cmd *cobra.Command, args []string) error {
	switch len(args) {
	case 0:
		return fmt.Errorf("%w: no input specified", converter.ErrInvalidConfiguration)
	case 1:
		return nil
	default:
		return fmt.Errorf("%w: multiple inputs specified: %s", converter.ErrInvalidConfiguration, strings.Join(args, ", "))
	}
}

// readCLIOptions merges the config file and flags into conversion options.
// Flags win over the config file.
func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	flags := cmd.Flags()
	inputPath := args[0]

	configPath, _ := flags.GetString("config")
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return cliOptions{}, fmt.Errorf("%w: %v", converter.ErrInvalidConfiguration, err)
	}

	pick := func(name, fallback string) string {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			return v
		}
		return fallback
	}

	logLevel := strings.ToLower(pick("log-level", cfg.Logging.Level))
	if !isValidLogLevel(logLevel) {
		return cliOptions{}, fmt.Errorf("%w: --log-level must be one of debug, info, warn, error", converter.ErrInvalidConfiguration)
	}
	logFormat := strings.ToLower(pick("log-format", cfg.Logging.Format))
	if logFormat != "text" && logFormat != "json" {
		return cliOptions{}, fmt.Errorf("%w: --log-format must be text or json", converter.ErrInvalidConfiguration)
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		logLevel = "debug"
	}

	viewport, err := converter.ParseViewport(pick("size", cfg.Viewport))
	if err != nil {
		return cliOptions{}, fmt.Errorf("--size: %w", err)
	}

	outputPath, _ := flags.GetString("output")
	if flags.Changed("output") && outputPath == "" {
		return cliOptions{}, fmt.Errorf("%w: --output requires a file name", converter.ErrInvalidConfiguration)
	}
	if outputPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return cliOptions{}, fmt.Errorf("resolve working directory: %w", err)
		}
		outputPath = defaultOutputPath(cwd, inputPath)
	} else if !strings.EqualFold(filepath.Ext(outputPath), ".epub") {
		outputPath += ".epub"
	}

	noVerify, _ := flags.GetBool("no-verify")
	summary, _ := flags.GetBool("summary")

	return cliOptions{
		ConvertOptions: converter.ConvertOptions{
			InputPath:    inputPath,
			OutputPath:   outputPath,
			Title:        pick("title", cfg.Title),
			Author:       pick("author", cfg.Author),
			Language:     pick("language", cfg.Language),
			Viewport:     viewport,
			TextEncoding: pick("text-encoding", cfg.TextEncoding),
			Verify:       cfg.Verify && !noVerify,
			Logger:       buildLogger(cmd.ErrOrStderr(), logLevel, logFormat),
		},
		Summary: summary,
	}, nil
}

// defaultOutputPath places <input name>.epub in dir, dropping a .zip suffix.
func defaultOutputPath(dir, inputPath string) string {
	return filepath.Join(dir, converter.DefaultTitle(inputPath)+".epub")
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
