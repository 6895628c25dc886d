// Package main implements the codebook CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gofhir/codebook"
	"github.com/gofhir/codebook/config"
	"github.com/gofhir/codebook/output"
	"github.com/gofhir/codebook/pkg/issue"
	"github.com/gofhir/codebook/pkg/logger"
	"github.com/gofhir/codebook/sheets"
)

const version = "0.1.0"

// errIssuesFound fails a strict run that logged issues.
var errIssuesFound = errors.New("issues found")

// flags shared by build and validate.
type runFlags struct {
	configPath string
	logLevel   string
	console    bool
	sheetsDir  string
	sheetsURL  string
	offline    bool
	outDir     string
	verify     bool
	strict     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	f := &runFlags{}
	rootCmd := &cobra.Command{
		Use:          "codebook",
		Short:        "Compile the PPI codebook sheets into FHIR terminology",
		SilenceUsage: true,
	}
	rootCmd.SetOut(stdout)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "config/ppi-codebook.json", "Path to the configuration file")
	pf.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn, error, none")
	pf.BoolVar(&f.console, "console", false, "Human-readable log output")
	pf.StringVar(&f.sheetsDir, "sheets-dir", "", "Directory of downloaded sheets (default <out>/sheets)")
	pf.BoolVar(&f.offline, "offline", false, "Read sheets from --sheets-dir instead of downloading")
	pf.StringVar(&f.sheetsURL, "sheets-url", sheets.DefaultBaseURL, "Spreadsheet export host")
	_ = pf.MarkHidden("sheets-url")
	pf.BoolVar(&f.verify, "verify", false, "Re-read the compiled documents before writing")
	pf.BoolVar(&f.strict, "strict", false, "Fail when any issue is logged")

	rootCmd.AddCommand(buildCmd(f))
	rootCmd.AddCommand(validateCmd(f))
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func buildCmd(f *runFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Download the sheets, compile them and write the documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := prepare(cmd.Context(), f, false)
			if err != nil {
				return err
			}
			defer s.close()
			res, err := s.compile(cmd.Context())
			if err != nil {
				return err
			}

			w := output.NewWriter(s.outDir, s.cfg.ID, s.log)
			if err := w.Write(res.Artifacts, res.Artifacts.CodeSystem.Version); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res)
			for _, p := range w.Paths() {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
			}
			return s.strictCheck(res)
		},
	}
	cmd.Flags().StringVar(&f.outDir, "out", "", "Output directory (default from configuration)")
	return cmd
}

func validateCmd(f *runFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Compile the sheets and print the issues without writing documents",
		Long: `Compile the sheets and print the issues without writing documents.

Unless --offline or --sheets-dir is given, the sheets are downloaded into a
temporary directory that is removed when the command ends.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := prepare(cmd.Context(), f, true)
			if err != nil {
				return err
			}
			defer s.close()
			res, err := s.compile(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSummary(out, res)
			if res.HasIssues() {
				fmt.Fprintln(out, "\nIssues:")
				for _, msg := range res.Issues.Messages() {
					fmt.Fprintf(out, "  %s\n", msg)
				}
			}
			return s.strictCheck(res)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tool version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "codebook v%s\n", version)
		},
	}
}

// session is a loaded configuration plus the resolved directories.
type session struct {
	flags     *runFlags
	cfg       *config.Config
	log       zerolog.Logger
	outDir    string
	sheetsDir string
	scratch   bool
}

// prepare loads the configuration and, unless offline, downloads the sheets.
// With scratch set and no --sheets-dir, downloads go to a temporary
// directory that close removes.
func prepare(ctx context.Context, f *runFlags, scratch bool) (*session, error) {
	log := newLogger(f)

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", f.configPath, err)
	}

	r := &session{flags: f, cfg: cfg, log: log, outDir: cfg.OutputDir, sheetsDir: f.sheetsDir}
	if f.outDir != "" {
		r.outDir = f.outDir
	}
	if r.sheetsDir == "" && scratch && !f.offline {
		dir, err := os.MkdirTemp("", "codebook-sheets-")
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets directory: %w", err)
		}
		r.sheetsDir, r.scratch = dir, true
	}
	if r.sheetsDir == "" {
		r.sheetsDir = filepath.Join(r.outDir, "sheets")
	}

	if f.offline {
		log.Info().Str("dir", r.sheetsDir).Msg("reading stored sheets")
		return r, nil
	}

	start := time.Now()
	client := sheets.NewClient(cfg.SheetID, sheets.WithLogger(log), sheets.WithBaseURL(f.sheetsURL))
	if err := client.FetchAll(ctx, r.sheetsDir, cfg.Downloads()...); err != nil {
		r.close()
		return nil, err
	}
	log.Info().
		Int("sheets", len(cfg.Sheets)).
		Str("dir", r.sheetsDir).
		Dur("took", time.Since(start)).
		Msg("sheets downloaded")
	return r, nil
}

// close removes a temporary sheets directory.
func (r *session) close() {
	if !r.scratch {
		return
	}
	if err := os.RemoveAll(r.sheetsDir); err != nil {
		r.log.Warn().Err(err).Str("dir", r.sheetsDir).Msg("failed to remove downloaded sheets")
	}
}

func (r *session) compile(ctx context.Context) (*codebook.Result, error) {
	in, err := sheets.Dir(r.sheetsDir).Input(config.VersionSheetName, r.cfg.SheetNames()...)
	if err != nil {
		return nil, err
	}

	opts := append(r.cfg.CompilerOptions(r.log), codebook.WithVerification(r.flags.verify))
	c, err := codebook.New(opts...)
	if err != nil {
		return nil, err
	}
	return c.Compile(ctx, in)
}

func (r *session) strictCheck(res *codebook.Result) error {
	if r.flags.strict && res.HasIssues() {
		return fmt.Errorf("%w: %d", errIssuesFound, res.Issues.Len())
	}
	return nil
}

func newLogger(f *runFlags) zerolog.Logger {
	level := logger.ParseLevel(f.logLevel)
	if f.console {
		return logger.NewConsole(os.Stderr, level)
	}
	return logger.New(os.Stderr, level)
}

func printSummary(w io.Writer, res *codebook.Result) {
	fmt.Fprintf(w, "# terms: %d\n", res.Stats.Entries)
	fmt.Fprintf(w, "# issues: %d (normalize %d, index %d, verify %d)\n", res.Stats.Issues,
		res.Stats.ByStage[issue.SourceNormalize], res.Stats.ByStage[issue.SourceIndex], res.Stats.ByStage[issue.SourceVerify])
	fmt.Fprintf(w, "# value sets: %d\n", res.Stats.ValueSets)

	roots := res.Index.Roots()
	codes := make([]string, 0, len(roots))
	for _, e := range roots {
		codes = append(codes, e.Coding().String())
	}
	fmt.Fprintf(w, "Top-level concepts\n  %s\n", strings.Join(codes, "\n  "))
}
