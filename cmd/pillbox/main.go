// Package main is the pillbox CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/pillbox/internal/cli"
	"github.com/hyperjump/pillbox/internal/config"
	"github.com/hyperjump/pillbox/internal/keyword"
	"github.com/hyperjump/pillbox/internal/models"
	"github.com/hyperjump/pillbox/internal/schedule"
	"github.com/hyperjump/pillbox/internal/server"
	"github.com/hyperjump/pillbox/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/pillbox/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// When the default path does not exist either, built-in defaults are used with
// paths relative to the current directory.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
			if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
				return config.Default(cwd), "", nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

type globalOptions struct {
	configPath string
	debug      bool
	output     string
}

// env is the state shared by one command invocation.
type env struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	format     cli.OutputFormat
	debug      bool
}

func (o *globalOptions) setup() (*env, error) {
	format, err := cli.ParseOutputFormat(o.output)
	if err != nil {
		return nil, err
	}
	cfg, resolved, err := loadConfig(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || o.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &env{cfg: cfg, configPath: resolved, logger: logger, format: format, debug: debugMode}, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:          "pillbox",
		Short:        "Read medicine names and dosing from pill-label OCR text",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", string(cli.OutputText), "output format: text or json")

	lexiconCmd := &cobra.Command{Use: "lexicon", Short: "Inspect the drug lexicon"}
	lexiconCmd.AddCommand(newLexiconSearchCmd(opts), newLexiconStatsCmd(opts))

	root.AddCommand(
		newServerCmd(opts),
		newMatchCmd(opts),
		newParseCmd(opts),
		lexiconCmd,
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pillbox version %s\n", version)
		},
	}
}

func newServerCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup()
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			return runServer(cmd.Context(), e)
		},
	}
}

func runServer(ctx context.Context, e *env) error {
	logger := e.logger
	logger.Info("config loaded",
		zap.String("config_path", e.configPath),
		zap.String("lexicon", e.cfg.Lexicon.Path),
		zap.String("cache", e.cfg.DrugInfo.Cache),
		zap.Bool("debug", e.debug),
	)

	components, err := initializeComponents(ctx, e.cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if components.Watcher != nil {
		if err := components.Watcher.Start(watchCtx); err != nil {
			logger.Warn("lexicon watcher not started", zap.Error(err))
		}
	}

	srv := server.NewServer(components.Service, &e.cfg.Server, logger,
		server.WithLexiconIndex(components.Index, components.Spell),
		server.WithMetrics(components.Metrics),
	)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	select {
	case <-sigChan:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	return nil
}

type inputOptions struct {
	file string
}

func (in *inputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.file, "file", "f", "",
		`read OCR lines from a file ("-" for stdin); one line per text or an OCR JSON batch`)
}

func newMatchCmd(opts *globalOptions) *cobra.Command {
	in := &inputOptions{}
	cmd := &cobra.Command{
		Use:   "match [text...]",
		Short: "Match OCR lines against the lexicon without looking anything up",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup()
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			batch, err := batchFromArgs(args, in.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			components, err := initializeComponents(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer components.Close()
			res := components.Service.Match(batch)
			return cli.WriteCandidates(cmd.OutOrStdout(), res.Candidates, e.format)
		},
	}
	in.register(cmd)
	return cmd
}

func newParseCmd(opts *globalOptions) *cobra.Command {
	in := &inputOptions{}
	var breakfast, lunch, dinner string
	cmd := &cobra.Command{
		Use:   "parse [text...]",
		Short: "Extract medicines, dosing and alarms from OCR lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup()
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			batch, err := batchFromArgs(args, in.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			components, err := initializeComponents(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer components.Close()

			meals := components.Service.MealTimes()
			if breakfast != "" || lunch != "" || dinner != "" {
				meals, err = schedule.ParseMealTimes(
					orClock(breakfast, meals.Breakfast), orClock(lunch, meals.Lunch), orClock(dinner, meals.Dinner))
				if err != nil {
					return err
				}
			}
			res := components.Service.Parse(cmd.Context(), batch)
			return cli.WriteParseReport(cmd.OutOrStdout(), &cli.ParseReport{
				Medicines:  res.Medicines,
				Candidates: res.Candidates,
				Alarms:     components.Service.Alarms(res.Medicines, meals),
			}, e.format)
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&breakfast, "breakfast", "", "breakfast time (HH:MM)")
	cmd.Flags().StringVar(&lunch, "lunch", "", "lunch time (HH:MM)")
	cmd.Flags().StringVar(&dinner, "dinner", "", "dinner time (HH:MM)")
	return cmd
}

func orClock(v string, def schedule.Clock) string {
	if v == "" {
		return def.String()
	}
	return v
}

func newLexiconSearchCmd(opts *globalOptions) *cobra.Command {
	var fuzzy bool
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search lexicon aliases",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup()
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			components, err := initializeComponents(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer components.Close()

			query := strings.Join(args, " ")
			var searchOpts *keyword.SearchOptions
			if fuzzy {
				searchOpts = &keyword.SearchOptions{Fuzzy: true}
			}
			results, err := components.Index.Search(query, limit, searchOpts)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			report := &cli.SearchReport{Query: query, Results: results}
			if check, err := components.Spell.Check(query); err == nil && check.HasCorrections {
				report.SpellCheck = check
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), report, e.format)
		},
	}
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "allow one edit per term")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	return cmd
}

func newLexiconStatsCmd(opts *globalOptions) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show lexicon statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup()
			if err != nil {
				return err
			}
			defer e.logger.Sync()
			components, err := initializeComponents(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer components.Close()
			lex := components.Store.Current()
			return cli.WriteStats(cmd.OutOrStdout(), &cli.StatsReport{
				Stats:    lex.Stats(),
				TopRoots: lex.TopRoots(top),
			}, e.format)
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of common roots to show")
	return cmd
}

// batchFromArgs builds the OCR batch from positional texts or --file.
func batchFromArgs(args []string, file string, stdin io.Reader) (models.OCRBatch, error) {
	switch {
	case file == "-":
		return readBatch(stdin)
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return models.OCRBatch{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		return readBatch(f)
	case len(args) > 0:
		return models.OCRBatch{Texts: args}, nil
	}
	return models.OCRBatch{}, errors.New("no input: pass texts as arguments or use --file")
}

// readBatch accepts either an OCR JSON batch ({"texts": [...], "scores": [...]})
// or plain text with one OCR line per line.
func readBatch(r io.Reader) (models.OCRBatch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.OCRBatch{}, fmt.Errorf("read input: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var batch models.OCRBatch
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return models.OCRBatch{}, fmt.Errorf("parse OCR batch: %w", err)
		}
		if err := batch.Validate(); err != nil {
			return models.OCRBatch{}, err
		}
		return batch, nil
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return models.OCRBatch{Texts: []string{}}, nil
	}
	return models.OCRBatch{Texts: strings.Split(text, "\n")}, nil
}
