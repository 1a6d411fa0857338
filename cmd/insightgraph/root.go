package main

import (
	"errors"
	"fmt"

	"github.com/smallnest/insightgraph/agents"
	"github.com/smallnest/insightgraph/config"
	"github.com/smallnest/insightgraph/log"
	"github.com/smallnest/insightgraph/rag/ingest"
	"github.com/smallnest/insightgraph/report"
	"github.com/spf13/cobra"
)

// retrievalFailedMessage is shown when a query does not converge.
const retrievalFailedMessage = "Retrieval failed, please try again in a moment"

type options struct {
	insertFile      string
	insertDirectory string
	query           string
	updateSummary   bool
	watchDirectory  string
	debug           bool
	thread          string
	reportPath      string
	configPath      string
	concurrency     int
}

var actionFlags = []string{"insert-file", "insert-directory", "query", "update-summary", "watch-directory"}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "insightgraph",
		Short:         "Ingest documents and ask questions about them",
		Long:          `Ingest data files into a deduplicated, searchable store and answer questions over them with retrieval, analysis and visualization workers.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd, opts)
			if err != nil {
				printError(cmd.ErrOrStderr(), err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.insertFile, "insert-file", "", "Path to data file for processing")
	f.StringVar(&opts.insertDirectory, "insert-directory", "", "Path to directory with files for processing")
	f.StringVar(&opts.query, "query", "", "Analysis query to run")
	f.BoolVar(&opts.updateSummary, "update-summary", false, "Update the documents overview")
	f.StringVar(&opts.watchDirectory, "watch-directory", "", "Ingest files as they appear in a directory")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	f.StringVar(&opts.thread, "thread", "", "Continue the conversation thread with this id")
	f.StringVar(&opts.reportPath, "report", "", "Write the answer of --query as an HTML report to this file")
	f.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	f.IntVar(&opts.concurrency, "concurrency", 0, "Files ingested in parallel by --insert-directory")

	cmd.MarkFlagsMutuallyExclusive(actionFlags...)
	cmd.MarkFlagsOneRequired(actionFlags...)

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	if (opts.thread != "" || opts.reportPath != "") && opts.query == "" {
		return errors.New("--thread and --report require --query")
	}
	concurrencySet := cmd.Flags().Changed("concurrency")
	if concurrencySet && opts.concurrency <= 0 {
		return fmt.Errorf("--concurrency must be positive, got %d", opts.concurrency)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if concurrencySet {
		cfg.Ingest.Concurrency = opts.concurrency
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	if opts.debug {
		level = log.LogLevelDebug
	}
	log.SetLogLevel(level)

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	switch {
	case opts.query != "":
		return runQuery(cmd, a, opts)

	case opts.insertFile != "":
		p, err := a.pipeline(ctx)
		if err != nil {
			return err
		}
		res := ingest.FileResult{Path: opts.insertFile}
		res.IDs, res.Err = p.Ingest(ctx, opts.insertFile)
		printFileResult(out, res)
		return res.Err

	case opts.insertDirectory != "":
		p, err := a.pipeline(ctx)
		if err != nil {
			return err
		}
		results, err := p.IngestDirectory(ctx, opts.insertDirectory)
		for _, res := range results {
			printFileResult(out, res)
		}
		return err

	case opts.updateSummary:
		if err := a.overview.Recompute(ctx); err != nil {
			return err
		}
		return printOverview(out, a.overview)

	case opts.watchDirectory != "":
		p, err := a.pipeline(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, styles.muted.Render("Watching "+opts.watchDirectory+", press Ctrl+C to stop"))
		return p.Watch(ctx, opts.watchDirectory, func(res ingest.FileResult) {
			printFileResult(out, res)
		})
	}
	return nil
}

func runQuery(cmd *cobra.Command, a *app, opts *options) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if err := printOverview(out, a.overview); err != nil {
		return err
	}

	session, err := a.session(ctx)
	if err != nil {
		return err
	}

	thread := opts.thread
	if thread == "" {
		thread = agents.NewThreadID()
	}

	res, runErr := session.Ask(ctx, thread, opts.query)
	printConversation(out, res.State)
	fmt.Fprintln(out, styles.muted.Render("thread: "+thread))

	if runErr != nil {
		if errors.Is(runErr, agents.ErrNotConverged) {
			fmt.Fprintln(out, styles.warning.Render(retrievalFailedMessage))
		}
		return runErr
	}

	if opts.reportPath != "" {
		overview, err := a.overview.Read()
		if err != nil {
			return err
		}
		r := report.Report{
			Query:    opts.query,
			Answer:   res.Answer,
			Overview: overview,
		}
		if res.Visualization != nil {
			r.Images = res.Visualization.Images
			r.VisualizationError = res.Visualization.Error
		}
		if err := report.WriteFile(opts.reportPath, r); err != nil {
			return err
		}
		fmt.Fprintln(out, styles.success.Render("Report written to "+opts.reportPath))
	}
	return nil
}
