// Command scriptflow runs shell commands through the execution, analysis and
// report pipeline from the terminal. Results persist under a data directory
// so later invocations can analyze and report on stored runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"scriptflow/internal/analysis"
	"scriptflow/internal/executor"
	"scriptflow/internal/llm"
	"scriptflow/internal/monitor"
	"scriptflow/internal/report"
	"scriptflow/internal/storage"
	"scriptflow/internal/store"
)

var (
	dataDir string
	verbose bool

	// run flags
	runShell   bool
	runTimeout time.Duration
	runWorkDir string
	runAnalyze bool

	// list flags
	listLimit  int
	listOffset int
	listStatus string

	// analyze flags
	analysisType string
	enableAI     bool
	aiContext    string

	// report flags
	reportFormat   string
	reportTemplate string
	reportOutput   string
	reportAnalysis string
	noDetails      bool
)

func main() {
	root := &cobra.Command{
		Use:   "scriptflow",
		Short: "Run shell commands, analyze their outcomes and render reports",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
			if !verbose {
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}
		},
	}

	root.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "Directory for persisted results")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	runCmd := &cobra.Command{
		Use:   "run [command...]",
		Short: "Execute a command and store its result",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().BoolVar(&runShell, "shell", false, "Run via sh -c instead of whitespace tokenization")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Second, "Execution timeout")
	runCmd.Flags().StringVar(&runWorkDir, "workdir", "", "Working directory")
	runCmd.Flags().BoolVar(&runAnalyze, "analyze", false, "Run a basic analysis after execution")
	root.AddCommand(runCmd)

	root.AddCommand(&cobra.Command{
		Use:   "get [id]",
		Short: "Print a stored result",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	})

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"history"},
		Short:   "List stored results",
		RunE:    runList,
	}
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum entries to show")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Entries to skip")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (success, failed, timeout, error)")
	root.AddCommand(listCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [id]",
		Short: "Analyze a stored result",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeCmd,
	}
	analyzeCmd.Flags().StringVar(&analysisType, "type", "basic", "Analysis type (basic, detailed, ai, comprehensive)")
	analyzeCmd.Flags().BoolVar(&enableAI, "ai", false, "Enable the LLM-backed analyzer")
	analyzeCmd.Flags().StringVar(&aiContext, "context", "", "Extra context for the AI analyzer")
	root.AddCommand(analyzeCmd)

	reportCmd := &cobra.Command{
		Use:   "report [id]",
		Short: "Generate a report for a stored result",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", report.FormatMarkdown, "Report format (markdown, html, json)")
	reportCmd.Flags().StringVar(&reportTemplate, "template", report.TemplateDefault, "Template variant")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report to this path")
	reportCmd.Flags().StringVar(&reportAnalysis, "analysis", "", "Run this analysis type and embed it (basic, detailed, comprehensive)")
	reportCmd.Flags().BoolVar(&noDetails, "no-details", false, "Omit raw stdout/stderr")
	root.AddCommand(reportCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("SCRIPTFLOW_DATA_DIR"); dir != "" {
		return dir
	}
	return ".scriptflow"
}

func openStore() (*storage.FileStore, error) {
	return storage.NewFileStore(dataDir)
}

func newExecutionEngine() (*executor.Engine, *storage.FileStore, error) {
	fileStore, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	mon := monitor.New(monitor.DefaultHistorySize)
	engine := executor.NewEngine(
		store.NewMemoryStore[*executor.Result](),
		executor.WithObserver(mon),
	)
	return engine, fileStore, nil
}

func newAnalysisEngine() *analysis.Engine {
	client, err := llm.NewFromEnv()
	if err != nil && err != llm.ErrNotConfigured {
		log.Warn().Err(err).Msg("LLM backend unavailable, AI analyses will degrade")
	}
	return analysis.NewEngine(
		store.NewMemoryStore[*analysis.Record](),
		analysis.NewAIAnalyzer(client),
	)
}

func runRun(cmd *cobra.Command, args []string) error {
	engine, fileStore, err := newExecutionEngine()
	if err != nil {
		return err
	}

	command := args[0]
	for _, arg := range args[1:] {
		command += " " + arg
	}

	res, _ := engine.Execute(context.Background(), command, executor.Options{
		Shell:            runShell,
		Timeout:          runTimeout,
		WorkingDirectory: runWorkDir,
	})

	if err := fileStore.SaveResult(res); err != nil {
		log.Warn().Err(err).Str("script_id", res.ID).Msg("persisting result failed")
	}

	printResultSummary(res)

	if runAnalyze {
		rec, err := newAnalysisEngine().AnalyzeScriptResult(context.Background(), res, analysis.Options{Type: analysis.TypeBasic})
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(rec.Summary)
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	fileStore, err := openStore()
	if err != nil {
		return err
	}
	res, err := fileStore.LoadResult(args[0])
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	fileStore, err := openStore()
	if err != nil {
		return err
	}
	entries, err := fileStore.Index()
	if err != nil {
		return err
	}

	shown := 0
	skipped := 0
	for _, entry := range entries {
		if entry.Kind != "result" {
			continue
		}
		if listStatus != "" {
			res, loadErr := fileStore.LoadResult(entry.ID)
			if loadErr != nil || res.Status() != listStatus {
				continue
			}
		}
		if skipped < listOffset {
			skipped++
			continue
		}
		if shown >= listLimit {
			break
		}
		fmt.Printf("%s\t%s\t%d bytes\n", entry.ID, entry.SavedAt.Format(time.RFC3339), entry.SizeBytes)
		shown++
	}
	if shown == 0 {
		fmt.Println("no stored results")
	}
	return nil
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	fileStore, err := openStore()
	if err != nil {
		return err
	}
	res, err := fileStore.LoadResult(args[0])
	if err != nil {
		return err
	}

	rec, err := newAnalysisEngine().AnalyzeScriptResult(context.Background(), res, analysis.Options{
		Type:     analysis.Type(analysisType),
		EnableAI: enableAI,
		Context:  aiContext,
	})
	if err != nil {
		return err
	}

	if err := fileStore.SaveAnalysis(rec); err != nil {
		log.Warn().Err(err).Str("analysis_id", rec.ID).Msg("persisting analysis failed")
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	fileStore, err := openStore()
	if err != nil {
		return err
	}
	res, err := fileStore.LoadResult(args[0])
	if err != nil {
		return err
	}

	var rec *analysis.Record
	if reportAnalysis != "" {
		rec, err = newAnalysisEngine().AnalyzeScriptResult(context.Background(), res, analysis.Options{
			Type: analysis.Type(reportAnalysis),
		})
		if err != nil {
			return err
		}
	}

	opts := report.DefaultOptions()
	opts.Format = reportFormat
	opts.Template = reportTemplate
	opts.OutputPath = reportOutput
	if noDetails {
		opts.IncludeDetails = false
	}

	out, err := report.NewEngine().GenerateReport(res, rec, opts)
	if err != nil {
		return err
	}
	if reportOutput == "" {
		fmt.Println(out)
	} else {
		fmt.Println("report written to", report.FinalPath(reportOutput, reportFormat))
	}
	return nil
}

func printResultSummary(res *executor.Result) {
	fmt.Printf("id:       %s\n", res.ID)
	fmt.Printf("success:  %t\n", res.Success)
	if res.ExitCode != nil {
		fmt.Printf("exit:     %d\n", *res.ExitCode)
	} else {
		fmt.Printf("exit:     none\n")
	}
	fmt.Printf("duration: %s\n", res.Duration.Round(time.Millisecond))
	if res.Failure != nil {
		fmt.Printf("error:    %s (%s)\n", res.Failure.Message, res.Failure.Kind)
	}
	if res.Stdout != "" {
		fmt.Printf("\n%s", res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintf(os.Stderr, "%s", res.Stderr)
	}
}
