package cmd

import (
	stdcontext "context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"itercheck/internal/analyzer"
	"itercheck/internal/config"
	"itercheck/internal/models"
	"itercheck/internal/watcher"
)

var (
	formatFlag         string
	watchFlag          bool
	configFlag         string
	generateConfigFlag bool
	verboseFlag        bool
	jobsFlag           int
	outputFlag         string

	// exitStatus is set by the command and returned by Execute.
	exitStatus int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "itercheck [files or directories]",
	Short: "Find Python iterators that are exhausted by a loop and then reused",
	Long: `itercheck is a static analysis tool that scans Python code for single-pass
iterators (map, filter, zip, generator expressions, ...) created outside a
loop and consumed again on every pass of it. After the first pass such an
iterator is empty, which silently drops data.

Examples:
  itercheck .                              # Analyze current directory
  itercheck app.py jobs/                   # Analyze specific files and directories
  itercheck --format=json .                # Output results in JSON format
  itercheck --config=.itercheck.yml .      # Use custom config
  itercheck --watch src/                   # Re-check files as they change
  itercheck --generate-config              # Generate sample config file`,
	Run: func(cmd *cobra.Command, args []string) {
		exitStatus = runAnalysis(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if exitStatus != 0 {
		os.Exit(exitStatus)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format (console, json)")
	rootCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch mode for development")
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to configuration file")
	rootCmd.Flags().BoolVar(&generateConfigFlag, "generate-config", false, "Generate sample configuration file")
	rootCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show configuration and debug logs")
	rootCmd.Flags().IntVarP(&jobsFlag, "jobs", "j", 0, "Number of files analyzed in parallel (default from config)")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the report to a file")
}

// runAnalysis returns the process exit status. It never exits itself, so
// deferred cleanup always runs.
func runAnalysis(cmd *cobra.Command, args []string) int {
	if generateConfigFlag {
		return generateConfig()
	}

	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		color.Red("Error loading configuration: %v\n", err)
		return 1
	}
	if err := applyFlags(cfg); err != nil {
		color.Red("Invalid options: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Output.Verbose)
	defer func() { _ = logger.Sync() }()

	if len(args) == 0 {
		args = []string{"."}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := analyzer.NewAnalyzer(cfg, analyzer.WithLogger(logger))
	reportGen := analyzer.NewReportGeneratorWithConfig(cfg)

	if watchFlag {
		if err := watch(ctx, cmd.OutOrStdout(), cfg, engine, reportGen, args, logger); err != nil {
			color.Red("Watch mode failed: %v\n", err)
			return 1
		}
		return 0
	}

	files, err := engine.CollectFiles(args)
	if err != nil {
		color.Red("Error collecting files: %v\n", err)
		return 1
	}
	if len(files) == 0 {
		color.Yellow("⚠️  No Python files found to analyze\n")
		return 0
	}

	if cfg.Output.Verbose {
		color.Cyan("🔍 Analyzing %d Python files with %d detectors (%s)...\n",
			len(files), engine.GetDetectorCount(), strings.Join(engine.GetDetectorNames(), ", "))
		if configFlag != "" {
			color.Cyan("📋 Using configuration: %s\n\n", configFlag)
		}
	} else if cfg.Output.Format == "console" {
		color.Cyan("🔍 Analyzing %d Python files...\n\n", len(files))
	}

	result, err := engine.AnalyzeFiles(ctx, files)
	if err != nil {
		color.Red("Analysis failed: %v\n", err)
		return 1
	}

	if err := emitReport(cmd.OutOrStdout(), reportGen.Generate(result), cfg.Output.OutputFile); err != nil {
		color.Red("Failed to write report to file: %v\n", err)
		return 1
	}

	return exitCode(cfg, result)
}

// applyFlags lets command line flags override the loaded configuration.
func applyFlags(cfg *config.Config) error {
	if formatFlag != "" {
		cfg.Output.Format = formatFlag
	}
	if verboseFlag {
		cfg.Output.Verbose = true
	}
	if jobsFlag > 0 {
		cfg.Analysis.MaxWorkers = jobsFlag
	}
	if outputFlag != "" {
		cfg.Output.OutputFile = outputFlag
	}
	return cfg.Validate()
}

// newLogger returns a development logger for verbose runs and a no-op
// logger otherwise.
func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// exitCode is 1 when fail_on_issues is set and anything was reported.
func exitCode(cfg *config.Config, result *models.AnalysisResult) int {
	if cfg.Analysis.FailOnIssues && result.TotalIssues > 0 {
		return 1
	}
	return 0
}

func emitReport(w io.Writer, report, filePath string) error {
	if filePath == "" {
		_, err := io.WriteString(w, report)
		return err
	}
	if err := writeReportToFile(report, filePath); err != nil {
		return err
	}
	color.Green("📄 Report saved to: %s\n", filePath)
	return nil
}

func writeReportToFile(report, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	if err := os.WriteFile(filePath, []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// watch analyses args once, then re-analyses every batch of changed files
// until ctx is canceled.
func watch(ctx stdcontext.Context, out io.Writer, cfg *config.Config, engine *analyzer.Analyzer, reportGen *analyzer.ReportGenerator, args []string, logger *zap.Logger) error {
	files, err := engine.CollectFiles(args)
	if err != nil {
		return fmt.Errorf("failed to collect files: %w", err)
	}

	check := func(files []string) error {
		if len(files) == 0 {
			return nil
		}
		result, err := engine.AnalyzeFiles(ctx, files)
		if err != nil {
			return err
		}
		return emitReport(out, reportGen.Generate(result), cfg.Output.OutputFile)
	}
	if err := check(files); err != nil {
		return err
	}

	fw, err := watcher.NewFileWatcher(cfg, logger)
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Watch(args, func(changed []string) error {
		color.Cyan("\n🔄 %d file(s) changed, re-analyzing...\n\n", len(changed))
		return check(changed)
	}); err != nil {
		return err
	}

	color.Cyan("👀 Watching %d directories for changes (Ctrl+C to stop)\n", len(fw.GetWatchedPaths()))
	<-ctx.Done()
	color.Cyan("\n👋 Stopped watching\n")
	return nil
}

func generateConfig() int {
	configPath := ".itercheck.yml"
	if err := config.GenerateConfig(configPath); err != nil {
		color.Red("Failed to generate config file: %v\n", err)
		return 1
	}
	color.Green("✅ Generated sample configuration file: %s\n", configPath)
	color.Cyan("📝 Edit this file to customize itercheck behavior\n")
	color.Cyan("🚀 Run 'itercheck --config=%s .' to use it\n", configPath)
	return 0
}
