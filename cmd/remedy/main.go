// Package main provides the remedy CLI: a self-healing browser test runner.
// Failed tests are captured, diagnosed by a vision-capable model, optionally
// patched on disk, and re-run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/remedyqa/remedy/pkg/agentloop"
	"github.com/remedyqa/remedy/pkg/config"
	"github.com/remedyqa/remedy/pkg/driver"
	"github.com/remedyqa/remedy/pkg/healer"
	"github.com/remedyqa/remedy/pkg/llm/openai"
	"github.com/remedyqa/remedy/pkg/logging"
	"github.com/remedyqa/remedy/pkg/oracle"
	"github.com/remedyqa/remedy/pkg/orchestrator"
	"github.com/remedyqa/remedy/pkg/types"
)

const version = "0.1.0"

// cliFlags holds the flag overlay applied on top of the config file.
type cliFlags struct {
	configFile string

	verbose bool
	quiet   bool

	noHealing           bool
	autoApply           bool
	confidenceThreshold float64
	framework           string
	outputDir           string
	model               string
	baseURL             string

	task string
	url  string
}

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		usage()
		return 2
	}

	cmd := os.Args[1]
	if cmd == "--version" || cmd == "version" {
		fmt.Printf("remedy v%s\n", version)
		return 0
	}

	flags, args, err := parseFlags(cmd, os.Args[2:])
	if err != nil {
		return 2
	}

	applyLogLevel(flags)

	cfg, err := buildConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remedy: %v\n", err)
		return 2
	}

	if cmd == "validate-config" {
		return cmdValidateConfig(cfg)
	}
	if cmd == "stats" {
		return cmdStats(cfg)
	}

	// Everything past this point talks to the oracle and the browser.
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "remedy: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nshutting down...")
		cancel()
	}()

	switch cmd {
	case "run":
		return cmdRun(ctx, cfg, args)
	case "suite":
		return cmdSuite(ctx, cfg, args)
	case "agent":
		return cmdAgent(ctx, cfg, flags)
	default:
		fmt.Fprintf(os.Stderr, "remedy: unknown command %q\n\n", cmd)
		usage()
		return 2
	}
}

func parseFlags(cmd string, argv []string) (*cliFlags, []string, error) {
	flags := &cliFlags{}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)

	fs.StringVar(&flags.configFile, "config", "", "Path to configuration file (YAML)")
	fs.BoolVar(&flags.verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&flags.quiet, "quiet", false, "Log errors only")
	fs.BoolVar(&flags.noHealing, "no-healing", false, "Disable the healing path entirely")
	fs.BoolVar(&flags.autoApply, "auto-apply", false, "Apply healing actions without human review")
	fs.Float64Var(&flags.confidenceThreshold, "confidence-threshold", -1, "Minimum confidence for auto-applied actions (0-1)")
	fs.StringVar(&flags.framework, "framework", "", "Test framework dialect: yaml, playwright, cypress, puppeteer")
	fs.StringVar(&flags.outputDir, "output-dir", "", "Directory for reports and screenshots")
	fs.StringVar(&flags.model, "model", "", "Oracle model name")
	fs.StringVar(&flags.baseURL, "base-url", "", "OpenAI-compatible API base URL")

	if cmd == "agent" {
		fs.StringVar(&flags.task, "task", "", "Natural-language task for the agentic loop")
		fs.StringVar(&flags.url, "url", "", "Start URL for the agentic loop")
	}

	fs.Usage = func() {
		usage()
		fmt.Fprintf(os.Stderr, "Options for %s:\n", cmd)
		fs.PrintDefaults()
	}

	if err := fs.Parse(argv); err != nil {
		return nil, nil, err
	}
	return flags, fs.Args(), nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `remedy - self-healing browser test runner

Usage:
  remedy run <test-path> [options]      Run one test with healing retries
  remedy suite <test-dir> [options]     Run every discovered test under a directory
  remedy agent -task <text> -url <url>  Drive a natural-language browser task
  remedy stats [options]                Print the latest suite report
  remedy validate-config [options]      Check the configuration and exit

Exit code is 0 only when every test ends passed or healed.

`)
}

func applyLogLevel(flags *cliFlags) {
	switch {
	case flags.verbose:
		logging.SetGlobalLevel(logging.LevelDebug)
	case flags.quiet:
		logging.SetGlobalLevel(logging.LevelError)
	default:
		logging.SetGlobalLevel(logging.LevelInfo)
	}
}

// buildConfig loads the config file (when given) and overlays CLI flags.
// Flags always win over the file.
func buildConfig(flags *cliFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configFile != "" {
		loaded, err := config.Load(flags.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.noHealing {
		cfg.HealingEnabled = false
	}
	if flags.autoApply {
		cfg.AutoApply = true
	}
	if flags.confidenceThreshold >= 0 {
		cfg.ConfidenceThreshold = flags.confidenceThreshold
	}
	if flags.framework != "" {
		cfg.Framework = config.Framework(flags.framework)
	}
	if flags.outputDir != "" {
		cfg.OutputDir = flags.outputDir
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}

	return cfg, nil
}

// buildEngine wires the driver, oracle and applier behind an orchestrator.
// The returned cleanup tears the browser down on every exit path.
func buildEngine(cfg *config.Config) (*orchestrator.Orchestrator, *oracle.Oracle, driver.Driver, func(), error) {
	providerOpts := []openai.ProviderOption{openai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		providerOpts = append(providerOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	provider, err := openai.NewProvider(cfg.ResolveAPIKey(), providerOpts...)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("oracle provider: %w", err)
	}

	d := driver.NewPlaywrightDriver(driver.Options{
		Headless: cfg.Browser.Headless,
		Viewport: types.Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
		ActionTimeout: cfg.Timeouts.Action.Std(),
	})
	if err := d.Initialize(); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("browser driver: %w", err)
	}
	cleanup := func() {
		if err := d.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "remedy: driver close: %v\n", err)
		}
	}

	orc := oracle.New(provider, oracle.Options{
		MaxRetries:      cfg.Oracle.MaxRetries,
		BackoffBase:     cfg.Oracle.BackoffBase.Std(),
		MaxOutputTokens: cfg.Oracle.MaxOutputTokens,
		CallTimeout:     cfg.Timeouts.Oracle.Std(),
	})

	eng := orchestrator.New(cfg, d, orc, healer.NewApplier(cfg.Framework))
	return eng, orc, d, cleanup, nil
}

func cmdRun(ctx context.Context, cfg *config.Config, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "remedy: run requires exactly one test path")
		return 2
	}

	eng, _, _, cleanup, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remedy: %v\n", err)
		return 2
	}
	defer cleanup()

	result := eng.RunTest(ctx, args[0])
	printResult(result)

	if result.Status.Succeeded() {
		return 0
	}
	return 1
}

func cmdSuite(ctx context.Context, cfg *config.Config, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "remedy: suite requires exactly one test directory")
		return 2
	}

	eng, _, _, cleanup, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remedy: %v\n", err)
		return 2
	}
	defer cleanup()

	suite, err := eng.RunSuite(ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "remedy: %v\n", err)
		return 2
	}

	for _, result := range suite.Results {
		printResult(result)
	}
	fmt.Printf("\n%d test(s): %d passed, %d healed, %d failed — success rate %.1f%%\n",
		suite.TotalTests, suite.PassedTests, suite.HealedTests, suite.FailedTests, suite.SuccessRate())
	if suite.TotalCost.TotalTokens > 0 {
		fmt.Printf("healing spend: %d tokens (~$%.4f)\n", suite.TotalCost.TotalTokens, suite.TotalCost.USD)
	}

	if suite.AllSucceeded() {
		return 0
	}
	return 1
}

func cmdAgent(ctx context.Context, cfg *config.Config, flags *cliFlags) int {
	if flags.task == "" || flags.url == "" {
		fmt.Fprintln(os.Stderr, "remedy: agent requires -task and -url")
		return 2
	}

	_, orc, d, cleanup, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remedy: %v\n", err)
		return 2
	}
	defer cleanup()

	loop := agentloop.New(d, orc, agentloop.Options{MaxIterations: cfg.MaxLoopIterations})
	result, err := loop.Run(ctx, flags.task, flags.url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remedy: agent task failed: %v\n", err)
		return 1
	}

	fmt.Printf("task %s after %d iteration(s), %d tokens (~$%.4f)\n",
		completionWord(result.Completed), result.Iterations, result.Cost.TotalTokens, result.Cost.USD)
	if result.FinalText != "" {
		fmt.Println(result.FinalText)
	}

	if result.Completed {
		return 0
	}
	return 1
}

func completionWord(completed bool) string {
	if completed {
		return "completed"
	}
	return "did not complete"
}

func cmdStats(cfg *config.Config) int {
	suite, err := orchestrator.LoadReport(cfg.OutputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remedy: %v\n", err)
		return 2
	}
	fmt.Print(orchestrator.RenderSummary(suite))
	return 0
}

func cmdValidateConfig(cfg *config.Config) int {
	if err := cfg.Validate(); err != nil {
		var cerr *types.ConfigError
		if errors.As(err, &cerr) && cerr.Field != "" {
			fmt.Fprintf(os.Stderr, "remedy: invalid configuration (%s): %v\n", cerr.Field, err)
		} else {
			fmt.Fprintf(os.Stderr, "remedy: invalid configuration: %v\n", err)
		}
		return 2
	}
	fmt.Println("configuration OK")
	return 0
}

// printResult reports one terminal test result: status, attempts, and the
// healing summary when the oracle was consulted.
func printResult(result *types.TestResult) {
	fmt.Printf("[%s] %s (%d attempt(s), %s)\n",
		result.Status, result.TestName, result.Attempts, result.Duration.Round(time.Millisecond))

	if result.HealingResult != nil && !result.HealingResult.Empty() {
		hr := result.HealingResult
		fmt.Printf("    healing: %d action(s), %d applied, confidence %.2f, %d tokens (~$%.4f)\n",
			len(hr.Actions), hr.AppliedCount(), hr.Confidence, hr.Cost.TotalTokens, hr.Cost.USD)
	}
	if result.Failure != nil && result.Failure.Error != nil {
		fmt.Printf("    failure: %s\n", result.Failure.Error.Error())
	}
}
