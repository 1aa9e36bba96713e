// NewsLens — LLM-backed news article analysis.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newslens/newslens/api"
	"github.com/newslens/newslens/internal/analyst"
	"github.com/newslens/newslens/internal/config"
	"github.com/newslens/newslens/internal/history"
	"github.com/newslens/newslens/internal/llm"
	"github.com/newslens/newslens/pkg/langs"
	"github.com/newslens/newslens/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "newslens",
	Short: "NewsLens — LLM-backed news article analysis",
	Long: `NewsLens analyzes news articles for tone and bias.
Given an article URL it returns a structured result: the title, three
summary variants, and a five-field bias analysis with quoted evidence.
It also translates results into other languages and lists current
headlines per category, with RSS feeds as a fallback.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(statusCmd)
}

// newAnalyst wires a one-shot Analyst for CLI commands. The credential
// check happens here: a missing key for the configured primary provider is
// a fatal startup error. Callers close the returned store.
func newAnalyst(ctx context.Context) (*analyst.Analyst, *llm.Router, history.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	router, err := llm.NewRouterFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("LLM setup failed: %w", err)
	}
	store, err := history.NewStoreFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("history setup failed: %w", err)
	}
	return analyst.NewFromConfig(cfg, router, store), router, store, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("NewsLens %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg)
		if err != nil {
			return err
		}
		if noUI, _ := cmd.Flags().GetBool("no-ui"); noUI {
			srv.SetServeUI(false)
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 NewsLens API server listening on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Bool("no-ui", false, "disable the embedded web UI")
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url]",
	Short: "Analyze a news article for tone and bias",
	Long:  "Fetch the article at the given URL and print its summary and bias analysis.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		a, router, store, err := newAnalyst(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if !asJSON {
			fmt.Printf("🔍 Analyzing %s (provider: %s)\n\n", args[0], router.Name())
		}
		result, err := a.Analyze(ctx, args[0], language)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(result)
		}
		printResult(result)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("language", langs.DefaultLanguage, "language for the analysis text")
	analyzeCmd.Flags().Bool("json", false, "print the raw JSON result")
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [category]",
	Short: "List current headlines for a category",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category := "general"
		if len(args) > 0 {
			category = args[0]
		}
		language, _ := cmd.Flags().GetString("language")
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		a, _, store, err := newAnalyst(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		headlines, err := a.FetchNews(ctx, category, language)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(headlines)
		}
		fmt.Printf("📰 Headlines — %s\n\n", category)
		for i, h := range headlines {
			fmt.Printf("  %2d. %s\n", i+1, h.Title)
			if h.Source != "" || h.URL != "" {
				fmt.Printf("      %s  %s\n", h.Source, h.URL)
			}
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().String("language", langs.DefaultLanguage, "language for the headline titles")
	newsCmd.Flags().Bool("json", false, "print the raw JSON result")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  NewsLens — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Primary, cfg.LLM.Model)
		fmt.Printf("    History:       %s\n", historyBackend())
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		keys := config.CheckAPIKeys(cfg)
		for _, k := range keys {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}
		fmt.Println()

		// Provider reachability
		fmt.Println("  Providers:")
		router, err := llm.NewRouterFromConfig(cfg)
		if err != nil {
			fmt.Printf("    ⚠️  %v\n", err)
		} else {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			for name, pingErr := range router.HealthCheck(ctx) {
				if pingErr != nil {
					fmt.Printf("    %-12s ❌ %v\n", name, pingErr)
				} else {
					fmt.Printf("    %-12s ✅ reachable\n", name)
				}
			}
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func historyBackend() string {
	if cfg.History.Backend == "redis" {
		return fmt.Sprintf("redis (%s)", cfg.History.Redis.Addr)
	}
	return "memory"
}

// --- Output helpers ---

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printResult(result *models.AnalysisResult) {
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  %s\n", result.Title)
	fmt.Println("═══════════════════════════════════════")

	fmt.Println("\nSummary:")
	fmt.Printf("  %s\n", result.Summary)
	fmt.Println("\nDetailed summary:")
	fmt.Printf("  %s\n", result.DetailedSummary)
	fmt.Println("\nSimple summary:")
	fmt.Printf("  %s\n", result.SimpleSummary)

	bias := result.BiasAnalysis
	fmt.Println("\nBias analysis:")
	fmt.Printf("  Tone [%s]: %s\n", bias.Tone.Classification, bias.Tone.Finding)
	printEvidence(bias.Tone.Evidence)
	printBiasPoint("Favoritism", bias.Favoritism)
	printBiasPoint("Charged language", bias.ChargedLanguage)
	printBiasPoint("Missing perspectives", bias.MissingPerspectives)
	printBiasPoint("Political leaning", bias.PoliticalLeaning)
}

func printBiasPoint(label string, point models.BiasPoint) {
	fmt.Printf("  %s: %s\n", label, point.Finding)
	printEvidence(point.Evidence)
}

func printEvidence(evidence []string) {
	for _, quote := range evidence {
		fmt.Printf("      > %q\n", quote)
	}
}
