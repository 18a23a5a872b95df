package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/extract"
	"github.com/applypilot/applypilot/internal/filtering"
	"github.com/applypilot/applypilot/internal/generate"
	"github.com/applypilot/applypilot/internal/job"
	"github.com/applypilot/applypilot/internal/logger"
	"github.com/applypilot/applypilot/internal/pagefetch"
	"github.com/applypilot/applypilot/internal/pipeline"
	"github.com/applypilot/applypilot/internal/provider"
	"github.com/applypilot/applypilot/internal/render"
	"github.com/applypilot/applypilot/internal/secrets"
	"github.com/applypilot/applypilot/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one discovery-to-applications pass",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before generating applications")
	runCmd.Flags().Bool("json-report", false, "print the run report as JSON")
	runCmd.Flags().String("seen-db", "", "sqlite database tracking already-generated listings. Default is unset.")

	viper.BindPFlag("seen-db", runCmd.Flags().Lookup("seen-db"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting applypilot", zap.String("version", version))

	if config == nil {
		logger.Fatal("config is required")
	}
	if err := config.validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	resume, err := os.ReadFile(config.ResumeFile)
	if err != nil {
		logger.Fatal("reading resume file", zap.Error(err))
	}
	if strings.TrimSpace(string(resume)) == "" {
		logger.Fatal("resume file is empty", zap.String("path", config.ResumeFile))
	}

	profile := job.Profile{ResumeText: string(resume)}
	if config.Scoring != nil {
		profile.BoostKeywords = config.Scoring.BoostKeywords
	}

	manager, err := buildManager(ctx, config.Providers, logger)
	if err != nil {
		logger.Fatal("building provider manager", zap.Error(err))
	}
	if err := manager.CheckAll(ctx); err != nil {
		logger.Fatal("no usable generation provider", zap.Error(err))
	}

	opts := pagefetch.DefaultOptions()
	if config.PageTimeout > 0 {
		opts.Timeout = config.PageTimeout
	}

	var browser pagefetch.Provider
	pages := pagefetch.Provider(pagefetch.NewStaticProvider(opts))
	if config.UseBrowser {
		browser = pagefetch.NewBrowserProvider(opts, logger)
		pages = browser
	}

	seen, err := openSeenStore(config.SeenDB, logger)
	if err != nil {
		logger.Fatal("opening seen store", zap.Error(err))
	}
	defer seen.Close()

	renderer, err := render.NewTextRenderer(config.OutputDir)
	if err != nil {
		logger.Fatal("preparing output directory", zap.Error(err))
	}

	orchestrator := generate.New(manager, pagefetch.NewTextFetcher(opts, browser), profile, logger)

	runnerCfg := pipeline.Config{
		Sources:     buildSources(config),
		Profile:     profile,
		Filters:     buildFilters(config, seen),
		WorkerCount: config.WorkerCount,
		RunDeadline: config.RunDeadline,
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		runnerCfg.Confirm = confirmGeneration
	}

	runner, err := pipeline.NewRunner(runnerCfg, extract.New(pages, logger), orchestrator, renderer, seen, logger)
	if err != nil {
		logger.Fatal("building pipeline", zap.Error(err))
	}

	report, err := runner.Run(ctx)
	if err != nil {
		logger.Fatal("pipeline run failed", zap.Error(err))
	}

	printReport(cmd, report)
}

func printReport(cmd *cobra.Command, report *pipeline.Report) {
	if cmd.Flag("json-report").Value.String() == "true" {
		pretty, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("encoding report: %s", err)
		}
		fmt.Println(string(pretty))
		return
	}

	fmt.Println(report.String())
}

// confirmGeneration lists the selected jobs and asks before spending provider
// quota on them.
func confirmGeneration(listings []job.Listing) (bool, error) {
	for _, l := range listings {
		fmt.Printf("  %.0f  %s / %s / %s\n", l.Score, l.Company, l.Title, l.URL)
	}

	prompt := promptui.Select{
		Label: fmt.Sprintf("Generate applications for %d jobs?", len(listings)),
		Items: []string{PromptYes, PromptNo},
	}

	_, answer, err := prompt.Run()
	if err != nil {
		return false, err
	}

	return answer == PromptYes, nil
}

func buildManager(ctx context.Context, cfg *ProvidersConfig, logger *zap.Logger) (*provider.Manager, error) {
	var generators []provider.Generator

	for _, name := range cfg.Priority {
		gen, err := buildProvider(ctx, name, cfg)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		generators = append(generators, gen)
	}

	return provider.NewManager(generators, cfg.BackoffWindow, logger), nil
}

func buildProvider(ctx context.Context, name string, cfg *ProvidersConfig) (provider.Generator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini":
		var model, keyFile string
		if cfg.Gemini != nil {
			model = cfg.Gemini.Model
			keyFile = cfg.Gemini.APIKeyFile
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: keyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, err
		}
		return provider.NewGemini(ctx, apiKey, model)
	case "ollama":
		var host, model string
		if cfg.Ollama != nil {
			host = cfg.Ollama.Host
			model = cfg.Ollama.Model
		}
		return provider.NewOllama(host, model, nil), nil
	case "openai":
		var baseURL, model, keyFile string
		if cfg.OpenAI != nil {
			baseURL = cfg.OpenAI.BaseURL
			model = cfg.OpenAI.Model
			keyFile = cfg.OpenAI.APIKeyFile
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name: "openai api key",
			File: keyFile,
			Env:  "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, err
		}
		return provider.NewOpenAI(baseURL, apiKey, model, nil)
	default:
		return nil, fmt.Errorf("unsupported provider")
	}
}

func openSeenStore(path string, logger *zap.Logger) (store.SeenStore, error) {
	if path == "" {
		return store.NewNopStore(), nil
	}

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}

	logger.Info("tracking generated listings", zap.String("db", path))
	return s, nil
}

func buildSources(config *Config) []extract.Source {
	sources := make([]extract.Source, 0, len(config.Sources))
	for _, src := range config.Sources {
		sources = append(sources, extract.Source{
			Name:    src.Name,
			Company: src.Company,
			URL:     src.URL,
			ATS:     src.ATS,
			Selectors: pagefetch.Selectors{
				List:     src.ListSelector,
				Title:    src.TitleSelector,
				Location: src.LocationSelector,
				Link:     src.LinkSelector,
			},
			RevealTriggers: src.RevealTriggers,
			MaxRevealSteps: config.MaxRevealSteps,
			RevealWait:     config.RevealWait,
		})
	}
	return sources
}

func buildFilters(config *Config, seen store.SeenStore) []filtering.Filter {
	return []filtering.Filter{
		filtering.NewMinScore(config.MinScore),
		filtering.NewLocation(config.TargetLocations),
		filtering.NewSeen(seen),
		filtering.NewDedup(),
		filtering.NewTopPerCompany(config.TopPerCompany),
		filtering.NewTopK(config.MaxJobsPerRun),
	}
}
