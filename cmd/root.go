package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "applypilot"
)

type Config struct {
	ResumeFile      string           `mapstructure:"resume-file"`
	OutputDir       string           `mapstructure:"output-dir"`
	MinScore        float64          `mapstructure:"min-score"`
	TargetLocations []string         `mapstructure:"target-locations"`
	TopPerCompany   int              `mapstructure:"top-per-company"`
	MaxJobsPerRun   int              `mapstructure:"max-jobs-per-run"`
	WorkerCount     int              `mapstructure:"worker-count"`
	RunDeadline     time.Duration    `mapstructure:"run-deadline"`
	PageTimeout     time.Duration    `mapstructure:"page-timeout"`
	RevealWait      time.Duration    `mapstructure:"reveal-wait"`
	MaxRevealSteps  int              `mapstructure:"max-reveal-steps"`
	UseBrowser      bool             `mapstructure:"use-browser"`
	SeenDB          string           `mapstructure:"seen-db"`
	Scoring         *ScoringConfig   `mapstructure:"scoring"`
	Providers       *ProvidersConfig `mapstructure:"providers"`
	Sources         []*SourceConfig  `mapstructure:"sources"`
}

type ScoringConfig struct {
	BoostKeywords []string `mapstructure:"boost-keywords"`
}

type ProvidersConfig struct {
	Priority      []string      `mapstructure:"priority"`
	BackoffWindow time.Duration `mapstructure:"backoff-window"`
	Gemini        *GeminiConfig `mapstructure:"gemini"`
	Ollama        *OllamaConfig `mapstructure:"ollama"`
	OpenAI        *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	Model      string `mapstructure:"model"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type OllamaConfig struct {
	Host  string `mapstructure:"host"`
	Model string `mapstructure:"model"`
}

type OpenAIConfig struct {
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type SourceConfig struct {
	Name             string   `mapstructure:"name"`
	Company          string   `mapstructure:"company"`
	URL              string   `mapstructure:"url"`
	ATS              string   `mapstructure:"ats"`
	ListSelector     string   `mapstructure:"list-selector"`
	TitleSelector    string   `mapstructure:"title-selector"`
	LocationSelector string   `mapstructure:"location-selector"`
	LinkSelector     string   `mapstructure:"link-selector"`
	RevealTriggers   []string `mapstructure:"reveal-triggers"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "applypilot discovers job listings on career pages and generates tailored application packages",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is applypilot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for the run command. If there is no config, we can
	// skip initialization.
	if runCmd.CalledAs() == "" {
		return
	}

	// provider API keys may come from a local .env file
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	viper.SetDefault("output-dir", "./applications")
	viper.SetDefault("min-score", 50)
	viper.SetDefault("top-per-company", 2)
	viper.SetDefault("max-jobs-per-run", 10)
	viper.SetDefault("worker-count", 5)
	viper.SetDefault("run-deadline", "20m")
	viper.SetDefault("page-timeout", "30s")
	viper.SetDefault("reveal-wait", "3s")
	viper.SetDefault("max-reveal-steps", 5)
	viper.SetDefault("use-browser", true)
	viper.SetDefault("providers.backoff-window", "60s")

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.ResumeFile == "" {
		return fmt.Errorf("resume-file is required")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	if c.Providers == nil || len(c.Providers.Priority) == 0 {
		return fmt.Errorf("at least one provider in providers.priority is required")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker-count must be positive, got %d", c.WorkerCount)
	}
	if c.RunDeadline <= 0 {
		return fmt.Errorf("run-deadline must be positive, got %s", c.RunDeadline)
	}
	if c.RevealWait < 3*time.Second {
		return fmt.Errorf("reveal-wait must be at least 3s, got %s", c.RevealWait)
	}

	for _, src := range c.Sources {
		if src.Name == "" || src.URL == "" {
			return fmt.Errorf("every source needs a name and a url")
		}
	}

	return nil
}
