package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"applyflow/internal/schedule"
	"applyflow/internal/search/serpapi"
)

const (
	app = "applyflow"
)

type Config struct {
	DataDir  string          `mapstructure:"data-dir"`
	DocsDir  string          `mapstructure:"docs-dir"`
	Search   *serpapi.Params `mapstructure:"search"`
	Schedule schedule.Config `mapstructure:"schedule"`
	Submit   *SubmitConfig   `mapstructure:"submit"`
	AI       *AIConfig       `mapstructure:"ai"`
}

type SubmitConfig struct {
	// Mode selects the submitter: manual or dry-run.
	Mode string `mapstructure:"mode"`
}

type AIConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Provider     string        `mapstructure:"provider"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "applyflow is a cli for finding job postings, scoring them against your profile and pacing the applications",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is applyflow.yaml in current directory)")
	rootCmd.PersistentFlags().String("data-dir", ".applyflow", "directory holding profile, queue and history state")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Secrets such as SERPAPI_API_KEY and GEMINI_API_KEY may live in .env.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// A missing config file is fine, every command has workable defaults.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	config.Schedule = config.Schedule.WithDefaults()
	if config.DataDir == "" {
		config.DataDir = viper.GetString("data-dir")
	}
	if config.DocsDir == "" {
		config.DocsDir = "generated_documents"
	}

	return config, nil
}
