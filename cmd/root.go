package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "interview-grader"
)

type Config struct {
	PayloadFile string            `mapstructure:"payload-file"`
	RubricFile  string            `mapstructure:"rubric-file"`
	OutputFile  string            `mapstructure:"output-file"`
	AssemblyAI  *AssemblyAIConfig `mapstructure:"assemblyai"`
	Embedding   *EmbeddingConfig  `mapstructure:"embedding"`
	Media       *MediaConfig      `mapstructure:"media"`
}

type AssemblyAIConfig struct {
	APIKeyFile      string        `mapstructure:"api-key-file"`
	BaseURL         string        `mapstructure:"base-url"`
	PollInterval    time.Duration `mapstructure:"poll-interval"`
	MaxPollDuration time.Duration `mapstructure:"max-poll-duration"`
}

type EmbeddingConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type MediaConfig struct {
	FfmpegPath string `mapstructure:"ffmpeg-path"`
	ScratchDir string `mapstructure:"scratch-dir"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-grader turns an interview submission into a graded assessment report",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("assemblyai.api-key-file", "ASSEMBLYAI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding ASSEMBLYAI_API_KEY_FILE environment variable: %v", err)
	}

	if err := viper.BindEnv("embedding.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-grader.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

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
