package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/spigell/interview-grader/internal/grading"
	"github.com/spigell/interview-grader/internal/grading/gemini"
	"github.com/spigell/interview-grader/internal/logger"
	"github.com/spigell/interview-grader/internal/media"
	"github.com/spigell/interview-grader/internal/payload"
	"github.com/spigell/interview-grader/internal/pipeline"
	"github.com/spigell/interview-grader/internal/report"
	"github.com/spigell/interview-grader/internal/rubric"
	"github.com/spigell/interview-grader/internal/secrets"
	"github.com/spigell/interview-grader/internal/transcribe"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes          = "Yes"
	PromptNo           = "No"
	PromptSaveReport   = "Save report to file"
	PromptPrintSummary = "Print summary"
	PromptExit         = "Exit"

	defaultOutputFile = "final_assessment_report.json"
)

var errExit = errors.New("exit requested")

var proceedPrompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptYes, PromptNo},
}

var reportPrompt = promptui.Select{
	Label: "Assessment finished",
	Items: []string{PromptSaveReport, PromptPrintSummary, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interview-grader main command",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before processing")
	runCmd.Flags().StringP("payload", "p", "", "submission payload JSON file. Overrides payload-file from the config.")
	runCmd.Flags().StringP("rubric", "r", "", "assessment rubric JSON file. Overrides rubric-file from the config.")
	runCmd.Flags().StringP("output", "o", "", "report output file. Overrides output-file from the config.")

	viper.BindPFlag("payload-file", runCmd.Flags().Lookup("payload"))
	viper.BindPFlag("rubric-file", runCmd.Flags().Lookup("rubric"))
	viper.BindPFlag("output-file", runCmd.Flags().Lookup("output"))
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

	logger.Info("starting the interview-grader", zap.String("version", version))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.PayloadFile == "" {
		logger.Fatal("payload file is required", zap.String("hint", "set payload-file in the config or pass --payload"))
	}

	if config.RubricFile == "" {
		logger.Fatal("rubric file is required", zap.String("hint", "set rubric-file in the config or pass --rubric"))
	}

	submission, err := payload.Load(config.PayloadFile)
	if err != nil {
		logger.Fatal("loading submission payload", zap.Error(err))
	}

	links := submission.ExtractLinks()
	if len(links) == 0 {
		logger.Fatal("payload contains no supported video links",
			zap.String("payload_file", config.PayloadFile),
		)
	}

	logger.Info("found interview videos", zap.Int("count", len(links)))

	entries, err := rubric.Load(config.RubricFile)
	if err != nil {
		logger.Fatal("loading rubric", zap.Error(err))
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		_, action, err := proceedPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	p, err := buildPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	final, err := p.Run(ctx, submission, entries)
	if err != nil {
		// No partial report is produced on a pipeline failure.
		logger.Fatal("processing failed", zap.Error(err))
	}

	outputFile := config.OutputFile
	if outputFile == "" {
		outputFile = defaultOutputFile
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		if err := saveReport(final, outputFile, logger); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := reportPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, final, outputFile, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, final *report.Final, outputFile string, logger *zap.Logger) error {
	switch action {
	case PromptSaveReport:
		return saveReport(final, outputFile, logger)
	case PromptPrintSummary:
		pretty, _ := json.MarshalIndent(final.ScoresOverview, "", "  ")
		logger.Info(string(pretty), zap.String("notes", final.OverallNotes))
		return nil
	case PromptExit:
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func saveReport(final *report.Final, outputFile string, logger *zap.Logger) error {
	if err := final.WriteFile(outputFile); err != nil {
		return err
	}

	logger.Info("report saved",
		zap.String("filename", outputFile),
		zap.Float64("total", final.ScoresOverview.Total),
	)

	return nil
}

func buildPipeline(ctx context.Context, config *Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	assemblyKey, err := resolveAssemblyAIKey(config)
	if err != nil {
		return nil, fmt.Errorf("%w (set assemblyai.api-key-file or ASSEMBLYAI_API_KEY_FILE)", err)
	}

	splitterOpts := []media.SplitterOption{}
	if config.Media != nil {
		splitterOpts = append(splitterOpts,
			media.WithFfmpegPath(config.Media.FfmpegPath),
			media.WithScratchDir(config.Media.ScratchDir),
		)
	}

	splitter, err := media.NewSplitter(media.NewDriveClient(logger), logger, splitterOpts...)
	if err != nil {
		return nil, fmt.Errorf("building media splitter: %w", err)
	}

	transcriber := transcribe.New(assemblyKey, logger)
	if config.AssemblyAI != nil {
		if config.AssemblyAI.BaseURL != "" {
			transcriber.BaseURL = config.AssemblyAI.BaseURL
		}
		if config.AssemblyAI.PollInterval > 0 {
			transcriber.PollInterval = config.AssemblyAI.PollInterval
		}
		if config.AssemblyAI.MaxPollDuration > 0 {
			transcriber.MaxPollDuration = config.AssemblyAI.MaxPollDuration
		}
	}

	embedder, err := newEmbedder(ctx, config.Embedding)
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	grader := grading.NewEngine(embedder, logger)

	return pipeline.New(splitter, transcriber, grader, logger), nil
}

func resolveAssemblyAIKey(config *Config) (string, error) {
	keyFile := ""
	if config.AssemblyAI != nil {
		keyFile = config.AssemblyAI.APIKeyFile
	}
	if keyFile == "" {
		keyFile = viper.GetString("assemblyai.api-key-file")
	}

	return secrets.Load(secrets.Source{
		Name: "assemblyai api key",
		File: keyFile,
	})
}

func newEmbedder(ctx context.Context, config *EmbeddingConfig) (grading.Embedder, error) {
	if config == nil || config.Gemini == nil {
		return nil, errors.New("gemini embedding configuration is required")
	}

	provider := config.Provider
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}

	keyFile := config.Gemini.APIKeyFile
	if keyFile == "" {
		keyFile = viper.GetString("embedding.gemini.api-key-file")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: keyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set embedding.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	return gemini.NewEmbedder(ctx, apiKey, config.Gemini.Model)
}
