package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/content-safety/internal/adapters/filter"
	"github.com/mikey/content-safety/internal/core"
	"github.com/mikey/content-safety/internal/di"
	"github.com/mikey/content-safety/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const bulkChunkSize = 10

var (
	flags      di.CLIFlags
	jsonOutput bool
	noProgress bool
	inputFile  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "safety-check",
		Short: "Check URLs and emails for safety from the command line",
		Long: `safety-check runs the content safety analysis locally.

Examples:
  safety-check url https://example.com
  safety-check email --file message.eml
  cat message.eml | safety-check email
  safety-check bulk emails.json
  safety-check keywords`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.ConfigFile, "config", "", "Path to config file")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	pf.BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	pf.StringVar(&flags.Provider, "provider", "", "Rationale provider (none, bedrock, gemini, openai)")
	pf.StringVar(&flags.ReputationAPIKey, "reputation-api-key", "", "API key for the reputation service")
	pf.StringVar(&flags.FetchMode, "fetch-mode", "", "Page fetch mode (http, browser)")
	pf.Float64Var(&flags.SpamThreshold, "threshold", 0, "Spam score threshold")

	urlCmd := &cobra.Command{
		Use:   "url URL",
		Short: "Analyze a website",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(func(ctx context.Context, service *core.SafetyService, _ *utils.TextProcessor, _ *zap.Logger) error {
				result, err := service.CheckWebsite(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(os.Stdout, result)
				}
				printURLAnalysis(os.Stdout, result)
				return nil
			})
		},
	}

	emailCmd := &cobra.Command{
		Use:   "email",
		Short: "Analyze an RFC 5322 message read from a file or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(func(ctx context.Context, service *core.SafetyService, tp *utils.TextProcessor, logger *zap.Logger) error {
				email, err := readEmail(inputFile, logger)
				if err != nil {
					return err
				}
				if !jsonOutput {
					printEmailSummary(os.Stdout, email, tp)
				}

				start := time.Now()
				result, err := service.CheckEmail(ctx, email)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(os.Stdout, result)
				}
				printSpamAnalysis(os.Stdout, result, time.Since(start))
				return nil
			})
		},
	}
	emailCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Input email file (use stdin if not specified)")

	bulkCmd := &cobra.Command{
		Use:   "bulk FILE",
		Short: `Analyze a JSON file of the form {"emails":[{"subject","content","sender","recipient"}]}`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(func(ctx context.Context, service *core.SafetyService, _ *utils.TextProcessor, _ *zap.Logger) error {
				emails, err := readBulkFile(args[0])
				if err != nil {
					return err
				}
				bulk, err := checkBulk(ctx, service, emails, !noProgress && !jsonOutput)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(os.Stdout, bulk)
				}
				printBulkAnalysis(os.Stdout, bulk)
				return nil
			})
		},
	}
	bulkCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bar")

	keywordsCmd := &cobra.Command{
		Use:   "keywords",
		Short: "List the spam keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(func(_ context.Context, service *core.SafetyService, _ *utils.TextProcessor, _ *zap.Logger) error {
				keywords := service.SpamKeywords()
				if jsonOutput {
					return printJSON(os.Stdout, keywords)
				}
				for _, k := range keywords {
					fmt.Fprintln(os.Stdout, k)
				}
				return nil
			})
		},
	}

	rootCmd.AddCommand(urlCmd, emailCmd, bulkCmd, keywordsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type commandFunc func(ctx context.Context, service *core.SafetyService, tp *utils.TextProcessor, logger *zap.Logger) error

// invoke builds the CLI container and runs fn with a signal-aware context
func invoke(fn commandFunc) error {
	container, err := di.BuildCLIContainer(&flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(service *core.SafetyService, tp *utils.TextProcessor, logger *zap.Logger, cleanup *di.Cleanup) error {
		defer logger.Sync()
		defer cleanup.Run()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return fn(ctx, service, tp, logger)
	})
}

func readEmail(path string, logger *zap.Logger) (*core.Email, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		r = file
		logger.Info("Reading email from file", zap.String("file", path))
	} else {
		logger.Info("Reading email from stdin")
	}
	return filter.ParseMessage(r)
}

type bulkFile struct {
	Emails []struct {
		Subject   string `json:"subject"`
		Content   string `json:"content"`
		Sender    string `json:"sender"`
		Recipient string `json:"recipient"`
	} `json:"emails"`
}

func readBulkFile(path string) ([]*core.Email, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bulk file: %w", err)
	}
	var in bulkFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: bulk file is not valid JSON: %v", core.ErrInvalidInput, err)
	}
	if len(in.Emails) == 0 {
		return nil, fmt.Errorf("%w: bulk file contains no emails", core.ErrInvalidInput)
	}

	emails := make([]*core.Email, len(in.Emails))
	for i, e := range in.Emails {
		emails[i] = &core.Email{Subject: e.Subject, Body: e.Content, Sender: e.Sender, Recipient: e.Recipient}
	}
	return emails, nil
}

// checkBulk enforces the bulk cap on the whole file, then scores it in chunks so progress can be shown
func checkBulk(ctx context.Context, service *core.SafetyService, emails []*core.Email, progress bool) (*core.BulkSpamAnalysis, error) {
	if max := service.Emails().Policy().MaxBulkEmails; len(emails) > max {
		return nil, fmt.Errorf("%w: %d emails, maximum is %d", core.ErrBulkLimitExceeded, len(emails), max)
	}
	for i, email := range emails {
		if err := core.ValidateEmail(email); err != nil {
			return nil, fmt.Errorf("email %d: %w", i, err)
		}
	}

	var bar *progressbar.ProgressBar
	if progress {
		bar = progressbar.NewOptions(len(emails),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(50),
			progressbar.OptionSetDescription("[cyan]Analyzing emails[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	chunks := make([]*core.BulkSpamAnalysis, 0, (len(emails)+bulkChunkSize-1)/bulkChunkSize)
	for start := 0; start < len(emails); start += bulkChunkSize {
		end := start + bulkChunkSize
		if end > len(emails) {
			end = len(emails)
		}
		chunk, err := service.CheckBulkEmails(ctx, emails[start:end])
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
		if bar != nil {
			bar.Add(end - start)
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	return mergeBulk(chunks), nil
}

func mergeBulk(chunks []*core.BulkSpamAnalysis) *core.BulkSpamAnalysis {
	merged := &core.BulkSpamAnalysis{AnalyzedAt: time.Now()}
	var scoreSum float64
	for _, c := range chunks {
		merged.Results = append(merged.Results, c.Results...)
		merged.Total += c.Total
		merged.SpamCount += c.SpamCount
		merged.HighRiskCount += c.HighRiskCount
		scoreSum += c.AverageScore * float64(c.Total)
	}
	if merged.Total > 0 {
		merged.AverageScore = scoreSum / float64(merged.Total)
	}
	return merged
}
