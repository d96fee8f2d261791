package di

import (
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/adapters/cli"
	"github.com/mikey/inbox-sentry/internal/config"
	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/dom"
	"github.com/mikey/inbox-sentry/internal/factory"
	"github.com/mikey/inbox-sentry/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Input flags
	PageFile    string
	Location    string
	MessageFile string

	// Action flags
	ShowHTML bool
	Stats    bool
	Pause    bool
	Resume   bool
	Feedback string

	// Classifier flags
	Provider         string
	Endpoint         string
	FeedbackEndpoint string
	Timeout          time.Duration
	MaxTokens        int
	Temperature      float64
	TopP             float64
	MaxBodySize      int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Store flags
	StoreType  string
	SQLitePath string

	// Link guard flags
	TrustedDomains string

	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{}

	// Input flags
	fs.StringVar(&flags.PageFile, "page", "", "Saved webmail page (HTML) to scan")
	fs.StringVar(&flags.Location, "url", "https://mail.google.com/mail/u/0/#inbox", "Location the saved page was captured at")
	fs.StringVar(&flags.MessageFile, "eml", "", "RFC 5322 message file to scan")

	// Action flags
	fs.BoolVar(&flags.ShowHTML, "html", false, "Print the re-encoded display HTML of the body")
	fs.BoolVar(&flags.Stats, "stats", false, "Print today's counters")
	fs.BoolVar(&flags.Pause, "pause", false, "Disable scanning")
	fs.BoolVar(&flags.Resume, "resume", false, "Enable scanning")
	fs.StringVar(&flags.Feedback, "feedback", "", "Submit feedback of this type for the scanned email")

	// Classifier flags
	fs.StringVar(&flags.Provider, "provider", "http", "Classifier provider (http, bedrock, gemini, openai)")
	fs.StringVar(&flags.Endpoint, "endpoint", "http://127.0.0.1:5050/api/detect", "Detection endpoint for the http provider")
	fs.StringVar(&flags.FeedbackEndpoint, "feedback-endpoint", "http://127.0.0.1:5050/api/feedback", "Feedback endpoint")
	fs.DurationVar(&flags.Timeout, "timeout", 15*time.Second, "Classifier request timeout")
	fs.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for LLM response")
	fs.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for LLM generation")
	fs.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for LLM generation")
	fs.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum email body size to send to LLM")

	// Bedrock flags
	fs.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	fs.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	fs.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	fs.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	fs.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	fs.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4", "OpenAI model name")

	// Store flags
	fs.StringVar(&flags.StoreType, "store", "memory", "Counter store (memory, sqlite)")
	fs.StringVar(&flags.SQLitePath, "sqlite-path", "inbox_sentry.db", "SQLite database path")

	fs.StringVar(&flags.TrustedDomains, "trusted", "", "Comma-separated list of trusted link domains")

	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	fs.Parse(args)
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(factory.NewPageFactory); err != nil {
		return nil, err
	}

	// Register the page: a saved webmail view or a message laid out as one
	if err := container.Provide(func(flags *CLIFlags, f *factory.PageFactory) (*dom.Document, error) {
		switch {
		case flags.MessageFile != "":
			return f.CreateDocumentFromMessage(flags.MessageFile, flags.Location)
		case flags.PageFile != "":
			return f.CreateDocumentFromFile(flags.PageFile, flags.Location)
		default:
			return nil, errors.New("no input: use -page or -eml")
		}
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(d *dom.Document) core.Page { return d }); err != nil {
		return nil, err
	}

	// Register terminal presenter as the surface
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) *cli.Presenter {
		return cli.NewPresenter(os.Stdout, logger, flags.Verbose)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(p *cli.Presenter) core.Surface { return p }); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Console output only
	v.Set("logging.format", "console")

	// Set classifier provider
	v.Set("classifier.provider", flags.Provider)
	v.Set("classifier.endpoint", flags.Endpoint)
	v.Set("classifier.timeout", flags.Timeout.String())
	v.Set("feedback.endpoint", flags.FeedbackEndpoint)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_body_size", flags.MaxBodySize)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_body_size", flags.MaxBodySize)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_body_size", flags.MaxBodySize)
	}

	// Set store
	v.Set("store.type", flags.StoreType)
	v.Set("store.sqlite_path", flags.SQLitePath)
	v.Set("store.cleanup_frequency", "0s")

	// Parse trusted domains
	if flags.TrustedDomains != "" {
		domains := strings.Split(flags.TrustedDomains, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("linkguard.trusted_domains", domains)
	}

	return config.NewFromViper(v)
}
