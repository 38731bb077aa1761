package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// Advisor provider names.
const (
	ProviderAuto   = "auto"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderNone   = "none"
)

// Config holds the application-level settings. It implements the
// cfg.Registerable and cfg.Validatable interfaces.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	AdvisorProvider       string
	AdvisorTimeoutSeconds int
	GeminiAPIKey          string
	GeminiModel           string
	ClaudeAPIKey          string
	ClaudeModel           string
	DatabaseURL           string
	SlackWebhookURL       string
	APIToken              string
	CatalogPath           string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.AdvisorProvider, "advisor-provider", ProviderAuto, "triage advisor backend: auto, gemini, claude or none")
	fs.IntVar(&c.AdvisorTimeoutSeconds, "advisor-timeout-seconds", 20, "seconds to wait for one advisor call before falling back (1..120)")
	fs.StringVar(&c.GeminiAPIKey, "gemini-api-key", "", "API key for the Gemini advisor")
	fs.StringVar(&c.GeminiModel, "gemini-model", "gemini-2.0-flash", "Gemini model to use")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude advisor")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for emergency notifications")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on the API (empty = auth disabled)")
	fs.StringVar(&c.CatalogPath, "catalog-path", "", "symptom catalog YAML file (empty = built-in catalog)")
}

// Provider resolves the advisor backend. Auto picks the first provider with
// an API key, Gemini first, and none when neither is set.
func (c *Config) Provider() string {
	p := strings.ToLower(strings.TrimSpace(c.AdvisorProvider))
	if p != "" && p != ProviderAuto {
		return p
	}
	switch {
	case c.GeminiAPIKey != "":
		return ProviderGemini
	case c.ClaudeAPIKey != "":
		return ProviderClaude
	}
	return ProviderNone
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.AdvisorTimeoutSeconds <= 0 || c.AdvisorTimeoutSeconds > 120 {
		errs = append(errs, fmt.Errorf("invalid ADVISOR_TIMEOUT_SECONDS %d (must be 1..120)", c.AdvisorTimeoutSeconds))
	}

	// An explicitly chosen provider needs its credential and model
	switch c.Provider() {
	case ProviderNone:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini advisor"))
		}
		if c.GeminiModel == "" {
			errs = append(errs, errors.New("GEMINI_MODEL is required for the gemini advisor"))
		}
	case ProviderClaude:
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required for the claude advisor"))
		}
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required for the claude advisor"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid ADVISOR_PROVIDER %q (must be auto, gemini, claude or none)", c.AdvisorProvider))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
