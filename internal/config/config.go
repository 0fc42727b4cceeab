package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Defaults for the meeting orchestrator.
const (
	DefaultTimeMultiplier      = 6
	DefaultHistoryLimit        = 50
	DefaultSummaryHistoryLimit = 200
)

// Config aggregates the whole service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	AI       AIConfig
	Meeting  MeetingConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	meeting, err := loadMeetingConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Database: DatabaseConfig{URL: strings.TrimSpace(os.Getenv("DATABASE_URL"))},
		AI:       ai,
		Meeting:  meeting,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// DatabaseConfig points at Postgres. An empty URL selects the in-memory
// store, which is enough for local development.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether a database was configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// MeetingConfig tunes the orchestration engine.
//
// PauseStopsClock controls the documented reference quirk: by default the
// accelerated meeting clock runs against wall time and pausing does not stop
// it. Setting MEETING_PAUSE_STOPS_CLOCK=true excludes paused intervals from
// the elapsed-time accounting instead.
type MeetingConfig struct {
	TimeMultiplier      int
	PauseStopsClock     bool
	HistoryLimit        int
	SummaryHistoryLimit int
}

func loadMeetingConfig() (MeetingConfig, error) {
	multiplier := DefaultTimeMultiplier
	if v, err := parseOptionalIntEnv("MEETING_TIME_MULTIPLIER"); err != nil {
		return MeetingConfig{}, err
	} else if v != nil {
		if *v < 1 {
			return MeetingConfig{}, fmt.Errorf("MEETING_TIME_MULTIPLIER must be >= 1, got %d", *v)
		}
		multiplier = *v
	}

	pauseStopsClock, err := parseBoolEnv("MEETING_PAUSE_STOPS_CLOCK", false)
	if err != nil {
		return MeetingConfig{}, err
	}

	historyLimit := DefaultHistoryLimit
	if v, err := parseOptionalIntEnv("MEETING_HISTORY_LIMIT"); err != nil {
		return MeetingConfig{}, err
	} else if v != nil && *v > 0 {
		historyLimit = *v
	}

	summaryLimit := DefaultSummaryHistoryLimit
	if v, err := parseOptionalIntEnv("MEETING_SUMMARY_HISTORY_LIMIT"); err != nil {
		return MeetingConfig{}, err
	} else if v != nil && *v > 0 {
		summaryLimit = *v
	}

	return MeetingConfig{
		TimeMultiplier:      multiplier,
		PauseStopsClock:     pauseStopsClock,
		HistoryLimit:        historyLimit,
		SummaryHistoryLimit: summaryLimit,
	}, nil
}

// AIConfig describes the chat model.
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool
}

// Enabled reports whether the required credentials were provided.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark credentials or model missing: provide ARK_API_KEY + Model, or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("ARK_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("Model")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		StreamResponse: stream,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
