package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

// Config: everything the bot needs at runtime (bot.yml + environment)
type Config struct {
	Bot       BotConfig
	Schedule  ScheduleConfig
	Logging   LoggingConfig
	Valkey    ValkeyConfig
	Gateway   GatewayConfig
	Server    ServerConfig
	Generator GeneratorConfig
	Imgflip   ImgflipConfig
	Website   WebsiteConfig
	Database  DatabaseConfig
	Version   string
	BotFile   string
}

// BotConfig: bot identity and behaviour, from the `bot` section of bot.yml
type BotConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	GroupTarget string `yaml:"group_target"`
	Online      bool   `yaml:"online"`
	Prefix      string `yaml:"prefix"`
	History     bool   `yaml:"history"`
	AuthorJID   string `yaml:"author_jid"`
	BotNumber   string `yaml:"bot_number"`
}

// ScheduleConfig: daily trigger times (HH:MM) of the campaign jobs
type ScheduleConfig struct {
	Timezone string `yaml:"timezone"`
	Quote    string `yaml:"quote"`
	News     string `yaml:"news"`
	Meme     string `yaml:"meme"`
	Reveal   string `yaml:"reveal"`
	Quiz     string `yaml:"quiz"`
	Disabled bool   `yaml:"disabled"`
}

// LoggingConfig: level and file switch from bot.yml, rotation policy from the environment
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogToFile  bool   `yaml:"logToFile"`
	Dir        string `yaml:"-"`
	MaxSizeMB  int    `yaml:"-"`
	MaxBackups int    `yaml:"-"`
	MaxAgeDays int    `yaml:"-"`
	Compress   bool   `yaml:"-"`
}

// ValkeyConfig: shared Valkey connection (store, gateway streams)
type ValkeyConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// GatewayConfig: stream names used to talk to the WhatsApp gateway
type GatewayConfig struct {
	EventStreamKey   string
	CommandStreamKey string
	ConsumerGroup    string
	ConsumerName     string
	LaneCount        int
}

// ServerConfig: HTTP API
type ServerConfig struct {
	Enabled   bool
	Port      int
	TokenHash string // bcrypt hash of the API token
}

// GeneratorConfig: content generator backend selection
type GeneratorConfig struct {
	Backend       string // openai | gemini
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiKey     string
	GeminiModel   string
}

// ImgflipConfig: meme rendering account
type ImgflipConfig struct {
	Username string
	Password string
}

// WebsiteConfig: GNDC platform API
type WebsiteConfig struct {
	URL string
}

// DatabaseConfig: campaign archive (postgres, or sqlite for local runs)
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	SQLitePath string
}

// FileConfig: the bot.yml document
type FileConfig struct {
	Bot      BotConfig      `yaml:"bot"`
	Logging  LoggingConfig  `yaml:"logging"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// Load reads .env, the environment and bot.yml, applies defaults and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	botPath, err := findBotFile(getEnv("BOT_CONFIG_PATH", ""))
	if err != nil {
		return nil, err
	}
	file, err := LoadBotFile(botPath)
	if err != nil {
		return nil, err
	}

	cfg := fromEnv(file)
	cfg.BotFile = botPath

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func fromEnv(file *FileConfig) *Config {
	cfg := &Config{
		Bot:      file.Bot,
		Schedule: file.Schedule,
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", file.Logging.Level),
			LogToFile:  getEnvBool("LOG_TO_FILE", file.Logging.LogToFile),
			Dir:        getEnv("LOG_DIR", "logs"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 14),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Valkey: ValkeyConfig{
			Host:     getEnv("VALKEY_HOST", "localhost"),
			Port:     getEnvInt("VALKEY_PORT", 6379),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       getEnvInt("VALKEY_DB", 0),
		},
		Gateway: GatewayConfig{
			EventStreamKey:   getEnv("GATEWAY_EVENT_STREAM", constants.GatewayConfig.EventStreamKey),
			CommandStreamKey: getEnv("GATEWAY_COMMAND_STREAM", constants.GatewayConfig.CommandStreamKey),
			ConsumerGroup:    getEnv("GATEWAY_CONSUMER_GROUP", constants.GatewayConfig.ConsumerGroup),
			ConsumerName:     getEnv("GATEWAY_CONSUMER_NAME", "gndc-bot-1"),
			LaneCount:        getEnvInt("GATEWAY_LANES", constants.GatewayConfig.LaneCount),
		},
		Server: ServerConfig{
			Enabled:   getEnvBool("API_ENABLED", true),
			Port:      getEnvInt("API_PORT", 3000),
			TokenHash: getEnv("API_TOKEN_HASH", ""),
		},
		Generator: GeneratorConfig{
			Backend:       util.Normalize(getEnv("GENERATOR_BACKEND", "openai")),
			OpenAIKey:     getEnv("OPENAI_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", constants.GeneratorConfig.OpenAIBaseURL),
			OpenAIModel:   getEnv("OPENAI_MODEL", constants.GeneratorConfig.OpenAIModel),
			GeminiKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", constants.GeneratorConfig.GeminiModel),
		},
		Imgflip: ImgflipConfig{
			Username: getEnv("IMGFLIP_USERNAME", ""),
			Password: getEnv("IMGFLIP_PASSWORD", ""),
		},
		Website: WebsiteConfig{
			URL: strings.TrimRight(getEnv("WEBSITE_URL", "https://gndc.tech"), "/"),
		},
		Database: DatabaseConfig{
			Driver:     util.Normalize(getEnv("DB_DRIVER", "sqlite")),
			Host:       getEnv("POSTGRES_HOST", "localhost"),
			Port:       getEnvInt("POSTGRES_PORT", 5432),
			User:       getEnv("POSTGRES_USER", "gndc"),
			Password:   getEnv("POSTGRES_PASSWORD", ""),
			Database:   getEnv("POSTGRES_DB", "gndc_bot"),
			SSLMode:    getEnv("POSTGRES_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "data/gndc-bot.db"),
		},
		Version: util.TrimSpace(getEnv("APP_VERSION", "1.0.0")),
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if util.TrimSpace(c.Bot.Prefix) == "" {
		c.Bot.Prefix = getEnv("BOT_PREFIX", "!")
	}
	if c.Bot.Name == "" {
		c.Bot.Name = "GNDC Bot"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = constants.CampaignConfig.Timezone
	}
	defaults := map[*string]string{
		&c.Schedule.Quote:  constants.DefaultSchedule.Quote,
		&c.Schedule.News:   constants.DefaultSchedule.News,
		&c.Schedule.Meme:   constants.DefaultSchedule.Meme,
		&c.Schedule.Reveal: constants.DefaultSchedule.Reveal,
		&c.Schedule.Quiz:   constants.DefaultSchedule.Quiz,
	}
	for field, value := range defaults {
		if util.TrimSpace(*field) == "" {
			*field = value
		}
	}
}

// Validate checks that required values are present and well formed.
func (c *Config) Validate() error {
	if util.TrimSpace(c.Bot.Prefix) == "" {
		return fmt.Errorf("bot.prefix is required")
	}
	if c.Bot.GroupTarget == "" {
		return fmt.Errorf("bot.group_target is required")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("API_PORT must be positive")
	}
	switch c.Generator.Backend {
	case "openai":
		if c.Generator.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_KEY is required for the openai backend")
		}
	case "gemini":
		if c.Generator.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini backend")
		}
	default:
		return fmt.Errorf("unknown GENERATOR_BACKEND: %q", c.Generator.Backend)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER: %q", c.Database.Driver)
	}
	for name, value := range map[string]string{
		"quote":  c.Schedule.Quote,
		"news":   c.Schedule.News,
		"meme":   c.Schedule.Meme,
		"reveal": c.Schedule.Reveal,
		"quiz":   c.Schedule.Quiz,
	} {
		if _, _, err := ParseClock(value); err != nil {
			return fmt.Errorf("schedule.%s: %w", name, err)
		}
	}
	return nil
}

// LogConfig converts the logging section for util.SetupLogger.
func (c *Config) LogConfig() util.LogConfig {
	return util.LogConfig{
		Level:      c.Logging.Level,
		ToFile:     c.Logging.LogToFile,
		Dir:        c.Logging.Dir,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}

// ParseClock parses "HH:MM".
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(util.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock %q, expected HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

// LoadBotFile parses a bot.yml document.
func LoadBotFile(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseBotFile(raw)
}

func parseBotFile(raw []byte) (*FileConfig, error) {
	var file FileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse bot.yml: %w", err)
	}
	return &file, nil
}

// findBotFile resolves bot.yml: explicit path first, then the working directory and its parent.
func findBotFile(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	candidates := []string{
		filepath.Join(wd, "bot.yml"),
		filepath.Join(wd, "..", "bot.yml"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not find bot.yml in any of the expected locations")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
