package constants

import "time"

// CacheTTL groups in-process and store cache lifetimes.
var CacheTTL = struct {
	ShortLived     time.Duration
	GroupMetadata  time.Duration
	CampaignState  time.Duration
	PinDuration    time.Duration
	VoteDedup      time.Duration
	PendingQRCode  time.Duration
	PairingCode    time.Duration
	ConnectionInfo time.Duration
}{
	ShortLived:     5 * time.Minute,      // upstream content pages
	GroupMetadata:  5 * time.Minute,      // participant lists for tagAll
	CampaignState:  259196 * time.Second, // ~3 days safety net on quiz state
	PinDuration:    86400 * time.Second,  // poll pin lifetime
	VoteDedup:      4 * 24 * time.Hour,
	PendingQRCode:  2 * time.Minute,
	PairingCode:    2 * time.Minute,
	ConnectionInfo: 24 * time.Hour,
}

// StoreKeys names every key layout used in Valkey.
var StoreKeys = struct {
	Settings        string
	CampaignPointer string // campaign-id:<kind>
	MessageRef      string // message:<instanceId>:<targetId>
	Quiz            string // quiz:<id>
	PollIndex       string // poll:<messageId>
	VoteDedup       string // vote:<quizId>:<voter>
	Leaderboard     string
	GroupDirectory  string // group:<jid>
	Session         string
}{
	Settings:        "bot-settings",
	CampaignPointer: "campaign-id:%s",
	MessageRef:      "message:%s:%s",
	Quiz:            "quiz:%s",
	PollIndex:       "poll:%s",
	VoteDedup:       "vote:%s:%s",
	Leaderboard:     "leaderboard:global",
	GroupDirectory:  "group:%s",
	Session:         "session:gateway",
}

// StoreConfig tunes scan and record behaviour.
var StoreConfig = struct {
	ScanCount    int64
	DefaultLimit int
}{
	ScanCount:    100,
	DefaultLimit: 1000,
}

// ValkeyConfig configures the shared Valkey client.
var ValkeyConfig = struct {
	ReadyTimeout      time.Duration
	BlockingPoolSize  int
	PipelineMultiplex int
	ConnWriteTimeout  time.Duration
	DialTimeout       time.Duration
}{
	ReadyTimeout:      5 * time.Second,
	BlockingPoolSize:  50,
	PipelineMultiplex: 4,
	ConnWriteTimeout:  3 * time.Second,
	DialTimeout:       5 * time.Second,
}

// GatewayConfig configures the stream based WhatsApp gateway link.
var GatewayConfig = struct {
	EventStreamKey           string
	CommandStreamKey         string
	ConsumerGroup            string
	BlockTimeout             time.Duration
	ReadCount                int64
	LaneCount                int
	LaneBuffer               int
	CommandStreamMaxLen      int64
	IdempotencyProcessingTTL time.Duration
	IdempotencyTTL           time.Duration
	InitRetryCount           int
	RetryDelay               time.Duration
	MessageIDPrefix          string
	MessageIDAlphabet        string
	MessageIDLength          int
	SendRatePerSecond        float64
	SendBurst                int
}{
	EventStreamKey:           "wa:gndc:events",
	CommandStreamKey:         "wa:gndc:commands",
	ConsumerGroup:            "gndc-bot-group",
	BlockTimeout:             5 * time.Second,
	ReadCount:                50,
	LaneCount:                8,
	LaneBuffer:               64,
	CommandStreamMaxLen:      10000,
	IdempotencyProcessingTTL: 5 * time.Minute,
	IdempotencyTTL:           24 * time.Hour,
	InitRetryCount:           10,
	RetryDelay:               1 * time.Second,
	MessageIDPrefix:          "3EB0",
	MessageIDAlphabet:        "0123456789ABCDEF",
	MessageIDLength:          18,
	SendRatePerSecond:        2,
	SendBurst:                5,
}

// ReconnectConfig drives the delayed reconnect after a non-terminal close.
var ReconnectConfig = struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}{
	InitialDelay: 3 * time.Second,
	MaxDelay:     2 * time.Minute,
	Multiplier:   2,
}

// CampaignConfig holds scheduled job tunables.
var CampaignConfig = struct {
	Timezone        string
	RevealSettle    time.Duration
	JobTimeout      time.Duration
	BroadcastPool   int
	NewsItems       int
	QuizPointerKind string
}{
	Timezone:        "Africa/Douala",
	RevealSettle:    3 * time.Second,
	JobTimeout:      5 * time.Minute,
	BroadcastPool:   4,
	NewsItems:       5,
	QuizPointerKind: "quiz",
}

// DefaultSchedule is the daily trigger time of each job (HH:MM, campaign timezone).
var DefaultSchedule = struct {
	Quote  string
	News   string
	Meme   string
	Reveal string
	Quiz   string
}{
	Quote:  "07:00",
	News:   "08:00",
	Meme:   "10:00",
	Reveal: "12:00",
	Quiz:   "21:00",
}

// RequestTimeout bounds outbound calls.
var RequestTimeout = struct {
	BotCommand time.Duration
	ContentAPI time.Duration
	Generator  time.Duration
	Shortener  time.Duration
	Imgflip    time.Duration
}{
	BotCommand: 60 * time.Second,
	ContentAPI: 15 * time.Second,
	Generator:  45 * time.Second,
	Shortener:  5 * time.Second,
	Imgflip:    15 * time.Second,
}

// RetryConfig applies to idempotent HTTP GETs.
var RetryConfig = struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
}{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
}

// GeneratorConfig names default models.
var GeneratorConfig = struct {
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiModel   string
	Temperature   float32
	MaxTokens     int
}{
	OpenAIModel:   "gpt-4o",
	OpenAIBaseURL: "https://models.inference.ai.azure.com",
	GeminiModel:   "gemini-2.5-flash",
	Temperature:   0.8,
	MaxTokens:     1024,
}

// ContentConfig lists upstream endpoints.
var ContentConfig = struct {
	ImgflipURL          string
	HackerNewsURL       string
	QuoteURL            string
	ShortenerURL        string
	UserAgent           string
	NewsCacheKey        string
	ForumsCacheKey      string
	LeaderboardCacheKey string
	EventsCacheKey      string
	TopItems            int
}{
	ImgflipURL:          "https://api.imgflip.com/caption_image",
	HackerNewsURL:       "https://news.ycombinator.com/",
	QuoteURL:            "https://zenquotes.io/api/today",
	ShortenerURL:        "https://is.gd/create.php",
	UserAgent:           "Mozilla/5.0 (compatible; GNDCBot/1.0; +https://gndc.tech)",
	NewsCacheKey:        "GNDC-NEWS",
	ForumsCacheKey:      "GNDC-FORUMS-%s",
	LeaderboardCacheKey: "GNDC-LEADERBOARD",
	EventsCacheKey:      "GNDC-EVENTS",
	TopItems:            5,
}

// AppTimeout bounds application build and shutdown.
var AppTimeout = struct {
	Build    time.Duration
	Shutdown time.Duration
}{
	Build:    30 * time.Second,
	Shutdown: 10 * time.Second,
}

// ServerTimeout configures the HTTP server.
var ServerTimeout = struct {
	ReadHeader     time.Duration
	Read           time.Duration
	Write          time.Duration
	Idle           time.Duration
	MaxHeaderBytes int
}{
	ReadHeader:     5 * time.Second,
	Read:           15 * time.Second,
	Write:          30 * time.Second,
	Idle:           60 * time.Second,
	MaxHeaderBytes: 1 << 20,
}

// ServerConfig is the HTTP server base config.
var ServerConfig = struct {
	TrustedProxies []string
	TokenHeader    string
}{
	TrustedProxies: []string{"127.0.0.1", "::1"},
	TokenHeader:    "X-API-Key",
}

// CORSConfig is the default CORS policy.
var CORSConfig = struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}{
	AllowOrigins: []string{"https://gndc.tech"},
	AllowMethods: []string{"GET", "POST", "OPTIONS"},
	AllowHeaders: []string{"Origin", "Content-Type", "Accept", "X-API-Key"},
}

// DatabaseConfig is the SQL connection pool policy.
var DatabaseConfig = struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}{
	MaxOpenConns:    10,
	MaxIdleConns:    2,
	ConnMaxLifetime: 5 * time.Minute,
	PingTimeout:     5 * time.Second,
}
