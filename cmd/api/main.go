package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"time"

	"campusmart/internal/auth"
	"campusmart/internal/cohere"
	"campusmart/internal/db"
	"campusmart/internal/domain/storage"
	"campusmart/internal/domain/transactions"
	"campusmart/internal/embedding"
	"campusmart/internal/mailer"
	"campusmart/internal/notifications"
	"campusmart/internal/ratelimiter"
	"campusmart/internal/recommend"
	"campusmart/internal/reviewsummary"

	"github.com/9ssi7/exponent"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	// Default values
	defaultRequests := 200
	defaultEnabled := false

	// Retrieve request count with error handling
	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	// Retrieve enabled flag with error handling
	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	// Configure the encoder to be a console encoder with color
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel
	if lvl, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if err := level.Set(lvl); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
	}

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	return zap.New(core).Sugar(), nil
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("Invalid value for %s: %v", key, err)
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("Invalid value for %s: %v", key, err)
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("Invalid value for %s: %v", key, err)
	}
	return d
}

var version = "0.4.0"

//	@title			CampusMart API
//	@description	API for CampusMart, a campus marketplace for buying and renting items.

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@securityDefinitions.basic	BasicAuth

func main() {
	// .env is for local runs; deployments set the environment directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg := config{
		addr:        getString("ADDR", ":8080"),
		env:         getString("ENV", "development"),
		frontendURL: os.Getenv("FRONTEND_URL"),
		apiURL:      getString("EXTERNAL_URL", "localhost:8080"),
		db: dbConfig{
			addr:         os.Getenv("DB_ADDR"),
			maxOpenConns: getInt("DB_MAX_OPEN_CONNS", 20),
			maxIdleTime:  getString("DB_MAX_IDLE_TIME", "15m"),
		},
		redis: redisConfig{
			addr:     getString("REDIS_ADDR", "localhost:6379"),
			password: os.Getenv("REDIS_PASSWORD"),
			db:       getInt("REDIS_DB", 0),
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				secret: os.Getenv("AUTH_TOKEN_SECRET"),
				aud:    getString("AUTH_TOKEN_AUDIENCE", "authenticated"),
				iss:    os.Getenv("AUTH_TOKEN_ISSUER"),
			},
			identity: identityConfig{
				url:     os.Getenv("IDENTITY_URL"),
				anonKey: os.Getenv("IDENTITY_ANON_KEY"),
			},
			adminEmail: os.Getenv("ADMIN_EMAIL"),
		},
		ai: aiConfig{
			apiKey:     os.Getenv("COHERE_API_KEY"),
			baseURL:    getString("COHERE_BASE_URL", cohere.DefaultBaseURL),
			embedModel: getString("COHERE_EMBED_MODEL", cohere.DefaultEmbedModel),
			chatModel:  getString("COHERE_CHAT_MODEL", cohere.DefaultChatModel),
			dimensions: getInt("EMBEDDING_DIMENSIONS", embedding.DefaultDimensions),
			timeout:    getDuration("AI_HTTP_TIMEOUT", 15*time.Second),
		},
		mail: mailConfig{
			host:      os.Getenv("SMTP_HOST"),
			port:      getInt("SMTP_PORT", 587),
			username:  os.Getenv("SMTP_USERNAME"),
			password:  os.Getenv("SMTP_PASSWORD"),
			fromEmail: os.Getenv("MAIL_FROM_EMAIL"),
		},
		push: pushConfig{
			expoAccessToken: os.Getenv("EXPO_ACCESS_TOKEN"),
		},
		rateLimiter: LoadRateLimiterConfig(),
		market: marketConfig{
			requireApproval: getBool("REQUIRE_LISTING_APPROVAL", true),
			referenceSalt:   getString("CHECKOUT_REFERENCE_SALT", "campusmart"),
			pushTokenMaxAge: getDuration("PUSH_TOKEN_MAX_AGE", 70*24*time.Hour),
		},
	}

	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	if err := db.CheckEmbeddingDimensions(cfg.ai.dimensions); err != nil {
		logger.Fatalw("invalid EMBEDDING_DIMENSIONS", "error", err)
	}

	pool, err := db.New(cfg.db.addr, int32(cfg.db.maxOpenConns), cfg.db.maxIdleTime)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	// Redis holds carts
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.redis.addr,
		Password: cfg.redis.password,
		DB:       cfg.redis.db,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		logger.Fatalw("redis is unreachable", "addr", cfg.redis.addr, "error", err)
	}
	defer rdb.Close()

	store := storage.NewContainer(pool, rdb)

	//cloudinary
	cld, err := cloudinary.NewFromURL(os.Getenv("CLOUDINARY_URL"))
	if err != nil {
		logger.Fatal(err)
	}

	// AI providers; a missing key degrades similarity and summaries instead of failing startup
	if cfg.ai.apiKey == "" {
		logger.Warn("COHERE_API_KEY is not set: listings will have no embeddings and review summaries are unavailable")
	}
	ai := cohere.New(cohere.Config{
		APIKey:     cfg.ai.apiKey,
		BaseURL:    cfg.ai.baseURL,
		EmbedModel: cfg.ai.embedModel,
		ChatModel:  cfg.ai.chatModel,
		Timeout:    cfg.ai.timeout,
	}, logger)
	embedder := embedding.NewClient(ai, cfg.ai.dimensions, logger)

	// Mail is optional; push still works without it
	var mailClient mailer.Client
	if cfg.mail.host != "" {
		smtp, err := mailer.NewSMTPMailer(cfg.mail.host, cfg.mail.port, cfg.mail.username, cfg.mail.password, cfg.mail.fromEmail)
		if err != nil {
			logger.Fatal(err)
		}
		mailClient = smtp
	} else {
		logger.Warn("SMTP_HOST is not set: owner emails are disabled")
	}

	// Expo push; the access token is only needed with enhanced push security
	expo := exponent.NewClient()
	if cfg.push.expoAccessToken != "" {
		expo = exponent.NewClient(exponent.WithAccessToken(cfg.push.expoAccessToken))
	}

	references, err := transactions.NewReferenceGenerator(cfg.market.referenceSalt)
	if err != nil {
		logger.Fatal(err)
	}

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.aud,
		cfg.auth.token.iss,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         store,
		images:        newCloudinaryImages(cld),
		recommender:   recommend.NewService(store.Listings, embedder, logger),
		summarizer:    reviewsummary.New(ai, logger),
		notifier:      notifications.NewNotifier(notifications.NewExpoAdapter(expo), store.PushTokens, mailClient, cfg.frontendURL, logger),
		identity:      auth.NewIdentityClient(cfg.auth.identity.url, cfg.auth.identity.anonKey),
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
		references:    references,
	}

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		s := pool.Stat()
		return map[string]any{
			"max_conns":      s.MaxConns(),
			"total_conns":    s.TotalConns(),
			"acquired_conns": s.AcquiredConns(),
			"idle_conns":     s.IdleConns(),
		}
	}))
	expvar.Publish("redis", expvar.Func(func() any {
		return rdb.PoolStats()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	app.prunePushTokensDaily()

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
