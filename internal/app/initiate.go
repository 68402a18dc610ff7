package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/shandysiswandi/stepup/internal/migrations"
	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/clock"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/goroutine"
	"github.com/shandysiswandi/stepup/internal/pkg/hash"
	"github.com/shandysiswandi/stepup/internal/pkg/idempotency"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/mail"
	"github.com/shandysiswandi/stepup/internal/pkg/messaging"
	"github.com/shandysiswandi/stepup/internal/pkg/migration"
	"github.com/shandysiswandi/stepup/internal/pkg/ratelimit"
	"github.com/shandysiswandi/stepup/internal/pkg/router"
	"github.com/shandysiswandi/stepup/internal/pkg/session"
	"github.com/shandysiswandi/stepup/internal/pkg/storage"
	"github.com/shandysiswandi/stepup/internal/pkg/uid"
	"github.com/shandysiswandi/stepup/internal/pkg/validator"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const pingTimeout = 5 * time.Second

var errUnknownDriver = errors.New("unknown driver")

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	if os.Getenv("LOCAL") == "true" {
		return "./config/config.yaml"
	}
	return "/config/config.yaml"
}

func (a *App) initConfig() error {
	cfg, err := config.NewViper(configPath())
	if err != nil {
		return err
	}
	a.onClose("config", func(context.Context) error { return cfg.Close() })

	if tz := cfg.GetString("app.tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("app.tz: %w", err)
		}
		time.Local = loc
	}

	a.config = cfg
	return nil
}

func (a *App) initInstrument() error {
	ins, err := instrument.New(a.ctx, &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogLevel:         a.config.GetString("instrument.log_level"),
	})
	if err != nil {
		return err
	}
	a.onClose("instrument", ins.Shutdown)

	a.ins = ins
	return nil
}

func (a *App) initLibraries() error {
	v, err := validator.NewV10Validator()
	if err != nil {
		return fmt.Errorf("validator: %w", err)
	}
	snow, err := uid.NewSnowflake()
	if err != nil {
		return fmt.Errorf("snowflake: %w", err)
	}

	a.validator = v
	a.uid = snow
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.tokens = uid.NewToken(a.config.GetInt("session.token_bytes"))
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.pool = goroutine.NewPool(a.config.GetInt("modules.stepup.worker.size"))
	a.httpClient = &http.Client{Timeout: a.config.GetSecond("notification.telegram.timeout_seconds")}

	a.hmac = hash.NewHMACSHA256(a.config.GetString("hash.hmac.secret"))
	a.bcrypt = hash.NewBcrypt(a.config.GetInt("hash.bcrypt.cost"), a.config.GetString("hash.bcrypt.pepper"))
	a.argon2id = hash.NewArgon2id(hash.Argon2idConfig{
		MemoryKiB:     uint32(a.config.GetUint64("hash.argon2id.memory_kib")),
		Iterations:    uint32(a.config.GetUint64("hash.argon2id.iterations")),
		Parallelism:   uint8(a.config.GetUint64("hash.argon2id.parallelism")),
		MaxConcurrent: a.config.GetInt("hash.argon2id.max_concurrent"),
		Pepper:        a.config.GetString("hash.argon2id.pepper"),
	})

	return nil
}

func (a *App) initDatabase() error {
	pc, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	pc.MaxConns = a.config.GetInt32("database.pool.max_conns")
	pc.MinConns = a.config.GetInt32("database.pool.min_conns")
	pc.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	pc.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	pc.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, pc)
	if err != nil {
		return err
	}
	a.onClose("database", func(context.Context) error {
		pool.Close()
		return nil
	})

	ctx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	if a.config.GetBool("database.migrate") {
		if err := migration.Up(a.ctx, pool, migrations.FS); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	a.dbConn = pool
	return nil
}

func (a *App) initCache() error {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	rdb := redis.NewClient(opt)
	a.onClose("redis", func(context.Context) error { return rdb.Close() })

	ctx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	a.cacheConn = rdb
	a.idemp = idempotency.New(rdb, a.config.GetString("idempotency.redis.key_prefix"))

	switch driver := strings.TrimSpace(a.config.GetString("ratelimit.driver")); driver {
	case "", "memory":
		a.limiter = ratelimit.NewMemory(a.clock)
	case "redis":
		a.limiter = ratelimit.NewRedis(rdb, a.config.GetString("ratelimit.redis.key_prefix"))
	default:
		return fmt.Errorf("rate limiter %q: %w", driver, errUnknownDriver)
	}

	return nil
}

func (a *App) initSession() error {
	opts := session.Options{
		TTL:    a.config.GetMinute("session.ttl_minutes"),
		Tokens: a.tokens,
		Digest: a.hmac,
		Clock:  a.clock,
	}

	switch driver := strings.TrimSpace(a.config.GetString("session.driver")); driver {
	case session.DriverMemory:
		a.sessions = session.NewMemoryStore(opts)
	case session.DriverRedis:
		a.sessions = session.NewRedisStore(a.cacheConn, a.config.GetString("session.redis.key_prefix"), opts)
	default:
		return fmt.Errorf("session store %q: %w", driver, errUnknownDriver)
	}

	return nil
}

// initMail leaves a.mail nil when no SMTP host is configured; the EMAIL
// channel then reports itself unavailable.
func (a *App) initMail() error {
	if strings.TrimSpace(a.config.GetString("mail.host")) == "" {
		slog.Warn("mail host not set, EMAIL channel disabled")
		return nil
	}

	m, err := mail.NewSMTP(mail.SMTPConfig{
		Host:     a.config.GetString("mail.host"),
		Port:     a.config.GetInt("mail.port"),
		Username: a.config.GetString("mail.username"),
		Password: a.config.GetString("mail.password"),
		From:     a.config.GetString("mail.from"),
	})
	if err != nil {
		return err
	}
	a.onClose("mail", func(context.Context) error { return m.Close() })

	a.mail = m
	return nil
}

func (a *App) gcsClientOptions() ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if a.config.GetBool("storage.gcs.without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}

	creds := a.config.GetBinary("storage.gcs.credentials_json")
	if path := strings.TrimSpace(a.config.GetString("storage.gcs.credentials_file")); path != "" && len(creds) == 0 {
		// #nosec G304 -- path comes from the operator's config.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("gcs credentials file: %w", err)
		}
		creds = data
	}
	if len(creds) > 0 {
		c, err := google.CredentialsFromJSON(a.ctx, creds, gcs.ScopeFullControl)
		if err != nil {
			return nil, fmt.Errorf("gcs credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(c))
	}

	if v := strings.TrimSpace(a.config.GetString("storage.gcs.endpoint")); v != "" {
		opts = append(opts, option.WithEndpoint(v))
	}
	if v := strings.TrimSpace(a.config.GetString("storage.gcs.user_agent")); v != "" {
		opts = append(opts, option.WithUserAgent(v))
	}

	return opts, nil
}

func (a *App) initStorage() error {
	driver := strings.TrimSpace(a.config.GetString("storage.driver"))

	var gcsOpts []option.ClientOption
	if driver == storage.DriverGCS {
		opts, err := a.gcsClientOptions()
		if err != nil {
			return err
		}
		gcsOpts = opts
	}

	s3Key := func(k string) string { return strings.TrimSpace(a.config.GetString("storage.s3." + k)) }
	minioKey := func(k string) string { return strings.TrimSpace(a.config.GetString("storage.minio." + k)) }

	stg, err := storage.NewFromDriver(a.ctx, driver, storage.FactoryOptions{
		S3: storage.S3Options{
			Region:       s3Key("region"),
			Endpoint:     s3Key("endpoint"),
			AccessKey:    s3Key("access_key"),
			SecretKey:    s3Key("secret_key"),
			SessionToken: s3Key("session_token"),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		GCS: storage.GCSOptions{ClientOptions: gcsOpts},
		MinIO: storage.MinIOOptions{
			Region:       minioKey("region"),
			Endpoint:     minioKey("endpoint"),
			AccessKey:    minioKey("access_key"),
			SecretKey:    minioKey("secret_key"),
			SessionToken: minioKey("session_token"),
			UseSSL:       a.config.GetBool("storage.minio.use_ssl"),
		},
	})
	if err != nil {
		return fmt.Errorf("driver %q: %w", driver, err)
	}
	a.onClose("storage", func(context.Context) error { return stg.Close() })

	a.storage = stg
	return nil
}

func (a *App) nsqConfig() *nsq.Config {
	cfg := nsq.NewConfig()
	cfg.MaxInFlight = a.config.GetInt("messaging.nsq.producer_config.max_in_flight")
	cfg.DialTimeout = a.config.GetSecond("messaging.nsq.producer_config.dial_timeout_seconds")
	cfg.ReadTimeout = a.config.GetSecond("messaging.nsq.producer_config.read_timeout_seconds")
	cfg.WriteTimeout = a.config.GetSecond("messaging.nsq.producer_config.write_timeout_seconds")
	return cfg
}

func (a *App) natsOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(a.config.GetString("messaging.nats.name")),
		nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
		nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
		nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
		nats.PingInterval(a.config.GetSecond("messaging.nats.ping_interval_seconds")),
		nats.MaxPingsOutstanding(a.config.GetInt("messaging.nats.max_pings_outstanding")),
		nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
	}
	if a.config.GetBool("messaging.nats.no_echo") {
		opts = append(opts, nats.NoEcho())
	}
	return opts
}

func (a *App) initMessaging() error {
	var pubsubOpts []option.ClientOption
	if v := strings.TrimSpace(a.config.GetString("messaging.pubsub.endpoint")); v != "" {
		pubsubOpts = []option.ClientOption{option.WithEndpoint(v), option.WithoutAuthentication()}
	}

	driver := a.config.GetString("messaging.driver")
	pub, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr:   a.config.GetString("messaging.nsq.producer_addr"),
			ProducerConfig: a.nsqConfig(),
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: pubsubOpts,
		},
		NATS: messaging.NATSConfig{
			URL:     a.config.GetString("messaging.nats.url"),
			Options: a.natsOptions(),
		},
	})
	if err != nil {
		return fmt.Errorf("driver %q: %w", driver, err)
	}
	a.onClose("messaging", func(context.Context) error { return pub.Close() })

	a.messaging = pub
	return nil
}

func (a *App) initCasbin() error {
	e, err := authz.NewEnforcer()
	if err != nil {
		return err
	}

	a.gate = authz.NewGate(e)
	return nil
}

func (a *App) initHTTPServer() error {
	a.router = router.NewRouter(router.Config{
		Config:      a.config,
		UUID:        a.uuid,
		Sessions:    a.sessions,
		Instrument:  a.ins,
		ServiceName: a.config.GetString("instrument.service_name"),
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           handler,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}

	return nil
}
