package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/umputun/go-flags"
	"google.golang.org/genai"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/jobbridge/app/archive"
	"github.com/umputun/jobbridge/app/assist"
	"github.com/umputun/jobbridge/app/catalog"
	"github.com/umputun/jobbridge/app/match"
	"github.com/umputun/jobbridge/app/notify"
	"github.com/umputun/jobbridge/app/ocr"
	"github.com/umputun/jobbridge/app/pipeline"
	"github.com/umputun/jobbridge/app/service"
	"github.com/umputun/jobbridge/app/skills"
	"github.com/umputun/jobbridge/app/web"
	"github.com/umputun/jobbridge/app/web/persistence"
)

var opts struct {
	CatalogFile string `short:"c" long:"catalog" env:"JOBBRIDGE_CATALOG" description:"catalog yaml file with skills, jobs and answers"`
	EnvFile     string `long:"env-file" env:"JOBBRIDGE_ENV_FILE" default:".env" description:"dotenv file loaded before parsing"`
	Dbg         bool   `long:"dbg" env:"JOBBRIDGE_DEBUG" description:"debug mode"`

	Web struct {
		Address      string        `long:"address" env:"ADDRESS" default:":8080" description:"web server listen address"`
		BaseURL      string        `long:"base-url" env:"BASE_URL" description:"base URL path for reverse proxy (e.g., /jobbridge)"`
		Hostname     string        `long:"hostname" env:"HOSTNAME" description:"hostname to display in UI"`
		PasswordHash string        `long:"password-hash" env:"PASSWORD_HASH" description:"bcrypt hash of UI password, empty disables auth"`
		LoginTTL     time.Duration `long:"login-ttl" env:"LOGIN_TTL" default:"24h" description:"login session ttl"`
		MaxUploadMB  int64         `long:"max-upload" env:"MAX_UPLOAD" default:"10" description:"max upload size in MB"`
		AnalyzeRate  float64       `long:"analyze-rate" env:"ANALYZE_RATE" default:"5" description:"analyze requests per second per client, 0 disables"`
		HistoryLimit int           `long:"history-limit" env:"HISTORY_LIMIT" default:"20" description:"recent records shown in UI"`
	} `group:"web" namespace:"web" env-namespace:"JOBBRIDGE_WEB"`

	History struct {
		Enabled   bool          `long:"enabled" env:"ENABLED" description:"keep analyses and questions in sqlite"`
		DBPath    string        `long:"db-path" env:"DB_PATH" default:"jobbridge.db" description:"sqlite database path"`
		Retention time.Duration `long:"retention" env:"RETENTION" default:"720h" description:"remove records older than this"`
		Schedule  string        `long:"schedule" env:"SCHEDULE" default:"@hourly" description:"cleanup cron schedule"`
	} `group:"history" namespace:"history" env-namespace:"JOBBRIDGE_HISTORY"`

	OCR struct {
		Engine    string        `long:"engine" env:"ENGINE" choice:"tesseract" choice:"gemini" choice:"none" default:"tesseract" description:"ocr engine"`
		Tesseract string        `long:"tesseract" env:"TESSERACT" default:"tesseract" description:"tesseract binary"`
		Lang      string        `long:"lang" env:"LANG" default:"eng" description:"tesseract languages, e.g. eng+hin"`
		Timeout   time.Duration `long:"timeout" env:"TIMEOUT" default:"30s" description:"single image recognition timeout"`
	} `group:"ocr" namespace:"ocr" env-namespace:"JOBBRIDGE_OCR"`

	Embed struct {
		Engine      string        `long:"engine" env:"ENGINE" choice:"local" choice:"gemini" choice:"none" default:"local" description:"embedding engine"`
		Dim         int           `long:"dim" env:"DIM" default:"256" description:"local embedding dimension"`
		CacheTTL    time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"1h" description:"embeddings cache ttl, 0 disables"`
		Concurrency int           `long:"concurrency" env:"CONCURRENCY" default:"4" description:"max parallel embedding calls"`
		Attempts    int           `long:"attempts" env:"ATTEMPTS" default:"3" description:"embedding call attempts"`
		Duration    time.Duration `long:"duration" env:"DURATION" default:"500ms" description:"initial retry delay"`
		Factor      float64       `long:"factor" env:"FACTOR" default:"2" description:"retry backoff factor"`
	} `group:"embed" namespace:"embed" env-namespace:"JOBBRIDGE_EMBED"`

	Gemini struct {
		APIKey      string `long:"api-key" env:"API_KEY" description:"gemini api key"`
		VisionModel string `long:"vision-model" env:"VISION_MODEL" default:"gemini-2.0-flash" description:"model used for ocr"`
		EmbedModel  string `long:"embed-model" env:"EMBED_MODEL" default:"text-embedding-004" description:"model used for embeddings"`
	} `group:"gemini" namespace:"gemini" env-namespace:"JOBBRIDGE_GEMINI"`

	Archive struct {
		Enabled   bool   `long:"enabled" env:"ENABLED" description:"archive uploads to s3 compatible storage"`
		Endpoint  string `long:"endpoint" env:"ENDPOINT" description:"custom endpoint, e.g. r2"`
		Region    string `long:"region" env:"REGION" default:"auto" description:"bucket region"`
		Bucket    string `long:"bucket" env:"BUCKET" description:"bucket name"`
		Prefix    string `long:"prefix" env:"PREFIX" default:"uploads" description:"object key prefix"`
		AccessKey string `long:"access-key" env:"ACCESS_KEY" description:"access key id"`
		SecretKey string `long:"secret-key" env:"SECRET_KEY" description:"secret access key"`
		PathStyle bool   `long:"path-style" env:"PATH_STYLE" description:"use path style addressing"`
	} `group:"archive" namespace:"archive" env-namespace:"JOBBRIDGE_ARCHIVE"`

	Notify struct {
		Enabled        bool          `long:"enabled" env:"ENABLED" description:"forward unanswered questions to caseworkers"`
		SMTPHost       string        `long:"smtp-host" env:"SMTP_HOST" description:"SMTP host"`
		SMTPPort       int           `long:"smtp-port" env:"SMTP_PORT" default:"25" description:"SMTP port"`
		SMTPUsername   string        `long:"smtp-username" env:"SMTP_USERNAME" description:"SMTP user name"`
		SMTPPassword   string        `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
		SMTPTLS        bool          `long:"smtp-tls" env:"SMTP_TLS" description:"enable SMTP TLS"`
		SMTPTimeOut    time.Duration `long:"smtp-timeout" env:"SMTP_TIMEOUT" default:"10s" description:"SMTP TCP connection timeout"`
		FromEmail      string        `long:"from" env:"FROM" description:"SMTP from email"`
		ToEmails       []string      `long:"to" env:"TO" description:"caseworker email(s)" env-delim:","`
		Webhooks       []string      `long:"webhook" env:"WEBHOOK" description:"webhook url(s)" env-delim:","`
		WebhookHeaders []string      `long:"webhook-header" env:"WEBHOOK_HEADER" description:"webhook header, Key:Value" env-delim:","`
		Subject        string        `long:"subject" env:"SUBJECT" description:"email subject"`
		Template       string        `long:"template" env:"TEMPLATE" description:"email html template file"`
		Timeout        time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"notification timeout"`
		HostName       string        `long:"host" env:"HOSTNAME" description:"host name reported in notifications"`
	} `group:"notify" namespace:"notify" env-namespace:"JOBBRIDGE_NOTIFY"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"logs/jobbridge.log" description:"file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max size of log file in MB"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of rotated files"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max age of rotated files in days"`
		EnabledCompress bool   `long:"enabled-compress" env:"ENABLED_COMPRESS" description:"compress rotated files"`
	} `group:"log" namespace:"log" env-namespace:"JOBBRIDGE_LOG"`
}

var revision = "unknown"

func main() {
	fmt.Printf("jobbridge %s\n", revision)

	loadEnv(os.Args[1:])
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	if lj, ok := setupLogs().(*lumberjack.Logger); ok {
		defer lj.Close()
	}

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT and SIGTERM
	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctlg, err := catalog.Load(opts.CatalogFile)
	if err != nil {
		return fmt.Errorf("can't load catalog: %w", err)
	}

	client, err := makeGenaiClient(ctx)
	if err != nil {
		return err
	}
	engine, err := makeOCREngine(client)
	if err != nil {
		return err
	}
	embedder, err := makeEmbedder(client)
	if err != nil {
		return err
	}

	params := pipeline.Params{
		OCR:       ocr.NewService(engine, ctlg.FallbackText),
		Detector:  skills.NewDetector(ctlg.Skills),
		Responder: assist.NewResponder(ctlg.Answers),
		Ranker: match.NewRanker(match.RankerParams{
			Jobs:        ctlg.Jobs,
			Embedder:    embedder,
			Repeater:    makeRepeater(),
			CacheTTL:    opts.Embed.CacheTTL,
			Concurrency: opts.Embed.Concurrency,
		}),
		NotifyTimeout: opts.Notify.Timeout,
	}

	// nil pointers must not leak into interface fields
	if notifier := makeNotifier(); notifier != nil {
		params.Notifier = notifier
	}
	arch, err := makeArchive(ctx)
	if err != nil {
		return err
	}
	if arch != nil {
		params.Archiver = arch
	}

	srvCfg := web.Config{
		BaseURL:       validateBaseURL(opts.Web.BaseURL),
		Hostname:      makeHostName(opts.Web.Hostname),
		Version:       revision,
		PasswordHash:  opts.Web.PasswordHash,
		LoginTTL:      opts.Web.LoginTTL,
		MaxUploadSize: opts.Web.MaxUploadMB * 1024 * 1024,
		AnalyzeRate:   opts.Web.AnalyzeRate,
		HistoryLimit:  opts.Web.HistoryLimit,
		DataPath:      ".",
	}

	if opts.History.Enabled {
		store, err := persistence.NewSQLiteStore(opts.History.DBPath)
		if err != nil {
			return fmt.Errorf("can't open history: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("[WARN] failed to close history: %v", err)
			}
		}()
		params.Store = store
		srvCfg.History = store
		srvCfg.DataPath = filepath.Dir(opts.History.DBPath)

		janitor := service.Janitor{
			Cron:      cron.New(),
			Cleaner:   store,
			Repeater:  repeater.New(&strategy.FixedDelay{Repeats: 3, Delay: time.Second}),
			Schedule:  opts.History.Schedule,
			Retention: opts.History.Retention,
			Timeout:   time.Minute,
		}
		go func() {
			if err := janitor.Do(ctx); err != nil {
				log.Printf("[WARN] history janitor stopped: %v", err)
			}
		}()
	}

	srvCfg.Analyzer = pipeline.New(params)
	srv, err := web.New(srvCfg)
	if err != nil {
		return fmt.Errorf("can't make web server: %w", err)
	}
	if err := srv.Run(ctx, opts.Web.Address); err != nil {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// loadEnv reads dotenv file before flags parsing. Real environment takes precedence.
func loadEnv(args []string) {
	file := os.Getenv("JOBBRIDGE_ENV_FILE")
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, "--env-file="); ok {
			file = v
		}
		if a == "--env-file" && i+1 < len(args) {
			file = args[i+1]
		}
	}
	if file == "" {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("[WARN] can't load %s: %v\n", file, err)
	}
}

func makeGenaiClient(ctx context.Context) (*genai.Client, error) {
	if opts.OCR.Engine != "gemini" && opts.Embed.Engine != "gemini" {
		return nil, nil
	}
	if opts.Gemini.APIKey == "" {
		return nil, errors.New("gemini api key is required for gemini ocr or embeddings")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.Gemini.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("can't make genai client: %w", err)
	}
	return client, nil
}

func makeOCREngine(client *genai.Client) (ocr.Engine, error) {
	switch opts.OCR.Engine {
	case "gemini":
		res, err := ocr.NewGemini(client, opts.Gemini.VisionModel, opts.OCR.Timeout)
		if err != nil {
			return nil, fmt.Errorf("can't make gemini ocr: %w", err)
		}
		return res, nil
	case "none":
		log.Print("[INFO] ocr disabled, images get sample text")
		return ocr.None{}, nil
	default:
		return ocr.NewTesseract(opts.OCR.Tesseract, opts.OCR.Lang, opts.OCR.Timeout), nil
	}
}

func makeEmbedder(client *genai.Client) (match.Embedder, error) {
	switch opts.Embed.Engine {
	case "gemini":
		res, err := match.NewGemini(client, opts.Gemini.EmbedModel)
		if err != nil {
			return nil, fmt.Errorf("can't make gemini embedder: %w", err)
		}
		return res, nil
	case "none":
		log.Print("[INFO] embeddings disabled, job scores not shown")
		return nil, nil
	default:
		return match.NewLocal(opts.Embed.Dim), nil
	}
}

func makeRepeater() *repeater.Repeater {
	return repeater.New(&strategy.Backoff{Repeats: opts.Embed.Attempts, Duration: opts.Embed.Duration,
		Factor: opts.Embed.Factor, Jitter: true})
}

func makeArchive(ctx context.Context) (*archive.S3, error) {
	if !opts.Archive.Enabled {
		return nil, nil
	}
	res, err := archive.NewS3(ctx, archive.Params{
		Endpoint:  opts.Archive.Endpoint,
		Region:    opts.Archive.Region,
		Bucket:    opts.Archive.Bucket,
		Prefix:    opts.Archive.Prefix,
		AccessKey: opts.Archive.AccessKey,
		SecretKey: opts.Archive.SecretKey,
		PathStyle: opts.Archive.PathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("can't make archive: %w", err)
	}
	return res, nil
}

func makeNotifier() *notify.Service {
	if !opts.Notify.Enabled {
		return nil
	}

	if opts.Notify.FromEmail == "" {
		opts.Notify.FromEmail = "jobbridge@" + makeHostName(opts.Notify.HostName)
	}

	return notify.NewService(
		notify.Params{Subject: opts.Notify.Subject, Template: opts.Notify.Template, Host: makeHostName(opts.Notify.HostName)},
		notify.SendersParams{
			SMTPHost:       opts.Notify.SMTPHost,
			SMTPPort:       opts.Notify.SMTPPort,
			SMTPTLS:        opts.Notify.SMTPTLS,
			SMTPUsername:   opts.Notify.SMTPUsername,
			SMTPPassword:   opts.Notify.SMTPPassword,
			SMTPTimeout:    opts.Notify.SMTPTimeOut,
			FromEmail:      opts.Notify.FromEmail,
			ToEmails:       opts.Notify.ToEmails,
			WebhookURLs:    opts.Notify.Webhooks,
			WebhookHeaders: opts.Notify.WebhookHeaders,
			WebhookTimeout: opts.Notify.Timeout,
		})
}

func makeHostName(name string) string {
	if name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// validateBaseURL drops trailing slash, "/" means root
func validateBaseURL(u string) string {
	return strings.TrimRight(u, "/")
}

// setupLogs configures lgr and returns the writer used for logs, lumberjack for file logging
func setupLogs() io.Writer {
	logOpts := []log.Option{log.Msec, log.LevelBraces}
	if opts.Dbg {
		logOpts = []log.Option{log.Debug, log.Msec, log.LevelBraces, log.CallerFunc, log.CallerPkg, log.CallerFile}
	}

	if !opts.Log.Enabled {
		log.Setup(logOpts...)
		return os.Stdout
	}

	out := &lumberjack.Logger{
		Filename:   opts.Log.Filename,
		MaxSize:    opts.Log.MaxSize,
		MaxBackups: opts.Log.MaxBackups,
		MaxAge:     opts.Log.MaxAge,
		Compress:   opts.Log.EnabledCompress,
	}
	logOpts = append(logOpts, log.Out(io.MultiWriter(os.Stdout, out)), log.Err(io.MultiWriter(os.Stderr, out)))
	log.Setup(logOpts...)
	return out
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			cancel() // terminate on SIGTERM and SIGINT
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, os.Interrupt)
}
