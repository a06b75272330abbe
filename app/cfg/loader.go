package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath        string `long:"db-path" env:"DB_PATH" default:"./data/stories.db" description:"SQLite database file holding stories and the job queue"`
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for processing status (in-process store when empty)"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB       int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`

	// Application configuration
	StoriesDir   string `long:"stories-dir" env:"STORIES_DIR" default:"./stories" description:"Directory containing story seed files"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Scheduler configuration
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for story updates"`
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"5" description:"Queue poll interval in seconds"`
	JobTimeout        int `long:"job-timeout" env:"JOB_TIMEOUT" default:"300" description:"Maximum duration of one job execution in seconds"`
	MaxAttempts       int `long:"max-attempts" env:"MAX_ATTEMPTS" default:"3" description:"Attempts per job before it is marked failed"`
	RetryDelay        int `long:"retry-delay" env:"RETRY_DELAY" default:"2" description:"Initial retry backoff in seconds"`

	// Pipeline configuration
	StatusTTL     int    `long:"status-ttl" env:"STATUS_TTL" default:"3600" description:"Processing status retention in seconds"`
	LockTTL       int    `long:"lock-ttl" env:"LOCK_TTL" default:"60" description:"Per-story update lease in seconds"`
	FetchTimeout  int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Feed fetch timeout in seconds"`
	ExtractImages bool   `long:"extract-images" env:"EXTRACT_IMAGES" description:"Look up lead images on item pages when the feed has none"`
	UserAgent     string `long:"user-agent" env:"USER_AGENT" default:"Story Comb/1.0" description:"User agent string for HTTP requests"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		RedisAddr:         raw.RedisAddr,
		RedisPassword:     raw.RedisPassword,
		RedisDB:           raw.RedisDB,
		StoriesDir:        raw.StoriesDir,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: time.Duration(raw.SchedulerInterval) * time.Second,
		JobTimeout:        time.Duration(raw.JobTimeout) * time.Second,
		MaxAttempts:       raw.MaxAttempts,
		RetryDelay:        time.Duration(raw.RetryDelay) * time.Second,
		StatusTTL:         time.Duration(raw.StatusTTL) * time.Second,
		LockTTL:           time.Duration(raw.LockTTL) * time.Second,
		FetchTimeout:      time.Duration(raw.FetchTimeout) * time.Second,
		ExtractImages:     raw.ExtractImages,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func (c *Cfg) validate() error {
	positive := map[string]int{
		"worker count": c.WorkerCount,
		"max attempts": c.MaxAttempts,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	durations := map[string]time.Duration{
		"scheduler interval": c.SchedulerInterval,
		"job timeout":        c.JobTimeout,
		"status ttl":         c.StatusTTL,
		"lock ttl":           c.LockTTL,
		"fetch timeout":      c.FetchTimeout,
	}
	for name, value := range durations {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be non-negative")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
