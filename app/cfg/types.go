package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Application configuration
	StoriesDir   string
	Port         string
	APIAccessKey string

	// Scheduler configuration
	WorkerCount       int
	SchedulerInterval time.Duration
	JobTimeout        time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration

	// Pipeline configuration
	StatusTTL     time.Duration
	LockTTL       time.Duration
	FetchTimeout  time.Duration
	ExtractImages bool
	UserAgent     string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
