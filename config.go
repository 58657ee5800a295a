package rowqueue

import "time"

// Config holds the tuning defaults for runners and workers, populated from
// environment variables.
type Config struct {
	Retry         int           `env:"ROWQUEUE_RETRY" envDefault:"3"`
	Timeout       time.Duration `env:"ROWQUEUE_TIMEOUT" envDefault:"1h"`
	Delay         time.Duration `env:"ROWQUEUE_DELAY" envDefault:"0s"`
	PollInterval  time.Duration `env:"ROWQUEUE_POLL_INTERVAL" envDefault:"5s"`
	MaxConcurrent int           `env:"ROWQUEUE_MAX_CONCURRENT" envDefault:"1"`
}
