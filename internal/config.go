package internal

import "time"

// Config defines the server-side environment variables.
type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8080"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	PageSize             int           `env:"PAGE_SIZE,default=20"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	DebugPort            *int          `env:"DEBUG_PORT"`
}
