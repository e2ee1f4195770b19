// Package config reads adapter settings from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the adapters
type Config struct {
	// Definition names the catalog function to invoke by default.
	Definition    string
	RoutingHeader string
	ServiceName   string
	Log           Log
	Metrics       Metrics
	RateLimit     RateLimit
	Breaker       Breaker
	Tracing       Tracing
	Local         Local
}

// Log holds logger configuration
type Log struct {
	Level  string // debug, info, warn, error
	Format string // json or logfmt
}

// Metrics holds prometheus configuration
type Metrics struct {
	Namespace string
}

// RateLimit holds invocation rate limiting configuration
type RateLimit struct {
	Limit float64 // invocations per second, 0 disables
	Burst int
	Mode  string // "error" or "wait"
}

// Breaker holds circuit breaker configuration
type Breaker struct {
	Kind    string // none, gobreaker, hystrix or handy
	Timeout time.Duration
}

// Tracing holds tracing configuration
type Tracing struct {
	OpenCensus bool
	ZipkinURL  string
}

// Local holds configuration of the local development harness
type Local struct {
	Port               string
	LambdaFunctionName string
}

// Load loads configuration from environment variables and a .env file
func Load() (Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("FUNCTION_ROUTING_HEADER", "function.definition")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("METRICS_NAMESPACE", "fnkit")
	v.SetDefault("RATE_LIMIT", 0)
	v.SetDefault("RATE_BURST", 1)
	v.SetDefault("RATE_MODE", "error")
	v.SetDefault("BREAKER", "none")
	v.SetDefault("BREAKER_TIMEOUT", 30*time.Second)
	v.SetDefault("TRACING_OPENCENSUS", false)
	v.SetDefault("LOCAL_PORT", "8000")

	cfg := Config{
		Definition:    v.GetString("FUNCTION_DEFINITION"),
		RoutingHeader: v.GetString("FUNCTION_ROUTING_HEADER"),
		ServiceName:   v.GetString("SERVICE_NAME"),
		Log: Log{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
		Metrics: Metrics{
			Namespace: v.GetString("METRICS_NAMESPACE"),
		},
		RateLimit: RateLimit{
			Limit: v.GetFloat64("RATE_LIMIT"),
			Burst: v.GetInt("RATE_BURST"),
			Mode:  strings.ToLower(v.GetString("RATE_MODE")),
		},
		Breaker: Breaker{
			Kind:    strings.ToLower(v.GetString("BREAKER")),
			Timeout: v.GetDuration("BREAKER_TIMEOUT"),
		},
		Tracing: Tracing{
			OpenCensus: v.GetBool("TRACING_OPENCENSUS"),
			ZipkinURL:  v.GetString("ZIPKIN_URL"),
		},
		Local: Local{
			Port:               v.GetString("LOCAL_PORT"),
			LambdaFunctionName: v.GetString("LAMBDA_FUNCTION_NAME"),
		},
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = HostFunctionName()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "fnkit"
	}
	return cfg, cfg.Validate()
}

// Validate reports settings that cannot be acted on.
func (c Config) Validate() error {
	switch c.Log.Format {
	case "json", "logfmt":
	default:
		return fmt.Errorf("LOG_FORMAT: unknown format %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL: unknown level %q", c.Log.Level)
	}
	switch c.RateLimit.Mode {
	case "error", "wait":
	default:
		return fmt.Errorf("RATE_MODE: unknown mode %q", c.RateLimit.Mode)
	}
	if c.RateLimit.Limit < 0 || (c.RateLimit.Limit > 0 && c.RateLimit.Burst < 1) {
		return fmt.Errorf("RATE_LIMIT: limit %v with burst %d", c.RateLimit.Limit, c.RateLimit.Burst)
	}
	switch c.Breaker.Kind {
	case "none", "gobreaker", "hystrix", "handy":
	default:
		return fmt.Errorf("BREAKER: unknown kind %q", c.Breaker.Kind)
	}
	return nil
}

// IsLambda detects if the process runs in AWS Lambda
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// IsGCF detects if the process runs in Google Cloud Functions
func IsGCF() bool {
	return os.Getenv("K_SERVICE") != "" || os.Getenv("FUNCTION_TARGET") != ""
}

// HostFunctionName returns the name the host deployed this function under,
// or "" outside a host.
func HostFunctionName() string {
	if name := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); name != "" {
		return name
	}
	if name := os.Getenv("K_SERVICE"); name != "" {
		return name
	}
	return os.Getenv("FUNCTION_TARGET")
}
