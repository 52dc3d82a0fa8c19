// Package config loads the service configuration from defaults, the
// environment (optionally seeded from a .env file) and command line flags,
// in that order of increasing priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" envDefault:":8080" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info" validate:"loglevel"`
	DatabaseHost        string        `env:"DATABASE_HOST"`
	DatabasePort        int           `env:"DATABASE_PORT" envDefault:"27017" validate:"min=1,max=65535"`
	DatabaseName        string        `env:"DATABASE_NAME" envDefault:"todo" validate:"required"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBFileName          string        `env:"FILE_STORAGE_PATH"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	GRPCAddr            string        `env:"GRPC_ADDRESS" validate:"omitempty,hostname_port"`
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"15s" validate:"gt=0"`
}

// ErrNoIntegerValue is returned by Integer when neither the environment nor
// the default yields an integer.
var ErrNoIntegerValue = errors.New("no integer config value or default value set")

// InitOption configures New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing makes New ignore the command line.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs replaces os.Args[1:] as the source of command line flags.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// String returns the environment value of name, or defaultValue when it is unset or empty.
func String(name, defaultValue string) string {
	val := os.Getenv(name)
	if val == "" {
		return defaultValue
	}

	return val
}

// Integer returns the environment value of name parsed as an integer. When
// the variable is unset the first defaultValue is returned; without one the
// lookup fails.
func Integer(name string, defaultValue ...int) (int, error) {
	val := os.Getenv(name)
	if val == "" {
		if len(defaultValue) == 0 {
			return 0, fmt.Errorf("%w: %s", ErrNoIntegerValue, name)
		}

		return defaultValue[0], nil
	}

	result, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrNoIntegerValue, name, val)
	}

	return result, nil
}

// New builds the configuration and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `godotenv.Load()` calling: %w", err)
	}

	values := &Config{}
	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	port, err := Integer("SERVER_PORT", 0)
	if err != nil {
		return nil, err
	}
	if port != 0 {
		values.RunAddr = withPort(values.RunAddr, port)
	}

	if !options.disableFlagsParsing {
		if err := values.parseFlags(options.args); err != nil {
			return nil, err
		}
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

// MongoURI returns the connection string built from DatabaseHost and DatabasePort.
func (c *Config) MongoURI() string {
	host := c.DatabaseHost
	if !strings.Contains(host, "://") {
		host = "mongodb://" + host
	}

	return fmt.Sprintf("%s:%d", host, c.DatabasePort)
}

func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("todoapi", flag.ContinueOnError)
	flags.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run server")
	flags.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	flags.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "postgres connection string")
	flags.StringVar(&c.DBFileName, "f", c.DBFileName, "JSON file name with database")
	flags.StringVar(&c.GRPCAddr, "g", c.GRPCAddr, "address of the gRPC health server")
	flags.StringVar(&c.TrustedSubnet, "t", c.TrustedSubnet, "CIDR allowed to read /metrics")

	return flags.Parse(args)
}

func withPort(addr string, port int) string {
	host := addr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		host = addr[:idx]
	}

	return host + ":" + strconv.Itoa(port)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}
