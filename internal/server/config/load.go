package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// RegisterFlags declares every overridable setting on fs. Flag names match
// the YAML keys so that koanf can merge them; defaults come from LoadDefaults.
//
// Short forms:
//
//	-a  HTTP bind address
//	-d  PostgreSQL DSN
//	-s  token HMAC secret
//	-t  token validity (e.g. 4320h)
func RegisterFlags(fs *pflag.FlagSet) {
	d := &Config{}
	d.LoadDefaults()

	fs.StringP("endpoint_addr_http", "a", d.EndpointAddrHTTP, "address and port to run the HTTP API")
	fs.String("endpoint_addr_grpc", d.EndpointAddrGRPC, "address and port of the gRPC health service (empty disables)")
	fs.String("endpoint_addr_metrics", d.EndpointAddrMetrics, "address and port of the metrics endpoint (empty disables)")
	fs.StringP("database_dsn", "d", d.DatabaseDSN, "database DSN")
	fs.StringP("secret_key", "s", d.SecretKey, "token signing secret")
	fs.String("jwt_algorithm", d.JWTAlgorithm, "token signing algorithm (HS256, HS384, HS512)")
	fs.DurationP("token_validity_duration", "t", d.TokenValidityDuration, "session and temp token validity")
	fs.Bool("strict_tokens", d.StrictTokens, "verify bearer token signature and expiry after lookup")
	fs.Int("bcrypt_cost", d.BcryptCost, "bcrypt work factor")
	fs.Int("auth_rate_limit", d.AuthRateLimit, "requests per minute per IP on /auth routes (0 disables)")
	fs.String("log_level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log_format", d.LogFormat, "log format (json, text)")
}

// Load builds a Config by applying defaults, then overlaying values from an
// optional YAML file, the environment, and finally the flags in fs that were
// set explicitly.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	return load(path, fs, os.LookupEnv)
}

func load(path string, fs *pflag.FlagSet, lookup lookupFunc) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := loadEnv(k, lookup); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if fs != nil {
		// unchanged flags only fill keys that are still missing
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, fmt.Errorf("flags: %w", err)
		}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
