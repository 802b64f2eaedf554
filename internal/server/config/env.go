package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/knadh/koanf/v2"
)

type lookupFunc func(key string) (string, bool)

// envKeys maps deployment environment variables onto config keys.
var envKeys = map[string]string{
	"DATABASE_DSN":   "database_dsn",
	"JWT_SECRET_KEY": "secret_key",
	"JWT_ALGORITHM":  "jwt_algorithm",
	"MAIL_USERNAME":  "mail.username",
	"MAIL_PASSWORD":  "mail.password",
	"MAIL_FROM":      "mail.from",
	"MAIL_SERVER":    "mail.host",
	"MAIL_FROM_NAME": "mail.from_name",
	"S3_BUCKET":      "s3.bucket",
	"S3_REGION":      "s3.region",
	"S3_ENDPOINT":    "s3.base_endpoint",
	"S3_ACCESS_KEY":  "s3.root_user",
	"S3_SECRET_KEY":  "s3.root_password",
	"LOG_LEVEL":      "log_level",
}

// loadEnv copies set environment variables into k. The POSTGRES_* family is
// assembled into a DSN; an explicit DATABASE_DSN wins over it.
func loadEnv(k *koanf.Koanf, lookup lookupFunc) error {
	if dsn, ok := postgresDSN(lookup); ok {
		if err := k.Set("database_dsn", dsn); err != nil {
			return err
		}
	}

	for env, key := range envKeys {
		if v, ok := lookup(env); ok && v != "" {
			if err := k.Set(key, v); err != nil {
				return err
			}
		}
	}

	if v, ok := lookup("MAIL_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAIL_PORT: %w", err)
		}
		if err := k.Set("mail.port", port); err != nil {
			return err
		}
	}

	return nil
}

func postgresDSN(lookup lookupFunc) (string, bool) {
	db, ok := lookup("POSTGRES_DB")
	if !ok || db == "" {
		return "", false
	}

	user, _ := lookup("POSTGRES_USER")
	password, _ := lookup("POSTGRES_PASSWORD")

	host, ok := lookup("POSTGRES_SERVER")
	if !ok || host == "" {
		host = "localhost"
	}
	port, ok := lookup("POSTGRES_PORT")
	if !ok || port == "" {
		port = "5432"
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	return u.String(), true
}
