package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Beta Environment = "beta"
	Dev  Environment = "dev"
)

type StemConfig struct {
	Env         Environment `env:"STEM_ENV" env-default:"dev" validate:"oneof=live beta dev"`
	Addr        string      `env:"STEM_ADDR" env-default:":9001" validate:"required"`
	PrivateAddr string      `env:"STEM_PRIVATE_ADDR" env-default:"localhost:9002"`
	BaseUrl     string      `env:"STEM_BASE_URL" env-default:"http://localhost:9001" validate:"required,url"`
	LogLevel    string      `env:"STEM_LOG_LEVEL" env-default:"info" validate:"oneof=trace debug info warn error"`

	Api       ApiConfig
	Auth      AuthConfig
	Sessions  SessionsConfig
	Postgres  PostgresConfig
	Previews  PreviewsConfig
	S3        S3Config
	DevConfig DevConfig
}

type ApiConfig struct {
	BaseUrl string        `env:"STEM_API_BASE_URL" env-default:"https://stem.automatex.dev/api/" validate:"required,url"`
	Timeout time.Duration `env:"STEM_API_TIMEOUT" env-default:"15s"`

	// Articles were historically fetched without their page parameters.
	// Enabling this attaches page_size and page to the articles query.
	PaginateArticles bool `env:"STEM_API_PAGINATE_ARTICLES" env-default:"false"`

	// Where the editor navigates after a successful save or a confirmed cancel.
	ListingPath string `env:"STEM_LISTING_PATH" env-default:"/getforum" validate:"startswith=/"`
}

type AuthConfig struct {
	CookieDomain    string        `env:"STEM_COOKIE_DOMAIN" env-default:""`
	CookieSecure    bool          `env:"STEM_COOKIE_SECURE" env-default:"false"`
	SessionDuration time.Duration `env:"STEM_SESSION_DURATION" env-default:"336h"`
}

type SessionsConfig struct {
	Backend string `env:"STEM_SESSIONS_BACKEND" env-default:"memory" validate:"oneof=memory postgres"`
}

type PostgresConfig struct {
	User     string `env:"STEM_PG_USER" env-default:"stemweb"`
	Password string `env:"STEM_PG_PASSWORD" env-default:"password"`
	Hostname string `env:"STEM_PG_HOST" env-default:"localhost"`
	Port     int    `env:"STEM_PG_PORT" env-default:"5432"`
	DbName   string `env:"STEM_PG_DBNAME" env-default:"stemweb"`
	LogLevel string `env:"STEM_PG_LOG_LEVEL" env-default:"warn"`
	MinConn  int32  `env:"STEM_PG_MIN_CONN" env-default:"2"`
	MaxConn  int32  `env:"STEM_PG_MAX_CONN" env-default:"10"`
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type PreviewsConfig struct {
	Backend string        `env:"STEM_PREVIEWS_BACKEND" env-default:"memory" validate:"oneof=memory s3"`
	TTL     time.Duration `env:"STEM_PREVIEWS_TTL" env-default:"1h"`
	MaxSize int64         `env:"STEM_PREVIEWS_MAX_SIZE" env-default:"10485760" validate:"gt=0"`
}

type S3Config struct {
	Endpoint  string `env:"STEM_S3_ENDPOINT" env-default:""`
	Region    string `env:"STEM_S3_REGION" env-default:"us-east-1"`
	Bucket    string `env:"STEM_S3_BUCKET" env-default:"stemweb-previews"`
	AccessKey string `env:"STEM_S3_ACCESS_KEY" env-default:""`
	SecretKey string `env:"STEM_S3_SECRET_KEY" env-default:""`
}

type DevConfig struct {
	LiveTemplates bool `env:"STEM_LIVE_TEMPLATES" env-default:"false"`
}

func (c StemConfig) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
