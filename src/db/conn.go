package db

import (
	"context"
	"regexp"
	"time"

	"git.automatex.dev/stem/stemweb/src/config"
	"git.automatex.dev/stem/stemweb/src/logging"
	"git.automatex.dev/stem/stemweb/src/oops"
	"git.automatex.dev/stem/stemweb/src/utils"
	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// This interface should match both a direct pgx connection or a pgx transaction.
type ConnOrTx interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Creates a connection pool for the session database.
// The resulting pool is safe for concurrent use.
func NewConnPool(ctx context.Context) (*pgxpool.Pool, error) {
	return NewConnPoolWithConfig(ctx, config.PostgresConfig{})
}

func NewConnPoolWithConfig(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	cfg = overrideDefaultConfig(cfg)

	pgcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, oops.New(err, "invalid database config")
	}

	pgcfg.MinConns = cfg.MinConn
	pgcfg.MaxConns = cfg.MaxConn
	pgcfg.ConnConfig.Tracer = multiTracer{
		&tracelog.TraceLog{
			Logger:   zerologadapter.NewLogger(*logging.GlobalLogger()),
			LogLevel: parseLogLevel(cfg.LogLevel),
		},
		metricsTracer{},
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgcfg)
	if err != nil {
		return nil, oops.New(err, "failed to create database connection pool")
	}
	return pool, nil
}

func overrideDefaultConfig(cfg config.PostgresConfig) config.PostgresConfig {
	return config.PostgresConfig{
		User:     utils.OrDefault(cfg.User, config.Config.Postgres.User),
		Password: utils.OrDefault(cfg.Password, config.Config.Postgres.Password),
		Hostname: utils.OrDefault(cfg.Hostname, config.Config.Postgres.Hostname),
		Port:     utils.OrDefault(cfg.Port, config.Config.Postgres.Port),
		DbName:   utils.OrDefault(cfg.DbName, config.Config.Postgres.DbName),
		LogLevel: utils.OrDefault(cfg.LogLevel, config.Config.Postgres.LogLevel),
		MinConn:  utils.OrDefault(cfg.MinConn, config.Config.Postgres.MinConn),
		MaxConn:  utils.OrDefault(cfg.MaxConn, config.Config.Postgres.MaxConn),
	}
}

func parseLogLevel(s string) tracelog.LogLevel {
	level, err := tracelog.LogLevelFromString(s)
	if err != nil {
		return tracelog.LogLevelWarn
	}
	return level
}

type multiTracer []pgx.QueryTracer

var _ pgx.QueryTracer = multiTracer{}

func (mt multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, t := range mt {
		ctx = t.TraceQueryStart(ctx, conn, data)
	}
	return ctx
}

func (mt multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, t := range mt {
		t.TraceQueryEnd(ctx, conn, data)
	}
}

var reQueryName = regexp.MustCompile("---- (.*)\n")

// GetQueryName returns the name given to a query by a leading
// "---- Name" comment line.
func GetQueryName(sql string) (string, bool) {
	m := reQueryName.FindStringSubmatch(sql)
	if m != nil {
		return m[1], true
	}
	return "", false
}

var queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "stemweb",
	Subsystem: "db",
	Name:      "query_duration_seconds",
	Help:      "Duration of database queries, by query name.",
	Buckets:   prometheus.DefBuckets,
}, []string{"query"})

type queryStartKey struct{}

type queryStart struct {
	name  string
	start time.Time
}

type metricsTracer struct{}

var _ pgx.QueryTracer = metricsTracer{}

func (metricsTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	name := "Unknown query"
	if n, ok := GetQueryName(data.SQL); ok {
		name = n
	}
	return context.WithValue(ctx, queryStartKey{}, queryStart{name: name, start: time.Now()})
}

func (metricsTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	if qs, ok := ctx.Value(queryStartKey{}).(queryStart); ok {
		queryDuration.WithLabelValues(qs.name).Observe(time.Since(qs.start).Seconds())
	}
}
