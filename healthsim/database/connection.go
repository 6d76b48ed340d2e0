package database

import (
	"database/sql"
	"time"

	"github.com/bgentry/que-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/mark64oswald/healthsim-core/log"
)

// Connect opens the main application database identified by DATABASE_URL.
// Connection attempts are retried with exponential backoff so the service
// can start before the database finishes coming up.
func Connect() (*sql.DB, error) {
	return connect(conf.GetEnv("DATABASE_URL"))
}

func connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "could not open database")
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Duration(conf.GetEnvInt("DATABASE_CONNECT_TIMEOUT_SECONDS", 30)) * time.Second

	ping := func() error { return db.Ping() }
	notify := func(err error, d time.Duration) {
		log.API.Warnf("Could not ping database (retry in %s): %s", d, err)
	}

	if err := backoff.RetryNotify(ping, b, notify); err != nil {
		return nil, errors.Wrap(err, "could not ping database")
	}

	db.SetMaxOpenConns(conf.GetEnvInt("DATABASE_MAX_OPEN_CONNS", 40))
	db.SetMaxIdleConns(conf.GetEnvInt("DATABASE_MAX_IDLE_CONNS", 10))
	db.SetConnMaxIdleTime(time.Duration(conf.GetEnvInt("DATABASE_CONN_MAX_IDLE_TIME_MINUTES", 5)) * time.Minute)

	return db, nil
}

// QueuePool opens the pgx connection pool that backs the job queue,
// registering the que-go prepared statements on every connection.
func QueuePool() (*pgx.ConnPool, error) {
	return queuePool(conf.GetEnv("QUEUE_DATABASE_URL"))
}

func queuePool(queueDatabaseURL string) (*pgx.ConnPool, error) {
	pgxcfg, err := pgx.ParseURI(queueDatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse queue database URL")
	}

	pool, err := pgx.NewConnPool(pgx.ConnPoolConfig{
		ConnConfig:     pgxcfg,
		MaxConnections: conf.GetEnvInt("QUEUE_MAX_CONNECTIONS", 5),
		AfterConnect:   que.PrepareStatements,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create queue connection pool")
	}
	return pool, nil
}
