// Package database owns the lifetime of the postgres connection pool.
package database

import (
	"database/sql"
	"log"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/stdlib"
	"github.com/saludtotal/rips-app/conf"
)

// Variable substitution to support testing.
var LogFatal = log.Fatal

// GetDbConnection opens the pool described by DATABASE_URL and verifies it
// with a ping. Failures here are fatal; the process has nothing to do
// without a database.
func GetDbConnection() *sql.DB {
	databaseURL := conf.GetEnv("DATABASE_URL")
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		LogFatal(err)
	}

	db.SetMaxOpenConns(envInt("RIPS_DB_MAX_OPEN_CONNS", 40))
	db.SetMaxIdleConns(envInt("RIPS_DB_MAX_IDLE_CONNS", 20))
	db.SetConnMaxLifetime(time.Duration(envInt("RIPS_DB_CONN_MAX_LIFETIME_MIN", 5)) * time.Minute)

	if pingErr := db.Ping(); pingErr != nil {
		LogFatal(pingErr)
	}
	return db
}

func envInt(key string, fallback int) int {
	if v, ok := conf.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
