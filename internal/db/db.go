package db

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"todo-agent-backend/internal/config"
)

// Connect opens a PostgreSQL connection pool and verifies it with a ping.
func Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	database, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}

	database.SetMaxOpenConns(cfg.MaxConnections)
	database.SetMaxIdleConns(cfg.MaxIdle)
	database.SetConnMaxLifetime(5 * time.Minute)

	if err := database.Ping(); err != nil {
		return nil, err
	}

	return database, nil
}
