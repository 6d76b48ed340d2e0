// Package health exposes liveness checks for the API and worker.
package health

import (
	"database/sql"

	"github.com/mark64oswald/healthsim-core/log"
)

type HealthChecker struct {
	db *sql.DB
}

func NewHealthChecker(db *sql.DB) HealthChecker {
	return HealthChecker{db: db}
}

func (h HealthChecker) IsDatabaseOK() (result string, ok bool) {
	if err := h.db.Ping(); err != nil {
		log.API.Error("Health check: database ping error: ", err.Error())
		return "database ping error", false
	}

	return "ok", true
}

func (h HealthChecker) IsWorkerDatabaseOK() (result string, ok bool) {
	if err := h.db.Ping(); err != nil {
		log.Worker.Error("Health check: database ping error: ", err.Error())
		return "database ping error", false
	}

	return "ok", true
}
