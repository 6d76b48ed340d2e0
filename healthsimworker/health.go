package main

import (
	"os"

	"github.com/pborman/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/mark64oswald/healthsim-core/healthsim/database"
	"github.com/mark64oswald/healthsim-core/healthsim/health"
)

type HealthLogger struct {
	Logger *logrus.Logger
}

func NewHealthLogger() *HealthLogger {
	l := HealthLogger{logrus.New()}
	l.Logger.Formatter = &logrus.JSONFormatter{}
	l.Logger.SetReportCaller(true)
	filePath := conf.GetEnv("WORKER_HEALTH_LOG")

	/* #nosec -- 0640 permissions required for log ingestion */
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err == nil {
		l.Logger.SetOutput(file)
	} else {
		l.Logger.Info("Failed to open worker health log file; using default stderr")
	}

	return &l
}

func (l *HealthLogger) Log() {
	logFields := logrus.Fields{}
	logFields["type"] = "health"
	logFields["id"] = uuid.NewRandom()

	db, err := database.Connect()
	if err != nil {
		logFields["db"] = "error"
		l.Logger.WithFields(logFields).Info()
		return
	}
	defer db.Close()

	if _, ok := health.NewHealthChecker(db).IsWorkerDatabaseOK(); ok {
		logFields["db"] = "ok"
	} else {
		logFields["db"] = "error"
	}

	l.Logger.WithFields(logFields).Info()
}
