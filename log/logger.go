package log

import (
	"os"
	"path/filepath"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/sirupsen/logrus"
)

var (
	API          logrus.FieldLogger
	Request      logrus.FieldLogger
	Adjudication logrus.FieldLogger

	Worker logrus.FieldLogger
	MCP    logrus.FieldLogger
)

func init() {
	API = Logger(logrus.New(), conf.GetEnv("HEALTHSIM_ERROR_LOG"),
		"api", conf.GetEnv("ENVIRONMENT"))
	Request = Logger(logrus.New(), conf.GetEnv("HEALTHSIM_REQUEST_LOG"),
		"api", conf.GetEnv("ENVIRONMENT"))
	Adjudication = Logger(logrus.New(), conf.GetEnv("HEALTHSIM_ADJUDICATION_LOG"),
		"api", conf.GetEnv("ENVIRONMENT"))

	Worker = Logger(logrus.New(), conf.GetEnv("HEALTHSIM_WORKER_ERROR_LOG"),
		"worker", conf.GetEnv("ENVIRONMENT"))
	MCP = Logger(logrus.New(), conf.GetEnv("HEALTHSIM_MCP_LOG"),
		"mcp", conf.GetEnv("ENVIRONMENT"))
}

func Logger(logger *logrus.Logger, outputFile string,
	application, environment string) logrus.FieldLogger {

	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})

	if outputFile != "" {
		if file, err := os.OpenFile(filepath.Clean(outputFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); err == nil {
			logger.SetOutput(file)
		} else {
			logger.Infof("Failed to open output file %s. Will use stderr. %s",
				outputFile, err.Error())
		}
	}

	return logger.WithFields(logrus.Fields{
		"application": application,
		"environment": environment})
}
