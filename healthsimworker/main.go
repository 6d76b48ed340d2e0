package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/mark64oswald/healthsim-core/healthsimworker/queueing"
	"github.com/mark64oswald/healthsim-core/log"
)

func init() {
	createWorkerDirs()
}

func createWorkerDirs() {
	staging := conf.GetEnv("HEALTHSIM_STAGING_DIR")
	if err := os.MkdirAll(staging, 0744); err != nil {
		logrus.Fatal(err)
	}
}

func main() {
	log.Worker.Info("Starting healthsimworker")

	q := queueing.StartQue(log.Worker, conf.GetEnvInt("WORKER_POOL_SIZE", 2))
	defer q.StopQue()

	if interval := conf.GetEnvInt("WORKER_HEALTH_INT_SEC", 0); interval > 0 {
		go logHealthEvery(time.Duration(interval) * time.Second)
	}

	sig := waitForShutdown()
	log.Worker.Infof("Received %s, shutting down", sig)
}

func logHealthEvery(interval time.Duration) {
	healthLogger := NewHealthLogger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		healthLogger.Log()
	}
}

func waitForShutdown() os.Signal {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	return <-sigs
}
