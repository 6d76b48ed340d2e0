// Package metrics reports timing data for export processing to New
// Relic, falling back to a no-op timer when the agent is unavailable.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	log "github.com/sirupsen/logrus"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/mark64oswald/healthsim-core/healthsim/utils"
)

// Timer times named units of work.
// Typical usage scenario:
//
//	timer := metrics.GetTimer()
//	defer timer.Close()
//	ctx := metrics.NewContext(ctx, timer)
//	ctx, close := metrics.NewParent(ctx, "ProcessJob")
//	defer close()
//	close1 := metrics.NewChild(ctx, "generate cohort")
//	// generate the cohort
//	close1()
type Timer interface {
	// new opens a top-level measurement and embeds it in the returned
	// context so newChild can attach segments to it.
	new(parentCtx context.Context, name string) (ctx context.Context, close func())

	// newChild opens a segment under the measurement carried by the context.
	newChild(parentCtx context.Context, name string) (close func())

	// Close flushes any unreported measurements and releases the Timer.
	Close()
}

// Unexported context key type so other packages cannot collide with it.
type key int

const timerKey key = 0

// NewContext returns a Context carrying t.
func NewContext(ctx context.Context, t Timer) context.Context {
	return context.WithValue(ctx, timerKey, t)
}

// NewParent opens a top-level measurement on the context's Timer.
func NewParent(ctx context.Context, name string) (context.Context, func()) {
	t := fromContext(ctx)
	return t.new(ctx, name)
}

// NewChild opens a segment under the measurement carried by ctx.
func NewChild(ctx context.Context, name string) func() {
	t := fromContext(ctx)
	return t.newChild(ctx, name)
}

var defaultTimer = &noopTimer{}

// fromContext returns the context's Timer, or a no-op timer when none
// was attached.
func fromContext(ctx context.Context) Timer {
	t, ok := ctx.Value(timerKey).(Timer)
	if !ok {
		return defaultTimer
	}
	return t
}

func GetTimer() Timer {
	target := conf.GetEnv("DEPLOYMENT_TARGET")
	if target == "" {
		target = "local"
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(fmt.Sprintf("HealthSim-%s", target)),
		newrelic.ConfigLicense(conf.GetEnv("NEW_RELIC_LICENSE_KEY")),
		newrelic.ConfigEnabled(true),
		func(cfg *newrelic.Config) {
			cfg.HighSecurity = true
		},
	)

	if err != nil {
		log.Warnf("Failed to instantiate New Relic application. Default to no-op timer. %s", err.Error())
		return &noopTimer{}
	}

	timeout := time.Duration(utils.GetEnvInt("NEW_RELIC_CONNECTION_TIMEOUT_SECONDS", 30)) * time.Second
	if err = app.WaitForConnection(timeout); err != nil {
		log.Warnf("Failed to establish connection to New Relic server in %s. Default to no-op timer.", timeout)
		return &noopTimer{}
	}

	log.Info("Using New Relic backed timer.")
	return &timer{app}
}

var _ Timer = &timer{}

type timer struct {
	nr *newrelic.Application
}

func (t *timer) new(parentCtx context.Context, name string) (ctx context.Context, close func()) {
	txn := t.nr.StartTransaction(name)
	ctx = newrelic.NewContext(parentCtx, txn)

	f := func() {
		txn.End()
	}
	return ctx, f
}

func (t *timer) newChild(parentCtx context.Context, name string) (close func()) {
	txn := newrelic.FromContext(parentCtx)
	if txn == nil {
		log.Warn("No transaction found. Cannot create child.")
		return noop
	}
	segment := txn.StartSegment(name)

	return func() {
		segment.End()
	}
}

func (t *timer) Close() {
	const shutdownTimeout = 30 * time.Second
	t.nr.Shutdown(shutdownTimeout)
}

var _ Timer = &noopTimer{}

type noopTimer struct {
}

func (t *noopTimer) new(parentCtx context.Context, name string) (ctx context.Context, close func()) {
	// Keep the parent so cancellation still flows through the returned ctx.
	return parentCtx, noop
}

func (t *noopTimer) newChild(parentCtx context.Context, name string) (close func()) {
	return noop
}

func (t *noopTimer) Close() {
}

func noop() {
}
