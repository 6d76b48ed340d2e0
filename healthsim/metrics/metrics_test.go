package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopTimerFromEmptyContext(t *testing.T) {
	ctx := context.Background()

	childCtx, closeParent := NewParent(ctx, "parent")
	assert.NotNil(t, childCtx)
	assert.NotPanics(t, closeParent)

	closeChild := NewChild(ctx, "child")
	assert.NotPanics(t, closeChild)
}

func TestNewContextCarriesTimer(t *testing.T) {
	nt := &noopTimer{}
	ctx := NewContext(context.Background(), nt)
	assert.Equal(t, nt, fromContext(ctx))
}

type recordingTimer struct {
	parents  []string
	children []string
}

func (r *recordingTimer) new(parentCtx context.Context, name string) (context.Context, func()) {
	r.parents = append(r.parents, name)
	return parentCtx, noop
}

func (r *recordingTimer) newChild(parentCtx context.Context, name string) func() {
	r.children = append(r.children, name)
	return noop
}

func (r *recordingTimer) Close() {}

// A timer attached with NewContext must receive the NewParent and
// NewChild calls instead of the package default.
func TestAttachedTimerReceivesMeasurements(t *testing.T) {
	rec := &recordingTimer{}
	ctx := NewContext(context.Background(), rec)

	ctx, closeParent := NewParent(ctx, "ProcessJob-patient")
	defer closeParent()
	closeChild := NewChild(ctx, "generate cohort")
	closeChild()

	assert.Equal(t, []string{"ProcessJob-patient"}, rec.parents)
	assert.Equal(t, []string{"generate cohort"}, rec.children)
}

func TestNoopParentPreservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ctx, closeParent := NewParent(ctx, "parent")
	defer closeParent()

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestGetTimerWithoutLicenseFallsBack(t *testing.T) {
	assert.IsType(t, &noopTimer{}, GetTimer())
}
