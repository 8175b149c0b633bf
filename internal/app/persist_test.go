package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPersister_RunsAndDrains(t *testing.T) {
	p := NewPersister(2, 16, time.Second)
	var n atomic.Int32
	for i := 0; i < 10; i++ {
		assert.True(t, p.Submit("inc", func(ctx context.Context) error {
			n.Add(1)
			return nil
		}))
	}
	p.Close()
	assert.Equal(t, int32(10), n.Load())
	assert.False(t, p.Submit("late", func(context.Context) error { return nil }))
}

func TestPersister_SurvivesFailuresAndPanics(t *testing.T) {
	p := NewPersister(1, 4, time.Second)
	var ran atomic.Bool
	p.Submit("err", func(context.Context) error { return errors.New("db down") })
	p.Submit("panic", func(context.Context) error { panic("boom") })
	p.Submit("ok", func(context.Context) error { ran.Store(true); return nil })
	p.Close()
	assert.True(t, ran.Load())
}

func TestPersister_DropsWhenFull(t *testing.T) {
	p := NewPersister(1, 1, time.Second)
	release := make(chan struct{})
	started := make(chan struct{})
	p.Submit("block", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started
	assert.True(t, p.Submit("queued", func(context.Context) error { return nil }))
	assert.False(t, p.Submit("dropped", func(context.Context) error { return nil }))
	close(release)
	p.Close()
}

func TestPersister_JobContextHasDeadline(t *testing.T) {
	p := NewPersister(1, 1, 50*time.Millisecond)
	var hasDeadline atomic.Bool
	p.Submit("deadline", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		hasDeadline.Store(ok)
		return nil
	})
	p.Close()
	assert.True(t, hasDeadline.Load())
}
