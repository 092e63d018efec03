package groutine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGo_ClosesDoneAfterFn(t *testing.T) {
	release := make(chan struct{})
	done := Go(context.Background(), "worker", func(ctx context.Context) {
		<-release
	})

	select {
	case <-done:
		t.Fatal("done MUST NOT close before fn returns")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("done MUST close after fn returns")
	}
}

func TestGo_PropagatesName(t *testing.T) {
	names := make(chan string, 1)
	//nolint:staticcheck // nil parent context is part of the contract
	done := Go(nil, "hr-session", func(ctx context.Context) {
		names <- GetName(ctx)
	})
	<-done

	require.Len(t, names, 1)
	assert.Equal(t, "hr-session", <-names)
}

func TestGo_InheritsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := Go(ctx, "waiter", func(ctx context.Context) {
		<-ctx.Done()
	})

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine MUST observe parent cancellation")
	}
}

func TestGetName_Empty(t *testing.T) {
	assert.Equal(t, "", GetName(context.Background()))
	//nolint:staticcheck // nil context is handled
	assert.Equal(t, "", GetName(nil))
}
