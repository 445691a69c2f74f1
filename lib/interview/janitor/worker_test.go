package interviewjanitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	interviewsession "visa-interview-backend/lib/interview/session"
	baseworker "visa-interview-backend/lib/utils/base-worker"
)

type fakeCloser struct {
	closed []string
}

func (f *fakeCloser) SendClose(sessionID string) {
	f.closed = append(f.closed, sessionID)
}

func TestJanitor(t *testing.T) {
	t.Run(`only stale terminal sessions evicted check`, func(t *testing.T) {
		registry := interviewsession.NewRegistry()

		finished := interviewsession.New(context.TODO())
		require.True(t, finished.Cancel())
		registry.Create(finished)

		active := interviewsession.New(context.TODO())
		registry.Create(active)

		closer := &fakeCloser{}
		worker := impl{
			BaseImpl:  *baseworker.NewInstance("InterviewJanitor", time.Minute, time.Minute),
			registry:  registry,
			hub:       closer,
			retention: 0,
		}
		time.Sleep(10 * time.Millisecond)
		worker.handle(context.TODO())

		_, ok := registry.Get(finished.ID)
		require.False(t, ok)
		_, ok = registry.Get(active.ID)
		require.True(t, ok)
		// вытеснение закрывает соединение подписчика
		require.Equal(t, []string{finished.ID}, closer.closed)
	})

	t.Run(`fresh terminal session kept until retention check`, func(t *testing.T) {
		registry := interviewsession.NewRegistry()
		finished := interviewsession.New(context.TODO())
		require.True(t, finished.Cancel())
		registry.Create(finished)

		worker := impl{
			BaseImpl:  *baseworker.NewInstance("InterviewJanitor", time.Minute, time.Minute),
			registry:  registry,
			retention: time.Hour,
		}
		worker.handle(context.TODO())

		_, ok := registry.Get(finished.ID)
		require.True(t, ok)
	})
}
