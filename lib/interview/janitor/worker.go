package interviewjanitor

import (
	"context"
	"time"

	"visa-interview-backend/config"
	interviewsession "visa-interview-backend/lib/interview/session"
	baseworker "visa-interview-backend/lib/utils/base-worker"
	"visa-interview-backend/lib/utils/helpers"
	connectionhub "visa-interview-backend/lib/ws/hub/connection-hub"
)

// connectionCloser закрывает соединение подписчика вытесненной сессии
type connectionCloser interface {
	SendClose(sessionID string)
}

// StartWorker запускает вытеснение завершенных сессий из реестра.
// Сессия удаляется только из терминального статуса и только после
// окна хранения, активные интервью не трогаем.
func StartWorker(ctx context.Context, registry interviewsession.Registry) {
	i := &impl{
		BaseImpl:  *baseworker.NewInstance("InterviewJanitor", 1*time.Minute, time.Duration(config.Conf.Interview.EvictionPeriodMin)*time.Minute),
		registry:  registry,
		hub:       connectionhub.Instance,
		retention: time.Duration(config.Conf.Interview.SessionRetentionMin) * time.Minute,
	}
	go i.Run(ctx, i.handle)
}

type impl struct {
	baseworker.BaseImpl
	registry  interviewsession.Registry
	hub       connectionCloser
	retention time.Duration
}

func (i impl) handle(ctx context.Context) {
	logger := i.GetLogger()
	deadline := time.Now().Add(-i.retention)
	evicted := 0
	for _, sess := range i.registry.List() {
		if helpers.IsContextDone(ctx) {
			break
		}
		finishedAt, terminal := sess.FinishedAt()
		if !terminal || finishedAt.After(deadline) {
			continue
		}
		i.registry.Remove(sess.ID)
		if i.hub != nil {
			i.hub.SendClose(sess.ID)
		}
		evicted++
	}
	if evicted > 0 {
		logger.Infof("Вытеснено сессий из реестра: %v", evicted)
	}
}
