package gpthandler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"visa-interview-backend/config"
	"visa-interview-backend/db"
	ollamaclient "visa-interview-backend/lib/gpt/ollama-client"
	ailogstore "visa-interview-backend/lib/gpt/store"
	yagptclient "visa-interview-backend/lib/gpt/yagpt-client"
	"visa-interview-backend/lib/utils/lock"
	dbmodels "visa-interview-backend/models/db"
)

// Generator — граница генеративного бекенда, все вызовы считаются ненадежными
type Generator interface {
	Generate(ctx context.Context, sysPromt, userPromt string) (answer string, err error)
}

type Provider interface {
	GenerateLogged(ctx context.Context, sessionID string, reqType dbmodels.AiReqestType, sysPromt, userPromt string) (answer string, err error)
}

var Instance Provider

func NewHandler() {
	var client Generator
	aiName := dbmodels.AiOllamaType
	switch config.Conf.AI.Provider {
	case "yandex":
		client = yagptclient.NewClient(config.Conf.AI.YandexGPT.IAMToken, config.Conf.AI.YandexGPT.CatalogID)
		aiName = dbmodels.AiYaGptType
	default:
		client = ollamaclient.NewClient(config.Conf.AI.Ollama.OllamaURL, config.Conf.AI.Ollama.OllamaModel)
	}
	log.Infof("Инициализация ИИ: %v", aiName)
	var logStore ailogstore.Provider
	if db.DB != nil {
		logStore = ailogstore.NewInstance(db.DB)
	}
	Instance = &impl{
		client:   client,
		aiName:   aiName,
		logStore: logStore,
	}
}

type impl struct {
	client   Generator
	aiName   dbmodels.AiName
	logStore ailogstore.Provider
}

func (i impl) getLogger() *log.Entry {
	return log.
		WithField("ai", string(i.aiName))
}

// GenerateLogged выполняет запрос к ИИ под общим ресурсным локом
// и сохраняет промт с ответом в лог запросов
func (i impl) GenerateLogged(ctx context.Context, sessionID string, reqType dbmodels.AiReqestType, sysPromt, userPromt string) (answer string, err error) {
	if !lock.Resource.Acquire(ctx, "GptGenerate") {
		return "", errors.New("ошибка доступа к ресурсам - контекст завершен")
	}
	defer lock.Resource.Release("GptGenerate")

	now := time.Now()
	answer, err = i.client.Generate(ctx, sysPromt, userPromt)
	if err != nil {
		return "", err
	}
	i.getLogger().
		WithField("session_id", sessionID).
		WithField("request_type", string(reqType)).
		WithField("answer_duration_sec", time.Now().Sub(now).Seconds()).
		Info("Ответ AI на запрос")

	i.saveLog(sessionID, reqType, sysPromt, userPromt, answer)
	return answer, nil
}

func (i impl) saveLog(sessionID string, reqType dbmodels.AiReqestType, sysPromt, userPromt, answer string) {
	if i.logStore == nil {
		return
	}
	rec := dbmodels.AiLog{
		SessionID:  sessionID,
		SysPromt:   sysPromt,
		UserPromt:  userPromt,
		Answer:     answer,
		ReqestType: reqType,
		AiName:     i.aiName,
	}
	_, err := i.logStore.Save(rec)
	if err != nil {
		i.getLogger().WithError(err).Error("ошибка сохранения лога запроса к ИИ")
	}
}
