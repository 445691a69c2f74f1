package stthandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/r3labs/sse/v2"
	log "github.com/sirupsen/logrus"

	"visa-interview-backend/lib/utils/lock"
)

// Provider — внешний сервис транскрибации: аудио байты на входе, текст на выходе
type Provider interface {
	Transcribe(ctx context.Context, audio []byte) (text string, err error)
	IsAvailable() bool
}

var Instance Provider

func NewHandler(baseUrl string) {
	log.Infof("Инициализация сервиса транскрибации: %v", baseUrl)
	Instance = &impl{
		baseUrl: baseUrl,
	}
}

type impl struct {
	baseUrl string
	busy    atomic.Bool
}

func (i *impl) getLogger() *log.Entry {
	return log.
		WithField("speech", "stt")
}

func (i *impl) Transcribe(ctx context.Context, audio []byte) (text string, err error) {
	if i.baseUrl == "" {
		return "", errors.New("сервис транскрибации не настроен")
	}
	// лочим ресурсы
	if !lock.Resource.Acquire(ctx, "Transcribe") {
		return "", errors.New("ошибка доступа к ресурсам - контекст завершен")
	}
	defer lock.Resource.Release("Transcribe")

	logger := i.getLogger()
	now := time.Now()

	audioPath, err := i.uploadAudio(ctx, audio, fmt.Sprintf("%v.wav", time.Now().UnixNano()))
	if err != nil {
		return "", errors.Wrap(err, "ошибка отправки аудио файла на транскрибацию")
	}
	logger.Info("Аудио файл загружен, путь к файлу:", audioPath)

	eventID, err := i.submitJob(ctx, audioPath)
	if err != nil {
		return "", errors.Wrap(err, "ошибка запуска транскрибации аудио файла")
	}
	logger.Info("Задание отправлено, идентификатор события (EventID):", eventID)

	data, err := i.listenResults(ctx, eventID)
	if err != nil {
		return "", errors.Wrap(err, "ошибка транскрибации аудио файла")
	}

	var outputs []string
	if err := json.Unmarshal(data, &outputs); err != nil {
		return "", errors.Wrap(err, "ошибка сериализации ответа")
	}
	if len(outputs) == 0 {
		return "", errors.New("пустой результат транскрибации")
	}
	logger.
		WithField("answer_duration_sec", time.Now().Sub(now).Seconds()).
		Info("Транскрибация завершена")
	return outputs[0], nil
}

func (i *impl) uploadAudio(ctx context.Context, audio []byte, fileName string) (audioPath string, err error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("files", fileName)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(part, bytes.NewReader(audio))
	if err != nil {
		return "", err
	}

	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%v/upload", i.baseUrl), body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result []string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result) == 0 {
		return "", errors.New("сервис не вернул путь к файлу")
	}

	return result[0], nil
}

func (i *impl) submitJob(ctx context.Context, audioPath string) (string, error) {
	payload := map[string]interface{}{
		"data": []interface{}{
			map[string]interface{}{
				"audio": map[string]interface{}{
					"path": audioPath,
					"meta": map[string]string{
						"_type": "gradio.FileData",
					},
				},
			},
		},
	}

	data, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%v/call/transcribe", i.baseUrl), bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var r map[string]string
	if err := json.Unmarshal(body, &r); err != nil {
		return "", err
	}

	return r["event_id"], nil
}

func (i *impl) listenResults(ctx context.Context, eventID string) (result []byte, err error) {
	// флаг занятости сервиса
	i.busy.Store(true)
	defer i.busy.Store(false)

	client := sse.NewClient(fmt.Sprintf("%v/call/transcribe/%s", i.baseUrl, eventID))

	var event sse.Event
	err = client.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
		if msg == nil {
			return
		}
		i.getLogger().Infof("Событие: %v", string(msg.Event))
		if string(msg.Event) == "complete" || string(msg.Event) == "error" {
			event = *msg
			return
		}
	})
	if err != nil {
		return nil, err
	}

	switch string(event.Event) {
	case "error":
		return nil, errors.New(string(event.Data))
	case "complete":
		return event.Data, nil
	default:
		return nil, errors.Errorf("получено неизвестное событие: %v", string(event.Event))
	}
}

func (i *impl) IsAvailable() bool {
	return !i.busy.Load()
}
