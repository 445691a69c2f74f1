package ttshandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Provider — внешний сервис озвучивания, вызывается на каждую реплику отдельно,
// ошибки не прерывают интервью
type Provider interface {
	Speak(ctx context.Context, text string) error
}

var Instance Provider

func NewHandler(baseUrl string) {
	log.Infof("Инициализация сервиса озвучивания: %v", baseUrl)
	Instance = &impl{
		baseUrl: baseUrl,
	}
}

type impl struct {
	baseUrl string
}

type speakRequest struct {
	Text string `json:"text"`
	Rate int    `json:"rate"` // скорость речи
}

func (i impl) Speak(ctx context.Context, text string) error {
	if i.baseUrl == "" {
		return errors.New("сервис озвучивания не настроен")
	}
	request := speakRequest{
		Text: text,
		Rate: 160,
	}
	jsonData, err := json.Marshal(request)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%v/speak", i.baseUrl), bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ошибка сервиса озвучивания: %s", resp.Status)
	}
	return nil
}
