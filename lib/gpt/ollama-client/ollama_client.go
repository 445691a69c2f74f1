package ollamaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	ollamamodels "visa-interview-backend/models/api/ollama"
)

type Provider interface {
	Generate(ctx context.Context, sysPromt, userPromt string) (answer string, err error)
}

type impl struct {
	ollamaURL   string
	ollamaModel string
}

func NewClient(ollamaURL, ollamaModel string) Provider {
	return &impl{
		ollamaURL:   ollamaURL,
		ollamaModel: ollamaModel,
	}
}

func (i impl) getLogger() *log.Entry {
	return log.
		WithField("ai", "ollama").
		WithField("model", i.ollamaModel)
}

func (i impl) checkConfig() error {
	if i.ollamaURL == "" {
		return errors.New("не указан url для ollama")
	}
	if i.ollamaModel == "" {
		return errors.New("не указана модель для ollama")
	}
	return nil
}

func (i impl) Generate(ctx context.Context, sysPromt, userPromt string) (answer string, err error) {
	err = i.checkConfig()
	if err != nil {
		return "", err
	}
	request := ollamamodels.OllamaRequest{
		Model:   i.ollamaModel,
		Prompt:  userPromt,
		System:  sysPromt,
		Stream:  false,
		Options: ollamamodels.GetInterviewConfig(),
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.ollamaURL, bytes.NewBuffer(jsonData))
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

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ошибка Ollama API: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var ollamaResponse ollamamodels.OllamaResponse
	err = json.Unmarshal(body, &ollamaResponse)
	if err != nil {
		return "", err
	}

	return ExtractAnswer(ollamaResponse.Response), nil
}

// ExtractAnswer отсекает блок рассуждений reasoning-моделей
func ExtractAnswer(response string) string {
	responseSlice := strings.Split(response, "</think>")
	if len(responseSlice) == 1 {
		return response
	}
	return strings.TrimSpace(responseSlice[1])
}

// ReplaceAnswerFormatTag убирает markdown-обрамление json ответа
func ReplaceAnswerFormatTag(answer string) string {
	answer = strings.Replace(answer, "```json", "", 1)
	answer = strings.Replace(answer, "```", "", 1)
	return strings.TrimSpace(answer)
}
