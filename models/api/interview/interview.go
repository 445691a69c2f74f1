package interviewapimodels

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type StartInterviewRequest struct {
	EmbassyOrConsulate string          `json:"embassy_or_consulate"` // посольство/консульство
	DestinationCountry string          `json:"destination_country"`  // страна назначения
	Course             string          `json:"course"`               // программа обучения
	University         string          `json:"university"`           // университет
	NumQuestions       int             `json:"num_questions"`        // количество вопросов
	Resume             json.RawMessage `json:"resume"`               // портфолио кандидата (json)
}

func (r StartInterviewRequest) Validate() error {
	if r.EmbassyOrConsulate == "" || r.DestinationCountry == "" || r.Course == "" || r.University == "" {
		return errors.New("обязательные поля не заполнены")
	}
	if len(r.Resume) == 0 {
		return errors.New("файл с портфолио кандидата обязателен")
	}
	if !json.Valid(r.Resume) {
		return errors.New("некорректный json портфолио")
	}
	return nil
}

type StartInterviewResponse struct {
	SessionID string `json:"session_id"`
}

type SubmitAnswerRequest struct {
	Text             string `json:"text,omitempty"`              // текстовый ответ
	Audio            string `json:"audio,omitempty"`             // base64 аудио ответа
	GenerateFollowUp *bool  `json:"generate_followup,omitempty"` // генерировать уточняющий вопрос
}

func (r SubmitAnswerRequest) Validate() error {
	if r.Text == "" && r.Audio == "" {
		return errors.New("ожидается text или audio")
	}
	return nil
}

type SubmitAnswerResponse struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	Transcription string `json:"transcription,omitempty"`
}

type Analysis struct {
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	Recommendations   []string `json:"recommendations"`
	OverallAssessment string   `json:"overall_assessment"`
}

type AnalysisResponse struct {
	Completed        bool                   `json:"completed"`
	Analysis         *Analysis              `json:"analysis,omitempty"`
	UpdatedPortfolio map[string]interface{} `json:"updated_portfolio,omitempty"`
}

// QA — вопрос с ответом, ключ ответа — позиция вопроса, а не текст,
// одинаковые формулировки не затирают друг друга
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Answered bool   `json:"answered"`
}

// Report — данные завершенного интервью для выгрузки в pdf/xlsx
type Report struct {
	SessionID string   `json:"session_id"`
	QA        []QA     `json:"qa"`
	Analysis  Analysis `json:"analysis"`
}
