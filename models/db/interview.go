package dbmodels

import (
	"database/sql/driver"
	"encoding/json"
)

// InterviewArchive — завершенное интервью, хранится для выдачи результата
// после вытеснения сессии из реестра
type InterviewArchive struct {
	BaseModel
	SessionID string          `gorm:"type:varchar(36);uniqueIndex"`
	Status    string          `gorm:"type:varchar(36)"`
	Result    InterviewResult `gorm:"type:jsonb"`
}

type InterviewResult struct {
	Questions        []string               `json:"questions"`
	Answers          []InterviewQA          `json:"answers"`
	Analysis         InterviewAnalysis      `json:"analysis"`
	UpdatedPortfolio map[string]interface{} `json:"updated_portfolio"`
}

func (j InterviewResult) Value() (driver.Value, error) {
	valueString, err := json.Marshal(j)
	return string(valueString), err
}

func (j *InterviewResult) Scan(value interface{}) error {
	if err := json.Unmarshal(value.([]byte), &j); err != nil {
		return err
	}
	return nil
}

type InterviewQA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type InterviewAnalysis struct {
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	Recommendations   []string `json:"recommendations"`
	OverallAssessment string   `json:"overall_assessment"`
}

type AiLog struct {
	BaseModel
	SessionID  string       `gorm:"type:varchar(36);index" comment:"Идентификатор сессии интервью"`
	SysPromt   string       `comment:"System промт"`
	UserPromt  string       `comment:"User промт"`
	Answer     string       `comment:"Ответ ИИ"`
	ReqestType AiReqestType `gorm:"type:varchar(255)" comment:"Тип запроса к ИИ"`
	AiName     AiName       `gorm:"type:varchar(255)" comment:"Название ИИ"`
}

type AiName string

const (
	AiOllamaType AiName = "ollama"
	AiYaGptType  AiName = "yandexgpt"
)

type AiReqestType string

const (
	AiInterviewQuestionsType AiReqestType = "InterviewQuestions"
	AiFollowUpType           AiReqestType = "FollowUpQuestion"
	AiAssessmentType         AiReqestType = "Assessment"
)
