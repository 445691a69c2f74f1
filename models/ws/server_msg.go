package wsmodels

// Коды событий интервью, отправляемых клиенту
const (
	CodeInterviewStatus    = "interview_status"
	CodeNewQuestion        = "new_question"
	CodeAnswerReceived     = "answer_received"
	CodeTranscriptionError = "transcription_error"
	CodeTtsError           = "tts_error"
	CodeInterviewError     = "interview_error"
	CodeInterviewCancelled = "interview_cancelled"
	CodeInterviewComplete  = "interview_complete"
)

type ServerMessage struct {
	ToSessionID string      `json:"-"`
	Time        string      `json:"time"`           // время события
	Code        string      `json:"code"`           // код события
	Data        interface{} `json:"data,omitempty"` // данные события
}

type StatusPayload struct {
	Status string `json:"status"`
}

type NewQuestionPayload struct {
	Question       string `json:"question"`
	QuestionNumber int    `json:"question_number"`
	TotalQuestions int    `json:"total_questions"`
}

type AnswerReceivedPayload struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	Transcription string `json:"transcription,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type CompletePayload struct {
	Analysis         interface{} `json:"analysis"`
	UpdatedPortfolio interface{} `json:"updated_portfolio"`
}
