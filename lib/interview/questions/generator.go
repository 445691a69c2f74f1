package questions

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	gpthandler "visa-interview-backend/lib/gpt"
	ollamaclient "visa-interview-backend/lib/gpt/ollama-client"
	dbmodels "visa-interview-backend/models/db"
)

// Provider — источник вопросов интервью; при любой внутренней ошибке
// деградирует до фиксированного списка типовых вопросов и не возвращает ошибку
type Provider interface {
	Generate(ctx context.Context, sessionID string, count int, description, resumeJSON string) []string
}

const promtPattern = "Only Generate %d interview questions based on the following visa description requirements and the candidate description. " +
	"Check if the candidate is the right fit for the visa processing considering their response. " +
	"Strictly follow the format of just giving numbered questions.\n" +
	"Visa Description: %s\n" +
	"Candidate Resume: %s\n"

// типовые вопросы на случай недоступности ИИ
var fallbackQuestions = []string{
	"Why do you want to study in this country?",
	"Why did you choose this university?",
	"What course are you going to study and why?",
	"How will you finance your education and stay?",
	"What are your plans after graduation?",
	"What ties do you have to your home country?",
	"Have you ever been abroad before?",
	"Why did you not choose a similar program in your home country?",
	"Who is sponsoring your education?",
	"Where will you live during your studies?",
}

var questionLine = regexp.MustCompile(`\d+[.)]\s*(.+)`)

func NewGenerator(gpt gpthandler.Provider) Provider {
	return &impl{
		gpt: gpt,
	}
}

type impl struct {
	gpt gpthandler.Provider
}

func (i impl) getLogger(sessionID string) *log.Entry {
	return log.
		WithField("session_id", sessionID).
		WithField("generator", "questions")
}

func (i impl) Generate(ctx context.Context, sessionID string, count int, description, resumeJSON string) []string {
	logger := i.getLogger(sessionID)
	userPromt := fmt.Sprintf(promtPattern, count, description, resumeJSON)
	response, err := i.gpt.GenerateLogged(ctx, sessionID, dbmodels.AiInterviewQuestionsType, description, userPromt)
	if err != nil {
		logger.WithError(err).Error("ошибка генерации вопросов, используется типовой список")
		return Fallback(count)
	}
	// модели оборачивают список в markdown-блок, снимаем обрамление
	list := ParseNumbered(ollamaclient.ReplaceAnswerFormatTag(response))
	if len(list) == 0 {
		logger.Warn("ИИ не вернул ни одного вопроса, используется типовой список")
		return Fallback(count)
	}
	if len(list) > count {
		list = list[:count]
	}
	logger.Infof("Сгенерировано вопросов: %v", len(list))
	return list
}

// ParseNumbered выбирает из ответа ИИ строки вида "N. текст вопроса"
func ParseNumbered(response string) []string {
	matches := questionLine.FindAllStringSubmatch(response, -1)
	list := make([]string, 0, len(matches))
	for _, m := range matches {
		q := strings.TrimSpace(m[1])
		if q == "" {
			continue
		}
		list = append(list, q)
	}
	return list
}

// Fallback возвращает типовой список, усеченный до count
func Fallback(count int) []string {
	if count > len(fallbackQuestions) {
		count = len(fallbackQuestions)
	}
	list := make([]string, count)
	copy(list, fallbackQuestions[:count])
	return list
}
