package followup

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	gpthandler "visa-interview-backend/lib/gpt"
	dbmodels "visa-interview-backend/models/db"
)

// Provider — генератор уточняющего вопроса по паре (вопрос, ответ);
// любая ошибка деградирует до "без уточнения"
type Provider interface {
	Generate(ctx context.Context, sessionID, question, answer string) (followUp string, ok bool)
}

const (
	sysPromt = "Act like an interviewer and ask questions based on the response to get to know more about it in detail. " +
		"Only ask questions, be professional and to the point."
	promtPattern = "Here is the question asked and the response given by the candidate.\n" +
		"Interviewer: %s\nStudent: %s\n" +
		"Now ask a single question based on the response to test whether the candidate is giving expected answers! " +
		"If the answer is very different from the question asked, ask them to stay on point and get in detail."

	// ответы короче считаются мусором модели
	minFollowUpLen = 10
)

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
		WithField("generator", "followup")
}

func (i impl) Generate(ctx context.Context, sessionID, question, answer string) (followUp string, ok bool) {
	userPromt := fmt.Sprintf(promtPattern, question, answer)
	response, err := i.gpt.GenerateLogged(ctx, sessionID, dbmodels.AiFollowUpType, sysPromt, userPromt)
	if err != nil {
		i.getLogger(sessionID).WithError(err).Error("ошибка генерации уточняющего вопроса, вопрос пропущен")
		return "", false
	}
	return Normalize(response)
}

// Normalize отбрасывает неправдоподобно короткие результаты
// и приводит вопрос к виду с вопросительным знаком на конце
func Normalize(response string) (followUp string, ok bool) {
	followUp = strings.TrimSpace(response)
	if utf8.RuneCountInString(followUp) < minFollowUpLen {
		return "", false
	}
	if !strings.HasSuffix(followUp, "?") {
		followUp = followUp + "?"
	}
	return followUp, true
}
