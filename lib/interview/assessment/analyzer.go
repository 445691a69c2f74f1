package assessment

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	gpthandler "visa-interview-backend/lib/gpt"
	interviewapimodels "visa-interview-backend/models/api/interview"
	dbmodels "visa-interview-backend/models/db"
)

// Provider — оценка сильных и слабых сторон по всем парам вопрос-ответ;
// при ошибке бекенда возвращает фиксированную деградированную запись
type Provider interface {
	Analyze(ctx context.Context, sessionID string, qa []interviewapimodels.QA) interviewapimodels.Analysis
}

const (
	sysPromt     = "You are an experienced visa officer."
	promtPattern = `As an experienced visa officer, analyze the following interview responses and provide a comprehensive assessment:

%s

Provide analysis in the following format:

STRENGTHS:
- [List specific strengths demonstrated in the responses]

WEAKNESSES:
- [List areas of concern or weakness]

RECOMMENDATIONS:
- [Specific advice for improvement]

OVERALL ASSESSMENT:
- [Overall evaluation and visa recommendation rationale]`
)

// заголовки секций ответа ИИ
const (
	headerStrengths       = "STRENGTHS:"
	headerWeaknesses      = "WEAKNESSES:"
	headerRecommendations = "RECOMMENDATIONS:"
	headerOverall         = "OVERALL ASSESSMENT:"
)

func NewAnalyzer(gpt gpthandler.Provider) Provider {
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
		WithField("generator", "assessment")
}

func (i impl) Analyze(ctx context.Context, sessionID string, qa []interviewapimodels.QA) interviewapimodels.Analysis {
	var sb strings.Builder
	for _, item := range qa {
		sb.WriteString(fmt.Sprintf("Q: %s\nA: %s\n\n", item.Question, item.Answer))
	}
	userPromt := fmt.Sprintf(promtPattern, sb.String())
	response, err := i.gpt.GenerateLogged(ctx, sessionID, dbmodels.AiAssessmentType, sysPromt, userPromt)
	if err != nil {
		i.getLogger(sessionID).WithError(err).Error("ошибка оценки ответов, возвращается деградированная запись")
		return Degraded()
	}
	return ParseAnalysis(response)
}

// ParseAnalysis — построчный разбор полуструктурированного ответа ИИ:
// фиксированная таблица заголовков, строки с дефисом копятся в список
// активной секции, свободный текст — в итоговую оценку,
// строки до первого заголовка отбрасываются
func ParseAnalysis(response string) interviewapimodels.Analysis {
	analysis := interviewapimodels.Analysis{
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
	}

	var overall strings.Builder
	var currentSection string
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, headerStrengths):
			currentSection = headerStrengths
		case strings.HasPrefix(upper, headerWeaknesses):
			currentSection = headerWeaknesses
		case strings.HasPrefix(upper, headerRecommendations):
			currentSection = headerRecommendations
		case strings.HasPrefix(upper, headerOverall):
			currentSection = headerOverall
		case strings.HasPrefix(line, "-") && currentSection != "" && currentSection != headerOverall:
			item := strings.TrimSpace(strings.TrimPrefix(line, "-"))
			switch currentSection {
			case headerStrengths:
				analysis.Strengths = append(analysis.Strengths, item)
			case headerWeaknesses:
				analysis.Weaknesses = append(analysis.Weaknesses, item)
			case headerRecommendations:
				analysis.Recommendations = append(analysis.Recommendations, item)
			}
		case currentSection == headerOverall && line != "":
			overall.WriteString(line)
			overall.WriteString(" ")
		}
	}
	analysis.OverallAssessment = strings.TrimSpace(overall.String())
	return analysis
}

// Degraded — фиксированная запись на случай недоступности ИИ
func Degraded() interviewapimodels.Analysis {
	return interviewapimodels.Analysis{
		Strengths:         []string{"Unable to analyze - technical error"},
		Weaknesses:        []string{"Analysis unavailable"},
		Recommendations:   []string{"Please retry analysis"},
		OverallAssessment: "Technical error occurred during analysis",
	}
}
