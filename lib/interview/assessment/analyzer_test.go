package assessment

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	interviewapimodels "visa-interview-backend/models/api/interview"
	dbmodels "visa-interview-backend/models/db"
)

type fakeGpt struct {
	response string
	err      error
}

func (f *fakeGpt) GenerateLogged(ctx context.Context, sessionID string, reqType dbmodels.AiReqestType, sysPromt, userPromt string) (string, error) {
	return f.response, f.err
}

func TestAnalyzer(t *testing.T) {
	t.Run(`ParseAnalysis sectioned response check`, func(t *testing.T) {
		response := `Some preamble the model added.

STRENGTHS:
- Clear study purpose
- Strong financial documents

WEAKNESSES:
- Vague return plans

RECOMMENDATIONS:
- Prepare ties to home country

OVERALL ASSESSMENT:
The candidate is generally convincing.
Approval is likely after clarifications.`
		analysis := ParseAnalysis(response)
		require.Equal(t, []string{"Clear study purpose", "Strong financial documents"}, analysis.Strengths)
		require.Equal(t, []string{"Vague return plans"}, analysis.Weaknesses)
		require.Equal(t, []string{"Prepare ties to home country"}, analysis.Recommendations)
		require.Equal(t, "The candidate is generally convincing. Approval is likely after clarifications.", analysis.OverallAssessment)
	})

	t.Run(`ParseAnalysis case insensitive headers check`, func(t *testing.T) {
		response := "strengths:\n- one\nweaknesses:\n- two"
		analysis := ParseAnalysis(response)
		require.Equal(t, []string{"one"}, analysis.Strengths)
		require.Equal(t, []string{"two"}, analysis.Weaknesses)
	})

	t.Run(`ParseAnalysis missing section check`, func(t *testing.T) {
		response := `STRENGTHS:
- Clear study purpose

WEAKNESSES:
- Vague return plans`
		analysis := ParseAnalysis(response)
		require.Equal(t, []string{"Clear study purpose"}, analysis.Strengths)
		require.Equal(t, []string{"Vague return plans"}, analysis.Weaknesses)
		// пропущенная секция — пустой список, а не nil
		require.NotNil(t, analysis.Recommendations)
		require.Empty(t, analysis.Recommendations)
		require.Equal(t, "", analysis.OverallAssessment)
	})

	t.Run(`ParseAnalysis unstructured response check`, func(t *testing.T) {
		analysis := ParseAnalysis("model refused to follow the format")
		require.Empty(t, analysis.Strengths)
		require.Empty(t, analysis.Weaknesses)
		require.Empty(t, analysis.Recommendations)
		require.Equal(t, "", analysis.OverallAssessment)
	})

	t.Run(`Analyze on ai error returns degraded record check`, func(t *testing.T) {
		analyzer := NewAnalyzer(&fakeGpt{err: errors.New("ai down")})
		analysis := analyzer.Analyze(context.TODO(), "sess", []interviewapimodels.QA{{Question: "q", Answer: "a"}})
		require.Equal(t, Degraded(), analysis)
	})
}
