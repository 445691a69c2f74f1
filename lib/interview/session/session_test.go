package interviewsession

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	interviewapimodels "visa-interview-backend/models/api/interview"
)

func analysisFixture() interviewapimodels.Analysis {
	return interviewapimodels.Analysis{
		Strengths:         []string{"clear goals"},
		Weaknesses:        []string{"weak ties"},
		Recommendations:   []string{"prepare documents"},
		OverallAssessment: "borderline",
	}
}

func TestSession(t *testing.T) {
	t.Run(`answer accepted only while waiting check`, func(t *testing.T) {
		sess := New(context.TODO())
		sess.SetQuestions([]string{"q1", "q2"})

		_, _, err := sess.Accept(SubmittedAnswer{Text: "early"})
		require.ErrorIs(t, err, ErrNotWaiting)

		question, number, total, answerCh, ok := sess.BeginWaiting()
		require.True(t, ok)
		require.Equal(t, "q1", question)
		require.Equal(t, 1, number)
		require.Equal(t, 2, total)
		require.Equal(t, StatusWaitingForAnswer, sess.Status())

		question, number, err = sess.Accept(SubmittedAnswer{Text: "a1", GenerateFollowUp: true})
		require.NoError(t, err)
		require.Equal(t, "q1", question)
		require.Equal(t, 1, number)
		require.Equal(t, StatusActive, sess.Status())
		require.Equal(t, "a1", (<-answerCh).Text)

		// второй ответ на тот же вопрос отклоняется
		_, _, err = sess.Accept(SubmittedAnswer{Text: "a1-again"})
		require.ErrorIs(t, err, ErrNotWaiting)
	})

	t.Run(`follow up inserted right after current check`, func(t *testing.T) {
		sess := New(context.TODO())
		sess.SetQuestions([]string{"q1", "q2"})

		_, _, _, _, ok := sess.BeginWaiting()
		require.True(t, ok)
		_, _, err := sess.Accept(SubmittedAnswer{Text: "a1"})
		require.NoError(t, err)

		require.True(t, sess.CurrentAllowsFollowUp())
		sess.InsertFollowUp("follow up?")
		require.Equal(t, []string{"q1", "follow up?", "q2"}, sess.Questions())

		require.True(t, sess.Advance())
		question, _, total, _, ok := sess.BeginWaiting()
		require.True(t, ok)
		require.Equal(t, "follow up?", question)
		require.Equal(t, 3, total)
	})

	t.Run(`no follow up after last original question check`, func(t *testing.T) {
		sess := New(context.TODO())
		sess.SetQuestions([]string{"q1", "q2"})
		_, _, _, _, _ = sess.BeginWaiting()
		_, _, err := sess.Accept(SubmittedAnswer{Text: "a1"})
		require.NoError(t, err)
		require.True(t, sess.Advance())
		require.False(t, sess.CurrentAllowsFollowUp())
	})

	t.Run(`no follow up to a follow up question check`, func(t *testing.T) {
		sess := New(context.TODO())
		sess.SetQuestions([]string{"q1", "q2", "q3"})
		_, _, _, _, _ = sess.BeginWaiting()
		_, _, err := sess.Accept(SubmittedAnswer{Text: "a1"})
		require.NoError(t, err)

		require.True(t, sess.CurrentAllowsFollowUp())
		sess.InsertFollowUp("fu-1?")
		require.True(t, sess.Advance())

		// текущий вопрос — вставленный уточняющий, к нему уточнение не положено
		_, _, _, _, _ = sess.BeginWaiting()
		_, _, err = sess.Accept(SubmittedAnswer{Text: "a-fu-1"})
		require.NoError(t, err)
		require.False(t, sess.CurrentAllowsFollowUp())

		// следующий исходный вопрос снова допускает уточнение
		require.True(t, sess.Advance())
		_, _, _, _, _ = sess.BeginWaiting()
		_, _, err = sess.Accept(SubmittedAnswer{Text: "a2"})
		require.NoError(t, err)
		require.True(t, sess.CurrentAllowsFollowUp())
	})

	t.Run(`cancel is terminal and idempotent check`, func(t *testing.T) {
		sess := New(context.TODO())
		sess.SetQuestions([]string{"q1"})
		require.True(t, sess.Cancel())
		require.False(t, sess.Cancel())
		require.Equal(t, StatusCancelled, sess.Status())

		_, _, _, _, ok := sess.BeginWaiting()
		require.False(t, ok)
		_, _, err := sess.Accept(SubmittedAnswer{Text: "late"})
		require.ErrorIs(t, err, ErrFinished)

		select {
		case <-sess.Context().Done():
		default:
			t.Fatal("контекст сессии не отменен")
		}

		_, terminal := sess.FinishedAt()
		require.True(t, terminal)
	})

	t.Run(`complete stores result check`, func(t *testing.T) {
		sess := New(context.TODO())
		sess.SetQuestions([]string{"q1"})
		_, _, _, _, _ = sess.BeginWaiting()
		_, _, err := sess.Accept(SubmittedAnswer{Text: "a1"})
		require.NoError(t, err)
		require.False(t, sess.Advance())

		completed, _, _ := sess.Result()
		require.False(t, completed)

		analysis := analysisFixture()
		require.True(t, sess.Complete(analysis, map[string]interface{}{"name": "Ivan"}))
		require.Equal(t, StatusCompleted, sess.Status())

		completed, gotAnalysis, portfolio := sess.Result()
		require.True(t, completed)
		require.Equal(t, analysis, *gotAnalysis)
		require.Equal(t, "Ivan", portfolio["name"])

		answered := sess.Answered()
		require.Equal(t, 1, len(answered))
		require.Equal(t, "a1", answered[0].Answer)
	})

	t.Run(`complete rejected after cancel check`, func(t *testing.T) {
		sess := New(context.TODO())
		sess.SetQuestions([]string{"q1"})
		require.True(t, sess.Cancel())

		require.False(t, sess.Complete(analysisFixture(), nil))
		require.Equal(t, StatusCancelled, sess.Status())

		completed, _, _ := sess.Result()
		require.False(t, completed)
	})

	t.Run(`registry lifecycle check`, func(t *testing.T) {
		registry := NewRegistry()
		sess := New(context.TODO())
		registry.Create(sess)

		got, ok := registry.Get(sess.ID)
		require.True(t, ok)
		require.Equal(t, sess.ID, got.ID)
		require.Equal(t, 1, len(registry.List()))

		registry.Remove(sess.ID)
		_, ok = registry.Get(sess.ID)
		require.False(t, ok)
		require.Empty(t, registry.List())
	})
}
