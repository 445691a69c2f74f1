package interview

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	interviewsession "visa-interview-backend/lib/interview/session"
	interviewapimodels "visa-interview-backend/models/api/interview"
	wsmodels "visa-interview-backend/models/ws"
)

type fakeQuestions struct {
	list      []string
	gotCount  int
	gotResume string
}

func (f *fakeQuestions) Generate(ctx context.Context, sessionID string, count int, description, resumeJSON string) []string {
	f.gotCount = count
	f.gotResume = resumeJSON
	return f.list
}

type fakeFollowUp struct {
	mu    sync.Mutex
	queue []string
}

func (f *fakeFollowUp) Generate(ctx context.Context, sessionID, question, answer string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return "", false
	}
	followUp := f.queue[0]
	f.queue = f.queue[1:]
	return followUp, true
}

type fakeAnalyzer struct {
	analysis interviewapimodels.Analysis
}

func (f fakeAnalyzer) Analyze(ctx context.Context, sessionID string, qa []interviewapimodels.QA) interviewapimodels.Analysis {
	return f.analysis
}

// blockingAnalyzer держит оценку открытой до явного release
type blockingAnalyzer struct {
	started  chan struct{}
	release  chan struct{}
	analysis interviewapimodels.Analysis
}

func (f *blockingAnalyzer) Analyze(ctx context.Context, sessionID string, qa []interviewapimodels.QA) interviewapimodels.Analysis {
	close(f.started)
	<-f.release
	return f.analysis
}

type chanSink struct {
	ch chan wsmodels.ServerMessage
}

func (s chanSink) SendMessage(msg wsmodels.ServerMessage) {
	s.ch <- msg
}

func (s chanSink) IsConnected(sessionID string) bool {
	return true
}

type fakeAudioStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeAudioStore() *fakeAudioStore {
	return &fakeAudioStore{files: map[string][]byte{}}
}

func (f *fakeAudioStore) key(sessionID string, questionNumber int) string {
	return fmt.Sprintf("%s/%d", sessionID, questionNumber)
}

func (f *fakeAudioStore) UploadAnswerAudio(ctx context.Context, sessionID string, questionNumber int, audio []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[f.key(sessionID, questionNumber)] = audio
	return nil
}

func (f *fakeAudioStore) GetAnswerAudio(ctx context.Context, sessionID string, questionNumber int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	audio, ok := f.files[f.key(sessionID, questionNumber)]
	if !ok {
		return nil, errors.New("объект не найден")
	}
	return audio, nil
}

func (f *fakeAudioStore) MakeBucket(ctx context.Context) error {
	return nil
}

func analysisFixture() interviewapimodels.Analysis {
	return interviewapimodels.Analysis{
		Strengths:         []string{"clear goals"},
		Weaknesses:        []string{"weak ties"},
		Recommendations:   []string{"prepare documents"},
		OverallAssessment: "borderline",
	}
}

func newTestHandler(questionList, followUps []string, timeout time.Duration) (Provider, *fakeQuestions, chan wsmodels.ServerMessage) {
	questionGen := &fakeQuestions{list: questionList}
	events := make(chan wsmodels.ServerMessage, 32)
	handler := NewInstance(context.Background(),
		interviewsession.NewRegistry(),
		questionGen,
		&fakeFollowUp{queue: followUps},
		fakeAnalyzer{analysis: analysisFixture()},
		chanSink{ch: events},
		nil, nil, nil, nil,
		Options{AnswerTimeout: timeout, MinQuestions: 1, MaxQuestions: 10})
	return handler, questionGen, events
}

func startRequest(numQuestions int) interviewapimodels.StartInterviewRequest {
	return interviewapimodels.StartInterviewRequest{
		EmbassyOrConsulate: "US Embassy",
		DestinationCountry: "USA",
		Course:             "Computer Science",
		University:         "MIT",
		NumQuestions:       numQuestions,
		Resume:             json.RawMessage(`{"name":"Ivan"}`),
	}
}

// waitEvent вычитывает события до появления ожидаемого кода,
// неожиданная ошибка интервью останавливает тест
func waitEvent(t *testing.T, events chan wsmodels.ServerMessage, code string) wsmodels.ServerMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-events:
			if msg.Code == code {
				return msg
			}
			if msg.Code == wsmodels.CodeInterviewError {
				t.Fatalf("неожиданная ошибка интервью: %+v", msg.Data)
			}
		case <-deadline:
			t.Fatalf("не дождались события %s", code)
		}
	}
}

func TestInterviewHandler(t *testing.T) {
	noFollowUp := false

	t.Run(`full interview without follow ups check`, func(t *testing.T) {
		handler, questionGen, events := newTestHandler([]string{"q1", "q2"}, nil, time.Second)
		sessionID, err := handler.StartInterview(startRequest(2))
		require.NoError(t, err)
		require.NotEmpty(t, sessionID)

		status := waitEvent(t, events, wsmodels.CodeInterviewStatus)
		require.Equal(t, phaseGeneratingQuestions, status.Data.(wsmodels.StatusPayload).Status)

		msg := waitEvent(t, events, wsmodels.CodeNewQuestion)
		payload := msg.Data.(wsmodels.NewQuestionPayload)
		require.Equal(t, "q1", payload.Question)
		require.Equal(t, 1, payload.QuestionNumber)
		require.Equal(t, 2, payload.TotalQuestions)
		require.Equal(t, 2, questionGen.gotCount)
		require.Equal(t, `{"name":"Ivan"}`, questionGen.gotResume)

		resp, err := handler.SubmitAnswer(sessionID, interviewapimodels.SubmitAnswerRequest{Text: "a1", GenerateFollowUp: &noFollowUp})
		require.NoError(t, err)
		require.Equal(t, "q1", resp.Question)
		require.Equal(t, "a1", resp.Answer)
		waitEvent(t, events, wsmodels.CodeAnswerReceived)

		msg = waitEvent(t, events, wsmodels.CodeNewQuestion)
		payload = msg.Data.(wsmodels.NewQuestionPayload)
		require.Equal(t, "q2", payload.Question)
		require.Equal(t, 2, payload.QuestionNumber)

		_, err = handler.SubmitAnswer(sessionID, interviewapimodels.SubmitAnswerRequest{Text: "a2", GenerateFollowUp: &noFollowUp})
		require.NoError(t, err)

		complete := waitEvent(t, events, wsmodels.CodeInterviewComplete)
		completePayload := complete.Data.(wsmodels.CompletePayload)
		require.Equal(t, analysisFixture(), completePayload.Analysis)
		portfolio := completePayload.UpdatedPortfolio.(map[string]interface{})
		require.Equal(t, "Ivan", portfolio["name"])
		require.Equal(t, analysisFixture(), portfolio["strengths_weaknesses"])

		analysisResp, err := handler.GetAnalysis(sessionID)
		require.NoError(t, err)
		require.True(t, analysisResp.Completed)
		require.Equal(t, analysisFixture(), *analysisResp.Analysis)

		report, err := handler.GetReport(sessionID)
		require.NoError(t, err)
		require.Equal(t, 2, len(report.QA))
		require.Equal(t, "a1", report.QA[0].Answer)
	})

	t.Run(`follow up inserted into question flow check`, func(t *testing.T) {
		handler, _, events := newTestHandler([]string{"q1", "q2"}, []string{"Tell me more?"}, time.Second)
		sessionID, err := handler.StartInterview(startRequest(2))
		require.NoError(t, err)

		waitEvent(t, events, wsmodels.CodeNewQuestion)
		_, err = handler.SubmitAnswer(sessionID, interviewapimodels.SubmitAnswerRequest{Text: "a1"})
		require.NoError(t, err)

		msg := waitEvent(t, events, wsmodels.CodeNewQuestion)
		payload := msg.Data.(wsmodels.NewQuestionPayload)
		require.Equal(t, "Tell me more?", payload.Question)
		require.Equal(t, 2, payload.QuestionNumber)
		require.Equal(t, 3, payload.TotalQuestions)

		_, err = handler.SubmitAnswer(sessionID, interviewapimodels.SubmitAnswerRequest{Text: "a-follow-up"})
		require.NoError(t, err)

		msg = waitEvent(t, events, wsmodels.CodeNewQuestion)
		payload = msg.Data.(wsmodels.NewQuestionPayload)
		require.Equal(t, "q2", payload.Question)
		require.Equal(t, 3, payload.QuestionNumber)

		_, err = handler.SubmitAnswer(sessionID, interviewapimodels.SubmitAnswerRequest{Text: "a2"})
		require.NoError(t, err)

		complete := waitEvent(t, events, wsmodels.CodeInterviewComplete)
		require.NotNil(t, complete.Data)

		report, err := handler.GetReport(sessionID)
		require.NoError(t, err)
		require.Equal(t, 3, len(report.QA))
		require.Equal(t, "Tell me more?", report.QA[1].Question)
	})

	t.Run(`follow up only to original questions check`, func(t *testing.T) {
		handler, _, events := newTestHandler([]string{"q1", "q2", "q3"}, []string{"fu-1?", "fu-2?"}, time.Second)
		sessionID, err := handler.StartInterview(startRequest(3))
		require.NoError(t, err)

		// ответ на уточняющий вопрос нового уточнения не порождает,
		// очередь уточнений расходуется только на исходные вопросы
		wantOrder := []string{"q1", "fu-1?", "q2", "fu-2?", "q3"}
		asked := []string{}
		for k := range wantOrder {
			msg := waitEvent(t, events, wsmodels.CodeNewQuestion)
			payload := msg.Data.(wsmodels.NewQuestionPayload)
			asked = append(asked, payload.Question)
			require.Equal(t, k+1, payload.QuestionNumber)
			_, err = handler.SubmitAnswer(sessionID, interviewapimodels.SubmitAnswerRequest{Text: fmt.Sprintf("a%v", k+1)})
			require.NoError(t, err)
		}
		require.Equal(t, wantOrder, asked)
		waitEvent(t, events, wsmodels.CodeInterviewComplete)
	})

	t.Run(`answer timeout fails interview check`, func(t *testing.T) {
		handler, _, events := newTestHandler([]string{"q1"}, nil, 50*time.Millisecond)
		sessionID, err := handler.StartInterview(startRequest(1))
		require.NoError(t, err)

		waitEvent(t, events, wsmodels.CodeNewQuestion)

		deadline := time.After(2 * time.Second)
		for {
			var msg wsmodels.ServerMessage
			select {
			case msg = <-events:
			case <-deadline:
				t.Fatal("не дождались ошибки таймаута")
			}
			if msg.Code == wsmodels.CodeInterviewError {
				break
			}
		}

		_, err = handler.SubmitAnswer(sessionID, interviewapimodels.SubmitAnswerRequest{Text: "late"})
		require.ErrorIs(t, err, interviewsession.ErrFinished)
	})

	t.Run(`cancel stops interview check`, func(t *testing.T) {
		handler, _, events := newTestHandler([]string{"q1", "q2"}, nil, time.Second)
		sessionID, err := handler.StartInterview(startRequest(2))
		require.NoError(t, err)

		waitEvent(t, events, wsmodels.CodeNewQuestion)
		require.NoError(t, handler.CancelInterview(sessionID))
		waitEvent(t, events, wsmodels.CodeInterviewCancelled)

		// повторная отмена без повторного события
		require.NoError(t, handler.CancelInterview(sessionID))

		_, err = handler.SubmitAnswer(sessionID, interviewapimodels.SubmitAnswerRequest{Text: "late"})
		require.ErrorIs(t, err, interviewsession.ErrFinished)

		analysisResp, err := handler.GetAnalysis(sessionID)
		require.NoError(t, err)
		require.False(t, analysisResp.Completed)
	})

	t.Run(`answer audio archived and downloadable check`, func(t *testing.T) {
		audioStore := newFakeAudioStore()
		events := make(chan wsmodels.ServerMessage, 32)
		handler := NewInstance(context.Background(),
			interviewsession.NewRegistry(),
			&fakeQuestions{list: []string{"q1"}},
			&fakeFollowUp{},
			fakeAnalyzer{analysis: analysisFixture()},
			chanSink{ch: events},
			nil, nil, nil, audioStore,
			Options{AnswerTimeout: time.Second, MinQuestions: 1, MaxQuestions: 10})

		sessionID, err := handler.StartInterview(startRequest(1))
		require.NoError(t, err)
		waitEvent(t, events, wsmodels.CodeNewQuestion)

		// транскрибация не настроена, ответ деградирует до текста,
		// но аудио все равно уходит в архив
		wav := []byte("wav-bytes")
		_, err = handler.SubmitAnswer(sessionID, interviewapimodels.SubmitAnswerRequest{
			Text:             "a1",
			Audio:            base64.StdEncoding.EncodeToString(wav),
			GenerateFollowUp: &noFollowUp,
		})
		require.NoError(t, err)
		waitEvent(t, events, wsmodels.CodeInterviewComplete)

		var audio []byte
		require.Eventually(t, func() bool {
			audio, err = handler.GetAnswerAudio(sessionID, 1)
			return err == nil
		}, time.Second, 10*time.Millisecond)
		require.Equal(t, wav, audio)

		_, err = handler.GetAnswerAudio(sessionID, 2)
		require.Error(t, err)
	})

	t.Run(`audio archive not configured check`, func(t *testing.T) {
		handler, _, _ := newTestHandler([]string{"q1"}, nil, time.Second)
		_, err := handler.GetAnswerAudio("b7f5ef40-0b34-4f58-9b28-55b0fd364c21", 1)
		require.Error(t, err)
	})

	t.Run(`cancel during analysis suppresses completion check`, func(t *testing.T) {
		analyzer := &blockingAnalyzer{
			started:  make(chan struct{}),
			release:  make(chan struct{}),
			analysis: analysisFixture(),
		}
		events := make(chan wsmodels.ServerMessage, 32)
		handler := NewInstance(context.Background(),
			interviewsession.NewRegistry(),
			&fakeQuestions{list: []string{"q1"}},
			&fakeFollowUp{},
			analyzer,
			chanSink{ch: events},
			nil, nil, nil, nil,
			Options{AnswerTimeout: time.Second, MinQuestions: 1, MaxQuestions: 10})

		sessionID, err := handler.StartInterview(startRequest(1))
		require.NoError(t, err)
		waitEvent(t, events, wsmodels.CodeNewQuestion)
		_, err = handler.SubmitAnswer(sessionID, interviewapimodels.SubmitAnswerRequest{Text: "a1", GenerateFollowUp: &noFollowUp})
		require.NoError(t, err)

		// отмена приходит, пока оценка еще выполняется
		<-analyzer.started
		require.NoError(t, handler.CancelInterview(sessionID))
		waitEvent(t, events, wsmodels.CodeInterviewCancelled)
		close(analyzer.release)

		deadline := time.After(300 * time.Millisecond)
		for waiting := true; waiting; {
			select {
			case msg := <-events:
				require.NotEqual(t, wsmodels.CodeInterviewComplete, msg.Code,
					"после отмены интервью завершение не публикуется")
			case <-deadline:
				waiting = false
			}
		}

		analysisResp, err := handler.GetAnalysis(sessionID)
		require.NoError(t, err)
		require.False(t, analysisResp.Completed)
	})

	t.Run(`unknown session check`, func(t *testing.T) {
		handler, _, _ := newTestHandler([]string{"q1"}, nil, time.Second)
		unknownID := "b7f5ef40-0b34-4f58-9b28-55b0fd364c21"
		_, err := handler.SubmitAnswer(unknownID, interviewapimodels.SubmitAnswerRequest{Text: "a"})
		require.ErrorIs(t, err, ErrSessionNotFound)
		require.ErrorIs(t, handler.CancelInterview(unknownID), ErrSessionNotFound)
		_, err = handler.GetAnalysis(unknownID)
		require.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run(`start request validation check`, func(t *testing.T) {
		handler, _, _ := newTestHandler([]string{"q1"}, nil, time.Second)
		req := startRequest(1)
		req.University = ""
		_, err := handler.StartInterview(req)
		require.Error(t, err)

		req = startRequest(1)
		req.Resume = json.RawMessage("not json")
		_, err = handler.StartInterview(req)
		require.Error(t, err)
	})

	t.Run(`question count clamped to limits check`, func(t *testing.T) {
		handler, questionGen, events := newTestHandler([]string{"q1"}, nil, time.Second)
		_, err := handler.StartInterview(startRequest(99))
		require.NoError(t, err)
		waitEvent(t, events, wsmodels.CodeNewQuestion)
		require.Equal(t, 10, questionGen.gotCount)

		// без указания количества используется значение по умолчанию
		_, err = handler.StartInterview(startRequest(0))
		require.NoError(t, err)
		waitEvent(t, events, wsmodels.CodeNewQuestion)
		require.Equal(t, 2, questionGen.gotCount)
	})
}
