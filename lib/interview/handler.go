package interview

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"visa-interview-backend/config"
	"visa-interview-backend/db"
	filestorage "visa-interview-backend/lib/file-storage"
	gpthandler "visa-interview-backend/lib/gpt"
	"visa-interview-backend/lib/interview/assessment"
	"visa-interview-backend/lib/interview/followup"
	"visa-interview-backend/lib/interview/questions"
	interviewsession "visa-interview-backend/lib/interview/session"
	interviewstore "visa-interview-backend/lib/interview/store"
	stthandler "visa-interview-backend/lib/speech/stt"
	ttshandler "visa-interview-backend/lib/speech/tts"
	connectionhub "visa-interview-backend/lib/ws/hub/connection-hub"
	interviewapimodels "visa-interview-backend/models/api/interview"
	dbmodels "visa-interview-backend/models/db"
	wsmodels "visa-interview-backend/models/ws"
)

type Provider interface {
	StartInterview(req interviewapimodels.StartInterviewRequest) (sessionID string, err error)
	SubmitAnswer(sessionID string, req interviewapimodels.SubmitAnswerRequest) (resp interviewapimodels.SubmitAnswerResponse, err error)
	CancelInterview(sessionID string) error
	GetAnalysis(sessionID string) (resp interviewapimodels.AnalysisResponse, err error)
	GetReport(sessionID string) (report interviewapimodels.Report, err error)
	GetAnswerAudio(sessionID string, questionNumber int) (audio []byte, err error)
	Registry() interviewsession.Registry
}

var Instance Provider

var (
	ErrSessionNotFound = errors.New("сессия не найдена")
)

// статусы фаз интервью, отправляемые событием interview_status
const (
	phaseGeneratingQuestions = "generating_questions"
	phaseAnalyzingResponses  = "analyzing_responses"
)

// ключ, под которым оценка добавляется в портфолио кандидата
const portfolioAnalysisKey = "strengths_weaknesses"

// EventSink — канал событий к подписчику сессии
type EventSink interface {
	SendMessage(msg wsmodels.ServerMessage)
	IsConnected(sessionID string) bool
}

// Transcriber — внешний сервис распознавания речи
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (text string, err error)
}

// Speaker — внешний сервис озвучивания
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Options struct {
	AnswerTimeout    time.Duration
	MinQuestions     int
	MaxQuestions     int
	DefaultQuestions int
}

func NewHandler(ctx context.Context) {
	var archive interviewstore.Provider
	if db.DB != nil {
		archive = interviewstore.NewInstance(db.DB)
	}
	var audio filestorage.Provider
	if *config.Conf.S3.Enabled {
		audio = filestorage.Instance
	}
	var stt Transcriber
	if config.Conf.Speech.SttURL != "" {
		stt = stthandler.Instance
	}
	var tts Speaker
	if config.Conf.Speech.TtsURL != "" {
		tts = ttshandler.Instance
	}
	gpt := gpthandler.Instance
	Instance = NewInstance(ctx,
		interviewsession.NewRegistry(),
		questions.NewGenerator(gpt),
		followup.NewGenerator(gpt),
		assessment.NewAnalyzer(gpt),
		connectionhub.Instance,
		stt, tts, archive, audio,
		Options{
			AnswerTimeout:    time.Duration(config.Conf.Interview.AnswerTimeoutSec) * time.Second,
			MinQuestions:     config.Conf.Interview.MinQuestions,
			MaxQuestions:     config.Conf.Interview.MaxQuestions,
			DefaultQuestions: config.Conf.Interview.DefaultQuestions,
		})
}

// NewInstance собирает обработчик из явных зависимостей
func NewInstance(
	ctx context.Context,
	registry interviewsession.Registry,
	questionGen questions.Provider,
	followUpGen followup.Provider,
	analyzer assessment.Provider,
	sink EventSink,
	stt Transcriber,
	tts Speaker,
	archive interviewstore.Provider,
	audio filestorage.Provider,
	opts Options,
) Provider {
	if opts.AnswerTimeout <= 0 {
		opts.AnswerTimeout = 5 * time.Minute
	}
	if opts.MinQuestions <= 0 {
		opts.MinQuestions = 1
	}
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = 10
	}
	if opts.DefaultQuestions <= 0 {
		opts.DefaultQuestions = 2
	}
	return &impl{
		ctx:         ctx,
		registry:    registry,
		questionGen: questionGen,
		followUpGen: followUpGen,
		analyzer:    analyzer,
		sink:        sink,
		stt:         stt,
		tts:         tts,
		archive:     archive,
		audio:       audio,
		opts:        opts,
	}
}

type impl struct {
	ctx         context.Context
	registry    interviewsession.Registry
	questionGen questions.Provider
	followUpGen followup.Provider
	analyzer    assessment.Provider
	sink        EventSink
	stt         Transcriber
	tts         Speaker
	archive     interviewstore.Provider
	audio       filestorage.Provider
	opts        Options
}

func (i impl) getLogger(sessionID string) *log.Entry {
	return log.
		WithField("session_id", sessionID)
}

func (i impl) Registry() interviewsession.Registry {
	return i.registry
}

// StartInterview создает и регистрирует сессию, запускает машину состояний
// в отдельной горутине и сразу возвращает идентификатор
func (i impl) StartInterview(req interviewapimodels.StartInterviewRequest) (sessionID string, err error) {
	if err = req.Validate(); err != nil {
		return "", err
	}
	count := req.NumQuestions
	if count == 0 {
		count = i.opts.DefaultQuestions
	}
	if count < i.opts.MinQuestions {
		count = i.opts.MinQuestions
	}
	if count > i.opts.MaxQuestions {
		count = i.opts.MaxQuestions
	}

	var portfolio map[string]interface{}
	if err = json.Unmarshal(req.Resume, &portfolio); err != nil {
		return "", errors.New("некорректный json портфолио")
	}

	description := fmt.Sprintf(officerPromtPattern,
		req.EmbassyOrConsulate, req.DestinationCountry,
		req.Course, req.University, req.DestinationCountry)

	sess := interviewsession.New(i.ctx)
	i.registry.Create(sess)
	i.getLogger(sess.ID).Infof("Интервью запущено, вопросов: %v", count)

	go i.run(sess, count, description, string(req.Resume), portfolio)
	return sess.ID, nil
}

// run — машина состояний одной сессии, владеет ею до терминального статуса
func (i impl) run(sess *interviewsession.Session, count int, description, resumeJSON string, portfolio map[string]interface{}) {
	logger := i.getLogger(sess.ID)
	defer func() {
		if r := recover(); r != nil {
			logger.
				WithField("panic_stack", string(debug.Stack())).
				Errorf("panic: (%v)", r)
			sess.Fail()
			i.emit(sess.ID, wsmodels.CodeInterviewError, wsmodels.ErrorPayload{Error: "внутренняя ошибка интервью"})
		}
	}()

	i.emit(sess.ID, wsmodels.CodeInterviewStatus, wsmodels.StatusPayload{Status: phaseGeneratingQuestions})
	questionList := i.questionGen.Generate(sess.Context(), sess.ID, count, description, resumeJSON)
	if len(questionList) == 0 {
		logger.Error("не удалось получить ни одного вопроса")
		sess.Fail()
		i.emit(sess.ID, wsmodels.CodeInterviewError, wsmodels.ErrorPayload{Error: "не удалось сгенерировать вопросы"})
		return
	}
	sess.SetQuestions(questionList)

	for {
		question, number, total, answerCh, ok := sess.BeginWaiting()
		if !ok {
			// сессия отменена до очередного вопроса
			i.finish(sess)
			return
		}
		i.emit(sess.ID, wsmodels.CodeNewQuestion, wsmodels.NewQuestionPayload{
			Question:       question,
			QuestionNumber: number,
			TotalQuestions: total,
		})
		i.speak(sess, question)

		select {
		case <-answerCh:
			// ответ принят и записан в SubmitAnswer
		case <-time.After(i.opts.AnswerTimeout):
			logger.Warn("таймаут ожидания ответа, интервью остановлено")
			sess.Fail()
			i.emit(sess.ID, wsmodels.CodeInterviewError, wsmodels.ErrorPayload{Error: "таймаут ожидания ответа"})
			i.finish(sess)
			return
		case <-sess.Context().Done():
			i.finish(sess)
			return
		}

		// уточняющий вопрос только к исходному вопросу,
		// и не к последнему из них
		if sess.GenerateFollowup() && sess.CurrentAllowsFollowUp() {
			if qa, ok := sess.CurrentQA(); ok {
				if followUp, ok := i.followUpGen.Generate(sess.Context(), sess.ID, qa.Question, qa.Answer); ok {
					sess.InsertFollowUp(followUp)
					i.speak(sess, followUp)
				}
			}
		}

		if !sess.Advance() {
			break
		}
	}

	if sess.Status() != interviewsession.StatusActive {
		i.finish(sess)
		return
	}
	answered := sess.Answered()
	if len(answered) == 0 {
		sess.Fail()
		i.emit(sess.ID, wsmodels.CodeInterviewError, wsmodels.ErrorPayload{Error: "нет ответов для оценки"})
		return
	}

	i.emit(sess.ID, wsmodels.CodeInterviewStatus, wsmodels.StatusPayload{Status: phaseAnalyzingResponses})
	analysis := i.analyzer.Analyze(sess.Context(), sess.ID, answered)

	updatedPortfolio := make(map[string]interface{}, len(portfolio)+1)
	for k, v := range portfolio {
		updatedPortfolio[k] = v
	}
	updatedPortfolio[portfolioAnalysisKey] = analysis

	if !sess.Complete(analysis, updatedPortfolio) {
		// отмена пришла во время оценки
		i.finish(sess)
		return
	}
	i.saveArchive(sess)
	i.emit(sess.ID, wsmodels.CodeInterviewComplete, wsmodels.CompletePayload{
		Analysis:         analysis,
		UpdatedPortfolio: updatedPortfolio,
	})
	logger.Info("Интервью завершено")
}

// finish — терминальная уборка для отмененных и проваленных сессий;
// сессия остается в реестре для запросов результата
func (i impl) finish(sess *interviewsession.Session) {
	if sess.Status() == interviewsession.StatusActive {
		// контекст приложения завершен
		sess.Fail()
	}
	i.saveArchive(sess)
	i.getLogger(sess.ID).Infof("Интервью остановлено, статус: %v", sess.Status())
}

// SubmitAnswer валидирует состояние сессии, при наличии аудио вызывает
// транскрибацию и передает ответ машине состояний. Не блокируется
// на дальнейшей работе машины состояний.
func (i impl) SubmitAnswer(sessionID string, req interviewapimodels.SubmitAnswerRequest) (resp interviewapimodels.SubmitAnswerResponse, err error) {
	if err = req.Validate(); err != nil {
		return resp, err
	}
	sess, ok := i.registry.Get(sessionID)
	if !ok {
		return resp, ErrSessionNotFound
	}
	logger := i.getLogger(sessionID)

	answer := req.Text
	transcribed := false
	var audioBytes []byte
	if req.Audio != "" {
		audioBytes, err = base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			return resp, errors.New("некорректный base64 аудио")
		}
		text, transcribeErr := i.transcribe(sess.Context(), audioBytes)
		if transcribeErr != nil {
			logger.WithError(transcribeErr).Error("ошибка транскрибации аудио ответа")
			i.emit(sessionID, wsmodels.CodeTranscriptionError, wsmodels.ErrorPayload{Error: transcribeErr.Error()})
			// деградация до текстового ответа
			if answer == "" {
				answer = "Unable to process audio response"
			}
		} else {
			answer = text
			transcribed = true
		}
	}
	if answer == "" {
		answer = "No answer provided"
	}

	generateFollowUp := true
	if req.GenerateFollowUp != nil {
		generateFollowUp = *req.GenerateFollowUp
	}

	question, number, err := sess.Accept(interviewsession.SubmittedAnswer{
		Text:             answer,
		Transcribed:      transcribed,
		GenerateFollowUp: generateFollowUp,
	})
	if err != nil {
		return resp, err
	}

	payload := wsmodels.AnswerReceivedPayload{
		Question: question,
		Answer:   answer,
	}
	if transcribed {
		payload.Transcription = answer
	}
	i.emit(sessionID, wsmodels.CodeAnswerReceived, payload)

	if i.audio != nil && len(audioBytes) > 0 {
		go i.archiveAudio(sessionID, number, audioBytes)
	}

	resp = interviewapimodels.SubmitAnswerResponse{
		Question:      question,
		Answer:        answer,
		Transcription: payload.Transcription,
	}
	return resp, nil
}

// CancelInterview переводит сессию в статус Cancelled и будит ожидание;
// повторная отмена — no-op без повторного события
func (i impl) CancelInterview(sessionID string) error {
	sess, ok := i.registry.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if sess.Cancel() {
		i.getLogger(sessionID).Info("Интервью отменено")
		i.emit(sessionID, wsmodels.CodeInterviewCancelled, nil)
	}
	return nil
}

func (i impl) GetAnalysis(sessionID string) (resp interviewapimodels.AnalysisResponse, err error) {
	sess, ok := i.registry.Get(sessionID)
	if ok {
		completed, analysis, updatedPortfolio := sess.Result()
		resp = interviewapimodels.AnalysisResponse{
			Completed:        completed,
			Analysis:         analysis,
			UpdatedPortfolio: updatedPortfolio,
		}
		return resp, nil
	}
	// сессия вытеснена из реестра, смотрим в архив
	rec, err := i.getArchived(sessionID)
	if err != nil {
		return resp, err
	}
	if rec.Status != string(interviewsession.StatusCompleted) {
		return interviewapimodels.AnalysisResponse{Completed: false}, nil
	}
	analysis := interviewapimodels.Analysis(rec.Result.Analysis)
	return interviewapimodels.AnalysisResponse{
		Completed:        true,
		Analysis:         &analysis,
		UpdatedPortfolio: rec.Result.UpdatedPortfolio,
	}, nil
}

// GetReport возвращает данные завершенного интервью для выгрузки отчета
func (i impl) GetReport(sessionID string) (report interviewapimodels.Report, err error) {
	sess, ok := i.registry.Get(sessionID)
	if ok {
		completed, analysis, _ := sess.Result()
		if !completed {
			return report, errors.New("интервью не завершено")
		}
		return interviewapimodels.Report{
			SessionID: sessionID,
			QA:        sess.Answered(),
			Analysis:  *analysis,
		}, nil
	}
	rec, err := i.getArchived(sessionID)
	if err != nil {
		return report, err
	}
	if rec.Status != string(interviewsession.StatusCompleted) {
		return report, errors.New("интервью не завершено")
	}
	qa := make([]interviewapimodels.QA, 0, len(rec.Result.Answers))
	for _, item := range rec.Result.Answers {
		qa = append(qa, interviewapimodels.QA{Question: item.Question, Answer: item.Answer, Answered: true})
	}
	return interviewapimodels.Report{
		SessionID: sessionID,
		QA:        qa,
		Analysis:  interviewapimodels.Analysis(rec.Result.Analysis),
	}, nil
}

// GetAnswerAudio отдает аудио ответа из архива хранилища;
// доступно и после вытеснения сессии из реестра
func (i impl) GetAnswerAudio(sessionID string, questionNumber int) ([]byte, error) {
	if i.audio == nil {
		return nil, errors.New("архив аудио не настроен")
	}
	return i.audio.GetAnswerAudio(i.ctx, sessionID, questionNumber)
}

func (i impl) getArchived(sessionID string) (*dbmodels.InterviewArchive, error) {
	if i.archive == nil {
		return nil, ErrSessionNotFound
	}
	rec, err := i.archive.GetBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrSessionNotFound
	}
	return rec, nil
}

func (i impl) transcribe(ctx context.Context, audio []byte) (string, error) {
	if i.stt == nil {
		return "", errors.New("сервис транскрибации не настроен")
	}
	return i.stt.Transcribe(ctx, audio)
}

// speak озвучивает реплику, ошибки не прерывают интервью;
// без подписчика сессии синтез не запускается
func (i impl) speak(sess *interviewsession.Session, text string) {
	if i.tts == nil || !i.sink.IsConnected(sess.ID) {
		return
	}
	go func() {
		if err := i.tts.Speak(sess.Context(), text); err != nil {
			i.getLogger(sess.ID).WithError(err).Error("ошибка озвучивания вопроса")
			i.emit(sess.ID, wsmodels.CodeTtsError, wsmodels.ErrorPayload{Error: err.Error()})
		}
	}()
}

func (i impl) archiveAudio(sessionID string, questionNumber int, audio []byte) {
	err := i.audio.UploadAnswerAudio(i.ctx, sessionID, questionNumber, audio)
	if err != nil {
		i.getLogger(sessionID).WithError(err).Error("ошибка архивации аудио ответа")
	}
}

func (i impl) saveArchive(sess *interviewsession.Session) {
	if i.archive == nil {
		return
	}
	completed, analysis, updatedPortfolio := sess.Result()
	rec := dbmodels.InterviewArchive{
		SessionID: sess.ID,
		Status:    string(sess.Status()),
	}
	answers := []dbmodels.InterviewQA{}
	for _, qa := range sess.Answered() {
		answers = append(answers, dbmodels.InterviewQA{Question: qa.Question, Answer: qa.Answer})
	}
	rec.Result = dbmodels.InterviewResult{
		Questions: sess.Questions(),
		Answers:   answers,
	}
	if completed {
		rec.Result.Analysis = dbmodels.InterviewAnalysis(*analysis)
		rec.Result.UpdatedPortfolio = updatedPortfolio
	}
	if _, err := i.archive.Save(rec); err != nil {
		i.getLogger(sess.ID).WithError(err).Error("ошибка сохранения интервью в архив")
	}
}

func (i impl) emit(sessionID, code string, data interface{}) {
	i.sink.SendMessage(wsmodels.ServerMessage{
		ToSessionID: sessionID,
		Code:        code,
		Data:        data,
	})
}
