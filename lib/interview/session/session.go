package interviewsession

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	interviewapimodels "visa-interview-backend/models/api/interview"
)

type Status string

const (
	StatusActive           Status = "active"
	StatusWaitingForAnswer Status = "waiting_for_answer"
	StatusCancelled        Status = "cancelled"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusFailed
}

var (
	ErrNotWaiting = errors.New("нет активного вопроса")
	ErrFinished   = errors.New("интервью завершено")
)

// SubmittedAnswer — ответ, переданный машине состояний через слот ожидания
type SubmittedAnswer struct {
	Text             string
	Transcribed      bool
	GenerateFollowUp bool
}

// Session — одно интервью. Мутируют её ровно два писателя:
// горутина машины состояний и обработчик отправки ответа,
// оба только под mu.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu               sync.Mutex
	status           Status
	questions        []string
	original         []bool
	currentIndex     int
	qa               []interviewapimodels.QA
	generateFollowup bool
	answerCh         chan SubmittedAnswer
	analysis         *interviewapimodels.Analysis
	updatedPortfolio map[string]interface{}
	finishedAt       time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:               uuid.NewString(),
		CreatedAt:        time.Now(),
		status:           StatusActive,
		generateFollowup: true,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Context отменяется при отмене интервью или остановке приложения
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetQuestions фиксирует сгенерированный список вопросов перед первым вопросом
func (s *Session) SetQuestions(questions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = questions
	s.original = make([]bool, len(questions))
	s.qa = make([]interviewapimodels.QA, len(questions))
	for k, q := range questions {
		s.original[k] = true
		s.qa[k] = interviewapimodels.QA{Question: q}
	}
}

// BeginWaiting очищает слот ответа и открывает прием ровно одного ответа
// на текущий вопрос. Возвращает вопрос, его номер, общее количество
// и канал, по которому придет ответ.
func (s *Session) BeginWaiting() (question string, number, total int, answerCh <-chan SubmittedAnswer, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() || s.currentIndex >= len(s.questions) {
		return "", 0, 0, nil, false
	}
	s.answerCh = make(chan SubmittedAnswer, 1)
	s.status = StatusWaitingForAnswer
	return s.questions[s.currentIndex], s.currentIndex + 1, len(s.questions), s.answerCh, true
}

// Accept принимает ответ на текущий вопрос. Отклоняет запрос, если сессия
// не ждет ответа — единственная точка записи в qa.
func (s *Session) Accept(ans SubmittedAnswer) (question string, number int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return "", 0, ErrFinished
	}
	if s.status != StatusWaitingForAnswer {
		return "", 0, ErrNotWaiting
	}
	question = s.questions[s.currentIndex]
	number = s.currentIndex + 1
	s.qa[s.currentIndex].Answer = ans.Text
	s.qa[s.currentIndex].Answered = true
	s.generateFollowup = ans.GenerateFollowUp
	// смена статуса до выхода из-под mu гарантирует не больше
	// одного принятого ответа на вопрос
	s.status = StatusActive
	s.answerCh <- ans
	return question, number, nil
}

// GenerateFollowup читается машиной состояний один раз на переход
func (s *Session) GenerateFollowup() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateFollowup
}

// CurrentAllowsFollowUp — уточняющий вопрос допустим только к исходно
// сгенерированному вопросу, и только если после него остались еще
// исходные. Вставки сдвигают индексы, поэтому проверка по признаку
// вопроса, а не по позиции.
func (s *Session) CurrentAllowsFollowUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentIndex >= len(s.original) || !s.original[s.currentIndex] {
		return false
	}
	for _, isOriginal := range s.original[s.currentIndex+1:] {
		if isOriginal {
			return true
		}
	}
	return false
}

// CurrentQA возвращает текущий вопрос с принятым ответом
func (s *Session) CurrentQA() (qa interviewapimodels.QA, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentIndex >= len(s.qa) {
		return interviewapimodels.QA{}, false
	}
	return s.qa[s.currentIndex], true
}

// InsertFollowUp вставляет уточняющий вопрос сразу после текущего
func (s *Session) InsertFollowUp(question string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.currentIndex + 1
	s.questions = append(s.questions[:idx], append([]string{question}, s.questions[idx:]...)...)
	s.original = append(s.original[:idx], append([]bool{false}, s.original[idx:]...)...)
	s.qa = append(s.qa[:idx], append([]interviewapimodels.QA{{Question: question}}, s.qa[idx:]...)...)
}

// Advance сдвигает курсор на следующий вопрос;
// возвращает false когда вопросы закончились
func (s *Session) Advance() (hasMore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentIndex++
	return s.currentIndex < len(s.questions)
}

// Cancel переводит сессию в терминальный статус и будит ожидание
func (s *Session) Cancel() bool {
	s.mu.Lock()
	if s.status.IsTerminal() {
		s.mu.Unlock()
		return false
	}
	s.status = StatusCancelled
	s.finishedAt = time.Now()
	s.mu.Unlock()
	s.cancel()
	return true
}

func (s *Session) Fail() {
	s.mu.Lock()
	if !s.status.IsTerminal() {
		s.status = StatusFailed
		s.finishedAt = time.Now()
	}
	s.mu.Unlock()
	s.cancel()
}

// Complete фиксирует результат; возвращает false, если сессия уже
// перешла в терминальный статус (например, отменена во время оценки)
func (s *Session) Complete(analysis interviewapimodels.Analysis, updatedPortfolio map[string]interface{}) bool {
	s.mu.Lock()
	if s.status.IsTerminal() {
		s.mu.Unlock()
		return false
	}
	s.status = StatusCompleted
	s.analysis = &analysis
	s.updatedPortfolio = updatedPortfolio
	s.finishedAt = time.Now()
	s.mu.Unlock()
	s.cancel()
	return true
}

// Result — данные для запроса результата, доступен после завершения
func (s *Session) Result() (completed bool, analysis *interviewapimodels.Analysis, updatedPortfolio map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCompleted {
		return false, nil, nil
	}
	return true, s.analysis, s.updatedPortfolio
}

// Answered возвращает пары вопрос-ответ с полученными ответами,
// в порядке вопросов
func (s *Session) Answered() []interviewapimodels.QA {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]interviewapimodels.QA, 0, len(s.qa))
	for _, qa := range s.qa {
		if qa.Answered {
			list = append(list, qa)
		}
	}
	return list
}

func (s *Session) Questions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]string, len(s.questions))
	copy(list, s.questions)
	return list
}

// FinishedAt — момент перехода в терминальный статус
func (s *Session) FinishedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.IsTerminal() {
		return time.Time{}, false
	}
	return s.finishedAt, true
}
