package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/p-n-ai/ntsa-buddy/internal/quiz"
	"github.com/p-n-ai/ntsa-buddy/internal/study"
)

const (
	defaultAttemptLimit = 20
	maxAttemptLimit     = 100

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Summary lines shown on the results screen.
const (
	msgPassed = "Excellent driving! You're ready for the road."
	msgFailed = "Keep studying, you can do better!"
)

type questionView struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty"`
	Explanation        string   `json:"explanation,omitempty"`
}

type resultView struct {
	Score   int     `json:"score"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Passed  bool    `json:"passed"`
	Message string  `json:"message"`
}

// sessionView is the client's view of a session. The answer and explanation
// of the current question stay hidden until it is revealed.
type sessionView struct {
	ID             string        `json:"id"`
	Topic          string        `json:"topic"`
	Difficulty     string        `json:"difficulty"`
	Phase          string        `json:"phase"`
	CurrentIndex   int           `json:"currentIndex"`
	Total          int           `json:"total"`
	Score          int           `json:"score"`
	Question       *questionView `json:"question,omitempty"`
	SelectedOption *int          `json:"selectedOption,omitempty"`
	IsCorrect      *bool         `json:"isCorrect,omitempty"`
	Result         *resultView   `json:"result,omitempty"`
}

func newSessionView(id string, s quiz.Session) sessionView {
	v := sessionView{
		ID:           id,
		Topic:        s.Topic,
		Difficulty:   s.Difficulty,
		Phase:        s.Phase().String(),
		CurrentIndex: s.CurrentIndex(),
		Total:        s.Total(),
		Score:        s.Score(),
	}

	if s.Phase() == quiz.PhaseCompleted {
		score, total := s.FinalScore()
		msg := msgFailed
		if s.Passed() {
			msg = msgPassed
		}
		v.Result = &resultView{
			Score:   score,
			Total:   total,
			Percent: s.Percent(),
			Passed:  s.Passed(),
			Message: msg,
		}
		return v
	}

	q, ok := s.Current()
	if !ok {
		return v
	}
	v.Question = &questionView{
		Question: q.Question,
		Options:  q.Options,
	}
	if s.Revealed() {
		correctIdx := q.CorrectAnswerIndex
		selected := s.Answer(s.CurrentIndex())
		correct := selected == correctIdx
		v.Question.CorrectAnswerIndex = &correctIdx
		v.Question.Explanation = q.Explanation
		v.SelectedOption = &selected
		v.IsCorrect = &correct
	}
	return v
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Topic      string          `json:"topic"`
		Difficulty string          `json:"difficulty"`
		Questions  []quiz.Question `json:"questions"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	topic := strings.TrimSpace(body.Topic)
	if topic == "" {
		topic = study.MockExamTopic
	}
	difficulty := study.NormalizeDifficulty(body.Difficulty)
	client := clientID(r)

	questions := body.Questions
	if questions == nil {
		var err error
		questions, err = s.study.GenerateQuiz(r.Context(), client, topic, difficulty)
		if err != nil {
			s.studyFailed(w, err, "Unable to generate quiz questions")
			return
		}
	}

	session, err := quiz.Start(questions)
	if err != nil {
		if errors.Is(err, quiz.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, msgInvalidQuestions)
			return
		}
		slog.Error("failed to start quiz session", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	session.Topic = topic
	session.Difficulty = difficulty

	id := s.sessions.Create(session)
	s.logEvent(quiz.Event{
		SessionID: id,
		ClientID:  client,
		EventType: quiz.EventStarted,
		Data: map[string]any{
			"topic":      topic,
			"difficulty": difficulty,
			"questions":  session.Total(),
		},
	})

	writeData(w, http.StatusCreated, newSessionView(id, session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, err := s.sessions.Get(id)
	if err != nil {
		s.sessionFailed(w, err)
		return
	}
	writeData(w, http.StatusOK, newSessionView(id, session))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(r.PathValue("id"))
	writeData(w, http.StatusOK, struct{}{})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OptionIndex *int `json:"optionIndex"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.OptionIndex == nil {
		writeError(w, http.StatusBadRequest, "optionIndex is required")
		return
	}
	option := *body.OptionIndex

	id := r.PathValue("id")
	var outOfRange bool
	before, after, err := s.sessions.Update(id, func(sess quiz.Session) quiz.Session {
		if q, ok := sess.Current(); ok && sess.Phase() == quiz.PhaseUnrevealed &&
			(option < 0 || option >= len(q.Options)) {
			outOfRange = true
			return sess
		}
		return sess.Submit(option)
	})
	if err != nil {
		s.sessionFailed(w, err)
		return
	}
	if outOfRange {
		writeError(w, http.StatusBadRequest, "optionIndex out of range")
		return
	}

	if before.Phase() == quiz.PhaseUnrevealed && after.Phase() == quiz.PhaseRevealed {
		s.logEvent(quiz.Event{
			SessionID: id,
			ClientID:  clientID(r),
			EventType: quiz.EventAnswered,
			Data: map[string]any{
				"question_index": after.CurrentIndex(),
				"option_index":   option,
				"correct":        before.IsCorrect(option),
			},
		})
	}
	writeData(w, http.StatusOK, newSessionView(id, after))
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	before, after, err := s.sessions.Update(id, quiz.Session.Advance)
	if err != nil {
		s.sessionFailed(w, err)
		return
	}

	if !before.Completed() && after.Completed() {
		s.recordCompletion(r.Context(), id, clientID(r), after)
	}
	writeData(w, http.StatusOK, newSessionView(id, after))
}

// recordCompletion stores the attempt and emits the completion event.
// Failures are logged; the learner still sees their result.
func (s *Server) recordCompletion(ctx context.Context, id, client string, session quiz.Session) {
	score, total := session.FinalScore()
	s.logEvent(quiz.Event{
		SessionID: id,
		ClientID:  client,
		EventType: quiz.EventCompleted,
		Data: map[string]any{
			"score":  score,
			"total":  total,
			"passed": session.Passed(),
		},
	})

	attempt, err := quiz.NewAttempt(id, client, session, s.now())
	if err != nil {
		slog.Error("failed to build quiz attempt", "session_id", id, "error", err)
		return
	}
	if _, err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
		slog.Error("failed to save quiz attempt", "session_id", id, "error", err)
	}
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.attempts.RecentAttempts(r.Context(), attemptLimit(r))
	if err != nil {
		slog.Error("failed to list quiz attempts", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if attempts == nil {
		attempts = []quiz.Attempt{}
	}
	writeData(w, http.StatusOK, map[string]any{"attempts": attempts})
}

func (s *Server) handleAttemptsExport(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.attempts.RecentAttempts(r.Context(), attemptLimit(r))
	if err != nil {
		slog.Error("failed to list quiz attempts", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	var buf bytes.Buffer
	if err := quiz.ExportAttempts(&buf, attempts); err != nil {
		slog.Error("failed to export quiz attempts", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="quiz-attempts.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// attemptLimit reads ?limit=, clamped to [1, maxAttemptLimit].
func attemptLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultAttemptLimit
	}
	return min(n, maxAttemptLimit)
}

func (s *Server) sessionFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, quiz.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, msgSessionNotFound)
		return
	}
	slog.Error("quiz session request failed", "error", err)
	writeError(w, http.StatusInternalServerError, msgInternal)
}

func (s *Server) logEvent(e quiz.Event) {
	if err := s.events.LogEvent(e); err != nil {
		slog.Warn("failed to log quiz event", "type", e.EventType, "session_id", e.SessionID, "error", err)
	}
}
