package quiz

// Phase is the externally visible state of a session.
type Phase int

const (
	PhaseLoading    Phase = iota // no questions yet
	PhaseUnrevealed              // waiting for an answer to the current question
	PhaseRevealed                // answer and explanation shown
	PhaseCompleted               // terminal
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseUnrevealed:
		return "unrevealed"
	case PhaseRevealed:
		return "revealed"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// NoAnswer marks a question that has not been answered.
const NoAnswer = -1

// Session is one quiz attempt over a fixed, ordered question list.
//
// Session is a value: transitions return an updated copy and never modify
// the receiver. The zero Session is in PhaseLoading and ignores all
// transitions.
type Session struct {
	Topic      string
	Difficulty string

	questions []Question
	answers   []int
	current   int
	score     int
	revealed  bool
	completed bool
}

// Start begins a session over questions, in the order given.
func Start(questions []Question) (Session, error) {
	if err := ValidateQuestions(questions); err != nil {
		return Session{}, err
	}
	answers := make([]int, len(questions))
	for i := range answers {
		answers[i] = NoAnswer
	}
	return Session{
		questions: cloneQuestions(questions),
		answers:   answers,
	}, nil
}

// Submit records optionIdx as the answer to the current question and
// reveals it. The score goes up by one when the answer is correct. Submit is
// a no-op once the question is revealed or the session is complete.
func (s Session) Submit(optionIdx int) Session {
	if s.Phase() != PhaseUnrevealed {
		return s
	}
	if optionIdx == s.questions[s.current].CorrectAnswerIndex {
		s.score++
	}
	answers := append([]int(nil), s.answers...)
	answers[s.current] = optionIdx
	s.answers = answers
	s.revealed = true
	return s
}

// Advance moves to the next question, or completes the session after the
// last one. It is a no-op unless the current question is revealed.
func (s Session) Advance() Session {
	if s.Phase() != PhaseRevealed {
		return s
	}
	if s.current < len(s.questions)-1 {
		s.current++
		s.revealed = false
		return s
	}
	s.completed = true
	return s
}

// FinalScore returns the current score and the number of questions.
func (s Session) FinalScore() (score, total int) {
	return s.score, len(s.questions)
}

// Phase reports where the session is in its lifecycle.
func (s Session) Phase() Phase {
	switch {
	case len(s.questions) == 0:
		return PhaseLoading
	case s.completed:
		return PhaseCompleted
	case s.revealed:
		return PhaseRevealed
	default:
		return PhaseUnrevealed
	}
}

func (s Session) CurrentIndex() int { return s.current }
func (s Session) Score() int        { return s.score }
func (s Session) Total() int        { return len(s.questions) }
func (s Session) Revealed() bool    { return s.revealed }
func (s Session) Completed() bool   { return s.completed }

// Current returns the question at the cursor. ok is false for a session
// with no questions.
func (s Session) Current() (q Question, ok bool) {
	if len(s.questions) == 0 {
		return Question{}, false
	}
	return s.questions[s.current], true
}

// Answer returns the option chosen for question i, or NoAnswer.
func (s Session) Answer(i int) int {
	if i < 0 || i >= len(s.answers) {
		return NoAnswer
	}
	return s.answers[i]
}

// IsCorrect reports whether optionIdx is the right answer to the current
// question.
func (s Session) IsCorrect(optionIdx int) bool {
	q, ok := s.Current()
	return ok && optionIdx == q.CorrectAnswerIndex
}

// Questions returns a copy of the question list.
func (s Session) Questions() []Question {
	return cloneQuestions(s.questions)
}

// Percent returns the score as a percentage of the question count.
func (s Session) Percent() float64 {
	if len(s.questions) == 0 {
		return 0
	}
	return float64(s.score) * 100 / float64(len(s.questions))
}

// PassMark is the fraction of correct answers above which a result counts
// as ready for the road.
const PassMark = 0.7

// Passed reports whether the score is strictly above PassMark.
func (s Session) Passed() bool {
	if len(s.questions) == 0 {
		return false
	}
	return float64(s.score)/float64(len(s.questions)) > PassMark
}
