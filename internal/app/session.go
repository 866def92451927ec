package app

import (
	"fmt"
	"sync"

	"trivia-quiz-service/internal/domain"
)

// State is the position of a session in the quiz flow.
type State string

const (
	StateAwaitingAnswer State = "awaiting_answer"
	StateAnswerChecked  State = "answer_checked"
	StateCompleted      State = "completed"
	// StateEmpty marks a session built from zero questions; no transition is valid.
	StateEmpty State = "empty"
)

// Feedback is the result of checking one answer.
type Feedback struct {
	Correct       bool   `json:"correct"`
	Selected      string `json:"selected"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
	Message       string `json:"message,omitempty"`
}

// Session is one run through a fixed question list. All mutation goes through
// SelectAnswer, CheckAnswer and NextQuestion.
type Session struct {
	mu sync.Mutex

	id        string
	tier      domain.DifficultyTier
	language  string
	questions []domain.Question

	index       int
	selected    string
	hasSelected bool
	state       State
	score       int
	feedback    *Feedback
}

// NewSession starts a session at the first question.
func NewSession(id string, tier domain.DifficultyTier, language string, questions []domain.Question) *Session {
	state := StateAwaitingAnswer
	if len(questions) == 0 {
		state = StateEmpty
	}
	return &Session{
		id:        id,
		tier:      tier,
		language:  language,
		questions: questions,
		state:     state,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectAnswer records option as the pending answer. Repeated calls replace it.
func (s *Session) SelectAnswer(option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingAnswer {
		return s.transitionError("select answer")
	}
	if !s.questions[s.index].HasOption(option) {
		return fmt.Errorf("%w: %q", domain.ErrOptionNotFound, option)
	}
	s.selected = option
	s.hasSelected = true
	return nil
}

// CheckAnswer scores the pending answer against the current question.
func (s *Session) CheckAnswer() (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingAnswer {
		return Feedback{}, s.transitionError("check answer")
	}
	if !s.hasSelected {
		return Feedback{}, fmt.Errorf("%w: check answer without a selection", domain.ErrInvalidTransition)
	}

	q := s.questions[s.index]
	fb := Feedback{
		Correct:       s.selected == q.CorrectAnswer,
		Selected:      s.selected,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}
	if fb.Correct {
		s.score++
	}
	s.feedback = &fb
	s.state = StateAnswerChecked
	return fb, nil
}

// NextQuestion advances past a checked answer. It reports done=true together
// with the outcome when the last question has been passed.
func (s *Session) NextQuestion() (outcome domain.Outcome, done bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAnswerChecked {
		return domain.Outcome{}, false, s.transitionError("next question")
	}

	if s.index+1 < len(s.questions) {
		s.index++
		s.selected = ""
		s.hasSelected = false
		s.feedback = nil
		s.state = StateAwaitingAnswer
		return domain.Outcome{}, false, nil
	}

	s.state = StateCompleted
	return s.outcomeLocked(), true, nil
}

// Outcome returns the running score and the question count.
func (s *Session) Outcome() domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcomeLocked()
}

func (s *Session) outcomeLocked() domain.Outcome {
	return domain.Outcome{Score: s.score, Total: len(s.questions)}
}

func (s *Session) transitionError(op string) error {
	return fmt.Errorf("%w: %s in state %s", domain.ErrInvalidTransition, op, s.state)
}

// QuestionView is a question as shown before its answer is revealed.
type QuestionView struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// SessionView is a read-only snapshot for presentation.
type SessionView struct {
	ID         string                `json:"id"`
	Difficulty domain.DifficultyTier `json:"difficulty"`
	Language   string                `json:"language"`
	State      State                 `json:"state"`
	Index      int                   `json:"index"`
	Total      int                   `json:"total"`
	Score      int                   `json:"score"`
	Question   *QuestionView         `json:"question,omitempty"`
	Selected   string                `json:"selected,omitempty"`
	Feedback   *Feedback             `json:"feedback,omitempty"`
	Outcome    *domain.Outcome       `json:"outcome,omitempty"`
}

// View renders the session without exposing the correct answer of an unchecked question.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := SessionView{
		ID:         s.id,
		Difficulty: s.tier,
		Language:   s.language,
		State:      s.state,
		Index:      s.index,
		Total:      len(s.questions),
		Score:      s.score,
		Selected:   s.selected,
	}
	switch s.state {
	case StateAwaitingAnswer, StateAnswerChecked:
		q := s.questions[s.index]
		v.Question = &QuestionView{Text: q.Text, Options: append([]string(nil), q.Options...)}
		if s.feedback != nil {
			fb := *s.feedback
			v.Feedback = &fb
		}
	case StateCompleted:
		out := s.outcomeLocked()
		v.Outcome = &out
	}
	return v
}

// SessionSnapshot is the serializable form of a session.
type SessionSnapshot struct {
	ID          string                `json:"id"`
	Tier        domain.DifficultyTier `json:"tier"`
	Language    string                `json:"language"`
	Questions   []domain.Question     `json:"questions"`
	Index       int                   `json:"index"`
	Selected    string                `json:"selected"`
	HasSelected bool                  `json:"hasSelected"`
	State       State                 `json:"state"`
	Score       int                   `json:"score"`
	Feedback    *Feedback             `json:"feedback,omitempty"`
}

// Snapshot captures the full session state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		ID:          s.id,
		Tier:        s.tier,
		Language:    s.language,
		Questions:   s.questions,
		Index:       s.index,
		Selected:    s.selected,
		HasSelected: s.hasSelected,
		State:       s.state,
		Score:       s.score,
	}
	if s.feedback != nil {
		fb := *s.feedback
		snap.Feedback = &fb
	}
	return snap
}

// RestoreSession rebuilds a session from a snapshot, rejecting inconsistent ones.
func RestoreSession(snap SessionSnapshot) (*Session, error) {
	n := len(snap.Questions)
	switch snap.State {
	case StateEmpty:
		if n != 0 {
			return nil, fmt.Errorf("restore session %s: empty state with %d questions", snap.ID, n)
		}
	case StateAwaitingAnswer, StateAnswerChecked, StateCompleted:
		if snap.Index < 0 || snap.Index >= n {
			return nil, fmt.Errorf("restore session %s: index %d out of range", snap.ID, snap.Index)
		}
	default:
		return nil, fmt.Errorf("restore session %s: unknown state %q", snap.ID, snap.State)
	}
	if snap.Score < 0 || snap.Score > n {
		return nil, fmt.Errorf("restore session %s: score %d out of range", snap.ID, snap.Score)
	}

	s := &Session{
		id:          snap.ID,
		tier:        snap.Tier,
		language:    snap.Language,
		questions:   snap.Questions,
		index:       snap.Index,
		selected:    snap.Selected,
		hasSelected: snap.HasSelected,
		state:       snap.State,
		score:       snap.Score,
	}
	if snap.Feedback != nil {
		fb := *snap.Feedback
		s.feedback = &fb
	}
	return s, nil
}
