package games

import "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/gamification"

// QuizPoints is the base award for a correct answer.
const QuizPoints = 10

// Phase is where a game is in its round cycle.
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseAnswered   Phase = "answered"
	PhaseFinished   Phase = "finished"
)

// Outcome is the scoring event produced by one answered round.
type Outcome struct {
	Correct     bool                   `json:"correct"`
	BasePoints  int                    `json:"basePoints"`
	Meta        gamification.ScoreMeta `json:"meta"`
	Record      bool                   `json:"-"`
	Explanation string                 `json:"explanation,omitempty"`
}

// Quiz walks a fixed question list in order.
type Quiz struct {
	questions []Question
	index     int
	phase     Phase
	selected  int
	correct   int
}

// NewQuiz starts a quiz on the first question.
func NewQuiz(questions []Question) *Quiz {
	return &Quiz{questions: questions, phase: PhaseInProgress, selected: -1}
}

// Answer scores choice for the current question. Every answered question yields a scoring
// event; the last one is tagged completed.
func (q *Quiz) Answer(choice int) (Outcome, error) {
	switch q.phase {
	case PhaseFinished:
		return Outcome{}, ErrFinished
	case PhaseAnswered:
		return Outcome{}, ErrAlreadyAnswered
	}

	question := q.questions[q.index]
	if choice < 0 || choice >= len(question.Options) {
		return Outcome{}, ErrInvalidChoice
	}

	q.phase = PhaseAnswered
	q.selected = choice

	out := Outcome{
		Correct:     choice == question.Answer,
		Meta:        gamification.ScoreMeta{Mission: gamification.MissionQuiz, Event: gamification.EventProgress},
		Record:      true,
		Explanation: question.Fact,
	}
	if out.Correct {
		q.correct++
		out.BasePoints = QuizPoints
	}
	if q.index == len(q.questions)-1 {
		out.Meta.Event = gamification.EventCompleted
	}
	return out, nil
}

// Next moves past an answered question, finishing after the last one.
func (q *Quiz) Next() error {
	switch q.phase {
	case PhaseFinished:
		return ErrFinished
	case PhaseInProgress:
		return ErrNotAnswered
	}

	q.selected = -1
	if q.index == len(q.questions)-1 {
		q.phase = PhaseFinished
		return nil
	}
	q.index++
	q.phase = PhaseInProgress
	return nil
}

// QuizView is the client-facing state. The answer index is only revealed once answered.
type QuizView struct {
	Phase         Phase     `json:"phase"`
	Index         int       `json:"index"`
	Total         int       `json:"total"`
	Correct       int       `json:"correct"`
	Question      *Question `json:"question,omitempty"`
	Selected      *int      `json:"selected,omitempty"`
	CorrectOption *int      `json:"correctOption,omitempty"`
}

// View snapshots the quiz for display.
func (q *Quiz) View() QuizView {
	v := QuizView{Phase: q.phase, Index: q.index, Total: len(q.questions), Correct: q.correct}
	if q.phase == PhaseFinished {
		return v
	}
	question := q.questions[q.index]
	v.Question = &question
	if q.phase == PhaseAnswered {
		selected, answer := q.selected, question.Answer
		v.Selected = &selected
		v.CorrectOption = &answer
	}
	return v
}
