package attempt

import "github.com/victornm/examiner/internal/domain"

// Ledger records the option currently selected for each question of an attempt.
// A question that was selected and then cleared is kept with a nil selection,
// which is distinct from a question never touched.
type Ledger struct {
	selected map[string]*int
	order    []string
}

func NewLedger() *Ledger {
	return &Ledger{selected: make(map[string]*int)}
}

// Toggle selects option for the question, or clears it when it is already selected.
// It returns the selection after the change.
func (l *Ledger) Toggle(questionID string, option int) *int {
	cur, seen := l.selected[questionID]
	if !seen {
		l.order = append(l.order, questionID)
	}

	if cur != nil && *cur == option {
		l.selected[questionID] = nil
		return nil
	}

	sel := option
	l.selected[questionID] = &sel
	return &sel
}

// Selected returns the selection of the question and whether it was ever touched.
func (l *Ledger) Selected(questionID string) (*int, bool) {
	sel, ok := l.selected[questionID]
	if sel == nil {
		return nil, ok
	}

	v := *sel
	return &v, ok
}

// Answers returns every touched question in first-touch order.
func (l *Ledger) Answers() []domain.Answer {
	out := make([]domain.Answer, 0, len(l.order))
	for _, id := range l.order {
		sel, _ := l.Selected(id)
		out = append(out, domain.Answer{QuestionID: id, Selected: sel})
	}

	return out
}

// Attempted counts the questions with a selection.
func (l *Ledger) Attempted() int {
	n := 0
	for _, sel := range l.selected {
		if sel != nil {
			n++
		}
	}

	return n
}
