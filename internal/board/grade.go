package board

import (
	"fmt"
	"strings"
)

// Phase is the state of the submit control.
type Phase int

const (
	Placing Phase = iota
	ReadyToCheck
	GradedIncorrect
	GradedCorrect
	LessonAdvanceReady
)

func (p Phase) String() string {
	switch p {
	case Placing:
		return "placing"
	case ReadyToCheck:
		return "ready"
	case GradedIncorrect:
		return "incorrect"
	case GradedCorrect:
		return "correct"
	case LessonAdvanceReady:
		return "lesson_end"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Transition is what a Submit did.
type Transition int

const (
	// TransitionGraded means the answer row was graded; see Won.
	TransitionGraded Transition = iota
	// TransitionNextRound means the next sentence of the lesson was rendered.
	TransitionNextRound
	// TransitionLessonEnd means the last sentence was solved and the next
	// Submit moves to a new lesson.
	TransitionLessonEnd
	// TransitionNextLesson means the provider moved to a new lesson. Its
	// picture must be loaded and passed to ImageLoaded before play resumes.
	TransitionNextLesson
)

func (t Transition) String() string {
	switch t {
	case TransitionGraded:
		return "graded"
	case TransitionNextRound:
		return "next_round"
	case TransitionLessonEnd:
		return "lesson_end"
	case TransitionNextLesson:
		return "next_lesson"
	default:
		return fmt.Sprintf("Transition(%d)", int(t))
	}
}

func (t Transition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Phase derives the submit state from the board flags.
func (b *Board) Phase() Phase {
	switch {
	case b.lessonEnd:
		return LessonAdvanceReady
	case b.won:
		return GradedCorrect
	case b.marked:
		return GradedIncorrect
	case b.submitVisible:
		return ReadyToCheck
	default:
		return Placing
	}
}

// Won reports whether the current answer row has been accepted.
func (b *Board) Won() bool {
	return b.won
}

// IsComplete reports whether every tile has left the source row, and shows
// or hides the submit control to match.
func (b *Board) IsComplete() bool {
	if len(b.tiles) == 0 {
		return false
	}

	complete := true
	for _, s := range b.slots[Source] {
		if s.tile != empty {
			complete = false
			break
		}
	}

	b.submitVisible = complete

	return complete
}

// MarkAnswer grades the answer row slot by slot. Every answer slot must hold
// a tile.
func (b *Board) MarkAnswer() (bool, error) {
	if err := b.rendered(); err != nil {
		return false, err
	}

	for i, s := range b.slots[Answer] {
		if s.tile == empty {
			return false, fmt.Errorf("%w: slot %d is empty", ErrIncomplete, i)
		}
	}

	won := true
	for i := range b.slots[Answer] {
		s := &b.slots[Answer][i]
		if b.tiles[s.tile].Col == i {
			s.mark = MarkSuccess
		} else {
			s.mark = MarkError
			won = false
		}
	}

	b.marked = true
	b.won = won

	return won, nil
}

// clearMarks removes grading highlights. An accepted answer is un-accepted,
// since the player is changing it.
func (b *Board) clearMarks() {
	if !b.marked && !b.won {
		return
	}

	b.marked = false
	for i := range b.slots[Answer] {
		b.slots[Answer][i].mark = MarkNone
	}

	if b.won {
		b.won = false
		b.label = LabelCheck
	}
}

// ShowAnswer puts every tile in its correct answer slot and accepts the
// round.
func (b *Board) ShowAnswer() error {
	if err := b.open(); err != nil {
		return err
	}

	b.clearMarks()

	for i := range b.tiles {
		b.slots[Answer][b.tiles[i].Col] = slot{tile: i}
		b.slots[Source][i] = slot{tile: empty}
	}

	b.won = true
	b.label = LabelContinue
	b.submitVisible = true
	b.closeDrags()

	return nil
}

// closeDrags ends every drag in progress on the current layout.
func (b *Board) closeDrags() {
	for i := range b.tiles {
		b.tiles[i].Dragging = false
	}
	for g := range b.slots {
		for i := range b.slots[g] {
			b.slots[g][i].highlight = false
		}
	}
	b.gen++
}

// sentence returns the words of round in the current lesson.
func (b *Board) sentence(round int) []string {
	l, ok := b.provider.CurrentLesson()
	if !ok || round < 0 || round >= len(l.Words) {
		return nil
	}
	return strings.Fields(l.Words[round].TextExample)
}

// Submit presses the submit control: it grades the answer, moves to the
// next round, or moves to the next lesson, depending on the phase.
func (b *Board) Submit() (Transition, error) {
	if err := b.rendered(); err != nil {
		return 0, err
	}
	if !b.submitVisible {
		return 0, ErrSubmitHidden
	}

	if b.lessonEnd {
		b.retire()
		b.provider.NextLesson()
		b.picture = nil
		b.label = LabelCheck
		b.lessonEnd = false
		b.won = false
		b.marked = false
		b.submitVisible = false
		b.loaded = false
		b.imageURL = ""
		return TransitionNextLesson, nil
	}

	if !b.won {
		won, err := b.MarkAnswer()
		if err != nil {
			return 0, err
		}
		if won {
			b.label = LabelContinue
		}
		return TransitionGraded, nil
	}

	// Nothing changes unless the next round can be laid out.
	next := b.provider.Round() + 1
	if next < b.provider.LessonLength() && len(b.sentence(next)) == 0 {
		return 0, fmt.Errorf("round %d: %w", next, ErrEmptySentence)
	}

	b.clearMarks()
	b.provider.NextRound()

	if b.provider.Round() < b.provider.LessonLength() {
		if err := b.RenderRound(); err != nil {
			return 0, err
		}
		b.label = LabelCheck
		return TransitionNextRound, nil
	}

	b.label = LabelNextLesson
	b.lessonEnd = true
	b.closeDrags()

	return TransitionLessonEnd, nil
}
