package lessons

import "strings"

// Progress walks a collection lesson by lesson and round by round. It is not
// safe for concurrent use; each game owns its own Progress.
type Progress struct {
	collection *Collection
	lesson     int
	round      int
}

// NewProgress starts at the first round of the first lesson.
func NewProgress(c *Collection) *Progress {
	return &Progress{collection: c}
}

// Start moves to the first round of lesson n, if it exists.
func (p *Progress) Start(n int) bool {
	if p.collection == nil || n < 0 || n >= len(p.collection.Rounds) {
		return false
	}
	p.lesson = n
	p.round = 0
	return true
}

// CurrentLesson returns the active lesson, or false when the collection is
// empty.
func (p *Progress) CurrentLesson() (*Lesson, bool) {
	if p.collection == nil || p.lesson >= len(p.collection.Rounds) {
		return nil, false
	}
	return &p.collection.Rounds[p.lesson], true
}

// Sentence returns the sentence of the current round, or "" past the end of
// the lesson.
func (p *Progress) Sentence() string {
	l, ok := p.CurrentLesson()
	if !ok || p.round >= len(l.Words) {
		return ""
	}
	return strings.TrimSpace(l.Words[p.round].TextExample)
}

func (p *Progress) Round() int {
	return p.round
}

func (p *Progress) Lesson() int {
	return p.lesson
}

func (p *Progress) LessonLength() int {
	l, ok := p.CurrentLesson()
	if !ok {
		return 0
	}
	return len(l.Words)
}

func (p *Progress) NextRound() {
	p.round++
}

// NextLesson moves to the first round of the following lesson, wrapping to
// the first lesson after the last.
func (p *Progress) NextLesson() {
	p.round = 0
	if p.collection == nil || len(p.collection.Rounds) == 0 {
		return
	}
	p.lesson = (p.lesson + 1) % len(p.collection.Rounds)
}
