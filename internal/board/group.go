package board

import "fmt"

// Group is one of the two rows of slots.
type Group int

const (
	// Source is the shuffled holding row.
	Source Group = iota
	// Answer is the ordered row that rebuilds the picture.
	Answer
)

func (g Group) valid() bool {
	return g == Source || g == Answer
}

// Opposite returns the other group.
func (g Group) Opposite() Group {
	if g == Source {
		return Answer
	}
	return Source
}

func (g Group) String() string {
	switch g {
	case Source:
		return "source"
	case Answer:
		return "answer"
	default:
		return fmt.Sprintf("Group(%d)", int(g))
	}
}

// ParseGroup is the inverse of String.
func ParseGroup(s string) (Group, error) {
	switch s {
	case "source":
		return Source, nil
	case "answer":
		return Answer, nil
	}
	return 0, fmt.Errorf("%w: group %q", ErrUnknownSlot, s)
}

func (g Group) MarshalText() ([]byte, error) {
	if !g.valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, g)
	}
	return []byte(g.String()), nil
}

func (g *Group) UnmarshalText(text []byte) error {
	v, err := ParseGroup(string(text))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// SlotRef addresses one slot.
type SlotRef struct {
	Group Group `json:"group"`
	Index int   `json:"index"`
}

func (r SlotRef) String() string {
	return fmt.Sprintf("%s-%d", r.Group, r.Index)
}

// Mark is the grading highlight on an answer slot.
type Mark int

const (
	MarkNone Mark = iota
	MarkSuccess
	MarkError
)

func (m Mark) String() string {
	switch m {
	case MarkSuccess:
		return "success"
	case MarkError:
		return "error"
	default:
		return ""
	}
}

func (m Mark) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
