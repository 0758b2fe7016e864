package board

import "github.com/Seednode/puzzlebox/internal/picture"

// TileView is a tile as the client draws it.
type TileView struct {
	ID int `json:"id"`
	Tile
}

// SlotView is one slot and its occupant, if any.
type SlotView struct {
	Index     int  `json:"index"`
	Tile      *int `json:"tile"`
	Mark      Mark `json:"mark"`
	Highlight bool `json:"highlight"`
}

// RowView is a finished sentence strip of the picture.
type RowView struct {
	Row   int        `json:"row"`
	Tiles []TileView `json:"tiles"`
}

// LessonView describes the picture being rebuilt.
type LessonView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Author string `json:"author"`
	Year   string `json:"year"`
	Index  int    `json:"index"`
	Length int    `json:"length"`
	Round  int    `json:"round"`
}

// Snapshot is the complete visible state of a Board.
type Snapshot struct {
	Lesson      LessonView   `json:"lesson"`
	ImageURL    string       `json:"imageUrl"`
	Image       picture.Size `json:"image"`
	StripWidth  float64      `json:"stripWidth"`
	StripHeight float64      `json:"stripHeight"`

	Tiles   []TileView `json:"tiles"`
	Sources []SlotView `json:"sources"`
	Answers []SlotView `json:"answers"`

	Picture    []RowView `json:"picture"`
	PuzzleRows int       `json:"puzzleRows"`

	Phase         Phase  `json:"phase"`
	SubmitVisible bool   `json:"submitVisible"`
	SubmitLabel   string `json:"submitLabel"`
	Marked        bool   `json:"marked"`
	Won           bool   `json:"won"`
	LessonEnd     bool   `json:"lessonEnd"`
	Background    bool   `json:"background"`
	Rendered      bool   `json:"rendered"`
}

// lessonIndexer is implemented by providers that know which lesson of their
// collection is current.
type lessonIndexer interface {
	Lesson() int
}

// Snapshot copies the board state for rendering.
func (b *Board) Snapshot() Snapshot {
	s := Snapshot{
		ImageURL:      b.imageURL,
		Image:         b.image,
		StripWidth:    b.stripWidth,
		StripHeight:   b.stripHeight,
		Tiles:         make([]TileView, 0, len(b.tiles)),
		Sources:       slotViews(b.slots[Source]),
		Answers:       slotViews(b.slots[Answer]),
		Picture:       make([]RowView, 0, len(b.picture)),
		PuzzleRows:    b.puzzleRows,
		Phase:         b.Phase(),
		SubmitVisible: b.submitVisible,
		SubmitLabel:   b.label,
		Marked:        b.marked,
		Won:           b.won,
		LessonEnd:     b.lessonEnd,
		Background:    b.background,
		Rendered:      len(b.tiles) > 0,
	}

	if l, ok := b.provider.CurrentLesson(); ok {
		s.Lesson = LessonView{
			ID:     l.LevelData.ID,
			Name:   l.LevelData.Name,
			Author: l.LevelData.Author,
			Year:   l.LevelData.Year,
			Length: b.provider.LessonLength(),
			Round:  b.provider.Round(),
		}
		if li, ok := b.provider.(lessonIndexer); ok {
			s.Lesson.Index = li.Lesson()
		}
	}

	for i, t := range b.tiles {
		s.Tiles = append(s.Tiles, TileView{ID: i, Tile: t})
	}

	for _, r := range b.picture {
		rv := RowView{Row: r.row, Tiles: make([]TileView, 0, len(r.tiles))}
		for _, t := range r.tiles {
			rv.Tiles = append(rv.Tiles, TileView{ID: t.Col, Tile: t})
		}
		s.Picture = append(s.Picture, rv)
	}

	return s
}

func slotViews(slots []slot) []SlotView {
	views := make([]SlotView, len(slots))
	for i, sl := range slots {
		views[i] = SlotView{Index: i, Mark: sl.mark, Highlight: sl.highlight}
		if sl.tile != empty {
			t := sl.tile
			views[i].Tile = &t
		}
	}
	return views
}
