package board

import "strings"

// RenderRound retires the previous round, if any, and lays out the current
// sentence: one tile and one source/answer slot pair per word, with the
// tiles shuffled into the source row.
func (b *Board) RenderRound() error {
	if !b.loaded {
		return ErrNoImage
	}

	words := strings.Fields(b.provider.Sentence())
	if len(words) == 0 {
		return ErrEmptySentence
	}

	if len(b.tiles) > 0 {
		b.retire()
	}

	b.submitVisible = false
	b.marked = false
	b.gen++

	n := len(words)
	b.row = b.provider.Round()
	b.stripWidth = float64(b.image.Width) / float64(n)
	b.stripHeight = float64(b.image.Height) / Rows

	b.tiles = make([]Tile, n)
	for col, word := range words {
		b.tiles[col] = Tile{
			Word:       word,
			Row:        b.row,
			Col:        col,
			OffsetX:    float64(col) * b.stripWidth,
			OffsetY:    float64(b.row) * b.stripHeight,
			Width:      b.stripWidth,
			Height:     b.stripHeight,
			Background: b.background,
		}
	}

	for g := range b.slots {
		b.slots[g] = make([]slot, n)
		for i := range b.slots[g] {
			b.slots[g][i].tile = empty
		}
	}

	b.shuffle()

	return nil
}

// shuffle fills the source row from last slot to first, each time taking a
// uniformly random tile from those not yet placed.
func (b *Board) shuffle() {
	remaining := make([]int, len(b.tiles))
	for i := range remaining {
		remaining[i] = i
	}

	sources := b.slots[Source]
	for i := len(sources) - 1; i >= 0; i-- {
		k := b.rng.IntN(len(remaining))
		sources[i].tile = remaining[k]
		remaining = append(remaining[:k], remaining[k+1:]...)
	}
}

// retire freezes the current round into the picture: tiles keep the
// picture as background and stop reacting, the answer row becomes a picture
// row and the source row is dropped.
func (b *Board) retire() {
	row := pictureRow{row: b.row}
	for _, s := range b.slots[Answer] {
		if s.tile == empty {
			continue
		}
		t := b.tiles[s.tile]
		t.Background = true
		t.Dragging = false
		t.Retired = true
		row.tiles = append(row.tiles, t)
	}
	b.picture = append(b.picture, row)

	if b.opts.KeepPuzzleRows {
		b.puzzleRows++
	}

	b.tiles = nil
	b.slots = [2][]slot{}
}
