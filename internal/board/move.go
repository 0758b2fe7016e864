package board

import "fmt"

// Locate reports which slot holds tile.
func (b *Board) Locate(tile int) (SlotRef, bool) {
	for g := range b.slots {
		for i, s := range b.slots[g] {
			if s.tile == tile {
				return SlotRef{Group: Group(g), Index: i}, true
			}
		}
	}
	return SlotRef{}, false
}

// TileAt returns the tile held by ref.
func (b *Board) TileAt(ref SlotRef) (int, bool) {
	if !b.validRef(ref) {
		return empty, false
	}
	t := b.slots[ref.Group][ref.Index].tile
	return t, t != empty
}

func (b *Board) validRef(ref SlotRef) bool {
	return ref.Group.valid() && ref.Index >= 0 && ref.Index < len(b.slots[ref.Group])
}

func (b *Board) checkTile(tile int) error {
	if tile < 0 || tile >= len(b.tiles) {
		return fmt.Errorf("%w: %d", ErrUnknownTile, tile)
	}
	return nil
}

// Place moves tile into slot index of group, or into the first empty slot
// of group when index is nil. The tile leaves its previous slot. A move
// withdraws any grading and re-evaluates completion.
func (b *Board) Place(tile int, group Group, index *int) error {
	if err := b.open(); err != nil {
		return err
	}
	if err := b.checkTile(tile); err != nil {
		return err
	}
	if !group.valid() {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, group)
	}

	from, placed := b.Locate(tile)

	var to SlotRef
	if index != nil {
		to = SlotRef{Group: group, Index: *index}
		if !b.validRef(to) {
			return fmt.Errorf("%w: %s", ErrUnknownSlot, to)
		}
		if occupant := b.slots[group][*index].tile; occupant != empty {
			if occupant == tile {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrSlotOccupied, to)
		}
	} else {
		if placed {
			b.slots[from.Group][from.Index].tile = empty
		}
		i, ok := b.firstEmpty(group)
		if !ok {
			if placed {
				b.slots[from.Group][from.Index].tile = tile
			}
			return fmt.Errorf("%w: %s", ErrGroupFull, group)
		}
		to = SlotRef{Group: group, Index: i}
	}

	b.clearMarks()

	if placed {
		b.slots[from.Group][from.Index].tile = empty
	}
	b.slots[to.Group][to.Index].tile = tile

	b.IsComplete()

	return nil
}

func (b *Board) firstEmpty(g Group) (int, bool) {
	for i, s := range b.slots[g] {
		if s.tile == empty {
			return i, true
		}
	}
	return 0, false
}

// Click moves tile to the first empty slot of the other group.
func (b *Board) Click(tile int) error {
	if err := b.open(); err != nil {
		return err
	}
	if err := b.checkTile(tile); err != nil {
		return err
	}

	from, ok := b.Locate(tile)
	if !ok {
		return fmt.Errorf("%w: %d is not in a slot", ErrUnknownTile, tile)
	}

	return b.Place(tile, from.Group.Opposite(), nil)
}

// DragSession follows one tile from drag start to drag end. It belongs to
// the layout it started on; once the round is re-rendered or the answer is
// shown it is closed.
type DragSession struct {
	tile     int
	gen      int
	over     SlotRef
	hovering bool
}

// Tile returns the dragged tile.
func (s DragSession) Tile() int {
	return s.tile
}

// Target returns the slot under the pointer, if any.
func (s DragSession) Target() (SlotRef, bool) {
	return s.over, s.hovering
}

// DragStart lifts tile. Clients should apply the dragging style on the next
// tick so the browser still captures the tile as the drag image.
func (b *Board) DragStart(tile int) (DragSession, error) {
	if err := b.open(); err != nil {
		return DragSession{}, err
	}
	if err := b.checkTile(tile); err != nil {
		return DragSession{}, err
	}

	b.clearMarks()
	b.tiles[tile].Dragging = true

	return DragSession{tile: tile, gen: b.gen}, nil
}

// DragOver highlights ref as the drop target of s.
func (b *Board) DragOver(s DragSession, ref SlotRef) (DragSession, error) {
	if err := b.current(s); err != nil {
		return s, err
	}
	if !b.validRef(ref) {
		return s, fmt.Errorf("%w: %s", ErrUnknownSlot, ref)
	}

	if s.hovering && s.over != ref && b.validRef(s.over) {
		b.slots[s.over.Group][s.over.Index].highlight = false
	}

	b.slots[ref.Group][ref.Index].highlight = true
	s.over = ref
	s.hovering = true

	return s, nil
}

func (b *Board) current(s DragSession) error {
	if err := b.rendered(); err != nil {
		return err
	}
	if s.gen != b.gen {
		return fmt.Errorf("%w: drag started on an earlier layout", ErrInteractionClosed)
	}
	return nil
}

// DragLeave drops the highlighted target of s.
func (b *Board) DragLeave(s DragSession) DragSession {
	if s.hovering && s.gen == b.gen && b.validRef(s.over) {
		b.slots[s.over.Group][s.over.Index].highlight = false
	}
	s.over = SlotRef{}
	s.hovering = false
	return s
}

// DragEnd drops the tile on the tracked target, if there is one. Dragging
// and highlight state is cleared and completion re-evaluated whether or not
// the tile moved.
func (b *Board) DragEnd(s DragSession) (bool, error) {
	if err := b.current(s); err != nil {
		return false, err
	}

	var err error
	moved := false
	if s.hovering {
		index := s.over.Index
		if err = b.Place(s.tile, s.over.Group, &index); err == nil {
			moved = true
		}
	}

	if s.tile >= 0 && s.tile < len(b.tiles) {
		b.tiles[s.tile].Dragging = false
	}
	for g := range b.slots {
		for i := range b.slots[g] {
			b.slots[g][i].highlight = false
		}
	}

	b.IsComplete()

	return moved, err
}
