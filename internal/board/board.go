/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package board implements the sentence puzzle: a picture cut into strips,
// one strip per word, that the player rebuilds by moving word tiles from a
// shuffled source row into an ordered answer row.
//
// A Board is not safe for concurrent use. Callers serialize every method
// call, typically on a single event loop per game.
package board

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Seednode/puzzlebox/internal/lessons"
	"github.com/Seednode/puzzlebox/internal/picture"
)

// Rows is the number of sentence strips every lesson picture is cut into.
const Rows = 10

const (
	LabelCheck      = "Check"
	LabelContinue   = "Continue"
	LabelNextLesson = "Next lesson"
)

var (
	ErrNoLesson          = errors.New("no current lesson")
	ErrImageLoad         = picture.ErrLoad
	ErrNoImage           = errors.New("lesson image not loaded")
	ErrEmptySentence     = errors.New("sentence has no words")
	ErrNotRendered       = errors.New("no round rendered")
	ErrUnknownTile       = errors.New("unknown tile")
	ErrUnknownSlot       = errors.New("unknown slot")
	ErrSlotOccupied      = errors.New("slot already holds a tile")
	ErrGroupFull         = errors.New("no empty slot in group")
	ErrIncomplete        = errors.New("answer row is not full")
	ErrSubmitHidden      = errors.New("submit is not available")
	ErrInteractionClosed = errors.New("round is finished")
)

// Provider supplies lessons and tracks the player's position in them.
type Provider interface {
	CurrentLesson() (*lessons.Lesson, bool)
	Sentence() string
	Round() int
	LessonLength() int
	NextRound()
	NextLesson()
}

// ImageLoader resolves the pixel size of a lesson picture.
type ImageLoader interface {
	Load(ctx context.Context, url string) (picture.Size, error)
}

// Options configure a Board.
type Options struct {
	// Background shows the picture on unsolved tiles.
	Background bool

	// KeepPuzzleRows leaves the emptied puzzle row of each finished round in
	// place instead of removing it.
	KeepPuzzleRows bool

	// ImageBase is prepended to each lesson's image path.
	ImageBase string

	// Rand drives the shuffle. A nil Rand is seeded from the clock.
	Rand *rand.Rand
}

// Tile is one word of the current sentence and the picture strip under it.
type Tile struct {
	Word string `json:"word"`

	// Row and Col are the tile's place in the picture; Col is also the index
	// of the answer slot it belongs in.
	Row int `json:"row"`
	Col int `json:"col"`

	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`

	Background bool `json:"background"`
	Dragging   bool `json:"dragging"`
	Retired    bool `json:"retired"`
}

type slot struct {
	tile      int
	mark      Mark
	highlight bool
}

const empty = -1

type pictureRow struct {
	row   int
	tiles []Tile
}

// Board holds one player's puzzle.
type Board struct {
	provider Provider
	opts     Options
	rng      *rand.Rand

	imageURL string
	image    picture.Size
	loaded   bool

	row         int
	gen         int
	stripWidth  float64
	stripHeight float64
	tiles       []Tile
	slots       [2][]slot

	picture    []pictureRow
	puzzleRows int

	background    bool
	submitVisible bool
	label         string
	marked        bool
	won           bool
	lessonEnd     bool
}

// New returns a Board reading lessons from p. Nothing is rendered until the
// lesson picture has loaded; see Initialize and ImageLoaded.
func New(p Provider, opts Options) *Board {
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	return &Board{
		provider:   p,
		opts:       opts,
		rng:        rng,
		background: opts.Background,
		label:      LabelCheck,
	}
}

// ImageSource returns the URL of the current lesson's picture.
func (b *Board) ImageSource() (string, error) {
	l, ok := b.provider.CurrentLesson()
	if !ok {
		return "", ErrNoLesson
	}
	return b.opts.ImageBase + l.LevelData.ImageSrc, nil
}

// ImageLoaded records the picture size and renders the current round.
func (b *Board) ImageLoaded(size picture.Size) error {
	src, err := b.ImageSource()
	if err != nil {
		return err
	}

	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("%w: %s has no pixels", ErrImageLoad, src)
	}

	b.imageURL = src
	b.image = size
	b.loaded = true

	return b.RenderRound()
}

// Initialize loads the current lesson's picture with loader and renders the
// first round. It blocks until the picture has loaded.
func (b *Board) Initialize(ctx context.Context, loader ImageLoader) error {
	src, err := b.ImageSource()
	if err != nil {
		return err
	}

	size, err := loader.Load(ctx, src)
	if err != nil {
		return fmt.Errorf("load %s: %w", src, err)
	}

	return b.ImageLoaded(size)
}

// SetBackground shows or hides the picture on the current round's tiles.
// Tiles of finished rounds always show it.
func (b *Board) SetBackground(enabled bool) {
	b.background = enabled
	for i := range b.tiles {
		b.tiles[i].Background = enabled
	}
}

// Background reports whether unsolved tiles show the picture.
func (b *Board) Background() bool {
	return b.background
}

func (b *Board) rendered() error {
	if len(b.tiles) == 0 {
		return ErrNotRendered
	}
	return nil
}

func (b *Board) open() error {
	if err := b.rendered(); err != nil {
		return err
	}
	if b.lessonEnd {
		return ErrInteractionClosed
	}
	return nil
}
