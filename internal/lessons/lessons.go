// Package lessons loads word collections and tracks a player's position in
// them.
package lessons

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

//go:embed data/default.json
var defaultCollection []byte

var (
	ErrEmptyCollection = errors.New("collection has no lessons")
	ErrEmptyLesson     = errors.New("lesson has no sentences")
	ErrBlankSentence   = errors.New("sentence has no words")
)

// LevelData describes the picture a lesson reveals.
type LevelData struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageSrc string `json:"imageSrc"`
	CutSrc   string `json:"cutSrc"`
	Author   string `json:"author"`
	Year     string `json:"year"`
}

// Word is one entry of a lesson; TextExample is the sentence a round is
// built from.
type Word struct {
	AudioExample         string `json:"audioExample"`
	TextExample          string `json:"textExample"`
	TextExampleTranslate string `json:"textExampleTranslate"`
	ID                   int    `json:"id"`
	Word                 string `json:"word"`
	WordTranslate        string `json:"wordTranslate"`
}

// Lesson is one picture and the sentences that rebuild it.
type Lesson struct {
	LevelData LevelData `json:"levelData"`
	Words     []Word    `json:"words"`
}

// Collection is the on-disk word collection format.
type Collection struct {
	Rounds      []Lesson `json:"rounds"`
	RoundsCount int      `json:"roundsCount"`
}

// Parse decodes and checks a collection.
func Parse(r io.Reader) (*Collection, error) {
	var c Collection
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}

	if len(c.Rounds) == 0 {
		return nil, ErrEmptyCollection
	}

	for i, l := range c.Rounds {
		if len(l.Words) == 0 {
			return nil, fmt.Errorf("lesson %d (%s): %w", i, l.LevelData.ID, ErrEmptyLesson)
		}
		for j, w := range l.Words {
			if strings.TrimSpace(w.TextExample) == "" {
				return nil, fmt.Errorf("lesson %d (%s) sentence %d: %w", i, l.LevelData.ID, j, ErrBlankSentence)
			}
		}
	}

	c.RoundsCount = len(c.Rounds)

	return &c, nil
}

// Default returns the collection bundled with the binary.
func Default() *Collection {
	c, err := Parse(bytes.NewReader(defaultCollection))
	if err != nil {
		panic("lessons: bundled collection is invalid: " + err.Error())
	}
	return c
}

// Load reads a collection from source. An empty source selects the bundled
// collection, http and https URLs are fetched with client, and anything else
// is treated as a file path.
func Load(ctx context.Context, client *http.Client, source string) (*Collection, error) {
	switch {
	case source == "":
		return Default(), nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return fetch(ctx, client, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

func fetch(ctx context.Context, client *http.Client, url string) (*Collection, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch collection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch collection %s: unexpected status %s", url, resp.Status)
	}

	return Parse(resp.Body)
}
