package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Seednode/puzzlebox/internal/board"
)

// wireSnapshot holds the parts of a board snapshot these tests look at.
type wireSnapshot struct {
	Rendered bool   `json:"rendered"`
	Phase    string `json:"phase"`
	Tiles    []struct {
		ID   int    `json:"id"`
		Word string `json:"word"`
	} `json:"tiles"`
	Sources []struct {
		Tile *int `json:"tile"`
	} `json:"sources"`
	Answers []struct {
		Tile *int   `json:"tile"`
		Mark string `json:"mark"`
	} `json:"answers"`
	Lesson struct {
		ID    string `json:"id"`
		Round int    `json:"round"`
	} `json:"lesson"`
}

type wireMessage struct {
	Type       string       `json:"type"`
	GameID     string       `json:"game_id"`
	PlayerName string       `json:"player_name"`
	Board      wireSnapshot `json:"board"`
	Transition string       `json:"transition"`
	Won        bool         `json:"won"`
	Message    string       `json:"message"`
}

func dialGame(t *testing.T, ts *httptest.Server, gameID string, header http.Header) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/puzzle/" + gameID + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	return conn
}

// readUntil reads messages until one satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wireMessage) bool) wireMessage {
	t.Helper()

	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func rendered(msg wireMessage) bool {
	return msg.Type == "board_state" && msg.Board.Rendered
}

func TestNewGameRedirect(t *testing.T) {
	mux, _ := newTestRouter(t, "")

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/puzzle", nil))

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", w.Code)
	}

	loc := w.Header().Get("Location")
	id := strings.TrimPrefix(loc, "/puzzle/")
	if id == loc || len(id) != 8 {
		t.Errorf("redirect to %q, want /puzzle/ and an 8 character id", loc)
	}
}

func TestGamePage(t *testing.T) {
	mux, cfg := newTestRouter(t, "")

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/puzzle/abcd1234", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "app.js") {
		t.Error("game page does not load the client")
	}
	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, cfg.imageOrigin) {
		t.Errorf("CSP %q does not allow %s", csp, cfg.imageOrigin)
	}

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == playerCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("player cookie not set")
	}
}

func TestQRCode(t *testing.T) {
	mux, _ := newTestRouter(t, "")

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/puzzle/abcd1234/qr", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
}

func TestStateUnknownGame(t *testing.T) {
	mux, _ := newTestRouter(t, "")

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/puzzle/nosuchgame/state", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestWebSocketClick(t *testing.T) {
	mux, _ := newTestRouter(t, "")
	ts := httptest.NewServer(mux)
	defer ts.Close()

	header := http.Header{}
	header.Add("Cookie", nameCookieName+"=Ada+Lovelace")

	conn := dialGame(t, ts, "clickgame", header)

	info := readUntil(t, conn, func(m wireMessage) bool { return m.Type == "session_info" })
	if info.GameID != "clickgame" || info.PlayerName != "Ada Lovelace" {
		t.Errorf("session info = %+v", info)
	}

	state := readUntil(t, conn, rendered).Board
	if len(state.Tiles) == 0 || len(state.Sources) != len(state.Tiles) {
		t.Fatalf("unexpected first round: %+v", state)
	}

	tile := *state.Sources[0].Tile

	if err := conn.WriteJSON(ClientMessage{Type: "click", Tile: &tile}); err != nil {
		t.Fatal(err)
	}

	state = readUntil(t, conn, func(m wireMessage) bool {
		return rendered(m) && m.Board.Answers[0].Tile != nil
	}).Board

	if got := *state.Answers[0].Tile; got != tile {
		t.Errorf("answer slot 0 holds tile %d, want %d", got, tile)
	}
	if state.Sources[0].Tile != nil {
		t.Error("source slot 0 still occupied")
	}

	// The JSON snapshot sees the same board.
	res, err := http.Get(ts.URL + "/puzzle/clickgame/state")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("state: expected 200, got %d", res.StatusCode)
	}

	var snap wireSnapshot
	if err := json.NewDecoder(res.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Answers[0].Tile == nil || *snap.Answers[0].Tile != tile {
		t.Errorf("state answer slot 0 = %v, want %d", snap.Answers[0].Tile, tile)
	}
}

func TestWebSocketSolveRound(t *testing.T) {
	mux, _ := newTestRouter(t, "")
	ts := httptest.NewServer(mux)
	defer ts.Close()

	conn := dialGame(t, ts, "solvegame", nil)

	state := readUntil(t, conn, rendered).Board

	// Tiles are numbered in sentence order.
	for i := range state.Tiles {
		if err := conn.WriteJSON(ClientMessage{Type: "click", Tile: &i}); err != nil {
			t.Fatal(err)
		}
	}

	state = readUntil(t, conn, func(m wireMessage) bool {
		return rendered(m) && m.Board.Phase == "ready"
	}).Board

	if err := conn.WriteJSON(ClientMessage{Type: "submit"}); err != nil {
		t.Fatal(err)
	}

	tr := readUntil(t, conn, func(m wireMessage) bool { return m.Type == "transition" })
	if tr.Transition != "graded" || !tr.Won {
		t.Fatalf("transition = %s won=%v, want graded and won", tr.Transition, tr.Won)
	}

	state = readUntil(t, conn, rendered).Board
	for i, a := range state.Answers {
		if a.Mark != "success" {
			t.Errorf("answer %d marked %q", i, a.Mark)
		}
	}

	if err := conn.WriteJSON(ClientMessage{Type: "submit"}); err != nil {
		t.Fatal(err)
	}

	tr = readUntil(t, conn, func(m wireMessage) bool { return m.Type == "transition" })
	if tr.Transition != "next_round" {
		t.Fatalf("transition = %s, want next_round", tr.Transition)
	}

	state = readUntil(t, conn, rendered).Board
	if state.Lesson.Round != 1 || state.Phase != "placing" {
		t.Errorf("after next round: round %d phase %s", state.Lesson.Round, state.Phase)
	}
}

func TestWebSocketErrorsGoToSender(t *testing.T) {
	mux, _ := newTestRouter(t, "")
	ts := httptest.NewServer(mux)
	defer ts.Close()

	conn := dialGame(t, ts, "errorgame", nil)
	readUntil(t, conn, rendered)

	bad := 999
	if err := conn.WriteJSON(ClientMessage{Type: "click", Tile: &bad}); err != nil {
		t.Fatal(err)
	}

	msg := readUntil(t, conn, func(m wireMessage) bool { return m.Type == "error" })
	if msg.Message == "" {
		t.Error("error message is empty")
	}

	if err := conn.WriteJSON(ClientMessage{Type: "submit"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(m wireMessage) bool { return m.Type == "error" })
}

func TestGameManagerReusesHubs(t *testing.T) {
	mux, _ := newTestRouter(t, "")
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := dialGame(t, ts, "shared", nil)
	b := dialGame(t, ts, "shared", nil)

	readUntil(t, a, rendered)
	state := readUntil(t, b, rendered).Board

	tile := *state.Sources[len(state.Sources)-1].Tile
	if err := a.WriteJSON(ClientMessage{Type: "click", Tile: &tile}); err != nil {
		t.Fatal(err)
	}

	got := readUntil(t, b, func(m wireMessage) bool {
		return rendered(m) && m.Board.Answers[0].Tile != nil
	}).Board
	if *got.Answers[0].Tile != tile {
		t.Errorf("second player sees tile %d, want %d", *got.Answers[0].Tile, tile)
	}
}

func TestWebSocketNextLesson(t *testing.T) {
	collection := filepath.Join(t.TempDir(), "lessons.json")
	data := `{"rounds":[
 {"levelData":{"id":"first","imageSrc":"a.png"},"words":[{"textExample":"Alpha beta gamma"}]},
 {"levelData":{"id":"second","imageSrc":"b.png"},"words":[{"textExample":"Delta epsilon"}]}
]}`
	if err := os.WriteFile(collection, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	mux, _ := newTestRouterWith(t, func(cfg *Config) { cfg.lessons = collection })
	ts := httptest.NewServer(mux)
	defer ts.Close()

	conn := dialGame(t, ts, "lessongame", nil)

	state := readUntil(t, conn, rendered).Board
	if state.Lesson.ID != "first" || len(state.Tiles) != 3 {
		t.Fatalf("first lesson %q with %d tiles", state.Lesson.ID, len(state.Tiles))
	}

	for _, msg := range []ClientMessage{{Type: "show_answer"}, {Type: "submit"}} {
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatal(err)
		}
	}

	tr := readUntil(t, conn, func(m wireMessage) bool { return m.Type == "transition" })
	if tr.Transition != "lesson_end" {
		t.Fatalf("transition = %s, want lesson_end", tr.Transition)
	}

	if err := conn.WriteJSON(ClientMessage{Type: "submit"}); err != nil {
		t.Fatal(err)
	}

	tr = readUntil(t, conn, func(m wireMessage) bool { return m.Type == "transition" })
	if tr.Transition != "next_lesson" {
		t.Fatalf("transition = %s, want next_lesson", tr.Transition)
	}

	state = readUntil(t, conn, func(m wireMessage) bool {
		return rendered(m) && m.Board.Lesson.ID == "second"
	}).Board
	if len(state.Tiles) != 2 || state.Lesson.Round != 0 || state.Phase != "placing" {
		t.Errorf("second lesson: %d tiles round %d phase %s", len(state.Tiles), state.Lesson.Round, state.Phase)
	}
	for i, s := range state.Sources {
		if s.Tile == nil {
			t.Errorf("source slot %d of the new lesson is empty", i)
		}
	}
}

func TestWebSocketDragAcrossRoundsDoesNotMove(t *testing.T) {
	mux, _ := newTestRouter(t, "")
	ts := httptest.NewServer(mux)
	defer ts.Close()

	conn := dialGame(t, ts, "draggame", nil)

	state := readUntil(t, conn, rendered).Board

	for i := range state.Tiles {
		if err := conn.WriteJSON(ClientMessage{Type: "click", Tile: &i}); err != nil {
			t.Fatal(err)
		}
	}
	readUntil(t, conn, func(m wireMessage) bool {
		return rendered(m) && m.Board.Phase == "ready"
	})

	tile := 0
	slot := board.SlotRef{Group: board.Source, Index: 0}
	for _, msg := range []ClientMessage{
		{Type: "drag_start", Tile: &tile},
		{Type: "drag_over", Slot: &slot},
		{Type: "submit"},
		{Type: "submit"},
		{Type: "drag_end"},
	} {
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatal(err)
		}
	}

	tr := readUntil(t, conn, func(m wireMessage) bool {
		return m.Type == "transition" && m.Transition == "next_round"
	})
	if tr.Won {
		t.Error("next round should not report a win")
	}

	readUntil(t, conn, func(m wireMessage) bool { return m.Type == "error" })

	state = readUntil(t, conn, func(m wireMessage) bool { return m.Type == "board_state" }).Board
	if state.Lesson.Round != 1 {
		t.Fatalf("round %d, want 1", state.Lesson.Round)
	}
	for i, a := range state.Answers {
		if a.Tile != nil {
			t.Errorf("answer slot %d holds tile %d after a drag from the previous round", i, *a.Tile)
		}
	}
}
