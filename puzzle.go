// puzzlebox sentence puzzle
//
// A lesson picture is cut into ten horizontal strips, one per sentence. Each
// round deals the words of one sentence as tiles carrying their slice of the
// strip; the player moves them from the shuffled source row into the answer
// row until both the sentence and the strip read correctly.
//
// Features:
// - One board per game ID: /path/:gameid, with its event loop in a Hub
// - Click or drag tiles between rows; state is pushed over /path/:gameid/ws
// - Check, continue and next-lesson flow driven by a single submit button
// - "Show answer" assist
// - Picture preview on unsolved tiles can be toggled
// - JSON snapshot at /path/:gameid/state and QR share code at /path/:gameid/qr
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check

package main

import (
	"context"
	"crypto/rand"
	"errors"
	mrand "math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/puzzlebox/internal/board"
	"github.com/Seednode/puzzlebox/internal/lessons"
	"github.com/Seednode/puzzlebox/internal/picture"
)

var (
	errMissingTile    = errors.New("message is missing a tile")
	errMissingSlot    = errors.New("message is missing a slot")
	errMissingEnabled = errors.New("message is missing enabled")
	errNoDrag         = errors.New("no tile is being dragged")
)

// Messages coming from clients
type ClientMessage struct {
	Type    string         `json:"type"`              // "click", "drag_start", "drag_over", "drag_leave", "drag_end", "submit", "show_answer", "background"
	Tile    *int           `json:"tile,omitempty"`    // click / drag_start
	Slot    *board.SlotRef `json:"slot,omitempty"`    // drag_over
	Enabled *bool          `json:"enabled,omitempty"` // background
}

// SessionInfoMessage is sent immediately on connect.
type SessionInfoMessage struct {
	Type       string `json:"type"` // "session_info"
	GameID     string `json:"game_id"`
	PlayerName string `json:"player_name,omitempty"`
}

// BoardStateMessage carries everything the client draws.
type BoardStateMessage struct {
	Type  string         `json:"type"` // "board_state"
	Board board.Snapshot `json:"board"`
}

// TransitionMessage tells clients what a submit did.
type TransitionMessage struct {
	Type       string           `json:"type"` // "transition"
	Transition board.Transition `json:"transition"`
	Won        bool             `json:"won"`
}

// SimpleMessage is for errors sent to a single client.
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn       *websocket.Conn
	send       chan any
	playerID   string
	playerName string
}

type action struct {
	client *Client
	msg    ClientMessage
}

type imageResult struct {
	url  string
	size picture.Size
	err  error
}

// Hub owns one board. Every board mutation happens on the goroutine running
// Hub.run; image loads run elsewhere and report back through loaded.
type Hub struct {
	id      string
	clients map[*Client]bool
	drags   map[*Client]board.DragSession

	board  *board.Board
	loader board.ImageLoader

	register chan *Client
	unreg    chan *Client
	actions  chan action
	loaded   chan imageResult

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
	closed     bool
}

func newHub(gameID string, b *board.Board, loader board.ImageLoader) *Hub {
	now := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		id:         gameID,
		clients:    make(map[*Client]bool),
		drags:      make(map[*Client]board.DragSession),
		board:      b,
		loader:     loader,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		actions:    make(chan action),
		loaded:     make(chan imageResult, 1),
		ctx:        ctx,
		cancel:     cancel,
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	h.mu.Lock()
	h.loadImageLocked(cfg)
	h.mu.Unlock()

	for {
		select {
		case <-h.ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.closed {
				close(c.send)
				h.mu.Unlock()
				continue
			}

			h.lastActive = time.Now()
			h.clients[c] = true

			h.sendLocked(c, SessionInfoMessage{
				Type:       "session_info",
				GameID:     h.id,
				PlayerName: c.playerName,
			})
			h.sendLocked(c, h.stateLocked())
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.dropLocked(c)
			h.mu.Unlock()

		case a := <-h.actions:
			h.handleAction(cfg, a)

		case res := <-h.loaded:
			h.handleLoaded(cfg, res)
		}
	}
}

// loadImageLocked starts loading the current lesson picture. The result is
// handled by run.
func (h *Hub) loadImageLocked(cfg *Config) {
	src, err := h.board.ImageSource()
	if err != nil {
		logf(cfg, "ERROR: Game %s cannot start: %v", h.id, err)
		h.broadcastLocked(SimpleMessage{Type: "error", Message: err.Error()})
		return
	}

	logf(cfg, "GAMES: Loading %s for %s", src, h.id)

	go func() {
		size, err := h.loader.Load(h.ctx, src)
		select {
		case h.loaded <- imageResult{url: src, size: size, err: err}:
		case <-h.ctx.Done():
		}
	}()
}

func (h *Hub) handleLoaded(cfg *Config, res imageResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if src, err := h.board.ImageSource(); err != nil || src != res.url {
		return
	}

	if res.err != nil {
		logf(cfg, "ERROR: Game %s: %v", h.id, res.err)
		h.broadcastLocked(SimpleMessage{Type: "error", Message: "The lesson picture could not be loaded."})
		return
	}

	if err := h.board.ImageLoaded(res.size); err != nil {
		logf(cfg, "ERROR: Game %s: %v", h.id, err)
		h.broadcastLocked(SimpleMessage{Type: "error", Message: err.Error()})
		return
	}

	logf(cfg, "GAMES: Rendered %dx%d picture for %s", res.size.Width, res.size.Height, h.id)

	h.broadcastStateLocked()
}

func (h *Hub) handleAction(cfg *Config, a action) {
	c := a.client
	msg := a.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	var err error

	switch msg.Type {
	case "click":
		if msg.Tile == nil {
			err = errMissingTile
			break
		}
		err = h.board.Click(*msg.Tile)

	case "drag_start":
		if msg.Tile == nil {
			err = errMissingTile
			break
		}
		var s board.DragSession
		s, err = h.board.DragStart(*msg.Tile)
		if err == nil {
			h.drags[c] = s
		}

	case "drag_over":
		s, ok := h.drags[c]
		if !ok {
			err = errNoDrag
			break
		}
		if msg.Slot == nil {
			err = errMissingSlot
			break
		}
		h.drags[c], err = h.board.DragOver(s, *msg.Slot)

	case "drag_leave":
		if s, ok := h.drags[c]; ok {
			h.drags[c] = h.board.DragLeave(s)
		}

	case "drag_end":
		s, ok := h.drags[c]
		if !ok {
			err = errNoDrag
			break
		}
		delete(h.drags, c)
		_, err = h.board.DragEnd(s)

	case "submit":
		var tr board.Transition
		tr, err = h.board.Submit()
		if err != nil {
			break
		}

		if tr != board.TransitionGraded {
			clear(h.drags)
		}

		logf(cfg, "GAMES: Submit in %s: %s", h.id, tr)

		h.broadcastLocked(TransitionMessage{
			Type:       "transition",
			Transition: tr,
			Won:        h.board.Won(),
		})

		if tr == board.TransitionNextLesson {
			h.loadImageLocked(cfg)
		}

	case "show_answer":
		if err = h.board.ShowAnswer(); err == nil {
			clear(h.drags)
		}

	case "background":
		if msg.Enabled == nil {
			err = errMissingEnabled
			break
		}
		h.board.SetBackground(*msg.Enabled)

	default:
		return
	}

	if err != nil {
		h.sendLocked(c, SimpleMessage{Type: "error", Message: err.Error()})
	}

	h.broadcastStateLocked()
}

func (h *Hub) stateLocked() BoardStateMessage {
	return BoardStateMessage{
		Type:  "board_state",
		Board: h.board.Snapshot(),
	}
}

func (h *Hub) broadcastStateLocked() {
	h.broadcastLocked(h.stateLocked())
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// sendLocked drops clients whose send buffer is full.
func (h *Hub) sendLocked(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		delete(h.drags, c)
		close(c.send)
	}
}

// snapshot is safe to call from any goroutine.
func (h *Hub) snapshot() board.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.board.Snapshot()
}

// closeAll disconnects all clients of this hub and stops its loop (used by reaper).
func (h *Hub) closeAll() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
	clear(h.drags)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "puzzlebox_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated board.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration

	collection *lessons.Collection
	loader     board.ImageLoader
}

func newGameManager(cfg *Config, collection *lessons.Collection, loader board.ImageLoader) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: cfg.sessionTimeout,
		collection:  collection,
		loader:      loader,
	}
	if gm.idleTimeout > 0 {
		go gm.reaperLoop(cfg)
	}
	return gm
}

func (gm *GameManager) newBoard(cfg *Config) *board.Board {
	opts := board.Options{
		Background:     cfg.background,
		KeepPuzzleRows: cfg.keepRows,
		ImageBase:      cfg.imageBase,
	}
	if cfg.seed != 0 {
		opts.Rand = mrand.New(mrand.NewPCG(uint64(cfg.seed), uint64(cfg.seed)))
	}

	return board.New(lessons.NewProgress(gm.collection), opts)
}

func (gm *GameManager) getHub(cfg *Config, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gameID, gm.newBoard(cfg), gm.loader)
	gm.hubs[gameID] = hub
	go hub.run(cfg)

	logf(cfg, "GAMES: Started game %s", gameID)

	return hub
}

func (gm *GameManager) lookup(gameID string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[gameID]
	return hub, ok
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop(cfg *Config) {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-gm.idleTimeout)

		gm.mu.Lock()
		for id, hub := range gm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(gm.hubs, id)
				go hub.closeAll()
				logf(cfg, "GAMES: Reaped idle game %s", id)
			}
		}
		gm.mu.Unlock()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Upgrade for %s from %s: %v", gameID, realIP(r), err)
			return
		}

		client := &Client{
			conn:       conn,
			send:       make(chan any, 16),
			playerID:   playerID,
			playerName: playerName(r),
		}

		select {
		case hub.register <- client:
		case <-hub.ctx.Done():
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.ctx.Done():
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "click", "drag_start", "drag_over", "drag_leave", "drag_end",
			"submit", "show_answer", "background":
			select {
			case h.actions <- action{client: c, msg: msg}:
			case <-h.ctx.Done():
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func serveState(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		hub, ok := gm.lookup(ps.ByName("gameid"))
		if !ok {
			http.Error(w, "no such game", http.StatusNotFound)
			return
		}

		w.Header().Set("Cache-Control", "no-store")

		if err := writeJSON(w, http.StatusOK, hub.snapshot()); err != nil {
			errs <- err
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func getIndexHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile("assets/puzzle/index.html")
		if err != nil {
			errs <- err
			http.Error(w, "client unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)
		cspGame(cfg, w)

		_ = getOrSetPlayerID(w, r)

		if _, err := w.Write(data); err != nil {
			errs <- err
		}
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerPuzzleGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/state    → JSON snapshot of the board
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerPuzzleGame(cfg *Config, path string, mux *httprouter.Router, gm *GameManager) {
	errs := make(chan error, 16)
	go drainErrors(cfg, errs)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg, errs))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/state", serveState(cfg, gm, errs))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)
}
