package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"Story-Atlas/server/internal/engine"
	"Story-Atlas/server/internal/geo"
	"Story-Atlas/server/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxCommandSize = 512
	sendBuffer     = 64
)

// Feed commands
const (
	ActionLoad     = "load"
	ActionLoadMore = "load_more"
	ActionRefresh  = "refresh"
)

// Feed events
const (
	EventRenderStories = "render_stories"
	EventAppendStories = "append_stories"
	EventLoadState     = "load_state"
	EventError         = "error"
	EventMarkers       = "markers"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Command is a message sent by a feed client
type Command struct {
	Action string `json:"action"`
}

// Event is a message pushed to a feed client
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// LoadState mirrors the load button of a list page
type LoadState struct {
	Loading bool `json:"loading"`
	HasMore bool `json:"hasMore"`
}

// Session is one websocket connection with its own list flow
type Session struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	Hub  *FeedHub

	flow   *engine.ListFlow
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// FeedHub tracks the live feed sessions. Sessions are added before their
// pumps start, so a session can never be removed before it was added.
type FeedHub struct {
	svc      *Services
	pageSize int
	logger   *zap.Logger

	sessions map[string]*Session
	stopped  bool
	mu       sync.RWMutex

	served atomic.Int64
}

// NewFeedHub creates a hub whose sessions page through stories pageSize at a time
func NewFeedHub(svc *Services, pageSize int, logger *zap.Logger) *FeedHub {
	return &FeedHub{
		svc:      svc,
		pageSize: pageSize,
		logger:   logger.Named("hub"),
		sessions: make(map[string]*Session),
	}
}

// Run blocks until ctx is done, then closes every session and refuses new ones
func (h *FeedHub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for id, s := range h.sessions {
		delete(h.sessions, id)
		s.shutdown()
	}
	h.logger.Info("hub stopped")
}

func (h *FeedHub) registerSession(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return false
	}
	h.sessions[s.ID] = s
	h.served.Inc()
	h.logger.Info("session connected", zap.String("session", s.ID), zap.Int("total", len(h.sessions)))
	return true
}

func (h *FeedHub) unregisterSession(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.ID]; ok {
		delete(h.sessions, s.ID)
		h.logger.Info("session disconnected", zap.String("session", s.ID), zap.Int("total", len(h.sessions)))
	}
	s.shutdown()
}

// SessionCount returns the number of connected sessions
func (h *FeedHub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Served returns how many sessions have connected since start
func (h *FeedHub) Served() int64 {
	return h.served.Load()
}

// ServeWS upgrades the request and starts a list session that loads the first page.
// The token comes from the "token" query parameter or the Authorization header.
func (h *FeedHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:     uuid.New().String(),
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		Hub:    h,
		ctx:    ctx,
		cancel: cancel,
	}
	s.logger = h.logger.With(zap.String("session", s.ID))
	s.flow = engine.NewListFlow(h.svc.Clients(token), h.svc.Cache, &wsView{session: s},
		engine.ListConfig{PageSize: h.pageSize, Token: token}, s.logger)

	if !h.registerSession(s) {
		cancel()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go s.writePump()
	go s.dispatch(func(ctx context.Context) error { return s.flow.LoadPage(ctx, false) })
	go s.readPump()
}

// emit queues an event; it is dropped once the session is closed or its buffer is full
func (s *Session) emit(eventType string, data interface{}) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		s.logger.Error("failed to marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.Send <- msg:
	default:
		s.logger.Warn("send buffer full, dropping event", zap.String("type", eventType))
	}
}

// shutdown stops in-flight loads and lets the write pump close the connection
func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	close(s.Send)
}

func (s *Session) dispatch(load func(ctx context.Context) error) {
	if err := load(s.ctx); err != nil {
		s.logger.Debug("load finished with error", zap.Error(err))
	}
}

func (s *Session) handle(cmd Command) {
	switch cmd.Action {
	case ActionLoad:
		go s.dispatch(func(ctx context.Context) error { return s.flow.LoadPage(ctx, false) })
	case ActionLoadMore:
		go s.dispatch(s.flow.LoadMore)
	case ActionRefresh:
		go s.dispatch(s.flow.Refresh)
	default:
		s.emit(EventError, map[string]string{"message": "unknown action: " + cmd.Action})
	}
}

// writePump is the only writer of the connection
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.Send:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug("write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Session) readPump() {
	defer s.Hub.unregisterSession(s)

	s.Conn.SetReadLimit(maxCommandSize)
	_ = s.Conn.SetReadDeadline(time.Now().Add(pongWait))
	s.Conn.SetPongHandler(func(string) error {
		return s.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Info("unexpected close", zap.Error(err))
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.emit(EventError, map[string]string{"message": "malformed command"})
			continue
		}
		s.handle(cmd)
	}
}

// wsView renders list flow notifications as feed events
type wsView struct {
	session *Session
}

func (v *wsView) RenderStories(stories []models.Story) {
	v.session.emit(EventRenderStories, stories)
}

func (v *wsView) AppendStories(stories []models.Story) {
	v.session.emit(EventAppendStories, stories)
}

func (v *wsView) UpdateLoadButton(loading, hasMore bool) {
	v.session.emit(EventLoadState, LoadState{Loading: loading, HasMore: hasMore})
}

func (v *wsView) ShowError(err error) {
	v.session.emit(EventError, map[string]string{"message": err.Error()})
}

func (v *wsView) UpdateMapMarkers(stories []models.Story) {
	v.session.emit(EventMarkers, geo.Markers(stories))
}
