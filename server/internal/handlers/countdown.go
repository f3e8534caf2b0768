package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/services"
	"go.uber.org/zap"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 512
)

// CountdownHandler отдает по websocket решение о доступе к альбому раз в интервал,
// пока окно не закончится или клиент не отключится.
type CountdownHandler struct {
	albums   services.AlbumService
	clock    access.Clock
	interval time.Duration
	upgrader websocket.Upgrader

	done      chan struct{}
	closeOnce sync.Once
}

// NewCountdownHandler создает новый экземпляр CountdownHandler.
// interval <= 0 означает access.DefaultTickInterval.
func NewCountdownHandler(albums services.AlbumService, clock access.Clock, interval time.Duration) *CountdownHandler {
	if clock == nil {
		clock = time.Now
	}
	if interval <= 0 {
		interval = access.DefaultTickInterval
	}
	return &CountdownHandler{
		albums:   albums,
		clock:    clock,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Токен приходит в заголовке Authorization, cookie не используются
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// Close завершает все открытые потоки. Вызывается при остановке сервера.
func (h *CountdownHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Stream обрабатывает GET /api/albums/{albumID}/countdown.
func (h *CountdownHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "Countdown")
	if !ok {
		return
	}
	albumID := chi.URLParam(r, "albumID")

	// Владельца проверяем до upgrade, чтобы ответить обычным статусом
	album, _, err := h.albums.Get(r.Context(), userID, albumID)
	if err != nil {
		writeServiceError(w, err, msgAlbumNotFound, "Countdown")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrader уже ответил клиенту
		zap.S().Infof("[Countdown] Ошибка upgrade для альбома %s: %v", albumID, err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.readPump(conn, cancel)
	go func() {
		select {
		case <-h.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	zap.S().Debugf("[Countdown] Пользователь %s подписался на альбом %s", userID, albumID)

	var last access.Decision
	access.Watch(ctx, album.UnlockAt, h.clock, h.interval, func(d access.Decision) {
		if ctx.Err() != nil {
			return
		}
		last = d
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(models.NewAccessDecision(d)); err != nil {
			zap.S().Debugf("[Countdown] Ошибка записи в websocket: %v", err)
			cancel()
		}
	})

	if ctx.Err() == nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(last.Status))
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
	}
}

// readPump читает входящие кадры, чтобы обработать close и ping клиента.
// Любая ошибка чтения означает отключение.
func (h *CountdownHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(wsMaxMessageSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				zap.S().Debugf("[Countdown] Соединение закрыто: %v", err)
			}
			return
		}
	}
}
