package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/services"
	"go.uber.org/zap"
)

// AlbumHandler обрабатывает HTTP-запросы, связанные с альбомами.
type AlbumHandler struct {
	albums services.AlbumService
	photos services.PhotoService
	clock  access.Clock
}

// NewAlbumHandler создает новый экземпляр AlbumHandler.
// Если clock == nil, используется time.Now.
func NewAlbumHandler(albums services.AlbumService, photos services.PhotoService, clock access.Clock) *AlbumHandler {
	if clock == nil {
		clock = time.Now
	}
	return &AlbumHandler{albums: albums, photos: photos, clock: clock}
}

// Create обрабатывает POST /api/albums.
func (h *AlbumHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "AlbumHandler:Create")
	if !ok {
		return
	}
	var req models.CreateAlbumRequest
	if !decodeJSON(w, r, &req, "AlbumHandler:Create") {
		return
	}

	album, err := h.albums.Create(r.Context(), userID, req.Title)
	if err != nil {
		writeServiceError(w, err, msgAlbumNotFound, "AlbumHandler:Create")
		return
	}
	writeJSON(w, http.StatusCreated, h.view(album), "AlbumHandler:Create")
}

// List обрабатывает GET /api/albums. Каждый альбом идет с решением о доступе.
func (h *AlbumHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "AlbumHandler:List")
	if !ok {
		return
	}

	albums, err := h.albums.ListByOwner(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, msgAlbumNotFound, "AlbumHandler:List")
		return
	}

	views := make([]models.AlbumView, 0, len(albums))
	for i := range albums {
		views = append(views, h.view(&albums[i]))
	}
	writeJSON(w, http.StatusOK, views, "AlbumHandler:List")
}

// Stats обрабатывает GET /api/albums/stats.
func (h *AlbumHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "AlbumHandler:Stats")
	if !ok {
		return
	}

	stats, err := h.albums.Stats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, msgAlbumNotFound, "AlbumHandler:Stats")
		return
	}
	writeJSON(w, http.StatusOK, stats, "AlbumHandler:Stats")
}

// Get обрабатывает GET /api/albums/{albumID}. Ссылки на фотографии выдаются,
// только пока альбом открыт для просмотра.
func (h *AlbumHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "AlbumHandler:Get")
	if !ok {
		return
	}
	albumID := chi.URLParam(r, "albumID")

	album, decision, err := h.albums.Get(r.Context(), userID, albumID)
	if err != nil {
		writeServiceError(w, err, msgAlbumNotFound, "AlbumHandler:Get")
		return
	}

	view := models.AlbumView{Album: *album, Access: models.NewAccessDecision(decision)}
	if decision.CanAccess {
		items, err := h.photos.SignedURLs(r.Context(), userID, albumID)
		switch {
		case errors.Is(err, services.ErrAlbumLocked):
			// Окно закрылось между двумя проверками
			zap.S().Infof("[AlbumHandler:Get] Альбом %s закрылся во время запроса", albumID)
			view.Access = models.NewAccessDecision(access.Evaluate(album.UnlockAt, h.clock()))
		case err != nil:
			writeServiceError(w, err, msgAlbumNotFound, "AlbumHandler:Get")
			return
		default:
			view.Items = items
		}
	}
	writeJSON(w, http.StatusOK, view, "AlbumHandler:Get")
}

// Update обрабатывает PATCH /api/albums/{albumID}.
func (h *AlbumHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "AlbumHandler:Update")
	if !ok {
		return
	}
	var req models.UpdateAlbumRequest
	if !decodeJSON(w, r, &req, "AlbumHandler:Update") {
		return
	}

	album, err := h.albums.UpdateMetadata(r.Context(), userID, chi.URLParam(r, "albumID"), req)
	if err != nil {
		writeServiceError(w, err, msgAlbumNotFound, "AlbumHandler:Update")
		return
	}
	writeJSON(w, http.StatusOK, h.view(album), "AlbumHandler:Update")
}

// Unseal обрабатывает POST /api/albums/{albumID}/unseal.
func (h *AlbumHandler) Unseal(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "AlbumHandler:Unseal")
	if !ok {
		return
	}

	album, err := h.albums.Unseal(r.Context(), userID, chi.URLParam(r, "albumID"))
	if err != nil {
		writeServiceError(w, err, msgAlbumNotFound, "AlbumHandler:Unseal")
		return
	}
	writeJSON(w, http.StatusOK, h.view(album), "AlbumHandler:Unseal")
}

// Delete обрабатывает DELETE /api/albums/{albumID}.
func (h *AlbumHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "AlbumHandler:Delete")
	if !ok {
		return
	}

	if err := h.albums.Delete(r.Context(), userID, chi.URLParam(r, "albumID")); err != nil {
		writeServiceError(w, err, msgAlbumNotFound, "AlbumHandler:Delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AlbumHandler) view(album *models.Album) models.AlbumView {
	return models.AlbumView{
		Album:  *album,
		Access: models.NewAccessDecision(access.Evaluate(album.UnlockAt, h.clock())),
	}
}
