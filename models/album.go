package models

import (
	"time"

	"github.com/maynagashev/timelock/internal/access"
)

// MaxCommentLength - максимальная длина комментария к альбому в символах.
const MaxCommentLength = 500

// Album представляет альбом пользователя.
// UnlockAt == nil означает, что альбом еще запечатан. После вскрытия значение
// больше не меняется.
type Album struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Title     string     `db:"title" json:"title"`
	Comment   *string    `db:"comment" json:"comment,omitempty"`
	UnlockAt  *time.Time `db:"unlock_at" json:"unlock_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`

	// Краткие сведения о фотографиях, заполняются при выдаче списка альбомов.
	Photos []PhotoSummary `db:"-" json:"photos,omitempty"`
}

// AccessDecision - решение о доступе в формате API.
type AccessDecision struct {
	CanAccess       bool          `json:"can_access"`
	Status          access.Status `json:"status"`
	TimeRemainingMs int64         `json:"time_remaining_ms,omitempty"`
}

// NewAccessDecision переводит access.Decision в формат API.
// Остаток открытого окна округляется вверх до миллисекунды, чтобы поле
// time_remaining_ms не пропадало из ответа в последнюю миллисекунду.
func NewAccessDecision(d access.Decision) AccessDecision {
	return AccessDecision{
		CanAccess:       d.CanAccess,
		Status:          d.Status,
		TimeRemainingMs: ceilMillis(d.TimeRemaining),
	}
}

func ceilMillis(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Millisecond - 1) / time.Millisecond)
}

// Decision восстанавливает access.Decision из формата API.
func (d AccessDecision) Decision() access.Decision {
	return access.Decision{
		CanAccess:     d.CanAccess,
		Status:        d.Status,
		TimeRemaining: time.Duration(d.TimeRemainingMs) * time.Millisecond,
	}
}

// AlbumView - альбом вместе с вычисленным решением о доступе.
// Items заполняется только пока альбом открыт для просмотра.
type AlbumView struct {
	Album
	Access AccessDecision `json:"access"`
	Items  []PhotoView    `json:"items,omitempty"`
}

// AlbumStats - сводка по состояниям альбомов пользователя.
type AlbumStats struct {
	Total    int `json:"total"`
	Sealed   int `json:"sealed"`
	Unlocked int `json:"unlocked"`
	Expired  int `json:"expired"`
}

// NewAlbumStats переводит access.Stats в формат API.
func NewAlbumStats(s access.Stats) AlbumStats {
	return AlbumStats{Total: s.Total, Sealed: s.Sealed, Unlocked: s.Unlocked, Expired: s.Expired}
}

// CreateAlbumRequest представляет тело запроса на создание альбома.
type CreateAlbumRequest struct {
	Title string `json:"title"`
}

// UpdateAlbumRequest представляет тело запроса на изменение альбома.
// Отсутствующие поля не меняются.
type UpdateAlbumRequest struct {
	Title   *string `json:"title,omitempty"`
	Comment *string `json:"comment,omitempty"`
}
