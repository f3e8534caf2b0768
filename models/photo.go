package models

import "time"

// MaxCaptionLength - максимальная длина подписи к фотографии в символах.
const MaxCaptionLength = 500

// Photo представляет фотографию внутри альбома.
// Сам файл лежит в объектном хранилище под ключом StorageKey.
type Photo struct {
	ID           string    `db:"id" json:"id"`
	AlbumID      string    `db:"album_id" json:"album_id"`
	StorageKey   string    `db:"storage_key" json:"-"` // Ключ в S3/MinIO наружу не отдаем
	OriginalName string    `db:"original_name" json:"original_name"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	MimeType     string    `db:"mime_type" json:"mime_type"`
	Caption      *string   `db:"caption" json:"caption,omitempty"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// PhotoSummary - краткие сведения о фотографии для списка альбомов.
type PhotoSummary struct {
	ID           string `db:"id" json:"id"`
	AlbumID      string `db:"album_id" json:"-"`
	OriginalName string `db:"original_name" json:"original_name"`
}

// PhotoView - фотография с временной ссылкой на скачивание.
type PhotoView struct {
	Photo
	URL string `json:"url"`
}

// PhotoURLResponse - подписанная ссылка на файл и время ее истечения.
type PhotoURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UpdateCaptionRequest представляет тело запроса на изменение подписи.
type UpdateCaptionRequest struct {
	Caption string `json:"caption"`
}
