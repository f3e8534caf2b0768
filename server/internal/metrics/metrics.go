// Package metrics содержит коллекторы Prometheus сервера.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "timelock"

var (
	AlbumsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "albums_created_total",
		Help:      "Количество созданных альбомов.",
	})
	AlbumsUnsealed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "albums_unsealed_total",
		Help:      "Количество вскрытых альбомов.",
	})
	AlbumsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "albums_deleted_total",
		Help:      "Количество удаленных альбомов.",
	})
	UnsealConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unseal_conflicts_total",
		Help:      "Попытки повторно вскрыть альбом.",
	})
	PhotosUploaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photos_uploaded_total",
		Help:      "Количество загруженных фотографий.",
	})
	PhotoBytesUploaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photo_bytes_uploaded_total",
		Help:      "Суммарный объем загруженных фотографий в байтах.",
	})
	PhotosDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photos_deleted_total",
		Help:      "Количество удаленных фотографий.",
	})
	BlobCleanupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blob_cleanup_failures_total",
		Help:      "Неудачные попытки удалить файлы из объектного хранилища.",
	})

	// Albums - число альбомов по состояниям доступа на момент последней переписи.
	Albums = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "albums",
		Help:      "Альбомы по состоянию доступа.",
	}, []string{"state"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Длительность обработки HTTP-запросов.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(
		AlbumsCreated,
		AlbumsUnsealed,
		AlbumsDeleted,
		UnsealConflicts,
		PhotosUploaded,
		PhotoBytesUploaded,
		PhotosDeleted,
		BlobCleanupFailures,
		Albums,
		HTTPRequestDuration,
	)
}

// SetAlbumStates выставляет gauge Albums по результатам переписи.
func SetAlbumStates(s access.Stats) {
	Albums.WithLabelValues(string(access.StatusSealed)).Set(float64(s.Sealed))
	Albums.WithLabelValues(string(access.StatusUnlocked)).Set(float64(s.Unlocked))
	Albums.WithLabelValues(string(access.StatusExpired)).Set(float64(s.Expired))
}

// Instrument измеряет длительность запросов. Метка route берется из шаблона
// маршрута chi, чтобы ID в пути не раздували кардинальность.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
