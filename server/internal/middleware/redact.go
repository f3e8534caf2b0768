package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// tokenQueryParam - параметр, в котором браузерные клиенты websocket
// обычно передают токен. Сервер его не принимает.
const tokenQueryParam = "access_token"

// StripTokenQuery убирает access_token из адреса запроса до журналирования,
// чтобы токен не попал в access-лог. Ставится перед chi middleware.Logger.
func StripTokenQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !q.Has(tokenQueryParam) {
			next.ServeHTTP(w, r)
			return
		}

		q.Del(tokenQueryParam)
		clean := r.Clone(r.Context())
		clean.URL.RawQuery = q.Encode()
		clean.RequestURI = clean.URL.RequestURI()
		zap.S().Warnf("[StripTokenQuery] Токен в адресе запроса отброшен (%s %s)", r.Method, clean.URL.Path)
		next.ServeHTTP(w, clean)
	})
}
