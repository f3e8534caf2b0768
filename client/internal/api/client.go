// Package api содержит HTTP-клиент сервера timelock.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/maynagashev/timelock/models"
)

// Ошибки, которые клиент различает по статусу ответа.
var (
	ErrAuthorization = errors.New("ошибка авторизации")
	ErrNotFound      = errors.New("не найдено")
	ErrConflict      = errors.New("конфликт")
	ErrLocked        = errors.New("альбом закрыт для просмотра")
)

// maxErrorBody - сколько тела ответа читаем в текст ошибки.
const maxErrorBody = 4 << 10

// Error - ответ сервера с кодом ошибки.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("статус %d", e.StatusCode)
	}
	return fmt.Sprintf("статус %d: %s", e.StatusCode, e.Message)
}

// Is сопоставляет статус ответа с ошибками пакета.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuthorization:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrLocked:
		return e.StatusCode == http.StatusForbidden
	}
	return false
}

// Client определяет интерфейс для взаимодействия с API сервера timelock.
type Client interface {
	// Register регистрирует нового пользователя.
	Register(ctx context.Context, username, password string) error
	// Login аутентифицирует пользователя и возвращает JWT токен.
	Login(ctx context.Context, username, password string) (string, error)
	// SetAuthToken устанавливает JWT токен для аутентифицированных запросов.
	SetAuthToken(token string)

	CreateAlbum(ctx context.Context, title string) (*models.AlbumView, error)
	ListAlbums(ctx context.Context) ([]models.AlbumView, error)
	GetAlbum(ctx context.Context, albumID string) (*models.AlbumView, error)
	UpdateAlbum(ctx context.Context, albumID string, req models.UpdateAlbumRequest) (*models.AlbumView, error)
	UnsealAlbum(ctx context.Context, albumID string) (*models.AlbumView, error)
	DeleteAlbum(ctx context.Context, albumID string) error
	Stats(ctx context.Context) (*models.AlbumStats, error)

	ListPhotos(ctx context.Context, albumID string) ([]models.Photo, error)
	UploadPhoto(ctx context.Context, albumID, fileName string, data io.Reader, caption string) (*models.Photo, error)
	UpdateCaption(ctx context.Context, photoID, caption string) (*models.Photo, error)
	DeletePhoto(ctx context.Context, photoID string) error
	PhotoURL(ctx context.Context, photoID string, ttl time.Duration) (*models.PhotoURLResponse, error)

	// WatchCountdown получает решения о доступе по websocket, пока сервер
	// не закроет поток или не будет отменен ctx.
	WatchCountdown(ctx context.Context, albumID string, fn func(models.AccessDecision)) error
}

// httpClient реализует интерфейс Client для взаимодействия с сервером по HTTP.
type httpClient struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// NewHTTPClient создает новый экземпляр API клиента.
func NewHTTPClient(baseURL string) Client {
	return &httpClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (c *httpClient) SetAuthToken(token string) {
	c.authToken = token
}

// Register отправляет запрос на регистрацию на сервер.
func (c *httpClient) Register(ctx context.Context, username, password string) error {
	body := models.Credentials{Username: username, Password: password}
	return c.doJSON(ctx, http.MethodPost, "/api/register", body, nil)
}

// Login отправляет запрос на вход и сохраняет полученный токен.
func (c *httpClient) Login(ctx context.Context, username, password string) (string, error) {
	var resp models.AuthToken
	body := models.Credentials{Username: username, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("сервер вернул пустой токен")
	}
	c.SetAuthToken(resp.Token)
	return resp.Token, nil
}

func (c *httpClient) CreateAlbum(ctx context.Context, title string) (*models.AlbumView, error) {
	var album models.AlbumView
	err := c.doJSON(ctx, http.MethodPost, "/api/albums", models.CreateAlbumRequest{Title: title}, &album)
	return orNil(&album, err)
}

func (c *httpClient) ListAlbums(ctx context.Context) ([]models.AlbumView, error) {
	var albums []models.AlbumView
	if err := c.doJSON(ctx, http.MethodGet, "/api/albums", nil, &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

func (c *httpClient) GetAlbum(ctx context.Context, albumID string) (*models.AlbumView, error) {
	var album models.AlbumView
	err := c.doJSON(ctx, http.MethodGet, "/api/albums/"+url.PathEscape(albumID), nil, &album)
	return orNil(&album, err)
}

func (c *httpClient) UpdateAlbum(
	ctx context.Context,
	albumID string,
	req models.UpdateAlbumRequest,
) (*models.AlbumView, error) {
	var album models.AlbumView
	err := c.doJSON(ctx, http.MethodPatch, "/api/albums/"+url.PathEscape(albumID), req, &album)
	return orNil(&album, err)
}

func (c *httpClient) UnsealAlbum(ctx context.Context, albumID string) (*models.AlbumView, error) {
	var album models.AlbumView
	err := c.doJSON(ctx, http.MethodPost, "/api/albums/"+url.PathEscape(albumID)+"/unseal", nil, &album)
	return orNil(&album, err)
}

func (c *httpClient) DeleteAlbum(ctx context.Context, albumID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/albums/"+url.PathEscape(albumID), nil, nil)
}

func (c *httpClient) Stats(ctx context.Context) (*models.AlbumStats, error) {
	var stats models.AlbumStats
	err := c.doJSON(ctx, http.MethodGet, "/api/albums/stats", nil, &stats)
	return orNil(&stats, err)
}

func (c *httpClient) ListPhotos(ctx context.Context, albumID string) ([]models.Photo, error) {
	var photos []models.Photo
	if err := c.doJSON(ctx, http.MethodGet, "/api/albums/"+url.PathEscape(albumID)+"/photos", nil, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// UploadPhoto отправляет файл формой multipart. Тело формируется потоково.
func (c *httpClient) UploadPhoto(
	ctx context.Context,
	albumID, fileName string,
	data io.Reader,
	caption string,
) (*models.Photo, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", fileName)
		if err == nil {
			_, err = io.Copy(part, data)
		}
		if err == nil && caption != "" {
			err = mw.WriteField("caption", caption)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/albums/"+url.PathEscape(albumID)+"/photos", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var photo models.Photo
	err = c.do(req, &photo)
	_ = pr.Close()
	return orNil(&photo, err)
}

func (c *httpClient) UpdateCaption(ctx context.Context, photoID, caption string) (*models.Photo, error) {
	var photo models.Photo
	err := c.doJSON(ctx, http.MethodPatch, "/api/photos/"+url.PathEscape(photoID),
		models.UpdateCaptionRequest{Caption: caption}, &photo)
	return orNil(&photo, err)
}

func (c *httpClient) DeletePhoto(ctx context.Context, photoID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/photos/"+url.PathEscape(photoID), nil, nil)
}

// PhotoURL запрашивает подписанную ссылку. ttl == 0 означает срок по умолчанию сервера.
func (c *httpClient) PhotoURL(ctx context.Context, photoID string, ttl time.Duration) (*models.PhotoURLResponse, error) {
	path := "/api/photos/" + url.PathEscape(photoID) + "/url"
	if ttl > 0 {
		path += "?ttl=" + url.QueryEscape(ttl.String())
	}
	var resp models.PhotoURLResponse
	err := c.doJSON(ctx, http.MethodGet, path, nil, &resp)
	return orNil(&resp, err)
}

func (c *httpClient) WatchCountdown(ctx context.Context, albumID string, fn func(models.AccessDecision)) error {
	wsURL, err := c.websocketURL("/api/albums/" + url.PathEscape(albumID) + "/countdown")
	if err != nil {
		return err
	}

	header := http.Header{}
	if c.authToken != "" {
		header.Set("Authorization", "Bearer "+c.authToken)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return responseError(resp)
		}
		return fmt.Errorf("ошибка подключения к потоку отсчета: %w", err)
	}
	defer conn.Close()

	// Отмена ctx закрывает соединение и прерывает чтение
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var d models.AccessDecision
		if err = conn.ReadJSON(&d); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("ошибка чтения потока отсчета: %w", err)
		}
		fn(d)
	}
}

// websocketURL переводит адрес сервера в схему ws(s)://.
func (c *httpClient) websocketURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("ошибка формирования URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

func (c *httpClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса %s %s: %w", method, path, err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	return req, nil
}

// doJSON отправляет in как JSON (если не nil) и декодирует ответ в out (если не nil).
func (c *httpClient) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("ошибка кодирования запроса: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	return nil
}

// responseError читает текст ошибки, который сервер отдает через http.Error.
func responseError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
}

func orNil[T any](v *T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
