package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/maynagashev/timelock/client/internal/api"
	"github.com/maynagashev/timelock/client/internal/session"
	"github.com/maynagashev/timelock/client/internal/tui"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/models"
	"github.com/spf13/cobra"
)

const (
	defaultServerURL = "http://localhost:8080"
	envServerURL     = "TIMELOCK_SERVER_URL"
	envSessionPath   = "TIMELOCK_SESSION"
	envPassword      = "TIMELOCK_PASSWORD"
)

// app хранит общие для всех команд зависимости.
type app struct {
	out         io.Writer
	serverURL   string
	sessionPath string

	newClient func(baseURL string) api.Client
	countdown func(ctx context.Context, album models.Album, unsealer tui.Unsealer) (access.Decision, error)
}

func newApp(out io.Writer) *app {
	return &app{
		out:       out,
		newClient: api.NewHTTPClient,
		countdown: tui.Run,
	}
}

func (a *app) store() *session.Store {
	return session.NewStore(a.sessionPath)
}

// baseURL выбирает адрес сервера: флаг, окружение, сохраненная сессия, значение по умолчанию.
func (a *app) baseURL(sess *session.Session) string {
	switch {
	case a.serverURL != "":
		return a.serverURL
	case os.Getenv(envServerURL) != "":
		return os.Getenv(envServerURL)
	case sess != nil && sess.ServerURL != "":
		return sess.ServerURL
	}
	return defaultServerURL
}

// authedClient возвращает клиент с токеном из сохраненной сессии.
func (a *app) authedClient(ctx context.Context) (api.Client, error) {
	sess, err := a.store().Load(ctx)
	if err != nil {
		return nil, err
	}
	client := a.newClient(a.baseURL(sess))
	client.SetAuthToken(sess.Token)
	return client, nil
}

// explain добавляет к ошибке API подсказку для пользователя.
func explain(err error) error {
	if errors.Is(err, api.ErrAuthorization) {
		return fmt.Errorf("%w (выполните timelock login заново)", err)
	}
	return err
}

func (a *app) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func defaultSessionPath() string {
	if p := os.Getenv(envSessionPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "timelock", "session.json")
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "timelock",
		Short: "Клиент фотоальбомов с отложенным доступом",
		Long: `timelock хранит фотографии в запечатанных альбомах. После вскрытия
альбом доступен для просмотра 24 часа, затем доступ закрывается навсегда.`,
		Version:       fmt.Sprintf("%s (build: %s, commit: %s)", version, buildDate, commitHash),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if a.sessionPath == "" {
				a.sessionPath = defaultSessionPath()
			}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(a.out)

	root.PersistentFlags().StringVarP(&a.serverURL, "server", "s", "",
		"URL сервера (env: "+envServerURL+")")
	root.PersistentFlags().StringVar(&a.sessionPath, "session", "",
		"Путь к файлу сессии (env: "+envSessionPath+")")

	root.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newAlbumsCmd(a),
		newCreateCmd(a),
		newShowCmd(a),
		newRenameCmd(a),
		newCommentCmd(a),
		newUnsealCmd(a),
		newDeleteCmd(a),
		newStatsCmd(a),
		newPhotosCmd(a),
		newUploadCmd(a),
		newCaptionCmd(a),
		newRemovePhotoCmd(a),
		newURLCmd(a),
		newWatchCmd(a),
	)
	return root
}
