package main

import (
	"errors"
	"os"

	"github.com/maynagashev/timelock/client/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func passwordFlag(cmd *cobra.Command) *string {
	return cmd.Flags().StringP("password", "p", "", "Пароль (env: "+envPassword+")")
}

func resolvePassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envPassword); v != "" {
		return v, nil
	}
	return "", errors.New("не указан пароль (-p или " + envPassword + ")")
}

func newRegisterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Зарегистрировать пользователя",
		Args:  cobra.ExactArgs(1),
	}
	password := passwordFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		pass, err := resolvePassword(*password)
		if err != nil {
			return err
		}
		client := a.newClient(a.baseURL(nil))
		if err = client.Register(cmd.Context(), args[0], pass); err != nil {
			return err
		}
		zap.S().Infof("[Client] Зарегистрирован пользователь %s", args[0])
		a.printf("Пользователь %s зарегистрирован\n", args[0])
		return nil
	}
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Войти и сохранить сессию",
		Args:  cobra.ExactArgs(1),
	}
	password := passwordFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		pass, err := resolvePassword(*password)
		if err != nil {
			return err
		}
		serverURL := a.baseURL(nil)
		client := a.newClient(serverURL)
		token, err := client.Login(cmd.Context(), args[0], pass)
		if err != nil {
			return err
		}
		sess := session.Session{ServerURL: serverURL, Username: args[0], Token: token}
		if err = a.store().Save(cmd.Context(), sess); err != nil {
			return err
		}
		zap.S().Infof("[Client] Вход выполнен: %s@%s", args[0], serverURL)
		a.printf("Вход выполнен, сессия сохранена в %s\n", a.store().Path())
		return nil
	}
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Удалить сохраненную сессию",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store().Clear(cmd.Context()); err != nil {
				return err
			}
			a.printf("Сессия удалена\n")
			return nil
		},
	}
}
