package main

import (
	"github.com/maynagashev/timelock/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <album-id>",
		Short: "Показать обратный отсчет окна просмотра",
		Args:  cobra.ExactArgs(1),
	}
	stream := cmd.Flags().Bool("stream", false, "Печатать решения сервера построчно вместо экрана отсчета")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := a.authedClient(ctx)
		if err != nil {
			return err
		}

		if *stream {
			err = client.WatchCountdown(ctx, args[0], func(d models.AccessDecision) {
				a.printf("%s\n", describeAccess(d))
			})
			return explain(err)
		}

		view, err := client.GetAlbum(ctx, args[0])
		if err != nil {
			return explain(err)
		}
		decision, err := a.countdown(ctx, view.Album, client)
		if err != nil {
			return err
		}
		zap.S().Infof("[Client] Отсчет для %s завершен: %s", view.ID, decision.Status)
		a.printf("%s\n", describeAccess(models.NewAccessDecision(decision)))
		return nil
	}
	return cmd
}
