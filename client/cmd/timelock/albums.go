package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/models"
	"github.com/spf13/cobra"
)

// describeAccess - состояние альбома одной строкой.
func describeAccess(d models.AccessDecision) string {
	switch d.Status {
	case access.StatusSealed:
		return "запечатан"
	case access.StatusUnlocked:
		return "открыт, осталось " + d.Decision().TimeRemaining.Round(time.Second).String()
	case access.StatusExpired:
		return "истек"
	}
	return string(d.Status)
}

func (a *app) printAlbum(view *models.AlbumView) {
	a.printf("ID:        %s\n", view.ID)
	a.printf("Название:  %s\n", view.Title)
	if view.Comment != nil {
		a.printf("Заметка:   %s\n", *view.Comment)
	}
	a.printf("Состояние: %s\n", describeAccess(view.Access))
	if view.UnlockAt != nil {
		a.printf("Вскрыт:    %s (%s)\n", view.UnlockAt.Local().Format(time.DateTime), humanize.Time(*view.UnlockAt))
	}
	for _, item := range view.Items {
		a.printf("  %s  %s  %s\n", item.ID, item.OriginalName, item.URL)
	}
}

func newAlbumsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "albums",
		Aliases: []string{"ls"},
		Short:   "Список альбомов",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			albums, err := client.ListAlbums(cmd.Context())
			if err != nil {
				return explain(err)
			}
			if len(albums) == 0 {
				a.printf("Альбомов пока нет\n")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tНАЗВАНИЕ\tСОСТОЯНИЕ\tФОТО")
			for _, album := range albums {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
					album.ID, album.Title, describeAccess(album.Access), len(album.Photos))
			}
			return tw.Flush()
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Создать запечатанный альбом",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			view, err := client.CreateAlbum(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return explain(err)
			}
			a.printAlbum(view)
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <album-id>",
		Short: "Показать альбом и ссылки на фотографии, если он открыт",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			view, err := client.GetAlbum(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			a.printAlbum(view)
			return nil
		},
	}
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <album-id> <title>",
		Short: "Переименовать альбом",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args[1:], " ")
			return a.updateAlbum(cmd, args[0], models.UpdateAlbumRequest{Title: &title})
		},
	}
}

func newCommentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <album-id> [text]",
		Short: "Изменить заметку к альбому (без текста заметка удаляется)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comment := strings.Join(args[1:], " ")
			return a.updateAlbum(cmd, args[0], models.UpdateAlbumRequest{Comment: &comment})
		},
	}
}

func (a *app) updateAlbum(cmd *cobra.Command, albumID string, req models.UpdateAlbumRequest) error {
	client, err := a.authedClient(cmd.Context())
	if err != nil {
		return err
	}
	view, err := client.UpdateAlbum(cmd.Context(), albumID, req)
	if err != nil {
		return explain(err)
	}
	a.printAlbum(view)
	return nil
}

func newUnsealCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unseal <album-id>",
		Short: "Вскрыть альбом и открыть окно просмотра на 24 часа",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			view, err := client.UnsealAlbum(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			a.printAlbum(view)
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <album-id>",
		Short: "Удалить альбом вместе с фотографиями",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			if err = client.DeleteAlbum(cmd.Context(), args[0]); err != nil {
				return explain(err)
			}
			a.printf("Альбом %s удален\n", args[0])
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Сводка по состояниям альбомов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := client.Stats(cmd.Context())
			if err != nil {
				return explain(err)
			}
			a.printf("Всего: %d, запечатано: %d, открыто: %d, истекло: %d\n",
				stats.Total, stats.Sealed, stats.Unlocked, stats.Expired)
			return nil
		},
	}
}
