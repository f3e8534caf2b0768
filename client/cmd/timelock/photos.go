package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newPhotosCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "photos <album-id>",
		Short: "Список фотографий альбома",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			photos, err := client.ListPhotos(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			if len(photos) == 0 {
				a.printf("В альбоме нет фотографий\n")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tФАЙЛ\tРАЗМЕР\tТИП\tПОДПИСЬ")
			for _, p := range photos {
				caption := ""
				if p.Caption != nil {
					caption = *p.Caption
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.OriginalName, humanize.IBytes(uint64(p.SizeBytes)), p.MimeType, caption)
			}
			return tw.Flush()
		},
	}
}

func newUploadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <album-id> <file>",
		Short: "Загрузить фотографию в запечатанный альбом",
		Args:  cobra.ExactArgs(2),
	}
	caption := cmd.Flags().StringP("caption", "c", "", "Подпись к фотографии")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		client, err := a.authedClient(cmd.Context())
		if err != nil {
			return err
		}
		file, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("ошибка открытия файла: %w", err)
		}
		defer file.Close()

		photo, err := client.UploadPhoto(cmd.Context(), args[0], filepath.Base(args[1]), file, *caption)
		if err != nil {
			return explain(err)
		}
		a.printf("Загружено: %s (%s, %s)\n", photo.ID, photo.MimeType, humanize.IBytes(uint64(photo.SizeBytes)))
		return nil
	}
	return cmd
}

func newCaptionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "caption <photo-id> [text]",
		Short: "Изменить подпись к фотографии",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			photo, err := client.UpdateCaption(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return explain(err)
			}
			a.printf("Подпись к %s обновлена\n", photo.ID)
			return nil
		},
	}
}

func newRemovePhotoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm-photo <photo-id>",
		Short: "Удалить фотографию",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			if err = client.DeletePhoto(cmd.Context(), args[0]); err != nil {
				return explain(err)
			}
			a.printf("Фотография %s удалена\n", args[0])
			return nil
		},
	}
}

func newURLCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url <photo-id>",
		Short: "Получить временную ссылку на фотографию открытого альбома",
		Args:  cobra.ExactArgs(1),
	}
	ttl := cmd.Flags().Duration("ttl", 0, "Срок жизни ссылки (по умолчанию задает сервер)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		client, err := a.authedClient(cmd.Context())
		if err != nil {
			return err
		}
		resp, err := client.PhotoURL(cmd.Context(), args[0], *ttl)
		if err != nil {
			return explain(err)
		}
		a.printf("%s\nДействует до %s\n", resp.URL, resp.ExpiresAt.Local().Format(time.DateTime))
		return nil
	}
	return cmd
}
