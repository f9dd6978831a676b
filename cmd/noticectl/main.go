package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"anoa.com/notifiq/internal/client"
	notice "anoa.com/notifiq/internal/modules/notice/service"
	upload "anoa.com/notifiq/internal/modules/upload/service"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "noticectl",
		Usage: "write and publish college notices from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "notice board API base URL",
				EnvVars: []string{"NOTIFIQ_SERVER"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token from `noticectl login`",
				EnvVars: []string{"NOTIFIQ_TOKEN"},
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			postCommand(),
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in with email and password and print a bearer token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", EnvVars: []string{"NOTIFIQ_PASSWORD"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			api := client.New(c.String("server"), "", nil)
			resp, err := api.Login(c.Context, c.String("email"), c.String("password"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "export NOTIFIQ_TOKEN=%s\n", resp.AccessToken)
			if resp.NeedsCollege {
				fmt.Fprintln(c.App.ErrWriter, "account has no college yet; join one before posting")
			}
			return nil
		},
	}
}

func postCommand() *cli.Command {
	return &cli.Command{
		Name:      "post",
		Usage:     "create a notice, or overwrite one with --edit",
		ArgsUsage: "[image files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "edit", Usage: "id of the notice to overwrite"},
			&cli.StringFlag{Name: "title"},
			&cli.StringFlag{Name: "description"},
			&cli.PathFlag{Name: "description-file", Usage: "read the markdown description from a file"},
			&cli.StringFlag{Name: "category", Usage: "General, Exam, Event, Urgent, Verified or Holiday"},
			&cli.StringFlag{Name: "priority", Usage: "Low, Medium or High"},
			&cli.StringFlag{Name: "color", Usage: "default, red, blue, green or yellow"},
			&cli.TimestampFlag{Name: "expires", Layout: "2006-01-02", Usage: "expiry date (YYYY-MM-DD)"},
			&cli.StringSliceFlag{Name: "link", Usage: "url or url|name, repeatable"},
			&cli.StringFlag{Name: "rewrite", Usage: "rewrite the description first: Professional, Casual or Concise"},
		},
		Action: runPost,
	}
}

func runPost(c *cli.Context) error {
	token := c.String("token")
	if token == "" {
		return errors.New("no token: run `noticectl login` and export NOTIFIQ_TOKEN")
	}
	api := client.New(c.String("server"), token, nil)
	ctx := c.Context

	draft := notice.NewDraft(nil)
	if raw := c.String("edit"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid notice id %q", raw)
		}
		existing, err := api.GetNotice(ctx, id)
		if err != nil {
			return err
		}
		draft = notice.NewDraft(existing)
	}

	if err := applyFields(c, draft); err != nil {
		return err
	}

	for _, raw := range c.StringSlice("link") {
		url, name, _ := strings.Cut(raw, "|")
		draft.SetPendingLink(url, name)
		if !draft.CommitLink() {
			return fmt.Errorf("invalid link %q", raw)
		}
	}

	if tone := c.String("rewrite"); tone != "" {
		if err := draft.Rewrite(ctx, api, tone); err != nil {
			return fmt.Errorf("rewrite: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "rewritten description:\n%s\n\n", draft.Description)
	}

	if c.NArg() > 0 {
		if err := attach(c, api, draft); err != nil {
			return err
		}
	}

	saved, err := draft.Submit(ctx, api)
	if err != nil {
		return err
	}
	verb := "created"
	if draft.IsEdit() {
		verb = "updated"
	}
	fmt.Fprintf(c.App.Writer, "%s notice %s (%s)\n", verb, saved.ID, saved.Title)
	return nil
}

func applyFields(c *cli.Context, draft *notice.Draft) error {
	if c.IsSet("title") {
		draft.Title = c.String("title")
	}
	if c.IsSet("description") {
		draft.Description = c.String("description")
	}
	if path := c.Path("description-file"); path != "" {
		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		draft.Description = string(body)
	}
	if c.IsSet("category") {
		draft.Category = c.String("category")
	}
	if c.IsSet("priority") {
		draft.Priority = c.String("priority")
	}
	if c.IsSet("color") {
		draft.Color = c.String("color")
	}
	if ts := c.Timestamp("expires"); ts != nil {
		expiry := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		draft.ExpiryDate = &expiry
	}
	return nil
}

func attach(c *cli.Context, api *client.Client, draft *notice.Draft) error {
	files := make([]upload.ImageFile, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		file, err := client.ImageFromPath(path)
		if err != nil {
			return err
		}
		files = append(files, file)
	}

	results := draft.AttachImages(c.Context, api, files, func(name string, percent int) {
		fmt.Fprintf(c.App.ErrWriter, "\r%s %3d%%", name, percent)
		if percent == 100 {
			fmt.Fprintln(c.App.ErrWriter)
		}
	})

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(c.App.ErrWriter, "\n%s: %v\n", r.Name, r.Err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(results))
	}
	return nil
}
