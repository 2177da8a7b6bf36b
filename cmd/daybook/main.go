package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"daybook/internal/auth"
	"daybook/internal/config"
	"daybook/internal/export"
	"daybook/internal/gcal"
	"daybook/internal/model"
	"daybook/internal/store"
	"daybook/internal/summary"
	"daybook/internal/sync"
)

func main() {
	// Load .env first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	cliApp := &cli.App{
		Name:  "daybook",
		Usage: "Personal calendar that merges local events with a Google Calendar mirror.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level (debug, info, warn, error)."},
			&cli.BoolFlag{Name: "log-json", Usage: "Emit logs as JSON."},
		},
		Commands: []*cli.Command{
			configureCommand(),
			authCommand(),
			syncCommand(),
			statusCommand(),
			addCommand(),
			listCommand(),
			removeCommand(),
			exportCommand(),
			summaryCommand(),
			disconnectCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type app struct {
	log        *logrus.Entry
	controller *sync.Controller
	locals     *store.Store
}

func newApp(c *cli.Context) (*app, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if c.Bool("log-json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)
	log := logrus.NewEntry(logger)

	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}

	settings := config.NewStore(filepath.Join(dir, "settings.json"))
	locals, err := store.Open(filepath.Join(dir, "events.json"))
	if err != nil {
		return nil, err
	}

	authLog := log.WithField("component", "auth")
	tokens := auth.NewFileTokenStore(filepath.Join(dir, "token.json"))
	session := auth.NewSession(tokens, auth.NewLoopbackFlow(authLog), authLog)

	client := gcal.NewClient(log.WithField("component", "gcal"))
	lifecycle := gcal.NewManager(log.WithField("component", "lifecycle"), client, session)
	engine := sync.NewEngine(client, gcal.NewNormalizer(), lifecycle.Ready, session.HasValidToken, log.WithField("component", "sync"))
	controller := sync.NewController(settings, locals, lifecycle, session, client, engine, log.WithField("component", "sync"))

	return &app{log: log, controller: controller, locals: locals}, nil
}

// bootstrap loads stored credentials and brings the provider libraries up
// when configured. Commands that only touch local events skip it.
func bootstrap(c *cli.Context) (*app, error) {
	a, err := newApp(c)
	if err != nil {
		return nil, err
	}
	if err := a.controller.Bootstrap(c.Context); err != nil {
		return nil, err
	}
	return a, nil
}

func configureCommand() *cli.Command {
	return &cli.Command{
		Name:  "configure",
		Usage: "Save Google Calendar credentials. Overwrites any previous configuration.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "client-id", Required: true, Usage: "OAuth client id."},
			&cli.StringFlag{Name: "client-secret", Usage: "OAuth client secret."},
			&cli.StringFlag{Name: "api-key", Required: true, Usage: "Google API key."},
			&cli.StringFlag{Name: "calendar", Usage: "Calendar id, email, or a pasted share link. Empty means your primary calendar."},
		},
		Action: func(c *cli.Context) error {
			a, err := newApp(c)
			if err != nil {
				return err
			}
			cfg := config.Config{
				ClientID:     c.String("client-id"),
				ClientSecret: c.String("client-secret"),
				APIKey:       c.String("api-key"),
				CalendarID:   c.String("calendar"),
			}
			if err := a.controller.SaveConfig(c.Context, cfg); err != nil {
				return err
			}
			snap := a.controller.Snapshot()
			fmt.Printf("Configuration saved. State: %s\n", snap.State)
			if !snap.IsAuthenticated {
				fmt.Println("Run 'daybook auth' to sign in.")
			}
			return nil
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in to Google and grant calendar access.",
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c)
			if err != nil {
				return err
			}
			// The consent flow runs directly off this command invocation;
			// deferring it would get the browser window blocked.
			if err := a.controller.Authenticate(c.Context); err != nil {
				return err
			}
			fmt.Println("Signed in.")
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Fetch Google Calendar events for the visible month window.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "month", Usage: "Month to sync around, formatted YYYY-MM. Defaults to the current month."},
		},
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c)
			if err != nil {
				return err
			}
			if month, err := monthFlag(c); err != nil {
				return err
			} else if !month.IsZero() {
				a.controller.SetVisibleMonth(c.Context, month)
			}

			snap := a.controller.Snapshot()
			if !snap.IsAuthenticated {
				return fmt.Errorf("not signed in; run 'daybook auth' first")
			}

			if err := a.controller.Sync(c.Context); err != nil {
				return err
			}
			snap = a.controller.Snapshot()
			fmt.Printf("Synced %d Google events.\n", len(snap.ProviderEvents))
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the state of the Google Calendar integration.",
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c)
			if err != nil {
				return err
			}
			snap := a.controller.Snapshot()
			fmt.Printf("state:         %s\n", snap.State)
			fmt.Printf("ready:         %v\n", snap.IsReady)
			fmt.Printf("authenticated: %v\n", snap.IsAuthenticated)
			if snap.LastError != nil {
				fmt.Printf("last error:    [%s] %s\n", snap.LastError.Kind, snap.LastError.Message)
			}
			return nil
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a local event.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Required: true},
			&cli.StringFlag{Name: "start", Usage: "Start time (RFC 3339 or '2006-01-02 15:04' local)."},
			&cli.StringFlag{Name: "end", Usage: "End time. Defaults to the start time."},
			&cli.StringFlag{Name: "date", Usage: "All-day event date (2006-01-02). Overrides --start/--end."},
			&cli.StringFlag{Name: "category", Value: string(model.CategoryOther), Usage: "work, personal, health, learning, meeting or other."},
			&cli.StringFlag{Name: "description"},
			&cli.StringFlag{Name: "location"},
		},
		Action: func(c *cli.Context) error {
			a, err := newApp(c)
			if err != nil {
				return err
			}

			var start, end time.Time
			if date := c.String("date"); date != "" {
				day, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				start, end = day, day.AddDate(0, 0, 1)
			} else {
				if c.String("start") == "" {
					return fmt.Errorf("either --start or --date is required")
				}
				start, err = parseTime(c.String("start"))
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				end = start
				if c.String("end") != "" {
					end, err = parseTime(c.String("end"))
					if err != nil {
						return fmt.Errorf("invalid --end: %w", err)
					}
				}
			}

			ev, err := a.locals.Add(model.CalendarEvent{
				Title:       c.String("title"),
				Description: c.String("description"),
				Location:    c.String("location"),
				Start:       start,
				End:         end,
				Category:    model.Category(strings.ToLower(c.String("category"))),
			})
			if err != nil {
				return err
			}
			fmt.Printf("Added event %s\n", ev.ID)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List merged events (local plus the Google mirror).",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "month", Usage: "Restrict to a month (YYYY-MM)."},
			&cli.BoolFlag{Name: "sync", Usage: "Fetch Google events before listing."},
		},
		Action: func(c *cli.Context) error {
			merged, err := mergedEvents(c)
			if err != nil {
				return err
			}

			month, err := monthFlag(c)
			if err != nil {
				return err
			}
			for _, ev := range merged {
				if !month.IsZero() {
					next := month.AddDate(0, 1, 0)
					if ev.Start.Before(month) || !ev.Start.Before(next) {
						continue
					}
				}
				source := "local"
				if ev.IsGoogleEvent {
					source = "google"
				}
				fmt.Printf("%s  %-20s %-9s %-7s %s\n",
					ev.Start.Format("2006-01-02 15:04"), truncate(ev.Title, 20), ev.Category, source, ev.ID)
			}
			return nil
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove a local event. Google-sourced events cannot be removed here.",
		ArgsUsage: "EVENT_ID",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one event id")
			}
			a, err := newApp(c)
			if err != nil {
				return err
			}
			if err := a.locals.Remove(c.Args().First()); err != nil {
				return err
			}
			fmt.Println("Removed.")
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export merged events to a file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: "ics", Usage: "ics or csv."},
			&cli.StringFlag{Name: "out", Required: true, Usage: "Output file path."},
			&cli.BoolFlag{Name: "sync", Usage: "Fetch Google events before exporting."},
		},
		Action: func(c *cli.Context) error {
			merged, err := mergedEvents(c)
			if err != nil {
				return err
			}

			f, err := os.Create(c.String("out"))
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()

			switch c.String("format") {
			case "ics":
				err = export.WriteICS(f, merged)
			case "csv":
				err = export.WriteCSV(f, merged)
			default:
				return fmt.Errorf("unknown format %q (want ics or csv)", c.String("format"))
			}
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d events to %s\n", len(merged), c.String("out"))
			return nil
		},
	}
}

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Show a productivity summary for a month.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "month", Usage: "Month (YYYY-MM). Defaults to the current month."},
			&cli.BoolFlag{Name: "sync", Usage: "Fetch Google events before summarizing."},
		},
		Action: func(c *cli.Context) error {
			merged, err := mergedEvents(c)
			if err != nil {
				return err
			}

			month, err := monthFlag(c)
			if err != nil {
				return err
			}
			if month.IsZero() {
				now := time.Now()
				month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
			}

			s := summary.Build(merged, month, month.AddDate(0, 1, 0))
			s.Render(os.Stdout)
			return nil
		},
	}
}

func disconnectCommand() *cli.Command {
	return &cli.Command{
		Name:  "disconnect",
		Usage: "Revoke access, clear credentials and drop all mirrored Google events.",
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c)
			if err != nil {
				return err
			}
			a.controller.Disconnect()
			fmt.Println("Disconnected. Local events are untouched.")
			return nil
		},
	}
}

// mergedEvents bootstraps the app, optionally syncing first when --sync is
// set, and returns the merged event list.
func mergedEvents(c *cli.Context) ([]model.CalendarEvent, error) {
	a, err := bootstrap(c)
	if err != nil {
		return nil, err
	}

	if c.Bool("sync") {
		if month, err := monthFlag(c); err != nil {
			return nil, err
		} else if !month.IsZero() {
			a.controller.SetVisibleMonth(c.Context, month)
		}
		if err := a.controller.Sync(c.Context); err != nil {
			return nil, err
		}
	}

	return a.controller.Merged(), nil
}

func monthFlag(c *cli.Context) (time.Time, error) {
	raw := c.String("month")
	if raw == "" {
		return time.Time{}, nil
	}
	month, err := time.ParseInLocation("2006-01", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --month (want YYYY-MM): %w", err)
	}
	return month, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04", raw, time.Local)
}
