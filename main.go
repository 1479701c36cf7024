package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"EventSync/notify"
	"EventSync/repo"
	"EventSync/service"
	"EventSync/syncer"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.App{
		Name:  "eventsync",
		Usage: "Coordinate shared calendar events and keep a local view in sync.",
		Commands: []*cli.Command{
			runCommand(),
			createCommand(),
			inviteCommand(),
			membershipCommand("accept", "Accept a pending invitation.", func(ctx context.Context, svc *service.MembershipService, eventID, userID string) error {
				_, err := svc.Accept(ctx, eventID, userID)
				return err
			}),
			membershipCommand("decline", "Decline a pending invitation.", func(ctx context.Context, svc *service.MembershipService, eventID, userID string) error {
				_, err := svc.Decline(ctx, eventID, userID)
				return err
			}),
			membershipCommand("checkin", "Check in to an event.", func(ctx context.Context, svc *service.MembershipService, eventID, userID string) error {
				_, err := svc.CheckIn(ctx, eventID, userID)
				return err
			}),
			membershipCommand("revoke-checkin", "Withdraw a check-in.", func(ctx context.Context, svc *service.MembershipService, eventID, userID string) error {
				_, err := svc.RevokeCheckIn(ctx, eventID, userID)
				return err
			}),
			membershipCommand("leave", "Leave an event. The creator leaving deletes it.", func(ctx context.Context, svc *service.MembershipService, eventID, userID string) error {
				deleted, err := svc.Leave(ctx, eventID, userID)
				if err != nil {
					return err
				}
				if deleted {
					log.Info().Str("event_id", eventID).Msg("event deleted")
				}
				return nil
			}),
			remindCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("eventsync failed")
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start a sync session for a user and stream events until interrupted.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Usage: "user id to sync for", Required: true},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			connector, err := InitializeFirestore(ctx)
			if err != nil {
				return fmt.Errorf("error initializing Firestore: %w", err)
			}
			defer connector.Close()

			cache := syncer.NewCache()
			reconciler := syncer.NewReconciler(connector, cache)
			if err := reconciler.Start(ctx, c.String("user")); err != nil {
				return fmt.Errorf("error starting sync session: %w", err)
			}

			updates, unsubscribe := cache.Subscribe()
			defer unsubscribe()

			for {
				select {
				case <-ctx.Done():
					reconciler.Stop()
					log.Info().Msg("eventsync stopped")
					return nil
				case <-updates:
					if err := cache.LastError(); err != nil {
						log.Warn().Err(err).Msg("feed degraded")
						continue
					}
					log.Info().Int("events", len(cache.Events())).Msg("cache updated")
				}
			}
		},
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a new event.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Usage: "creator user id", Required: true},
			&cli.StringFlag{Name: "name", Usage: "event name", Required: true},
			&cli.StringFlag{Name: "date", Usage: "event time, RFC 3339", Required: true},
			&cli.StringFlag{Name: "description", Usage: "free-text description"},
		},
		Action: func(c *cli.Context) error {
			date, err := time.Parse(time.RFC3339, c.String("date"))
			if err != nil {
				return fmt.Errorf("error parsing --date: %w", err)
			}
			return withServices(c, func(ctx context.Context, members *service.MembershipService, _ *service.ReminderService) error {
				event, err := members.CreateEvent(ctx, c.String("user"), c.String("name"), date, c.String("description"))
				if err != nil {
					return err
				}
				log.Info().Str("event_id", event.ID).Msg("event created")
				return nil
			})
		},
	}
}

func inviteCommand() *cli.Command {
	return &cli.Command{
		Name:  "invite",
		Usage: "Invite a user to an event.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Usage: "inviting user id", Required: true},
			&cli.StringFlag{Name: "event", Usage: "event id", Required: true},
			&cli.StringFlag{Name: "target", Usage: "user id to invite", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withServices(c, func(ctx context.Context, members *service.MembershipService, _ *service.ReminderService) error {
				_, err := members.Invite(ctx, c.String("event"), c.String("user"), c.String("target"))
				return err
			})
		},
	}
}

func membershipCommand(name, usage string, op func(ctx context.Context, svc *service.MembershipService, eventID, userID string) error) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Usage: "acting user id", Required: true},
			&cli.StringFlag{Name: "event", Usage: "event id", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withServices(c, func(ctx context.Context, members *service.MembershipService, _ *service.ReminderService) error {
				return op(ctx, members, c.String("event"), c.String("user"))
			})
		},
	}
}

func remindCommand() *cli.Command {
	return &cli.Command{
		Name:  "remind",
		Usage: "Manage the reminder for an event.",
		Subcommands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Set or update the reminder time.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "acting user id", Required: true},
					&cli.StringFlag{Name: "event", Usage: "event id", Required: true},
					&cli.StringFlag{Name: "at", Usage: "reminder time, RFC 3339", Required: true},
				},
				Action: func(c *cli.Context) error {
					at, err := time.Parse(time.RFC3339, c.String("at"))
					if err != nil {
						return fmt.Errorf("error parsing --at: %w", err)
					}
					return withServices(c, func(ctx context.Context, _ *service.MembershipService, reminders *service.ReminderService) error {
						return reminders.SetReminder(ctx, c.String("event"), c.String("user"), at)
					})
				},
			},
			{
				Name:  "remove",
				Usage: "Remove the reminder.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "acting user id", Required: true},
					&cli.StringFlag{Name: "event", Usage: "event id", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withServices(c, func(ctx context.Context, _ *service.MembershipService, reminders *service.ReminderService) error {
						return reminders.RemoveReminder(ctx, c.String("event"), c.String("user"))
					})
				},
			},
		},
	}
}

// withServices wires the store and the services for one command invocation.
func withServices(c *cli.Context, fn func(ctx context.Context, members *service.MembershipService, reminders *service.ReminderService) error) error {
	ctx := c.Context

	connector, err := InitializeFirestore(ctx)
	if err != nil {
		return fmt.Errorf("error initializing Firestore: %w", err)
	}
	defer connector.Close()

	notifier := notify.NewLocalNotifier(nil)
	defer notifier.Stop()

	members := service.NewMembershipService(connector, connector)
	reminders := service.NewReminderService(connector, connector, notifier, nil)
	defer reminders.Flush()

	return fn(ctx, members, reminders)
}

// InitializeFirestore initializes the Firestore connector and returns it
func InitializeFirestore(ctx context.Context) (*repo.FirestoreConnector, error) {
	// Get the service account key path from environment variable
	serviceAccountKeyPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_KEY_PATH")
	if serviceAccountKeyPath == "" {
		return nil, fmt.Errorf("FIREBASE_SERVICE_ACCOUNT_KEY_PATH environment variable not set")
	}

	// Get the project id from environment variable
	projectID := os.Getenv("FIREBASE_PROJECT_ID")
	if projectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID environment variable not set")
	}

	// Create a new Firestore connector
	connector, err := repo.NewFirestoreConnector(ctx, serviceAccountKeyPath, projectID)
	if err != nil {
		return nil, fmt.Errorf("error creating Firestore connector: %v", err)
	}

	return connector, nil
}
