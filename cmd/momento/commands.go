package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/momento/internal/app"
	"github.com/five82/momento/internal/logging"
	"github.com/five82/momento/internal/mockapi"
	"github.com/five82/momento/internal/momento"
)

// Credentials for the headless commands; cookies are not persisted between
// runs.
const (
	envEmail    = "MOMENTO_EMAIL"
	envPassword = "MOMENTO_PASSWORD"
)

const commandTimeout = 15 * time.Second

type rootFlags struct {
	opts     app.Options
	email    string
	password string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "momento",
		Short:         "Terminal client for the Momento social network",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), flags.opts)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&flags.opts.ConfigPath, "config", "", "config file (default ~/.config/momento/config.toml)")
	pf.StringVar(&flags.opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/momento/prefs.toml)")
	pf.StringVar(&flags.opts.APIURL, "api", "", "backend API URL, overrides the config file")
	pf.StringVar(&flags.opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.BoolVar(&flags.opts.Debug, "debug", false, "enable debug logging")

	account := []*cobra.Command{
		newUnreadCmd(flags),
		newNotificationsCmd(flags),
		newSendCmd(flags),
	}
	for _, cmd := range account {
		cmd.Flags().StringVar(&flags.email, "email", "", "account email (or "+envEmail+")")
		cmd.Flags().StringVar(&flags.password, "password", "", "account password (or "+envPassword+")")
		root.AddCommand(cmd)
	}
	root.AddCommand(newMockServerCmd())
	return root
}

// connect signs in for a headless command. Logs go to stderr.
func (f *rootFlags) connect(ctx context.Context, errOut io.Writer) (*app.Client, error) {
	cfg, err := app.LoadConfig(f.opts)
	if err != nil {
		return nil, err
	}
	if _, _, err := logging.Setup(logging.Options{Level: cfg.LogLevel, Debug: f.opts.Debug, Writer: errOut}); err != nil {
		return nil, err
	}
	client, err := app.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	email := firstNonEmpty(f.email, os.Getenv(envEmail))
	password := firstNonEmpty(f.password, os.Getenv(envPassword))
	if _, err := client.SignIn(ctx, email, password); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func newUnreadCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unread",
		Short: "Print unread message and notification counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			client, err := flags.connect(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer client.Close()

			messages, err := client.Queries.UnreadMessages().Get(ctx)
			if err != nil {
				return fmt.Errorf("unread messages: %w", err)
			}
			notifications, err := client.Queries.UnreadNotifications().Get(ctx)
			if err != nil {
				return fmt.Errorf("unread notifications: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "messages       %d\n", messages)
			fmt.Fprintf(out, "notifications  %d\n", notifications)
			return nil
		},
	}
}

func newNotificationsCmd(flags *rootFlags) *cobra.Command {
	var markRead bool
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			client, err := flags.connect(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer client.Close()

			list, err := client.Queries.Notifications().Get(ctx)
			if err != nil {
				return fmt.Errorf("notifications: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No notifications.")
			}
			for _, n := range list {
				mark := " "
				if !n.Read {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %-14s %s\n", mark, humanize.Time(n.CreatedAt), n.Summary())
			}
			if markRead {
				if _, err := client.Actions.MarkAllNotificationsRead().Wait(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "mark everything read afterwards")
	return cmd
}

func newSendCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send <username> <message>",
		Short: "Send a direct message, or ask the assistant with username ai",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimPrefix(args[0], "@")
			text := strings.TrimSpace(strings.Join(args[1:], " "))
			if text == "" {
				return errors.New("message is empty")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			client, err := flags.connect(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer client.Close()
			out := cmd.OutOrStdout()

			if username == momento.AIPeerID {
				history, err := client.Actions.SendChat(text).Wait(ctx)
				if err != nil {
					return err
				}
				if reply, ok := lastReply(history); ok {
					fmt.Fprintln(out, reply.Content)
				}
				return nil
			}

			peer, err := findUser(ctx, client, username)
			if err != nil {
				return err
			}
			if _, err := client.Actions.SendMessage(peer.ID, text).Wait(ctx); err != nil {
				return err
			}
			fmt.Fprintf(out, "sent to @%s\n", peer.Username)
			return nil
		},
	}
}

func findUser(ctx context.Context, client *app.Client, username string) (momento.User, error) {
	users, err := client.Queries.Users(0).Get(ctx)
	if err != nil {
		return momento.User{}, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return momento.User{}, fmt.Errorf("no member named @%s", username)
}

func lastReply(history []momento.ChatMessage) (momento.ChatMessage, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == momento.ChatRoleAssistant {
			return history[i], true
		}
	}
	return momento.ChatMessage{}, false
}

func newMockServerCmd() *cobra.Command {
	var (
		addr string
		seed bool
	)
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory Momento backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, _, err := logging.Setup(logging.Options{Writer: cmd.ErrOrStderr()}); err != nil {
				return err
			}
			srv := mockapi.New(mockapi.Options{})
			if seed {
				me, err := srv.SeedDemo()
				if err != nil {
					return fmt.Errorf("seed: %w", err)
				}
				log.Info("demo data loaded", "email", me.Email, "password", mockapi.DemoPassword)
			}
			return serve(cmd.Context(), addr, srv)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4000", "listen address")
	cmd.Flags().BoolVar(&seed, "seed", true, "load demo accounts and posts")
	return cmd
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("mock api listening", "url", "http://"+ln.Addr().String()+"/api")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
