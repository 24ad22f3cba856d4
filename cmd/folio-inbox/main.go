package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/PabloGalante/folio-inbox/internal/adapters/desktop"
	httpadapter "github.com/PabloGalante/folio-inbox/internal/adapters/http"
	"github.com/PabloGalante/folio-inbox/internal/app/inbox"
	"github.com/PabloGalante/folio-inbox/internal/app/notify"
	"github.com/PabloGalante/folio-inbox/internal/config"
	"github.com/PabloGalante/folio-inbox/internal/domain"
	"github.com/PabloGalante/folio-inbox/internal/observability"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "folio-inbox",
		Short:         "Per-user message inbox with live unread counts and notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to a YAML config file (falls back to FOLIO_CONFIG)")
	root.PersistentFlags().String("log-level", "", "Logging level: debug, info, warn, error (overrides config)")

	root.AddCommand(newServeCmd(), newWatchCmd(), newResolveAdminCmd(), newTokenCmd())
	return root
}

// loadConfig reads the config and installs the logger for the command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	if level != "" {
		cfg.LogLevel = level
	}
	observability.Setup(cfg.LogLevel)
	return cfg, nil
}

func withApp(cmd *cobra.Command, run func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			observability.Logger().Warn("closing resources", "error", err)
		}
	}()

	return run(ctx, a)
}

// ─────────────────────────────────────────────
// serve
// ─────────────────────────────────────────────

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, serve)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	handler := httpadapter.NewServer(a.svc, httpadapter.Options{
		JWTSecret:      a.cfg.JWTSecret,
		AllowedOrigins: a.cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		observability.Logger().Info("folio-inbox API listening", "port", a.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ─────────────────────────────────────────────
// watch
// ─────────────────────────────────────────────

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow an inbox live with desktop notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient, err := cmd.Flags().GetString("recipient")
			if err != nil {
				return err
			}
			pageSize, err := cmd.Flags().GetInt("page-size")
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				dispatcher := notify.NewDispatcher(
					desktop.NewNotifier(domain.Permission(a.cfg.NotifyPermission), cmd.InOrStdin(), cmd.OutOrStdout()),
					desktop.NewBeeper(),
					notify.Config{Dedupe: notify.DedupeMode(a.cfg.NotifyDedupe), Icon: a.cfg.NotifyIcon},
				)
				return watch(ctx, a.svc, dispatcher, domain.AccountID(recipient), pageSize, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().String("recipient", string(inbox.AdminRecipient), "Inbox to follow (defaults to the admin inbox)")
	cmd.Flags().Int("page-size", 0, "Messages shown from the top of the inbox (0 uses the configured page size)")
	return cmd
}

func watch(
	ctx context.Context,
	svc *inbox.Service,
	dispatcher *notify.Dispatcher,
	recipient domain.AccountID,
	pageSize int,
	out io.Writer,
) error {
	recipient = svc.Session().Recipient(ctx, recipient)
	view := inbox.NewView(svc.Mutator, recipient)

	dispatcher.Mount(ctx)

	pages := svc.WatchFirstPage(ctx, recipient, pageSize)
	if err := pages.Start(ctx); err != nil {
		return fmt.Errorf("watching inbox: %w", err)
	}
	defer pages.Stop()

	unsubscribe, err := svc.SubscribeUnreadCount(ctx, recipient, func(n int) {
		view.ApplyUnread(n)
		fmt.Fprintf(out, "[%s] unread: %d\n", recipient, n)
	})
	if err != nil {
		return fmt.Errorf("watching unread count: %w", err)
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case page, ok := <-pages.C():
			if !ok {
				return pages.Err()
			}
			view.ApplyPage(page)
			dispatcher.OnInboxSnapshot(ctx, page.Messages)
			printMessages(out, view.Messages())
		}
	}
}

func printMessages(out io.Writer, msgs []*domain.Message) {
	fmt.Fprintln(out, "──────────")
	for _, m := range msgs {
		mark := " "
		if !m.Read {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %s  %-20s %s\n", mark, m.CreatedAt.Format(time.DateTime), m.SenderName, notify.Preview(m.Body))
	}
}

// ─────────────────────────────────────────────
// resolve-admin / token
// ─────────────────────────────────────────────

func newResolveAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve-admin",
		Short: "Print the account id that receives admin messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.svc.Session().AdminID(ctx))
				return nil
			})
		},
	}
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an inbox owner (development helper)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			user, err := cmd.Flags().GetString("user")
			if err != nil {
				return err
			}
			email, err := cmd.Flags().GetString("email")
			if err != nil {
				return err
			}
			ttl, err := cmd.Flags().GetDuration("ttl")
			if err != nil {
				return err
			}

			tok, err := httpadapter.GenerateToken(cfg.JWTSecret, user, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("user", "", "Account id the token is issued for")
	cmd.Flags().String("email", "", "Optional email claim")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
