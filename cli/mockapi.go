package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jrsteele09/cmp-client/internal/mockapi"
	"github.com/jrsteele09/cmp-client/users"
	"github.com/spf13/cobra"
)

// NewMockAPICmd creates the "mock-api" subcommand.
func NewMockAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock-api",
		Short: "Run a local stand-in for the platform API",
		Long: "mock-api serves the token, signup, users/me, projects, users and audit endpoints\n" +
			"in memory so cmpctl can be tried without a platform deployment.",
		Args: cobra.NoArgs,
		RunE: runMockAPI,
	}
	cmd.Flags().String("addr", "localhost:8000", "Listen address")
	cmd.Flags().String("prefix", mockapi.DefaultPathPrefix, "Path prefix for every route")
	cmd.Flags().StringArray("user", nil, "Seed account as email:password:role (repeatable)")
	cmd.Flags().String("token-type", "bearer", "token_type returned by the token endpoint")
	cmd.Flags().Duration("access-token-ttl", 30*time.Minute, "Access token lifetime")
	return cmd
}

func parseSeedUser(spec string) (mockapi.Option, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("seed user %q: want email:password[:role]", spec)
	}
	role := users.RoleViewer
	if len(parts) == 3 {
		role = users.RoleType(parts[2])
		if !role.Valid() {
			return nil, fmt.Errorf("seed user %q: unknown role %q", spec, parts[2])
		}
	}
	return mockapi.WithUser(parts[0], parts[1], role), nil
}

func runMockAPI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	addr, _ := cmd.Flags().GetString("addr")
	prefix, _ := cmd.Flags().GetString("prefix")
	seeds, _ := cmd.Flags().GetStringArray("user")
	tokenType, _ := cmd.Flags().GetString("token-type")
	ttl, _ := cmd.Flags().GetDuration("access-token-ttl")

	opts := []mockapi.Option{
		mockapi.WithEnv(cfg.GetEnv()),
		mockapi.WithLogger(logger),
		mockapi.WithPathPrefix(prefix),
		mockapi.WithTokenType(tokenType),
		mockapi.WithAccessTokenExpiry(ttl),
	}
	for _, seed := range seeds {
		opt, err := parseSeedUser(seed)
		if err != nil {
			return exitError(exitFailure, "%v", err)
		}
		opts = append(opts, opt)
	}

	api, err := mockapi.New(opts...)
	if err != nil {
		return exitError(exitFailure, "starting mock api: %v", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return exitError(exitFailure, "listening on %s: %v", addr, err)
	}

	displayAppname(cmd, cfg.GetAppName())
	server := &http.Server{Handler: api, ReadHeaderTimeout: 10 * time.Second}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", listener.Addr().String()).Str("prefix", prefix).Msg("mock api listening")
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server.Serve %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return shutdown(server)
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
