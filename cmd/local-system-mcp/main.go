package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/DeusData/local-system-mcp/internal/config"
	"github.com/DeusData/local-system-mcp/internal/tools"
	"github.com/DeusData/local-system-mcp/internal/transport"
	"github.com/DeusData/local-system-mcp/internal/tunnel"
	"github.com/DeusData/local-system-mcp/internal/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local-system-mcp",
		Short: "MCP server exposing workspace files, code search and system stats",
		Long: `local-system-mcp serves the current directory as a read-only workspace to MCP
clients over SSE, streamable HTTP or stdio, and can publish the HTTP endpoint
through an ngrok tunnel.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}

	fl := cmd.Flags()
	fl.String("config", "", "config file (default ./"+config.FileName+")")
	fl.String("host", "", "listen host")
	fl.Int("port", 0, "listen port")
	fl.String("transport", "", "sse, http or stdio")
	fl.Bool("no-tunnel", false, "do not start ngrok")
	fl.String("log-level", "", "debug, info, warn or error")

	cmd.AddCommand(newRegisterCmd(), newUnregisterCmd())
	return cmd
}

// loadConfig reads the config file and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command, cwd string) (*config.Config, error) {
	fl := cmd.Flags()
	path, _ := fl.GetString("config")
	if path == "" {
		path = filepath.Join(cwd, config.FileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if fl.Changed("host") {
		cfg.Server.Host, _ = fl.GetString("host")
	}
	if fl.Changed("port") {
		cfg.Server.Port, _ = fl.GetInt("port")
	}
	if fl.Changed("transport") {
		t, _ := fl.GetString("transport")
		cfg.Server.Transport = strings.ToLower(t)
	}
	if fl.Changed("no-tunnel") {
		noTunnel, _ := fl.GetBool("no-tunnel")
		cfg.Tunnel.Enabled = !noTunnel
	}
	if fl.Changed("log-level") {
		cfg.Log.Level, _ = fl.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}
	cfg, err := loadConfig(cmd, cwd)
	if err != nil {
		return err
	}

	// stdout belongs to the stdio transport; everything human-facing goes to stderr.
	level, _ := config.ParseLevel(cfg.Log.Level)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ws, err := workspace.New(cwd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := tools.Options{Version: version}
	var tun *tunnel.Manager
	if cfg.Tunnel.Enabled && cfg.Server.Transport != config.TransportStdio {
		tun = startTunnel(ctx, cfg)
		defer func() {
			if err := tun.Stop(); err != nil {
				slog.Warn("tunnel.stop", "err", err)
			}
		}()
		opts.Tunnel = tun
	}

	srv := tools.NewServer(ws, opts)
	slog.Info("server.start", "workspace", ws.Root(), "transport", cfg.Server.Transport, "version", version)

	if cfg.Server.Transport == config.TransportStdio {
		err := srv.MCPServer().Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server err=%w", err)
		}
		return nil
	}

	publicURL := ""
	if tun != nil {
		publicURL = tun.PublicURL()
	}
	printBanner(os.Stderr, cfg.Server.Port, publicURL)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	return serveHTTP(ctx, addr, transport.Router(srv.MCPServer(), cfg.Server.Transport))
}

// startTunnel launches ngrok. Failure is not fatal: the server still runs locally.
func startTunnel(ctx context.Context, cfg *config.Config) *tunnel.Manager {
	tc := tunnel.DefaultConfig(cfg.Server.Port)
	if cfg.Tunnel.Binary != "" {
		tc.Binary = cfg.Tunnel.Binary
	}
	if cfg.Tunnel.APIURL != "" {
		tc.APIURL = cfg.Tunnel.APIURL
	}
	tc.StartupWait = cfg.Tunnel.StartupWait

	tun := tunnel.New(tc)
	if _, err := tun.Start(ctx); err != nil {
		if errors.Is(err, tunnel.ErrNotInstalled) {
			slog.Warn("tunnel.missing", "binary", tc.Binary)
			fmt.Fprintln(os.Stderr, tunnel.InstallHint)
		} else {
			slog.Warn("tunnel.failed", "err", err)
		}
	}
	return tun
}

func printBanner(w io.Writer, port int, publicURL string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n🌐 MCP SERVER URLS\n%s\n", rule, rule)
	fmt.Fprintf(w, "📡 Local URL:     http://localhost:%d\n", port)
	if publicURL != "" {
		fmt.Fprintf(w, "🌍 Public URL:    %s\n", publicURL)
		fmt.Fprintf(w, "🔗 SSE Endpoint: %s%s\n", publicURL, transport.SSEPath)
	} else {
		fmt.Fprintln(w, "🌍 Public URL:    Not available")
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "\n📋 Use these URLs in your MCP client configuration")
	fmt.Fprintln(w, "💡 For remote access, use the public ngrok URL")
	fmt.Fprintln(w, "⚡ For local development, use the localhost URL")
	fmt.Fprintln(w, "\n🔄 Press Ctrl+C to stop both services")
	fmt.Fprintln(w)
}

// serveHTTP runs h on addr until ctx is cancelled, then shuts down gracefully.
func serveHTTP(ctx context.Context, addr string, h http.Handler) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- hs.ListenAndServe()
	}()
	slog.Info("http.listen", "addr", addr)

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	slog.Info("server.shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		// open SSE streams never go idle on their own
		slog.Warn("http.shutdown", "err", err)
		return hs.Close()
	}
	return nil
}
