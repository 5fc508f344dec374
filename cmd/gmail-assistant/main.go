// Gmail assistant drafts, approves and sends emails and summarizes the inbox
// through Model Context Protocol tools.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
	"github.com/hal9000y/gmail-assistant/internal/auth"
	"github.com/hal9000y/gmail-assistant/internal/chatlog"
	"github.com/hal9000y/gmail-assistant/internal/config"
	"github.com/hal9000y/gmail-assistant/internal/conversation"
	"github.com/hal9000y/gmail-assistant/internal/gservice"
	"github.com/hal9000y/gmail-assistant/internal/llm"
	"github.com/hal9000y/gmail-assistant/internal/session"
	"github.com/hal9000y/gmail-assistant/internal/tool"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML config file")
	httpAddr := flag.String("http-addr", "", "HTTP SERVER listen addr, overrides config")
	oauthTokenFile := flag.String("oauth-token-file", "", "Path to cache google oauth token, overrides config")
	oauthURLParam := flag.String("oauth-url", "", "OAuth URL")
	envFileParam := flag.String("env-file", "", "Path to env file")
	enableStdio := flag.Bool("stdio", false, "Enable stdio transport for MCP (disables stdout logging)")
	logFile := flag.String("log-file", "", "Path to log file (only used with stdio transport, otherwise logs to stdout)")

	flag.Parse()

	cfg, err := config.Load(*configFile, *envFileParam)
	if err != nil {
		panic(fmt.Errorf("config.Load failed: %w", err))
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *oauthTokenFile != "" {
		cfg.OAuth.TokenFile = *oauthTokenFile
	}
	if *oauthURLParam != "" {
		cfg.OAuth.RedirectURL = *oauthURLParam
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logger, persistLogs := setupLogger(*enableStdio, *logFile, cfg.Log.Level)
	defer persistLogs()

	ln := mustListen(cfg.HTTPAddr)
	oauthCfg := createOauthCfg(ln.Addr().String(), cfg.OAuth)

	tok, err := auth.NewToken(oauthCfg, cfg.OAuth.TokenFile, logger)
	if err != nil {
		panic(fmt.Errorf("auth.NewToken failed: %w", err))
	}

	defer func() {
		logger.Info().Msg("Persisting token if exists")
		if err := tok.Persist(); err != nil {
			logger.Error().Err(err).Msg("tok.Persist failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore := mustCreateStore(ctx, cfg.Session)
	defer closeStore()

	chat := mustOpenChatLog(cfg.ChatLog.Path)
	defer func() {
		if err := chat.Close(); err != nil {
			logger.Error().Err(err).Msg("chat.Close failed")
		}
	}()

	oracle := llm.NewOpenAI(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: &cfg.LLM.Temperature,
	}, logger)
	gmailSvc := gservice.NewGmail(tok, logger)

	asst := assistant.New(oracle, gmailSvc,
		assistant.WithMaxUnread(cfg.Gmail.MaxUnread),
		assistant.WithLogger(logger),
	)
	svc := conversation.NewService(asst, store, chat, logger)
	assistantT := tool.NewServer(svc)

	mux := http.NewServeMux()
	mux.Handle("/oauth", auth.NewHTTPHandler(tok, logger))
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return assistantT }, nil))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)

	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	if _, err := tok.OAuthToken(); errors.Is(err, auth.ErrTokenNotSet) {
		openBrowser(logger, oauthCfg.RedirectURL)
	}

	stopHTTP, errHTTPCh := serveHTTP(logger, srv, ln)
	defer stopHTTP()

	var errStdioCh <-chan error
	if *enableStdio {
		var stopStdio func()
		stopStdio, errStdioCh = serveStdio(logger, assistantT)
		defer stopStdio()
	}

	select {
	case err := <-errHTTPCh:
		logger.Error().Err(err).Msg("Error http server")
	case err := <-errStdioCh:
		logger.Error().Err(err).Msg("Error stdio")
	case <-shutdown:
		logger.Info().Msg("Shutdown signal received")
	}
}

func serveStdio(logger zerolog.Logger, srv *mcp.Server) (func(), <-chan error) {
	errStdioCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(errStdioCh)
		logger.Info().Msg("Starting stdio transport")

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			err = fmt.Errorf("srv.Run failed: %w", err)
			errStdioCh <- err
		}
	}()

	return func() {
		cancel()

		<-errStdioCh
		logger.Info().Msg("Stdio transport stopped")
	}, errStdioCh
}

func serveHTTP(logger zerolog.Logger, srv *http.Server, ln net.Listener) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		logger.Info().Str("addr", ln.Addr().String()).Msg("Starting http server")

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("srv.Serve failed: %w", err)
			logger.Error().Err(err).Send()
			errHTTPCh <- err
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("srv.Shutdown failed")
		}

		<-errHTTPCh
		logger.Info().Msg("HTTP server stopped")
	}, errHTTPCh
}

func mustListen(httpAddr string) net.Listener {
	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		panic(fmt.Errorf("net.Listen failed: %w", err))
	}

	return ln
}

func createOauthCfg(lnAddr string, cfg config.OAuthConfig) *oauth2.Config {
	oauthURL := fmt.Sprintf("http://%s/oauth", lnAddr)
	if cfg.RedirectURL != "" {
		oauthURL = cfg.RedirectURL
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  oauthURL,
		Scopes:       []string{gmail.GmailReadonlyScope, gmail.GmailSendScope, gmail.GmailModifyScope},
		Endpoint:     google.Endpoint,
	}
}

func mustCreateStore(ctx context.Context, cfg config.SessionConfig) (session.Store, func()) {
	if cfg.Backend != config.BackendRedis {
		return session.NewMemoryStore(), func() {}
	}

	client, err := session.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		panic(fmt.Errorf("session.NewRedisClient failed: %w", err))
	}

	return session.NewRedisStore(client, cfg.TTL), func() { _ = client.Close() }
}

func mustOpenChatLog(path string) *chatlog.SQLiteLog {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		panic(fmt.Errorf("os.MkdirAll failed: %w", err))
	}

	chat, err := chatlog.NewSQLiteLog(path)
	if err != nil {
		panic(fmt.Errorf("chatlog.NewSQLiteLog failed: %w", err))
	}

	return chat
}

func setupLogger(enableStdio bool, logFile, level string) (zerolog.Logger, func()) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		logger := zerolog.New(f).Level(lvl).With().Timestamp().Logger()

		return logger, func() {
			if err := f.Close(); err != nil {
				fmt.Fprintln(os.Stderr, fmt.Errorf("f.Close failed: %w", err))
			}
		}
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if enableStdio {
		out = io.Discard
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), func() {}
}

func openBrowser(logger zerolog.Logger, url string) {
	url = fmt.Sprintf("%s?redirect=1", url)
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		logger.Warn().Err(err).Str("url", url).Msg("Could not open browser automatically; please copy and open link in the browser")
	}
}
