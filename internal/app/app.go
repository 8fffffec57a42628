package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/five82/momento/internal/actions"
	"github.com/five82/momento/internal/config"
	"github.com/five82/momento/internal/logging"
	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/prefs"
	"github.com/five82/momento/internal/queries"
	"github.com/five82/momento/internal/query"
	"github.com/five82/momento/internal/session"
	"github.com/five82/momento/internal/state"
	"github.com/five82/momento/internal/ui"
)

const (
	restoreTimeout = 5 * time.Second
	sweepInterval  = time.Minute
)

// Options configure the Momento application.
type Options struct {
	ConfigPath  string
	PrefsPath   string // empty uses default ~/.config/momento/prefs.toml
	APIURL      string // overrides the config file when set
	MetricsAddr string // overrides the config file when set
	Debug       bool
}

// LoadConfig reads the config file and applies the command-line overrides.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(opts.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(opts.MetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Client bundles the pieces every entry point needs: the API client, the
// query cache and the session layered on top of it.
type Client struct {
	Config   config.Config
	API      *momento.Client
	Store    *query.Store
	Session  *session.Session
	Queries  *queries.Set
	Actions  *actions.Runner
	Header   *state.Store
	Registry *prometheus.Registry
}

// Connect builds a Client. Nothing is fetched until a caller asks.
func Connect(ctx context.Context, cfg config.Config) (*Client, error) {
	api, err := momento.NewClient(cfg.APIURL, momento.Options{RequestsPerSecond: cfg.RequestsPerSecond})
	if err != nil {
		return nil, fmt.Errorf("init momento client: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	store := query.New(ctx, query.Options{Metrics: query.NewPrometheusMetrics(reg)})
	sess := session.New(api, store)
	q := queries.New(api, store)
	header := &state.Store{}
	runner := actions.New(ctx, q, sess, actions.Options{
		OnError: func(err *actions.ActionError) { header.Notify(err.Error()) },
	})

	return &Client{
		Config:   cfg,
		API:      api,
		Store:    store,
		Session:  sess,
		Queries:  q,
		Actions:  runner,
		Header:   header,
		Registry: reg,
	}, nil
}

// Restore asks the backend who is signed in. Failures leave the session
// unknown and are only logged.
func (c *Client) Restore(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, restoreTimeout)
	defer cancel()
	user, err := c.Session.Restore(ctx)
	if err != nil {
		log.Warn("restore session failed", "err", err)
		return
	}
	if user.ID != "" {
		log.Info("session restored", "user", user.Username)
	}
}

// SignIn authenticates with credentials, for the headless commands.
func (c *Client) SignIn(ctx context.Context, email, password string) (momento.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return momento.User{}, errors.New("email and password are required")
	}
	user, err := c.Session.SignIn(ctx, email, password)
	if err != nil {
		return momento.User{}, fmt.Errorf("sign in: %w", err)
	}
	return user, nil
}

// Close stops background work owned by the client.
func (c *Client) Close() {
	c.Store.Close()
}

// Run boots the Momento TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	_, closeLog, err := logging.Setup(logging.Options{Path: cfg.LogFile, Level: cfg.LogLevel, Debug: opts.Debug})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.Warn("load prefs failed, using defaults", "err", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	badges := NewBadgePoller(ctx, client.Header, client.Queries, cfg.Poll.Unread)
	badges.Follow(client.Session)
	defer badges.Stop()

	client.Restore(ctx)
	go sweep(ctx, client.Store, sweepInterval)

	if cfg.MetricsAddr != "" {
		srv, err := ServeMetrics(cfg.MetricsAddr, client.Registry)
		if err != nil {
			return err
		}
		defer srv.Close()
		log.Info("metrics listening", "addr", srv.Addr())
	}

	log.Info("momento starting", "api", cfg.APIURL)
	return ui.Run(ui.Options{
		Context:   ctx,
		Session:   client.Session,
		Queries:   client.Queries,
		Actions:   client.Actions,
		Header:    client.Header,
		Badges:    badges,
		Config:    cfg,
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
		StartView: userPrefs.LastView,
	})
}

// sweep drops unreferenced cache entries until ctx ends.
func sweep(ctx context.Context, store *query.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Sweep(now); n > 0 {
				log.Debug("cache sweep", "dropped", n)
			}
		}
	}
}
