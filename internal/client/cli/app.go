// Package cli implements the interactive member CLI: a small REPL over the
// session store (login, logout, status, whoami) plus the wiring of storage
// scopes and the API client.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/membercli/internal/client/api"
	"github.com/dmitrijs2005/membercli/internal/client/config"
	"github.com/dmitrijs2005/membercli/internal/client/models"
	"github.com/dmitrijs2005/membercli/internal/client/session"
	"github.com/dmitrijs2005/membercli/internal/client/storage"
	"github.com/dmitrijs2005/membercli/internal/logging"

	_ "modernc.org/sqlite"
)

// sessionScopeTTL bounds the session-scope mirror: state cached there dies
// with the terminal session, not with the 30-day remember-me window.
const sessionScopeTTL = 12 * time.Hour

// sessionIDEnv carries the client session id between processes of the same
// terminal session, so a restarted CLI can pick up the session-scope mirror.
const sessionIDEnv = "MEMBERCLI_SESSION_ID"

// SessionStore is the store surface the CLI needs. *session.Store
// satisfies it; tests can provide a stub.
type SessionStore interface {
	SignIn(ctx context.Context, creds session.Credentials) (bool, error)
	SignOut(ctx context.Context) bool
	CheckSession(ctx context.Context) bool
	IsAuthenticated() bool
	CurrentUser() *models.User
	DisplayName() string
	Close(ctx context.Context) error
}

type App struct {
	config   *config.Config
	store    SessionStore
	api      api.Client
	log      logging.Logger
	reader   *bufio.Reader
	location string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	db, err := storage.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	persistentScope := storage.NewSQLiteStorage(db, storage.WithSQLiteTTL(c.RememberMeFor))

	var sessionScope storage.Storage
	if c.RedisAddr != "" {
		rdb := backend.NewClient(&backend.Options{Addr: c.RedisAddr})
		sessionScope = storage.NewRedisStorage(rdb,
			storage.WithRedisPrefix("membercli:session:"+clientSessionID()+":"),
			storage.WithRedisTTL(sessionScopeTTL),
		)
	} else {
		sessionScope = storage.NewMemoryStorage()
	}

	apiClient, err := api.NewHTTPClient(c.ServerBaseURL, log)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, api: apiClient, log: log, reader: bufio.NewReader(os.Stdin)}

	app.store = session.New(ctx, apiClient, apiClient, sessionScope, persistentScope, log,
		session.WithRememberFor(c.RememberMeFor),
		session.WithNotifier(terminalNotifier{}),
		session.WithNavigator(app),
	)

	return app, nil
}

// clientSessionID resolves the id namespacing the session scope: inherited
// from the environment within a terminal session, fresh otherwise.
func clientSessionID() string {
	if id := os.Getenv(sessionIDEnv); id != "" {
		return id
	}
	return uuid.NewString()
}

func (a *App) Run(ctx context.Context) {
	defer a.store.Close(ctx)

	a.log.Debug(ctx, "starting session watcher", "interval", a.config.SessionCheckInterval)
	go a.StartSessionWatcher(ctx, a.config.SessionCheckInterval)

	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.store.IsAuthenticated()
}

// NavigateTo implements session.Navigator; the CLI has no pages, so
// navigation just moves the prompt's location marker.
func (a *App) NavigateTo(path string) {
	a.location = path
}

// StartSessionWatcher periodically revalidates the session against the
// backend and announces when it expires.
func (a *App) StartSessionWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !a.store.IsAuthenticated() {
				continue
			}
			checkCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			ok := a.store.CheckSession(checkCtx)
			cancel()

			if !ok {
				printlnFn("Session expired, please login again")
			}

		case <-ctx.Done():
			return
		}
	}
}

type terminalNotifier struct{}

func (terminalNotifier) Notify(msg string) {
	fmt.Println(msg)
}
