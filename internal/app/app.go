package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nhle/taskflow/internal/auth"
	"github.com/nhle/taskflow/internal/credential"
	"github.com/nhle/taskflow/internal/logging"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/notify"
	"github.com/nhle/taskflow/internal/notify/mailbox"
	"github.com/nhle/taskflow/internal/notify/webhook"
	"github.com/nhle/taskflow/internal/realtime"
	"github.com/nhle/taskflow/internal/store"
	gosync "github.com/nhle/taskflow/internal/sync"
)

// MailboxPasswordKey is the secret-store key holding the IMAP password.
const MailboxPasswordKey = "mailbox-password"

// App owns every long-lived component of one taskflow process: the
// gateway, the change feed, the auth session and the notification layer.
type App struct {
	Config     *model.AppConfig
	Logger     *zap.Logger
	Store      *store.SQLiteStore
	Hub        *realtime.Hub
	Secrets    credential.SecretStore
	Auth       *auth.Service
	Center     *notify.Center
	Gate       *notify.Gate
	Controller *notify.Controller

	now    func() time.Time
	redis  *redis.Client
	cancel context.CancelFunc
	done   chan struct{}
}

type options struct {
	logger   *zap.Logger
	secrets  credential.SecretStore
	notifier notify.Notifier
	now      func() time.Time
}

// Option customizes New.
type Option func(*options)

// WithLogger uses logger instead of building one from the config.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSecrets overrides the system keyring.
func WithSecrets(s credential.SecretStore) Option {
	return func(o *options) { o.secrets = s }
}

// WithNotifier replaces the configured display channels.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithClock overrides the wall clock for every component.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New opens the database and wires the notification layer. No user is
// active until Resume or SetUser is called.
func New(ctx context.Context, cfg *model.AppConfig, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}

	logger := o.logger
	if logger == nil {
		var paths []string
		if cfg.Log.File != "" {
			paths = []string{cfg.Log.File}
		}
		l, err := logging.New(cfg.Log.Level, cfg.Log.Development, paths...)
		if err != nil {
			return nil, err
		}
		logger = l
	}

	if err := ensureDir(cfg.Database.Path); err != nil {
		return nil, err
	}
	st, err := store.NewSQLiteStore(cfg.Database.Path, store.WithClock(o.now))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  st,
		Hub:    realtime.NewHub(logger),
		now:    o.now,
	}
	st.SetPublisher(a.Hub)
	a.startBridge(ctx)

	a.Secrets = o.secrets
	if a.Secrets == nil {
		a.Secrets = credential.NewKeyring()
	}
	a.Auth = auth.NewService(st, a.Secrets, logger)

	n := cfg.Notifications
	a.Center = notify.NewCenter(st, logger,
		notify.WithMaxItems(n.MaxItems),
		notify.WithCenterClock(o.now),
	)

	notifier := o.notifier
	if notifier == nil {
		notifier = a.displayChannels()
	}
	a.Gate = notify.NewGate(notify.NewThrottled(notifier, n.DisplayRatePerMin, logger), logger)

	a.Controller = notify.NewController(a.Center, a.Gate, st, a.Hub, notify.ControllerConfig{
		Interval:        time.Duration(n.ReminderIntervalSec) * time.Second,
		Lookahead:       time.Duration(n.LookaheadHours) * time.Hour,
		CoalesceRepeats: n.CoalesceRepeats,
		Now:             o.now,
	}, logger)

	return a, nil
}

// startBridge routes store changes through Redis when an address is
// configured. An unreachable server falls back to the in-process feed.
func (a *App) startBridge(ctx context.Context) {
	rc := a.Config.Realtime
	if rc.RedisAddr == "" {
		return
	}
	client, err := realtime.NewRedisClient(ctx, rc.RedisAddr, rc.RedisPassword, rc.RedisDB)
	if err != nil {
		a.Logger.Warn("redis unavailable, using local change feed",
			zap.String("addr", rc.RedisAddr), zap.Error(err))
		return
	}

	bridge := realtime.NewRedisBridge(client, a.Hub, a.Logger)
	a.Store.SetPublisher(bridge)
	a.redis = client

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go func() {
		defer close(a.done)
		if err := bridge.Run(runCtx); err != nil {
			a.Logger.Warn("redis bridge stopped", zap.Error(err))
		}
	}()
}

// displayChannels builds the notifier fan-out from the config: the log
// always, plus a webhook and an IMAP mailbox when configured.
func (a *App) displayChannels() notify.Notifier {
	n := a.Config.Notifications
	channels := notify.Fanout{notify.NewLogNotifier(a.Logger)}

	if n.WebhookURL != "" {
		channels = append(channels, webhook.New(n.WebhookURL))
	}

	if n.Mailbox.Enabled() {
		password, err := a.Secrets.Get(MailboxPasswordKey)
		switch {
		case errors.Is(err, credential.ErrNotFound):
			a.Logger.Warn("mailbox configured without a stored password")
		case err != nil:
			a.Logger.Warn("reading mailbox password", zap.Error(err))
		default:
			channels = append(channels, mailbox.New(mailbox.Config{
				Host:     n.Mailbox.Host,
				Port:     n.Mailbox.Port,
				Username: n.Mailbox.Username,
				Password: password,
				TLS:      n.Mailbox.TLS,
				Mailbox:  n.Mailbox.Mailbox,
			}))
		}
	}
	return channels
}

// Resume restores the persisted session, if any, and starts the
// notification producers for that user.
func (a *App) Resume(ctx context.Context) (*model.Profile, error) {
	profile, err := a.Auth.Current(ctx)
	if err != nil {
		return nil, err
	}
	a.Controller.SetUser(profile.ID)
	return profile, nil
}

// SetUser switches the active user. An empty id signs out.
func (a *App) SetUser(userID string) {
	a.Controller.SetUser(userID)
}

// Tasks returns a task collection for userID.
func (a *App) Tasks(userID string) *gosync.Tasks {
	return gosync.NewTasks(a.Store, userID, a.Logger)
}

// Categories returns a category collection for userID.
func (a *App) Categories(userID string) *gosync.Categories {
	return gosync.NewCategories(a.Store, userID, a.Logger)
}

// Subtasks returns the subtask collection of one task.
func (a *App) Subtasks(userID, taskID string) *gosync.Subtasks {
	return gosync.NewSubtasks(a.Store, userID, taskID, a.Logger)
}

// Now returns the application clock's current time.
func (a *App) Now() time.Time {
	return a.now()
}

// Close stops the producers and the bridge and closes the database.
func (a *App) Close() error {
	a.Controller.Close()
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}

	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

// ensureDir creates the parent directory of a file-backed database.
func ensureDir(dbPath string) error {
	if dbPath == "" || strings.HasPrefix(dbPath, ":memory:") || strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return nil
}
