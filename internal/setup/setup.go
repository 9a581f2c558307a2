package setup

import (
	"fmt"

	"github.com/one23four56/backup-google-chat-sub001/internal/config"
	"github.com/one23four56/backup-google-chat-sub001/internal/handler"
	mw "github.com/one23four56/backup-google-chat-sub001/internal/middleware"
	"github.com/one23four56/backup-google-chat-sub001/internal/service"
	"github.com/one23four56/backup-google-chat-sub001/internal/storage/file"
	"github.com/one23four56/backup-google-chat-sub001/internal/storage/pg"
	"github.com/one23four56/backup-google-chat-sub001/internal/utils/email"
)

// Dependencies wires every component of the service together.
type Dependencies struct {
	Config         *config.Config
	Sessions       *service.Sessions
	Credentials    *service.Credentials
	OTT            *service.OTTRegistry
	AutoMod        *service.AutoMod
	Messages       *service.Messages
	Hub            *service.Hub
	Handler        *handler.Handler
	AuthMiddleware *mw.Auth

	cleanup func() error
}

// New builds the dependency graph: durable store per config, session
// manager, automod engine, message pipeline, handlers, middleware.
func New(cfg *config.Config) (*Dependencies, error) {
	storage, cleanup, err := newAuthStorage(cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := service.NewSessions(storage, cfg.SessionTTL(), cfg.Public.TrustForwardedFor)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to load session index: %w", err)
	}

	credentials := service.NewCredentials(storage)
	ott := service.NewOTTRegistry(cfg.OTTTTL())

	automod := service.NewAutoMod(cfg.Public.MessageMinLen, cfg.Public.MessageMaxLen, nil)
	hub := service.NewHub()
	history := service.NewHistory(cfg.Public.HistorySize)
	messages := service.NewMessages(automod, history, hub, cfg.MuteDuration())
	// Unmute notices flow back through the message pipeline.
	automod.SetNotifier(messages)

	sender := email.New(&cfg.Private.Email)
	h := handler.New(credentials, sessions, ott, messages, automod, sender, cfg)

	return &Dependencies{
		Config:         cfg,
		Sessions:       sessions,
		Credentials:    credentials,
		OTT:            ott,
		AutoMod:        automod,
		Messages:       messages,
		Hub:            hub,
		Handler:        h,
		AuthMiddleware: mw.NewAuth(sessions, &cfg.Public),
		cleanup:        cleanup,
	}, nil
}

// Cleanup stops background timers and closes the durable store.
func (d *Dependencies) Cleanup() error {
	d.OTT.Stop()
	d.AutoMod.Stop()
	return d.cleanup()
}

func newAuthStorage(cfg *config.Config) (service.AuthStorage, func() error, error) {
	switch cfg.Public.Storage {
	case "pg":
		storage, err := pg.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		return storage, storage.Cleanup, nil
	case "file":
		storage, err := file.New(cfg.Public.FileStorePath)
		if err != nil {
			return nil, nil, err
		}
		return storage, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Public.Storage)
	}
}
