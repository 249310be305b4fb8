package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yelpcamp/apiserver/config"
	"github.com/yelpcamp/apiserver/internal/db"
	"github.com/yelpcamp/apiserver/internal/geocode"
	"github.com/yelpcamp/apiserver/internal/mq"
	"github.com/yelpcamp/apiserver/internal/notify"
	"github.com/yelpcamp/apiserver/internal/services"
	"github.com/yelpcamp/apiserver/internal/storage"
	"github.com/yelpcamp/apiserver/internal/store"
	"github.com/yelpcamp/apiserver/internal/store/memory"
)

// repositories groups the store implementations behind the service
// interfaces.
type repositories struct {
	users       services.UserRepository
	campgrounds services.CampgroundRepository
	comments    services.CommentRepository
	db          *sql.DB
}

func openRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	switch cfg.StoreBackend {
	case "postgres", "":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return repositories{}, fmt.Errorf("open database: %w", err)
		}
		return repositories{
			users:       store.NewUserRepository(conn),
			campgrounds: store.NewCampgroundRepository(conn),
			comments:    store.NewCommentRepository(conn),
			db:          conn,
		}, nil
	case "memory":
		slog.Warn("using in-memory store, data is lost on restart")
		mem := memory.NewStore()
		return repositories{
			users:       mem.Users(),
			campgrounds: mem.Campgrounds(),
			comments:    mem.Comments(),
		}, nil
	default:
		return repositories{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// openImageStore returns nil when no storage backend is configured; image
// uploads then fail as upstream errors.
func openImageStore(ctx context.Context, cfg config.StorageConfig) (services.ImageStore, error) {
	if cfg.Backend == "" {
		slog.Warn("no storage backend configured, image uploads are disabled")
		return nil, nil
	}
	images, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open image storage: %w", err)
	}
	return images, nil
}

func openGeocoder(cfg config.GeocoderConfig) (services.Geocoder, error) {
	if cfg.APIKey == "" {
		slog.Warn("no geocoder api key configured, campground locations cannot be resolved")
		return nil, nil
	}
	geocoder, err := geocode.NewGoogle(cfg)
	if err != nil {
		return nil, fmt.Errorf("create geocoder: %w", err)
	}
	return geocoder, nil
}

// openNotifier prefers the message queue, then direct SMTP. With neither
// configured it returns nil and notifications are skipped.
func openNotifier(ctx context.Context, cfg config.Config) (services.Notifier, *mq.MQ, error) {
	queue, err := mq.Open(ctx, cfg.MQ)
	switch {
	case err == nil:
		return notify.NewQueue(queue, cfg.MQ.MailChannel), queue, nil
	case !errors.Is(err, mq.ErrNotConfigured):
		return nil, nil, err
	}

	if cfg.Mail.Host != "" {
		mailer, err := notify.NewMailer(cfg.Mail)
		if err != nil {
			return nil, nil, fmt.Errorf("create mailer: %w", err)
		}
		return mailer, nil, nil
	}

	slog.Warn("no message queue or smtp configured, notifications are disabled")
	return nil, nil, nil
}
