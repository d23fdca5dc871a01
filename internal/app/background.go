package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/nfrund/gymhub/internal/config"
	"github.com/nfrund/gymhub/internal/database"
	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/memstore"
	"github.com/nfrund/gymhub/internal/presence"
	"github.com/nfrund/gymhub/internal/pubsub"
	"github.com/nfrund/gymhub/internal/realtime"
)

// StartBackground starts the bus consumers every instance runs: room fan-out,
// affiliation evictions and presence. It also starts the affiliation watcher
// for the configured store. Everything stops when ctx is canceled.
func StartBackground(ctx context.Context, i do.Injector) error {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*slog.Logger](i)
	sub, err := do.Invoke[pubsub.Subscriber](i)
	if err != nil {
		return err
	}
	registry, err := do.Invoke[*realtime.Registry](i)
	if err != nil {
		return err
	}
	svc, err := do.Invoke[*presence.Service](i)
	if err != nil {
		return err
	}

	if err := realtime.ServeBroadcasts(ctx, sub, registry); err != nil {
		return fmt.Errorf("serve broadcasts: %w", err)
	}
	if err := realtime.ServeEvictions(ctx, sub, registry, logger); err != nil {
		return fmt.Errorf("serve evictions: %w", err)
	}
	if err := svc.Start(ctx, sub); err != nil {
		return fmt.Errorf("start presence: %w", err)
	}
	return watchAffiliations(ctx, i, cfg, logger)
}

// watchAffiliations turns affiliation edits made outside the API into
// AffiliationChangedEvent so connections leave rooms they lost access to.
func watchAffiliations(ctx context.Context, i do.Injector, cfg *config.Config, logger *slog.Logger) error {
	pub, err := do.Invoke[pubsub.Publisher](i)
	if err != nil {
		return err
	}
	publish := func(ctx context.Context, ch realtime.AffiliationChange) {
		if err := pubsub.Publish(ctx, pub, realtime.AffiliationChangedEvent, ch.UserID, ch); err != nil {
			logger.Error("Failed to publish affiliation change", "user_id", ch.UserID, "source", ch.Source, "error", err)
		}
	}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		if !cfg.DirectoryWatch || cfg.DirectoryFile == "" {
			return nil
		}
		dir, err := do.Invoke[*memstore.Directory](i)
		if err != nil {
			return err
		}
		return memstore.WatchDirectoryFile(ctx, dir, cfg.DirectoryFile, logger, func(changed []domain.Affiliation) {
			for _, prev := range changed {
				gymID, err := dir.GymForUser(ctx, prev.UserID, prev.Role)
				if err != nil {
					logger.Warn("Failed to look up reloaded affiliation", "user_id", prev.UserID, "error", err)
				}
				publish(ctx, realtime.AffiliationChange{
					UserID:        prev.UserID,
					Role:          prev.Role,
					GymID:         gymID,
					PreviousGymID: prev.GymID,
					Source:        realtime.SourceDirectory,
				})
			}
		})
	default:
		conn, err := do.Invoke[*database.Connection](i)
		if err != nil {
			return err
		}
		return database.WatchAffiliations(ctx, conn, func(ctx context.Context, action database.ChangeAction, a domain.Affiliation) {
			ch := realtime.AffiliationChange{UserID: a.UserID, Role: a.Role, Source: realtime.SourceDatabase}
			if action == database.ChangeDelete {
				ch.PreviousGymID = a.GymID
			} else {
				ch.GymID = a.GymID
			}
			publish(ctx, ch)
		})
	}
}
