package store

import (
	"context"

	"github.com/glefebvre/iptvcore/internal/dedup"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/glefebvre/iptvcore/internal/metrics"
	"github.com/glefebvre/iptvcore/internal/models"
)

// Primary is the durable tier contract; PrimaryStore implements it
type Primary interface {
	IsSupported(ctx context.Context) bool
	GetAll(ctx context.Context) ([]models.Playlist, error)
	Get(ctx context.Context, id string) (*models.Playlist, error)
	Put(ctx context.Context, p models.Playlist) error
	PutAll(ctx context.Context, playlists []models.Playlist) error
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
}

// RepairFunc makes channel ids unique across a collection without mutating it
type RepairFunc func([]models.Playlist) ([]models.Playlist, bool)

// loadState is a step of the Load state machine
type loadState int

const (
	stateCheckPrimary loadState = iota
	stateReadPrimary
	stateMigrate
	stateRepair
	stateReadLegacy
	stateDone
)

func (s loadState) String() string {
	switch s {
	case stateCheckPrimary:
		return "check_primary"
	case stateReadPrimary:
		return "read_primary"
	case stateMigrate:
		return "migrate"
	case stateRepair:
		return "repair"
	case stateReadLegacy:
		return "read_legacy"
	default:
		return "done"
	}
}

// Fallback composes the durable and legacy tiers behind one repository.
// The durable tier is always tried first; the legacy tier serves whatever
// the durable tier cannot, and its data moves into the durable tier the
// first time the durable tier is found empty.
type Fallback struct {
	primary Primary
	legacy  *LegacyStore
	repair  RepairFunc
	logger  *logger.Logger
}

// Option configures a Fallback
type Option func(*Fallback)

// WithRepair replaces the channel id repair step
func WithRepair(fn RepairFunc) Option {
	return func(f *Fallback) {
		if fn != nil {
			f.repair = fn
		}
	}
}

// NewFallback creates the repository over both tiers
func NewFallback(primary Primary, legacy *LegacyStore, log *logger.Logger, opts ...Option) *Fallback {
	if log == nil {
		log = logger.AppLogger()
	}
	f := &Fallback{
		primary: primary,
		legacy:  legacy,
		repair:  dedup.ChannelIDs,
		logger:  log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load returns every playlist with channel ids unique across the collection
func (f *Fallback) Load(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist

	state := stateCheckPrimary
	for state != stateDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f.logger.WithFields(map[string]interface{}{"state": state.String()}).Debug("loading playlists")

		switch state {
		case stateCheckPrimary:
			if f.primary.IsSupported(ctx) {
				state = stateReadPrimary
			} else {
				f.fellBack("load", nil)
				state = stateReadLegacy
			}

		case stateReadPrimary:
			// Only a successful empty read may migrate: PutAll replaces
			// every durable row
			all, err := f.primary.GetAll(ctx)
			switch {
			case err != nil:
				f.fellBack("load", err)
				state = stateReadLegacy
			case len(all) == 0 && f.legacy.HasData():
				state = stateMigrate
			default:
				playlists = all
				state = stateRepair
			}

		case stateMigrate:
			legacy := f.legacy.LoadAll()
			if len(legacy) == 0 {
				playlists = []models.Playlist{}
				state = stateDone
				break
			}

			migrated, _ := f.repairChannelIDs(legacy)
			if err := f.primary.PutAll(ctx, migrated); err != nil {
				f.fellBack("migrate", err)
				state = stateReadLegacy
				break
			}
			if err := f.legacy.Clear(); err != nil {
				f.logger.Error("migrated playlists but failed to clear legacy data", err)
			}

			metrics.Migrations.Inc()
			f.logger.WithFields(map[string]interface{}{
				"playlists": len(migrated),
			}).Info("migrated legacy playlists to durable storage")
			playlists = migrated
			state = stateDone

		case stateRepair:
			repaired, changed := f.repairChannelIDs(playlists)
			if changed {
				if err := f.primary.PutAll(ctx, repaired); err != nil {
					// The repaired view is still returned; the next load repairs again
					f.logger.WithFields(map[string]interface{}{
						"error": err.Error(),
					}).Warn("failed to persist repaired channel ids")
				} else {
					f.logger.Info("fixed duplicate channel ids in stored playlists")
				}
				playlists = repaired
			}
			state = stateDone

		case stateReadLegacy:
			playlists, _ = f.repairChannelIDs(f.legacy.LoadAll())
			state = stateDone
		}
	}

	return playlists, nil
}

// Add persists a new playlist, appending it to the legacy collection when
// the durable tier cannot take it
func (f *Fallback) Add(ctx context.Context, p models.Playlist) error {
	if f.primary.IsSupported(ctx) {
		err := f.primary.Put(ctx, p)
		if err == nil {
			metrics.PlaylistsSaved.WithLabelValues(metrics.TierPrimary).Inc()
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		f.fellBack("add", err)
	} else {
		f.fellBack("add", nil)
	}

	err := f.legacy.Modify(func(all []models.Playlist) ([]models.Playlist, bool) {
		return append(all, p), true
	})
	if err != nil {
		return err
	}
	metrics.PlaylistsSaved.WithLabelValues(metrics.TierLegacy).Inc()
	return nil
}

// Update applies mutate to the playlist with the given id and persists it.
// It returns nil when no tier holds the playlist. When the durable read
// fails and the legacy tier does not hold the id either, the read error is
// returned.
func (f *Fallback) Update(ctx context.Context, id string, mutate func(*models.Playlist)) (*models.Playlist, error) {
	var readErr error
	if f.primary.IsSupported(ctx) {
		p, err := f.primary.Get(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			f.fellBack("update", err)
			readErr = err
		}
		if p != nil {
			mutate(p)
			if err := f.primary.Put(ctx, *p); err != nil {
				return nil, err
			}
			metrics.PlaylistsSaved.WithLabelValues(metrics.TierPrimary).Inc()
			return p, nil
		}
	}

	var updated *models.Playlist
	err := f.legacy.Modify(func(all []models.Playlist) ([]models.Playlist, bool) {
		for i := range all {
			if all[i].ID == id {
				mutate(&all[i])
				p := all[i].Clone()
				updated = &p
				return all, true
			}
		}
		return all, false
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, readErr
	}
	metrics.PlaylistsSaved.WithLabelValues(metrics.TierLegacy).Inc()
	return updated, nil
}

// Delete removes the playlist from whichever tier holds it
func (f *Fallback) Delete(ctx context.Context, id string) (bool, error) {
	if f.primary.IsSupported(ctx) {
		deleted, err := f.primary.Delete(ctx, id)
		if err == nil && deleted {
			return true, nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			f.fellBack("delete", err)
		}
	}

	removed := false
	err := f.legacy.Modify(func(all []models.Playlist) ([]models.Playlist, bool) {
		kept := make([]models.Playlist, 0, len(all))
		for _, p := range all {
			if p.ID == id {
				removed = true
				continue
			}
			kept = append(kept, p)
		}
		return kept, removed
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// Find returns the playlist with the given id, or nil
func (f *Fallback) Find(ctx context.Context, id string) (*models.Playlist, error) {
	if f.primary.IsSupported(ctx) {
		p, err := f.primary.Get(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			f.fellBack("find", err)
		}
		if p != nil {
			return p, nil
		}
	}

	for _, p := range f.legacy.LoadAll() {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (f *Fallback) repairChannelIDs(playlists []models.Playlist) ([]models.Playlist, bool) {
	repaired, changed := f.repair(playlists)
	if changed {
		n := countChangedIDs(playlists, repaired)
		metrics.RepairedChannelIDs.Add(float64(n))
		f.logger.WithFields(map[string]interface{}{
			"regenerated": n,
		}).Info("regenerated duplicate channel ids")
	}
	return repaired, changed
}

func (f *Fallback) fellBack(operation string, err error) {
	metrics.StorageFallbacks.WithLabelValues(operation).Inc()

	fields := map[string]interface{}{"operation": operation}
	if err != nil {
		fields["error"] = err.Error()
		f.logger.WithFields(fields).Warn("durable storage failed, using legacy storage")
		return
	}
	f.logger.WithFields(fields).Debug("durable storage unavailable, using legacy storage")
}

func countChangedIDs(before, after []models.Playlist) int {
	n := 0
	for i := range before {
		if i >= len(after) {
			break
		}
		a, b := before[i].Channels, after[i].Channels
		for j := range a {
			if j < len(b) && a[j].ID != b[j].ID {
				n++
			}
		}
	}
	return n
}
