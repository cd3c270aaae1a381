package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promptpix/api/internal/config"
	"promptpix/api/internal/models"
)

// ErrQuotaExceeded blocks a generation call before it is made.
var ErrQuotaExceeded = errors.New("quota: generation limit reached")

// Tracker enforces the generation ceiling for both identity pools. The two
// pools never merge: usage a device accrued anonymously does not follow the
// user after sign-in.
type Tracker struct {
	anonymous Store
	users     Store
	cfg       config.QuotaConfig
	now       func() time.Time
}

func NewTracker(anonymous, users Store, cfg config.QuotaConfig) *Tracker {
	return &Tracker{
		anonymous: anonymous,
		users:     users,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CheckAllowed returns nil when the identity may generate, ErrQuotaExceeded
// when the window is exhausted. A store read failure propagates unchanged:
// the tracker never guesses on unknown state, the caller decides the UX
// fallback.
func (t *Tracker) CheckAllowed(ctx context.Context, identity models.Identity) error {
	state, err := t.State(ctx, identity)
	if err != nil {
		return err
	}
	if state.Used >= state.Limit {
		return ErrQuotaExceeded
	}
	return nil
}

// RecordUsage increments the identity's counter by exactly one. Callers
// invoke it once per confirmed successful generation, never speculatively.
func (t *Tracker) RecordUsage(ctx context.Context, identity models.Identity) (models.QuotaState, error) {
	store, key, limit, window := t.resolve(identity)
	used, err := store.Increment(ctx, key)
	if err != nil {
		return models.QuotaState{}, err
	}
	return models.QuotaState{
		Identity: identity,
		Used:     used,
		Limit:    limit,
		Window:   window,
	}, nil
}

// State reads the current usage snapshot without modifying it.
func (t *Tracker) State(ctx context.Context, identity models.Identity) (models.QuotaState, error) {
	store, key, limit, window := t.resolve(identity)
	used, err := store.Used(ctx, key)
	if err != nil {
		return models.QuotaState{}, err
	}
	return models.QuotaState{
		Identity: identity,
		Used:     used,
		Limit:    limit,
		Window:   window,
	}, nil
}

func (t *Tracker) resolve(identity models.Identity) (store Store, key string, limit int, window models.QuotaWindow) {
	if identity.Authenticated() {
		day := t.now().UTC().Format("2006-01-02")
		return t.users, fmt.Sprintf("quota:user:%s:%s", identity.ID, day), t.cfg.DailyLimit, models.QuotaWindowDaily
	}
	return t.anonymous, fmt.Sprintf("quota:device:%s", identity.ID), t.cfg.AnonymousLimit, models.QuotaWindowLifetime
}
