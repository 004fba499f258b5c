// Package registrations drives the registration lifecycle: at most one
// registration per (user, event), created PENDING and moved to APPROVED or
// REJECTED by an administrator.
package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/event-registration/backend/internal/logging"
	"github.com/ayush/event-registration/backend/internal/models"
)

// DefaultLockTTL bounds how long a register call may hold its pair lock.
const DefaultLockTTL = 5 * time.Second

// Store is the registration persistence the ledger needs.
type Store interface {
	InsertRegistration(ctx context.Context, reg *models.Registration) (*models.Registration, error)
	RegistrationExists(ctx context.Context, userID string, eventID primitive.ObjectID) (bool, error)
	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	SaveRegistration(ctx context.Context, reg *models.Registration) (*models.Registration, error)
	DeleteRegistration(ctx context.Context, id string) error
	ListRegistrations(ctx context.Context) ([]models.Registration, error)
	ListRegistrationsByUser(ctx context.Context, userID string) ([]models.Registration, error)
	ListRegistrationsByStatus(ctx context.Context, status models.Status) ([]models.Registration, error)
}

type EventLookup interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Locker grants a non-blocking exclusive lock on key. store.RedisLocker
// and store.MemoryLocker satisfy it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

// Ledger is safe for concurrent use. Without a unique index in the store
// and without a Locker, two concurrent Register calls for the same pair can
// both succeed.
type Ledger struct {
	regs    Store
	events  EventLookup
	users   UserLookup
	locker  Locker
	lockTTL time.Duration
	logger  logging.Logger
	now     func() time.Time
}

// NewLedger returns a Ledger. locker may be nil.
func NewLedger(regs Store, events EventLookup, users UserLookup, locker Locker, logger logging.Logger) *Ledger {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Ledger{
		regs:    regs,
		events:  events,
		users:   users,
		locker:  locker,
		lockTTL: DefaultLockTTL,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a PENDING registration of the user with email for
// eventID.
func (l *Ledger) Register(ctx context.Context, email, eventID string) (*models.Registration, error) {
	user, err := l.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnknownIdentity
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	event, err := l.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnknownEvent
		}
		return nil, fmt.Errorf("load event: %w", err)
	}

	if l.locker != nil {
		key := "registration:" + user.ID + ":" + event.ID.Hex()
		unlock, ok, err := l.locker.TryLock(ctx, key, l.lockTTL)
		switch {
		case err != nil:
			// Fall back to the store's own guarantees.
			l.logger.Warn(ctx, "registration lock unavailable", "err", err)
		case !ok:
			return nil, models.ErrAlreadyRegistered
		default:
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					l.logger.Warn(ctx, "registration unlock failed", "err", err)
				}
			}()
		}
	}

	exists, err := l.regs.RegistrationExists(ctx, user.ID, event.ID)
	if err != nil {
		return nil, fmt.Errorf("check registration: %w", err)
	}
	if exists {
		return nil, models.ErrAlreadyRegistered
	}

	now := l.now()
	reg, err := l.regs.InsertRegistration(ctx, &models.Registration{
		UserID:    user.ID,
		UserEmail: user.Email,
		EventID:   event.ID,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadyRegistered) {
			return nil, err
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	l.logger.Info(ctx, "registration created",
		"registration_id", reg.ID.Hex(),
		"user_id", user.ID,
		"event_id", event.ID.Hex(),
	)
	reg.Event = event
	return reg, nil
}

// Cancel deletes registration id and reports whether it existed. Any
// authenticated caller may cancel any registration.
func (l *Ledger) Cancel(ctx context.Context, id string) (bool, error) {
	if err := l.regs.DeleteRegistration(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete registration: %w", err)
	}
	l.logger.Info(ctx, "registration cancelled", "registration_id", id)
	return true, nil
}

// Transition overwrites the status of registration id. Only APPROVED and
// REJECTED are accepted; the current status is not consulted.
func (l *Ledger) Transition(ctx context.Context, id string, status models.Status) (*models.Registration, error) {
	if status != models.StatusApproved && status != models.StatusRejected {
		return nil, models.ErrInvalidStatus
	}

	reg, err := l.regs.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}

	reg.Status = status
	reg.UpdatedAt = l.now()
	saved, err := l.regs.SaveRegistration(ctx, reg)
	if err != nil {
		return nil, err
	}

	l.logger.Info(ctx, "registration status changed", "registration_id", id, "status", status)
	if err := l.attach(ctx, []*models.Registration{saved}); err != nil {
		return nil, err
	}
	return saved, nil
}

// ListByIdentity returns the registrations of the user with email.
func (l *Ledger) ListByIdentity(ctx context.Context, email string) ([]models.Registration, error) {
	user, err := l.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnknownIdentity
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	regs, err := l.regs.ListRegistrationsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return l.withEvents(ctx, regs)
}

func (l *Ledger) ListPending(ctx context.Context) ([]models.Registration, error) {
	regs, err := l.regs.ListRegistrationsByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending registrations: %w", err)
	}
	return l.withEvents(ctx, regs)
}

func (l *Ledger) ListAll(ctx context.Context) ([]models.Registration, error) {
	regs, err := l.regs.ListRegistrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return l.withEvents(ctx, regs)
}

func (l *Ledger) withEvents(ctx context.Context, regs []models.Registration) ([]models.Registration, error) {
	ptrs := make([]*models.Registration, len(regs))
	for i := range regs {
		ptrs[i] = &regs[i]
	}
	if err := l.attach(ctx, ptrs); err != nil {
		return nil, err
	}
	return regs, nil
}

// attach embeds each registration's event. Registrations whose event has
// been deleted keep a nil Event.
func (l *Ledger) attach(ctx context.Context, regs []*models.Registration) error {
	seen := make(map[primitive.ObjectID]*models.Event)
	for _, reg := range regs {
		event, ok := seen[reg.EventID]
		if !ok {
			found, err := l.events.GetEvent(ctx, reg.EventID.Hex())
			switch {
			case errors.Is(err, models.ErrNotFound):
				// orphaned
			case err != nil:
				return fmt.Errorf("load event %s: %w", reg.EventID.Hex(), err)
			default:
				event = found
			}
			seen[reg.EventID] = event
		}
		reg.Event = event
	}
	return nil
}
