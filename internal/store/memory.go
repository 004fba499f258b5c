package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/event-registration/backend/internal/models"
)

// MemoryStore keeps users, events and registrations in process memory. It
// mirrors the Postgres and Mongo stores closely enough to stand in for them
// in tests and local runs; it is not a cache in front of them.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]models.User
	events        map[primitive.ObjectID]models.Event
	registrations map[primitive.ObjectID]models.Registration
	unique        bool
	now           func() time.Time
}

// NewMemoryStore returns an empty store. With uniqueRegistrations set,
// InsertRegistration rejects a second row for the same (user, event) the
// way the Mongo unique index does.
func NewMemoryStore(uniqueRegistrations bool) *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]models.User),
		events:        make(map[primitive.ObjectID]models.Event),
		registrations: make(map[primitive.ObjectID]models.Registration),
		unique:        uniqueRegistrations,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ── users ────────────────────────────────────────────────────

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, models.ErrEmailTaken
		}
	}
	out := *u
	out.ID = uuid.NewString()
	out.CreatedAt = s.now()
	out.UpdatedAt = out.CreatedAt
	s.users[out.ID] = out
	return &out, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return nil, models.ErrNotFound
	}
	for id, other := range s.users {
		if id != u.ID && other.Email == u.Email {
			return nil, models.ErrEmailTaken
		}
	}
	out := *u
	out.CreatedAt = existing.CreatedAt
	out.UpdatedAt = s.now()
	s.users[out.ID] = out
	return &out, nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) DeleteUserByEmail(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if u.Email == email {
			delete(s.users, id)
			return nil
		}
	}
	return models.ErrNotFound
}

// ── events ───────────────────────────────────────────────────

func (s *MemoryStore) InsertEvent(_ context.Context, e *models.Event) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *e
	out.ID = primitive.NewObjectID()
	out.CreatedAt = s.now()
	out.UpdatedAt = out.CreatedAt
	s.events[out.ID] = out
	return &out, nil
}

func (s *MemoryStore) ListEvents(_ context.Context) ([]models.Event, error) {
	return s.filterEvents(func(models.Event) bool { return true }), nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id string) (*models.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[oid]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &e, nil
}

func (s *MemoryStore) UpdateEvent(_ context.Context, e *models.Event) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[e.ID]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *e
	out.CreatedAt = existing.CreatedAt
	out.UpdatedAt = s.now()
	s.events[out.ID] = out
	return &out, nil
}

func (s *MemoryStore) DeleteEvent(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[oid]; !ok {
		return models.ErrNotFound
	}
	delete(s.events, oid)
	return nil
}

func (s *MemoryStore) FindEventsByLocation(_ context.Context, location string) ([]models.Event, error) {
	return s.filterEvents(func(e models.Event) bool {
		return strings.EqualFold(e.Location, location)
	}), nil
}

func (s *MemoryStore) SearchEvents(_ context.Context, query string) ([]models.Event, error) {
	q := strings.ToLower(query)
	return s.filterEvents(func(e models.Event) bool {
		return strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.Location), q)
	}), nil
}

func (s *MemoryStore) filterEvents(keep func(models.Event) bool) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Event{}
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ── registrations ────────────────────────────────────────────

func (s *MemoryStore) InsertRegistration(_ context.Context, reg *models.Registration) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unique {
		for _, existing := range s.registrations {
			if existing.UserID == reg.UserID && existing.EventID == reg.EventID {
				return nil, models.ErrAlreadyRegistered
			}
		}
	}
	out := *reg
	out.ID = primitive.NewObjectID()
	out.Event = nil
	s.registrations[out.ID] = out
	return &out, nil
}

func (s *MemoryStore) RegistrationExists(_ context.Context, userID string, eventID primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.registrations {
		if r.UserID == userID && r.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) GetRegistration(_ context.Context, id string) (*models.Registration, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.registrations[oid]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) SaveRegistration(_ context.Context, reg *models.Registration) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registrations[reg.ID]; !ok {
		return nil, models.ErrNotFound
	}
	out := *reg
	out.Event = nil
	s.registrations[out.ID] = out
	return &out, nil
}

func (s *MemoryStore) DeleteRegistration(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registrations[oid]; !ok {
		return models.ErrNotFound
	}
	delete(s.registrations, oid)
	return nil
}

func (s *MemoryStore) ListRegistrations(_ context.Context) ([]models.Registration, error) {
	return s.filterRegistrations(func(models.Registration) bool { return true }), nil
}

func (s *MemoryStore) ListRegistrationsByUser(_ context.Context, userID string) ([]models.Registration, error) {
	return s.filterRegistrations(func(r models.Registration) bool { return r.UserID == userID }), nil
}

func (s *MemoryStore) ListRegistrationsByStatus(_ context.Context, status models.Status) ([]models.Registration, error) {
	return s.filterRegistrations(func(r models.Registration) bool { return r.Status == status }), nil
}

func (s *MemoryStore) filterRegistrations(keep func(models.Registration) bool) []models.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Registration{}
	for _, r := range s.registrations {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// MemoryLocker is an in-process stand-in for RedisLocker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]time.Time)}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return nil, false, nil
	}
	l.held[key] = now.Add(ttl)

	unlock := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}
	return unlock, true, nil
}

// MemoryBlobs is an in-process stand-in for MinioStore.
type MemoryBlobs struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

type blob struct {
	data        []byte
	contentType string
}

func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{blobs: make(map[string]blob)}
}

func (b *MemoryBlobs) Upload(_ context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = blob{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (b *MemoryBlobs) Download(_ context.Context, key string) ([]byte, string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.blobs[key]
	if !ok {
		return nil, "", models.ErrNotFound
	}
	return append([]byte(nil), obj.data...), obj.contentType, nil
}

func (b *MemoryBlobs) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}
