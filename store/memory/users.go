package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/MrEthical07/storefront"
)

// UserStore implements [storefront.UserStore].
type UserStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]storefront.Identity
	byEmail map[string]int64

	// onDelete runs under the write lock after a user is removed.
	onDelete func(userID int64)
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[int64]storefront.Identity),
		byEmail: make(map[string]int64),
	}
}

func (s *UserStore) Create(_ context.Context, identity *storefront.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := storefront.NormalizeEmail(identity.Email)
	if _, ok := s.byEmail[email]; ok {
		return storefront.ErrDuplicateEmail
	}
	s.nextID++
	identity.ID = s.nextID
	identity.Email = email
	s.byID[identity.ID] = *identity
	s.byEmail[email] = identity.ID
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id int64) (storefront.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return storefront.Identity{}, storefront.ErrRecordNotFound
	}
	return u, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (storefront.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[storefront.NormalizeEmail(email)]
	if !ok {
		return storefront.Identity{}, storefront.ErrRecordNotFound
	}
	return s.byID[id], nil
}

// Update replaces the stored identity. The email is immutable.
func (s *UserStore) Update(_ context.Context, identity storefront.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[identity.ID]
	if !ok {
		return storefront.ErrRecordNotFound
	}
	identity.Email = cur.Email
	s.byID[identity.ID] = identity
	return nil
}

func (s *UserStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return storefront.ErrRecordNotFound
	}
	delete(s.byID, id)
	delete(s.byEmail, u.Email)
	if s.onDelete != nil {
		s.onDelete(id)
	}
	return nil
}

// List returns all identities ordered by id.
func (s *UserStore) List(context.Context) ([]storefront.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storefront.Identity, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Cascade makes user deletion remove the user's codes from otps, mirroring
// the foreign key of the SQL schema.
func (s *UserStore) Cascade(otps *OtpStore) {
	s.mu.Lock()
	s.onDelete = otps.deleteAll
	s.mu.Unlock()
}
