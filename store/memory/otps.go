package memory

import (
	"context"
	"sync"

	"github.com/MrEthical07/storefront"
)

type otpKey struct {
	userID  int64
	purpose storefront.OtpPurpose
}

// OtpStore implements [storefront.OtpStore]. Records are keyed by
// (user, purpose) so Upsert replaces in one step.
type OtpStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[otpKey]storefront.OtpRecord
}

func NewOtpStore() *OtpStore {
	return &OtpStore{records: make(map[otpKey]storefront.OtpRecord)}
}

func (s *OtpStore) Upsert(_ context.Context, record storefront.OtpRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = s.nextID
	s.records[otpKey{record.UserID, record.Purpose}] = record
	return nil
}

func (s *OtpStore) Get(_ context.Context, userID int64, purpose storefront.OtpPurpose) (storefront.OtpRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[otpKey{userID, purpose}]
	if !ok {
		return storefront.OtpRecord{}, storefront.ErrRecordNotFound
	}
	return r, nil
}

func (s *OtpStore) Delete(_ context.Context, userID int64, purpose storefront.OtpPurpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, otpKey{userID, purpose})
	return nil
}

func (s *OtpStore) DeleteAllForUser(_ context.Context, userID int64) error {
	s.deleteAll(userID)
	return nil
}

func (s *OtpStore) deleteAll(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.records {
		if k.userID == userID {
			delete(s.records, k)
		}
	}
}

// Len reports the number of live records.
func (s *OtpStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
