package escrow

import (
	"encoding/json"
	"fmt"

	"github.com/dogewatch/dogewatch-core/internal/storage"
)

var (
	prefixCase = []byte("c/") // c/<caseID> -> Case JSON
	prefixVote = []byte("v/") // v/<caseID>/<voterID> -> Vote JSON
)

// Store persists cases and votes.
type Store struct {
	db storage.DB
}

// NewStore creates a case store.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// PutCase stores a case.
func (s *Store) PutCase(c *Case) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("case marshal: %w", err)
	}
	return s.db.Put(caseKey(c.ID), data)
}

// GetCase retrieves a case by ID.
func (s *Store) GetCase(id string) (*Case, error) {
	data, err := s.db.Get(caseKey(id))
	if err != nil {
		return nil, fmt.Errorf("case get: %w", err)
	}
	var c Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("case unmarshal: %w", err)
	}
	return &c, nil
}

// HasCase checks if a case exists.
func (s *Store) HasCase(id string) (bool, error) {
	return s.db.Has(caseKey(id))
}

// ForEachCase iterates over all cases.
// Return a non-nil error from fn to stop iteration early.
func (s *Store) ForEachCase(fn func(*Case) error) error {
	return s.db.ForEach(prefixCase, func(key, value []byte) error {
		var c Case
		if err := json.Unmarshal(value, &c); err != nil {
			return nil // Skip corrupt entries.
		}
		return fn(&c)
	})
}

// PutVote stores a vote. One vote per (case, voter); the engine checks
// HasVote before writing.
func (s *Store) PutVote(v *Vote) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("vote marshal: %w", err)
	}
	return s.db.Put(voteKey(v.CaseID, v.VoterID), data)
}

// HasVote checks if the voter already voted on the case.
func (s *Store) HasVote(caseID, voterID string) (bool, error) {
	return s.db.Has(voteKey(caseID, voterID))
}

// Votes returns all votes on a case.
func (s *Store) Votes(caseID string) ([]Vote, error) {
	var votes []Vote
	err := s.db.ForEach(votePrefix(caseID), func(key, value []byte) error {
		var v Vote
		if err := json.Unmarshal(value, &v); err != nil {
			return nil // Skip corrupt entries.
		}
		votes = append(votes, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if votes == nil {
		votes = []Vote{}
	}
	return votes, nil
}

func caseKey(id string) []byte {
	return append(append([]byte{}, prefixCase...), id...)
}

func votePrefix(caseID string) []byte {
	return []byte(string(prefixVote) + caseID + "/")
}

func voteKey(caseID, voterID string) []byte {
	return append(votePrefix(caseID), voterID...)
}
