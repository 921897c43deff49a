package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"time"
)

// EntropySourceCryptoRand identifies seeds drawn from crypto/rand and
// reduced with SHA-256 rejection sampling.
const EntropySourceCryptoRand = "crypto/rand+sha256-rejection"

// maxSelectionRounds bounds rejection sampling; each round rejects with
// probability below n/2^64, so hitting the bound means the input is broken.
const maxSelectionRounds = 1 << 10

// AuditEntry records one roulette selection for later verification.
type AuditEntry struct {
	SelectedAt           time.Time `json:"selected_at"`
	RequesterID          string    `json:"requester_id"`
	EntropySource        string    `json:"entropy_source"`
	Seed                 string    `json:"seed"`
	ParticipantIDs       []string  `json:"participant_ids"`
	LockedParticipantIDs []string  `json:"locked_participant_ids"`
	SelectedLoserID      string    `json:"selected_loser_id"`
	TotalParticipants    int       `json:"total_participants"`
}

// SelectedParticipant is the settlement target chosen by the roulette.
type SelectedParticipant struct {
	ParticipantID string    `json:"participant_id"`
	SelectedAt    time.Time `json:"selected_at"`
	RequesterID   string    `json:"requester_id"`
	EntropySource string    `json:"entropy_source"`
	Seed          string    `json:"seed"`
}

// SelectIndex maps seed and salt to a uniform index in [0, n).
// The same inputs always give the same index.
func SelectIndex(seed []byte, salt string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrNoParticipants
	}

	// Largest multiple of n that fits, so v % n stays uniform.
	limit := math.MaxUint64 - (math.MaxUint64 % uint64(n))

	var counter [4]byte
	for round := uint32(0); round < maxSelectionRounds; round++ {
		binary.BigEndian.PutUint32(counter[:], round)

		h := sha256.New()
		h.Write(seed)
		h.Write([]byte(salt))
		h.Write(counter[:])
		sum := h.Sum(nil)

		if v := binary.BigEndian.Uint64(sum[:8]); v < limit {
			return int(v % uint64(n)), nil
		}
	}
	return 0, ErrSelectionNotReproducible
}
