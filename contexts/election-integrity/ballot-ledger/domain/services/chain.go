package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"ballotbox/contexts/election-integrity/ballot-ledger/domain/entities"
	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
)

// GenesisHash is the predecessor hash of the first vote in an empty ledger.
var GenesisHash = strings.Repeat("0", sha256.Size*2)

// GenesisTime is the predecessor timestamp of the first vote.
var GenesisTime = time.Unix(0, 0).UTC()

// ChainLink is the part of an entry that its successor commits to.
type ChainLink struct {
	Hash      string
	CreatedAt time.Time
}

// GenesisLink is the sentinel predecessor used when the ledger is empty.
func GenesisLink() ChainLink {
	return ChainLink{Hash: GenesisHash, CreatedAt: GenesisTime}
}

// LinkOf returns the link a successor of vote must commit to.
func LinkOf(vote entities.Vote) ChainLink {
	return ChainLink{Hash: vote.Hash, CreatedAt: vote.CreatedAt}
}

// ChainDigester computes keyed chain hashes. The key is fixed at construction.
type ChainDigester struct {
	key []byte
}

func NewChainDigester(secret []byte) (ChainDigester, error) {
	if len(secret) == 0 {
		return ChainDigester{}, domainerrors.ErrMissingSecretKey
	}
	return ChainDigester{key: append([]byte(nil), secret...)}, nil
}

// Link returns hex(HMAC-SHA256(key, voterID || candidatureID || previous.Hash || previous.CreatedAt)).
func (d ChainDigester) Link(voterID string, candidatureID string, previous ChainLink) string {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte(voterID))
	mac.Write([]byte(candidatureID))
	mac.Write([]byte(previous.Hash))
	mac.Write([]byte(FormatChainTime(previous.CreatedAt)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether vote.Hash is the digest of vote over previous.
func (d ChainDigester) Verify(vote entities.Vote, previous ChainLink) bool {
	expected := d.Link(vote.VoterID, vote.CandidatureID, previous)
	return hmac.Equal([]byte(expected), []byte(vote.Hash))
}

// Configured is false for the zero value.
func (d ChainDigester) Configured() bool {
	return len(d.key) > 0
}

// FormatChainTime is the canonical timestamp rendering fed to the digest.
func FormatChainTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NextCreatedAt returns the creation time for an entry appended after
// previous. Timestamps are kept at microsecond precision so they survive a
// round trip through postgres, and are strictly increasing along the chain.
func NextCreatedAt(now time.Time, previous ChainLink) time.Time {
	next := now.UTC().Truncate(time.Microsecond)
	floor := previous.CreatedAt.UTC().Truncate(time.Microsecond)
	if !next.After(floor) {
		next = floor.Add(time.Microsecond)
	}
	return next
}
