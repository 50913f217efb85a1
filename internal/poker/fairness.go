package poker

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jason-s-yu/holdem/internal/models"
)

// SecretSize is the number of random bytes in a server secret.
const SecretSize = 32

var (
	ErrCommitmentMismatch = errors.New("server secret does not match commitment")
	ErrDeckMismatch       = errors.New("revealed deck does not match replayed shuffle")
)

// NewSecret draws a fresh server secret and returns it hex encoded with its commitment.
func NewSecret() (secret, commitment string, err error) {
	buf := make([]byte, SecretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read random secret: %w", err)
	}
	secret = hex.EncodeToString(buf)
	return secret, Commitment(secret), nil
}

// Commitment is the SHA-256 of the hex secret string, hex encoded.
func Commitment(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// NewRecord prepares the fairness inputs of a hand.
func NewRecord(clientValue string, nonce uint64) (models.FairnessRecord, error) {
	secret, commitment, err := NewSecret()
	if err != nil {
		return models.FairnessRecord{}, err
	}
	return models.FairnessRecord{
		ServerSecret:   secret,
		CommitmentHash: commitment,
		ClientValue:    clientValue,
		Nonce:          nonce,
	}, nil
}

// byteStream expands HMAC-SHA256(secret, "client:nonce:counter") blocks into a byte sequence.
type byteStream struct {
	key     []byte
	client  string
	nonce   uint64
	counter uint64
	buf     []byte
}

func (s *byteStream) next() uint64 {
	for len(s.buf) < 8 {
		mac := hmac.New(sha256.New, s.key)
		fmt.Fprintf(mac, "%s:%d:%d", s.client, s.nonce, s.counter)
		s.counter++
		s.buf = append(s.buf, mac.Sum(nil)...)
	}
	v := binary.BigEndian.Uint64(s.buf[:8])
	s.buf = s.buf[8:]
	return v
}

// ShuffledDeck deterministically shuffles the base deck from the fairness inputs with a
// Fisher-Yates pass driven by the HMAC stream.
func ShuffledDeck(secret, clientValue string, nonce uint64) ([]models.Card, error) {
	key, err := hex.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("decode server secret: %w", err)
	}
	stream := &byteStream{key: key, client: clientValue, nonce: nonce}
	deck := NewDeck()
	for i := len(deck) - 1; i > 0; i-- {
		j := int(stream.next() % uint64(i+1))
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck, nil
}

// Verify checks the commitment of a revealed hand and, when the deck is included, replays the
// shuffle against it.
func Verify(r models.FairnessReveal) error {
	if Commitment(r.ServerSecret) != r.CommitmentHash {
		return ErrCommitmentMismatch
	}
	deck, err := ShuffledDeck(r.ServerSecret, r.ClientValue, r.Nonce)
	if err != nil {
		return err
	}
	if len(r.Deck) == 0 {
		return nil
	}
	if len(r.Deck) != len(deck) {
		return ErrDeckMismatch
	}
	for i := range deck {
		if !deck[i].SameFace(r.Deck[i]) {
			return ErrDeckMismatch
		}
	}
	return nil
}
