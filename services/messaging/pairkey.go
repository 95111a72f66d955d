package messaging

import "errors"

var ErrEmptyParticipant = errors.New("participant id is empty")

// PairKey is the canonical identity of an unordered pair of users: the two
// ids in ascending order joined by "_". PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", ErrEmptyParticipant
	}
	if b < a {
		a, b = b, a
	}
	return a + "_" + b, nil
}
