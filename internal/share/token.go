// Package share mints the opaque identifiers behind public share links.
package share

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const segmentBytes = 8

// NewToken returns a share identifier: a base36 millisecond timestamp
// followed by two random segments. Share identifiers never go through
// the public id codec, so they cannot be decoded back to a row id.
func NewToken() (string, error) {
	first, err := randomSegment()
	if err != nil {
		return "", err
	}
	second, err := randomSegment()
	if err != nil {
		return "", err
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return ts + "-" + first + "-" + second, nil
}

func randomSegment() (string, error) {
	b := make([]byte, segmentBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating share token segment: %w", err)
	}
	return hex.EncodeToString(b), nil
}
