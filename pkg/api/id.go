package api

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// NewID returns a time-prefixed random identifier. IDs created later sort
// after earlier ones when compared as strings of equal length.
func NewID() string {
	ts := strconv.FormatInt(time.Now().UnixNano(), 36)
	var buf [6]byte
	_, _ = rand.Read(buf[:])
	return ts + "-" + hex.EncodeToString(buf[:])
}
