package api

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Hash returns a BLAKE3 digest of the message identity within its session:
// session, sender, content and image reference. IDs and timestamps are left
// out so the same turn imported twice hashes the same.
func (m Message) Hash() string {
	h := blake3.New()

	// NUL separators keep field boundaries unambiguous.
	h.Write([]byte(m.SessionID))
	h.Write([]byte{0})
	h.Write([]byte(m.Sender))
	h.Write([]byte{0})
	h.Write([]byte(m.Content))
	h.Write([]byte{0})
	h.Write([]byte(m.ImageURL))

	return hex.EncodeToString(h.Sum(nil))
}
