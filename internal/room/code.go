package room

import (
	"crypto/rand"
	"strings"
)

const roomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultCodeLength is the length of generated room codes.
const DefaultCodeLength = 6

// NewRoomCode generates an uppercase alphanumeric room code of length n.
// Codes are generated client-side with no uniqueness check; a collision
// silently shares a channel between two logical rooms, which is accepted.
func NewRoomCode(n int) string {
	b := make([]byte, n)
	rand.Read(b)

	for i := range b {
		b[i] = roomCodeChars[b[i]%byte(len(roomCodeChars))]
	}

	return string(b)
}

// NormalizeRoomCode uppercases and trims a user-supplied code so that
// "abcxyz" and "ABCXYZ" land on the same channel.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
