package auth

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// CodeLength is the length of confirmation codes; the users table stores at most this many characters.
const CodeLength = 24

// CodeGenerator derives confirmation codes with a keyed BLAKE2b MAC over the
// user's identity and fresh randomness, so every signup yields a new code.
type CodeGenerator struct {
	key [32]byte
}

// NewCodeGenerator derives the MAC key from secret; any secret length is accepted.
func NewCodeGenerator(secret []byte) *CodeGenerator {
	return &CodeGenerator{key: blake2b.Sum256(secret)}
}

func (g *CodeGenerator) Generate(userID int64, username, email string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}

	h, err := blake2b.New256(g.key[:])
	if err != nil {
		return "", err
	}
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], uint64(userID))
	h.Write(id[:])
	writeField(h, username)
	writeField(h, email)
	h.Write(nonce)

	return hex.EncodeToString(h.Sum(nil))[:CodeLength], nil
}

// writeField length-prefixes s so field boundaries cannot be shifted.
func writeField(h io.Writer, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}
