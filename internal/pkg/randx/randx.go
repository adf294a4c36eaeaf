/*
Package randx provides functions for generating cryptographically secure random numbers and unique identifiers.

It is primarily used to generate UUID identifiers for users, sessions, and messages, and
fixed-length Base62 password reset tokens.
*/
package randx

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// ResetTokenLength is the fixed length of a password reset token.
	ResetTokenLength = 40
)

// base62 returns a random Base62 string of the given length using crypto/rand.
func base62(length int) (string, error) {
	result := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// ResetToken generates a Base62 password reset token of length ResetTokenLength.
// Only its HashToken digest is ever persisted.
func ResetToken() (string, error) {
	return base62(ResetTokenLength)
}

// IsValidResetToken checks if the given string has the shape of a reset token.
func IsValidResetToken(token string) bool {
	if len(token) != ResetTokenLength {
		return false
	}

	for _, char := range token {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// HashToken returns the hex-encoded SHA-256 digest of token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// UserID generates the uid assigned to a new account.
func UserID() string {
	return uuid.New().String()
}

// SessionID generates the identifier of a signed-in session.
func SessionID() string {
	return uuid.New().String()
}
