package helper

/**
Generates / annotates strings
*/

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SessionIdLength is the number of hex characters of a session id
const SessionIdLength = 8

// GenerateSessionId returns a short lowercase hex id. It is not meant to be unguessable, callers
// have to check for collisions
func GenerateSessionId() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:SessionIdLength]
}

// IsValidSessionId returns true if the input has the format of a generated session id
func IsValidSessionId(input string) bool {
	if len(input) != SessionIdLength {
		return false
	}
	for _, c := range input {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}

// ByteCountSI converts bytes to a human-readable format
func ByteCountSI(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(b)/float64(div), "kMGTPE"[exp])
}

// ToMegabytes returns the size in MB with two decimals
func ToMegabytes(b int64) string {
	return fmt.Sprintf("%.2f MB", float64(b)/(1024*1024))
}

// Truncate shortens the input to at most maxLength characters
func Truncate(input string, maxLength int) string {
	if utf8.RuneCountInString(input) <= maxLength {
		return input
	}
	runes := []rune(input)
	return string(runes[:maxLength])
}
