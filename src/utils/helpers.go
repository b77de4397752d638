package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// EventCodePrefix derives the QR code prefix from an event title: spaces
// stripped, uppercased, first 4 letters (fewer when the title is shorter).
func EventCodePrefix(title string) string {
	stripped := strings.ReplaceAll(title, " ", "")
	upper := []rune(strings.ToUpper(stripped))
	if len(upper) > 4 {
		upper = upper[:4]
	}
	return string(upper)
}

// GenerateCode returns n random bytes as an uppercase hex string.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// NewTicketCode builds the opaque QR token stamped on each ticket:
// "{event prefix}-{128-bit hex token}".
func NewTicketCode(eventTitle string) (string, error) {
	token, err := GenerateCode(16)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", EventCodePrefix(eventTitle), token), nil
}
