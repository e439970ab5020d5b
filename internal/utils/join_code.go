package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// GenerateJoinCode produces a short uppercase hex code for joining a team
func GenerateJoinCode() (string, error) {
	bytes := make([]byte, 3)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(bytes)), nil
}
