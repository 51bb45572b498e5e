package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	hashTime    uint32 = 3
	hashMemory  uint32 = 64 * 1024
	hashThreads uint8  = 2
	hashKeyLen  uint32 = 32
	hashSaltLen        = 16
)

// Hash returns an argon2id hash string. The output embeds the algorithm
// parameters and salt, so nothing besides the string itself needs to be
// stored. Fails only when the entropy source does.
func Hash(password string) (string, error) {
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(password), salt, hashTime, hashMemory, hashThreads, hashKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		hashMemory,
		hashTime,
		hashThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify reports whether password matches the encoded argon2id hash,
// recomputing with the parameters embedded in the hash and comparing in
// constant time. Malformed hashes verify as false rather than erroring;
// callers treat both cases as "not authenticated".
func Verify(password, hash string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	version, ok := parseVersion(parts[2])
	if !ok || version != argon2.Version {
		return false
	}

	mem, timeCost, threads, ok := parseParams(parts[3])
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}

	actual := argon2.IDKey([]byte(password), salt, timeCost, mem, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

func parseVersion(value string) (int, bool) {
	if !strings.HasPrefix(value, "v=") {
		return 0, false
	}
	version, err := strconv.Atoi(strings.TrimPrefix(value, "v="))
	if err != nil {
		return 0, false
	}
	return version, true
}

func parseParams(value string) (uint32, uint32, uint8, bool) {
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}

	mem, ok := parseUint32Param(parts[0], "m=")
	if !ok {
		return 0, 0, 0, false
	}
	timeCost, ok := parseUint32Param(parts[1], "t=")
	if !ok {
		return 0, 0, 0, false
	}
	threads, ok := parseUint32Param(parts[2], "p=")
	if !ok || threads > 255 {
		return 0, 0, 0, false
	}
	return mem, timeCost, uint8(threads), true
}

func parseUint32Param(value, prefix string) (uint32, bool) {
	if !strings.HasPrefix(value, prefix) {
		return 0, false
	}
	parsed, err := strconv.ParseUint(strings.TrimPrefix(value, prefix), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(parsed), true
}
