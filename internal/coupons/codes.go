package coupons

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const generatedCodeLength = 16

// generateCodes derives n distinct codes from sha256 over a random seed, the
// generation time and the position in the batch.
func generateCodes(n int, now time.Time) ([]string, error) {
	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for i := 0; len(codes) < n; i++ {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%x:%d:%d", seed, now.UnixNano(), i)))
		code := strings.ToUpper(hex.EncodeToString(sum[:]))[:generatedCodeLength]
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}
