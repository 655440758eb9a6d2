package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// portalAlphabet excludes visually confusable characters (i, l, o, 0, 1)
// so codes survive being read out over the phone. 31 symbols.
const portalAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

// GeneratePortalCode returns a random token from the confusable-free
// alphabet. A capability token, not a password: no expiry, no rotation.
func GeneratePortalCode(length int) (string, error) {
	if length <= 0 {
		length = 12
	}
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(portalAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate portal code: %w", err)
		}
		b.WriteByte(portalAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NewBookingID builds a platform booking ID: HT- prefix, base36 timestamp,
// four random characters. Sortable-ish and unguessable enough for a URL.
func NewBookingID() string {
	suffix, err := GeneratePortalCode(4)
	if err != nil {
		suffix = strconv.FormatInt(time.Now().UnixNano()%1679616, 36)
	}
	return "HT-" + strings.ToUpper(strconv.FormatInt(time.Now().Unix(), 36)+suffix)
}
