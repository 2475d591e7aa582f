package rand

import (
	cr "crypto/rand"
	"encoding/base32"
)

// ID8 returns a short random token, used for subscription handles and
// connection names.
func ID8() string {
	var b [5]byte // 5 raw bytes → 8 base32 chars
	_, _ = cr.Read(b[:])
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b[:])
}
