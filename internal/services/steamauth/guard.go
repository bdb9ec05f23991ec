package steamauth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"time"

	"github.com/samber/oops"
)

const (
	guardCodeLength = 5
	guardPeriod     = 30
	guardAlphabet   = "23456789BCDFGHJKMNPQRTVWXY"
)

// GenerateSteamGuardCode derives the mobile authenticator code for t from the
// base64 shared secret.
func GenerateSteamGuardCode(sharedSecret string, t time.Time) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(sharedSecret)
	if err != nil {
		return "", oops.In("steamauth").Code(codeSteamGuard).Wrapf(err, "decode shared secret")
	}

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(t.Unix()/guardPeriod))
	mac := hmac.New(sha1.New, secret)
	mac.Write(counter[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	out := make([]byte, guardCodeLength)
	for i := range out {
		out[i] = guardAlphabet[code%uint32(len(guardAlphabet))]
		code /= uint32(len(guardAlphabet))
	}
	return string(out), nil
}
