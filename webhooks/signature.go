package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the canonical request header carrying the signature.
// Proxies commonly lowercase it to `1sub-signature`.
const SignatureHeader = "X-1Sub-Signature"

// DefaultTolerance is the accepted clock skew between signing and
// verification.
const DefaultTolerance = 5 * time.Minute

// Signer creates and checks timestamped HMAC-SHA256 signatures in the
// `t=<unix_seconds>,v1=<hex_hmac>` header format. The zero value is not
// usable; construct with NewSigner.
type Signer struct {
	secret    string
	tolerance time.Duration

	// Now overrides the clock; tests pin it.
	Now func() time.Time
}

// NewSigner builds a Signer for secret. A non-positive tolerance falls
// back to DefaultTolerance.
func NewSigner(secret string, tolerance time.Duration) *Signer {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Signer{secret: secret, tolerance: tolerance}
}

// Tolerance reports the accepted clock skew.
func (s *Signer) Tolerance() time.Duration {
	if s == nil {
		return 0
	}
	return s.tolerance
}

// Sign produces a signature header for payload at the current time.
func (s *Signer) Sign(payload string) string {
	return s.SignAt(payload, s.now())
}

// SignAt produces a signature header for payload as of signedAt.
func (s *Signer) SignAt(payload string, signedAt time.Time) string {
	timestamp := strconv.FormatInt(signedAt.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, s.digest(timestamp, payload))
}

// Verify reports whether header carries a valid signature for payload. It
// fails when the timestamp or signature field is missing, the timestamp is
// not an integer, or the timestamp sits outside the tolerance window; the
// window boundary itself still passes. The signature comparison is
// constant time.
func (s *Signer) Verify(payload string, header string) bool {
	if s == nil {
		return false
	}
	timestamp, signature, ok := parseSignatureHeader(header)
	if !ok {
		return false
	}
	issued, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}

	skew := s.now().Unix() - issued
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(s.tolerance/time.Second) {
		return false
	}

	// The digest covers the timestamp exactly as it appeared in the
	// header, not its re-formatted integer value.
	expected := s.digest(timestamp, payload)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func (s *Signer) digest(timestamp string, payload string) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	_, _ = mac.Write([]byte(timestamp + "." + payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Signer) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// parseSignatureHeader splits `t=<ts>,v1=<sig>` into its fields. Parts
// without an `=` and unknown keys are ignored; a repeated key keeps its
// last value.
func parseSignatureHeader(header string) (timestamp string, signature string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signature = value
		}
	}
	if timestamp == "" || signature == "" {
		return "", "", false
	}
	return timestamp, signature, true
}
