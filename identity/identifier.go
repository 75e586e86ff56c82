// Package identity models the user identifiers accepted by the 1Sub API
// and the hashing rule applied to raw email addresses.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/goliatone/go-onesub/core"
)

// Identifier names one 1Sub end user. At least one field must be set; a
// request may carry several forms at once and the API resolves them in
// the order oneSubUserId, toolUserId, emailSha256.
type Identifier struct {
	OneSubUserID string
	ToolUserID   string
	EmailSHA256  string
}

// ByUserID identifies a user by their 1Sub id, the fastest lookup form.
func ByUserID(id string) Identifier {
	return Identifier{OneSubUserID: strings.TrimSpace(id)}
}

// ByToolUserID identifies a user by the caller's own user id; requires a
// prior account link.
func ByToolUserID(id string) Identifier {
	return Identifier{ToolUserID: strings.TrimSpace(id)}
}

// ByEmailHash identifies a user by an already-computed SHA-256 email hash.
func ByEmailHash(hash string) Identifier {
	return Identifier{EmailSHA256: strings.TrimSpace(hash)}
}

// ByEmail identifies a user by raw email address, hashed with HashEmail.
func ByEmail(email string) Identifier {
	return Identifier{EmailSHA256: HashEmail(email)}
}

// IsZero reports whether no identifier field is set.
func (id Identifier) IsZero() bool {
	return id.OneSubUserID == "" && id.ToolUserID == "" && id.EmailSHA256 == ""
}

// Validate enforces that at least one identifier field is present.
func (id Identifier) Validate() error {
	if id.IsZero() {
		return core.NewValidationError("At least one of onesub_user_id, tool_user_id, or email_sha256 must be provided")
	}
	return nil
}

// Primary returns the highest-precedence non-empty field.
func (id Identifier) Primary() string {
	switch {
	case id.OneSubUserID != "":
		return id.OneSubUserID
	case id.ToolUserID != "":
		return id.ToolUserID
	default:
		return id.EmailSHA256
	}
}

// CacheKey is the deterministic cache key for subscription lookups made
// with this identifier.
func (id Identifier) CacheKey() string {
	return SubscriptionCacheKey(id.Primary())
}

// Params maps the populated fields onto the wire names the verify
// endpoint expects.
func (id Identifier) Params() map[string]any {
	params := map[string]any{}
	if id.OneSubUserID != "" {
		params["oneSubUserId"] = id.OneSubUserID
	}
	if id.ToolUserID != "" {
		params["toolUserId"] = id.ToolUserID
	}
	if id.EmailSHA256 != "" {
		params["emailSha256"] = id.EmailSHA256
	}
	return params
}

// SubscriptionCacheKey builds the cache key for a subscription lookup
// keyed by any identifier value.
func SubscriptionCacheKey(value string) string {
	return "sub:" + value
}

// HashEmail returns the SHA-256 hex digest of the lowercased, trimmed
// email address.
func HashEmail(email string) string {
	normalized := strings.TrimSpace(strings.ToLower(email))
	digest := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(digest[:])
}
