package onesub

import (
	"github.com/goliatone/go-onesub/core"
	"github.com/goliatone/go-onesub/credits"
	"github.com/goliatone/go-onesub/identity"
	"github.com/goliatone/go-onesub/links"
	"github.com/goliatone/go-onesub/subscriptions"
	"github.com/goliatone/go-onesub/webhooks"
)

// Version is the release version of this module.
const Version = core.Version

type Config = core.Config

type Identifier = identity.Identifier

type Verification = subscriptions.Verification

type ConsumeRequest = credits.ConsumeRequest

type ConsumeResult = credits.ConsumeResult

type Link = links.Link

type Event = webhooks.Event

type Handler = webhooks.Handler

type RateLimitError = core.RateLimitError

type InsufficientCreditsError = core.InsufficientCreditsError

var (
	ByUserID     = identity.ByUserID
	ByToolUserID = identity.ByToolUserID
	ByEmail      = identity.ByEmail
	ByEmailHash  = identity.ByEmailHash
	HashEmail    = identity.HashEmail

	NewIdempotencyKey = credits.NewIdempotencyKey

	NormalizeCode     = links.NormalizeCode
	IsValidCodeFormat = links.IsValidCodeFormat
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}
