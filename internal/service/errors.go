package service

import "errors"

// Validation failures: surfaced to the caller, never retried.
var (
	ErrSelfMarriage = errors.New("cannot marry yourself")
	ErrBotMarriage  = errors.New("cannot marry a bot")
)

// Conflict failures: the state must change before a retry can succeed.
var (
	ErrMuteActive     = errors.New("user is already muted in this guild")
	ErrAlreadyMarried = errors.New("user is already married")
	ErrPartnerMarried = errors.New("target user is already married")
)

// ErrHistoryIntegrity signals broken marriage-history bookkeeping; it
// fails the divorce instead of leaving a dangling open ledger entry.
var ErrHistoryIntegrity = errors.New("marriage history is inconsistent with the active marriage")

// ErrDurationOutOfRange rejects mute durations outside the configured bounds.
var ErrDurationOutOfRange = errors.New("mute duration out of allowed range")
