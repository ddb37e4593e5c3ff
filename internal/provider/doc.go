// Package provider implements priority-ordered fallback across redundant
// backends.
//
// A Chain sorts its providers once, highest priority first, and on every
// Execute walks them in that order. Unavailable providers are skipped, the
// first success wins, and exhaustion returns an *AllFailedError holding each
// attempted provider's error so callers can report the whole picture.
package provider
