// Package undo brokers short-lived compensating actions. A destructive
// mutation offers a token whose replay reverses the mutation; once the TTL
// elapses or the token is invoked, the offer is gone for good.
package undo

import "time"

// Token is a single-use handle on a pending compensating action.
type Token struct {
	ID       string
	Deadline time.Time
}

// IsValid reports whether the token can still be invoked at the given
// instant. It is a pure function of the deadline; single-use enforcement
// happens in the broker.
func IsValid(tok Token, now time.Time) bool {
	return tok.ID != "" && now.Before(tok.Deadline)
}
