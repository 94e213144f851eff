// Package llm wraps chat-completion providers behind a single-call client.
package llm

import (
	"context"
	"errors"
)

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ErrRejected marks a request the provider refused outright, typically
// because the payload is too large. Retrying the same call is pointless;
// shrinking the input is the only recovery.
var ErrRejected = errors.New("completion request rejected")

type Message struct {
	Role    string
	Content string
}

// Request is an ordered list of role-tagged messages for a given model.
// Providers pin the temperature to zero so reruns stay comparable.
type Request struct {
	Model    string
	Messages []Message
}

// Client produces one text completion per request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
