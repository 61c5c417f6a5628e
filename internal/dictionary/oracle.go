// Package dictionary answers whether a word exists, backed by a pluggable
// Oracle and a fallback for when the oracle cannot answer.
package dictionary

import "context"

// Oracle looks a word up. An error means the oracle could not answer, not
// that the word is unknown.
type Oracle interface {
	Lookup(ctx context.Context, word string) (bool, error)
}

type OracleFunc func(ctx context.Context, word string) (bool, error)

func (f OracleFunc) Lookup(ctx context.Context, word string) (bool, error) { return f(ctx, word) }
