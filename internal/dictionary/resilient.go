package dictionary

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("github.com/kiliankoe/wordbomb/internal/dictionary")

const (
	DefaultTimeout           = 3 * time.Second
	DefaultFallbackMinLength = 3
)

// Resilient bounds every lookup by a timeout and, when the oracle fails,
// accepts words of at least FallbackMinLength runes. Concurrent lookups of
// the same word share one oracle call.
type Resilient struct {
	Oracle            Oracle
	Timeout           time.Duration
	FallbackMinLength int

	group singleflight.Group
}

func NewResilient(o Oracle, timeout time.Duration, fallbackMin int) *Resilient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if fallbackMin <= 0 {
		fallbackMin = DefaultFallbackMinLength
	}
	return &Resilient{Oracle: o, Timeout: timeout, FallbackMinLength: fallbackMin}
}

// IsRecognizedWord never fails; see Resilient.
func (r *Resilient) IsRecognizedWord(ctx context.Context, word string) bool {
	ctx, span := tracer.Start(ctx, "dictionary.Lookup")
	defer span.End()
	span.SetAttributes(attribute.String("word", word))

	v, err, shared := r.group.Do(word, func() (any, error) {
		// detached from the first caller so a cancelled submitter does not
		// fail everyone sharing the call
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.Timeout)
		defer cancel()
		return r.Oracle.Lookup(lctx, word)
	})
	span.SetAttributes(attribute.Bool("shared", shared))
	if err != nil {
		ok := utf8.RuneCountInString(word) >= r.FallbackMinLength
		log.Warn().Err(err).Str("word", word).Bool("accepted", ok).Msg("dictionary unavailable, using fallback")
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("fallback", true))
		return ok
	}
	return v.(bool)
}
