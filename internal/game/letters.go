package game

import (
	crand "crypto/rand"
	"math/rand/v2"
)

// RandomSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// NewRandom returns a per-session generator seeded from crypto/rand.
func NewRandom() RandomSource {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("game: seed random: " + err.Error())
	}
	return rand.New(rand.NewChaCha8(seed))
}

// letterWeights are approximate English letter frequencies in percent.
var letterWeights = [26]float64{
	8.2, 1.5, 2.8, 4.3, 12.7, 2.2, 2.0, // A-G
	6.1, 7.0, 0.2, 0.8, 4.0, 2.4, 6.7, // H-N
	7.5, 1.9, 0.1, 6.0, 6.3, 9.1, 2.8, // O-U
	1.0, 2.4, 0.2, 2.0, 0.1, // V-Z
}

var letterTotal = func() float64 {
	var t float64
	for _, w := range letterWeights {
		t += w
	}
	return t
}()

// randomLetter draws a weighted letter index, never returning skip. Pass -1
// to draw from the whole alphabet.
func randomLetter(rng RandomSource, skip int) int {
	total := letterTotal
	if skip >= 0 {
		total -= letterWeights[skip]
	}
	x := rng.Float64() * total
	last := -1
	for i, w := range letterWeights {
		if i == skip {
			continue
		}
		if x < w {
			return i
		}
		x -= w
		last = i
	}
	return last
}

// RollLetters draws two distinct frequency-weighted uppercase letters. The
// second letter is drawn once from the remaining 25.
func RollLetters(rng RandomSource) LetterPair {
	a := randomLetter(rng, -1)
	b := randomLetter(rng, a)
	return LetterPair{string(rune('A' + a)), string(rune('A' + b))}
}
