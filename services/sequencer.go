package services

import (
	"fmt"
	"math/rand"
	"time"
)

// OrderSequencer produces candidate order numbers. The generator alone cannot
// guarantee uniqueness (the suffix is random); the order store's unique index
// does, and the checkout processor retries on collision.
type OrderSequencer interface {
	Next(now time.Time) string
}

// RandomSequencer generates numbers as {year}{month:2}{4 random digits},
// e.g. 2026031234. The suffix is always in [1000, 9999].
type RandomSequencer struct{}

func (RandomSequencer) Next(now time.Time) string {
	return fmt.Sprintf("%d%02d%04d", now.Year(), int(now.Month()), 1000+rand.Intn(9000))
}
