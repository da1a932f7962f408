// Package ordernumber generates human-readable order numbers of the form
// ORD-<epoch millis>-<base36 suffix>.
package ordernumber

import (
	"crypto/rand"
	"io"
	"strconv"
	"time"
)

const (
	prefix       = "ORD"
	suffixLength = 6
	alphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Bytes at or above this value are discarded so every symbol is equally likely.
	maxUnbiased = 256 - 256%len(alphabet)
)

// Generator produces order numbers. Numbers are not guaranteed unique on their
// own; the orders table enforces uniqueness and callers regenerate on conflict.
type Generator struct {
	now    func() time.Time
	random io.Reader
}

// NewGenerator returns a generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{now: time.Now, random: rand.Reader}
}

// NewGeneratorWithClock returns a generator reading time from now.
func NewGeneratorWithClock(now func() time.Time) *Generator {
	return &Generator{now: now, random: rand.Reader}
}

// Next returns a fresh order number.
func (g *Generator) Next() string {
	suffix := make([]byte, 0, suffixLength)
	buf := make([]byte, suffixLength)
	for len(suffix) < suffixLength {
		if _, err := io.ReadFull(g.random, buf[:suffixLength-len(suffix)]); err != nil {
			// crypto/rand.Reader does not fail.
			panic("ordernumber: reading random bytes: " + err.Error())
		}
		for _, b := range buf[:suffixLength-len(suffix)] {
			if int(b) >= maxUnbiased {
				continue
			}
			suffix = append(suffix, alphabet[int(b)%len(alphabet)])
		}
	}

	return prefix + "-" + strconv.FormatInt(g.now().UnixMilli(), 10) + "-" + string(suffix)
}
