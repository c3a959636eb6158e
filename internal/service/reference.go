package service

import (
	"math/rand/v2"
	"regexp"
	"time"
)

const (
	referencePrefix   = "BK"
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceSuffix   = 4

	// maxReferenceAttempts bounds how many references are tried before
	// giving up with an internal error.
	maxReferenceAttempts = 10
)

// ReferencePattern matches every reference NewReference can produce.
var ReferencePattern = regexp.MustCompile(`^BK\d{8}[A-Z0-9]{4}$`)

// NewReference returns BK + the booking date as YYYYMMDD + four characters
// drawn uniformly from [A-Z0-9].  Safe for concurrent use.
func NewReference(date time.Time) string {
	b := make([]byte, 0, len(referencePrefix)+8+referenceSuffix)
	b = append(b, referencePrefix...)
	b = date.AppendFormat(b, "20060102")
	for i := 0; i < referenceSuffix; i++ {
		b = append(b, referenceAlphabet[rand.IntN(len(referenceAlphabet))])
	}
	return string(b)
}
