package domain

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateInvoiceNumber returns a human-readable invoice number of the
// form INV-YYYYMMDD-NNNN. The 4-digit suffix is random, so uniqueness
// is probabilistic: callers must treat a duplicate-key error from the
// store as retryable and regenerate.
func GenerateInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%s-%04d", now.UTC().Format("20060102"), rand.Intn(10000))
}
