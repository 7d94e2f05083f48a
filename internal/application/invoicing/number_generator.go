package invoicing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
)

const (
	// DefaultNumberPrefix starts every generated invoice number
	DefaultNumberPrefix = "INV-"

	numberDateLayout = "20060102"
	sequenceDigits   = 5
	maxSequence      = 99999
)

// ErrInvoiceNumbersExhausted is returned when all sequences of a day are taken
var ErrInvoiceNumbersExhausted = shared.NewDomainErrorWithKind(shared.KindConflict,
	"INVOICE_NUMBERS_EXHAUSTED", "No free invoice number left for this date")

// InvoiceNumberLookup is the part of the invoice repository the generator reads
type InvoiceNumberLookup interface {
	LatestInvoiceNumberWithPrefix(ctx context.Context, prefix string) (string, error)
	ExistsByInvoiceNumber(ctx context.Context, invoiceNumber string) (bool, error)
}

// NumberGenerator issues invoice numbers of the form <prefix>YYYYMMDD-NNNNN.
// The sequence restarts at 00001 every day. Uniqueness is finally enforced by the
// database; a caller that loses a race gets ErrInvoiceNumberExists and asks again.
type NumberGenerator struct {
	lookup InvoiceNumberLookup
	prefix string
}

// NewNumberGenerator creates a NumberGenerator. An empty prefix falls back to DefaultNumberPrefix.
func NewNumberGenerator(lookup InvoiceNumberLookup, prefix string) *NumberGenerator {
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}
	return &NumberGenerator{lookup: lookup, prefix: prefix}
}

// Next returns the first free number for the calendar date of date
func (g *NumberGenerator) Next(ctx context.Context, date time.Time) (string, error) {
	dayPrefix := g.prefix + date.Format(numberDateLayout) + "-"

	latest, err := g.lookup.LatestInvoiceNumberWithPrefix(ctx, dayPrefix)
	if err != nil {
		return "", fmt.Errorf("find latest invoice number: %w", err)
	}

	seq := parseSequence(strings.TrimPrefix(latest, dayPrefix)) + 1
	for ; seq <= maxSequence; seq++ {
		candidate := FormatInvoiceNumber(dayPrefix, seq)
		exists, err := g.lookup.ExistsByInvoiceNumber(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check invoice number %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", ErrInvoiceNumbersExhausted
}

// FormatInvoiceNumber appends the zero-padded sequence to a day prefix
func FormatInvoiceNumber(dayPrefix string, seq int) string {
	return fmt.Sprintf("%s%0*d", dayPrefix, sequenceDigits, seq)
}

// parseSequence returns 0 for anything that is not a plain sequence, such as a
// hand-entered number that happens to share the day prefix
func parseSequence(suffix string) int {
	if len(suffix) != sequenceDigits {
		return 0
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
