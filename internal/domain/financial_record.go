package domain

import (
	"math"
	"time"
)

// RecordKind tags the financial record variant.
type RecordKind string

const (
	RecordKindInvoice       RecordKind = "INVOICE"
	RecordKindPurchaseOrder RecordKind = "PURCHASE_ORDER"
)

// FinancialRecord is an invoice or purchase order entry. The engine only
// reads these; ingestion and validation happen upstream.
type FinancialRecord struct {
	ID            string
	Kind          RecordKind
	Vendor        string
	Amount        float64
	PaymentStatus string
	CrossRef      *string
	UpdatedAt     time.Time
}

// AmountsEqual compares two monetary amounts after rounding to cents.
func AmountsEqual(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}
