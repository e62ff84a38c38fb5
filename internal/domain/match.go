package domain

// MatchTag classifies the outcome of matching one ticket against the
// financial record store.
type MatchTag string

const (
	MatchTagNoData    MatchTag = "NO_DATA"
	MatchTagSingle    MatchTag = "SINGLE_MATCH"
	MatchTagAmbiguous MatchTag = "AMBIGUOUS_MULTI_MATCH"
)

// Match confidence levels assigned by the matcher. Policy thresholds are
// configurable; these are not.
const (
	ConfidenceExactIdentifier = 1.0
	ConfidenceVendorAmount    = 0.7
)

// MatchResult links a ticket to at most one financial record. On an
// ambiguous result Record is nil and Candidates records how many tied.
type MatchResult struct {
	TicketID   string
	Record     *FinancialRecord
	Confidence float64
	Rationale  string
	Tag        MatchTag
	Candidates int
}
