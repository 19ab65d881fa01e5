package models

// Campaign is one crowdfunding record mirrored from the registry contract
type Campaign struct {
	// ID is the storage index the record was read from. It is not stable
	// across ledger mutations.
	ID uint64 `json:"id"`

	// Creator address as 0x followed by 40 lowercase hex digits
	Creator string `json:"creator"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// Amounts are converted from uint256 and lose precision beyond 2^53
	Goal        float64 `json:"goal"`
	FundsRaised float64 `json:"funds_raised"`

	Completed bool `json:"completed"`
}
