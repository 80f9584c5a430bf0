package models

import "math/big"

// CreditAccount mirrors a user's on-chain credit balance. The on-chain
// balance is the source of truth; this row is an optimistic cache updated
// opportunistically after a successful spend.
type CreditAccount struct {
	UserID         string   `json:"user_id"`
	CreditBalance  *big.Int `json:"credit_balance"`
	TotalSpent     *big.Int `json:"total_spent"`
	OnChainAddress string   `json:"on_chain_address,omitempty"`
}

// Cost constants, expressed in the credit contract's smallest unit
// (18-decimal fixed point, matching the on-chain token).
var (
	CrawlJobCost    = weiCost(100)
	EventIndexCost  = weiCost(50)
	MinAdmissionBalance = weiCost(50) // balance below this rejects admission with Payment-Required
)

func weiCost(whole int64) *big.Int {
	c := big.NewInt(whole)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return c.Mul(c, scale)
}
