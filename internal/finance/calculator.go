// Package finance holds the pure funding arithmetic for contracts. All
// amounts are int64 minor currency units; functions perform no I/O and fail
// only on invalid input.
package finance

import (
	"errors"

	"github.com/peerfund-funding-orchestrator/internal/domain/contract"
	"github.com/peerfund-funding-orchestrator/internal/domain/funding"
)

// ErrInvalidAmount indicates a non-positive amount input
var ErrInvalidAmount = errors.New("amount must be positive")

// Yield returns the whole-percentage return implied by the contract's
// repayment over its target, truncated toward zero.
func Yield(c *contract.Contract) (int64, error) {
	if c.TargetAmount <= 0 {
		return 0, ErrInvalidAmount
	}
	return (c.RepaymentAmount - c.TargetAmount) * 100 / c.TargetAmount, nil
}

// RaisedAmount sums the non-rejected contributions
func RaisedAmount(fundings []*funding.Funding) int64 {
	var raised int64
	for _, f := range fundings {
		if f.Status.CountsTowardRaised() {
			raised += f.FundingAmount
		}
	}
	return raised
}

// OutstandingAmount is the remaining capacity before the contract reaches its
// target
func OutstandingAmount(c *contract.Contract, fundings []*funding.Funding) int64 {
	return c.TargetAmount - RaisedAmount(fundings)
}

// FundingPercentage returns what share of the target the amount represents,
// in whole percent.
func FundingPercentage(c *contract.Contract, amount int64) (int64, error) {
	if c.TargetAmount <= 0 || amount < 0 {
		return 0, ErrInvalidAmount
	}
	return amount * 100 / c.TargetAmount, nil
}

// InvestorRepayment is the pro-rata share of the contract repayment owed for
// a contribution of amount, rounded half up to the nearest minor unit. This
// is the figure fixed on a funding record at contribution time.
func InvestorRepayment(c *contract.Contract, amount int64) (int64, error) {
	if c.TargetAmount <= 0 || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return (amount*c.RepaymentAmount + c.TargetAmount/2) / c.TargetAmount, nil
}

// FundingReturns is the total an investor receives back for a prospective
// contribution of amount. It is defined as InvestorRepayment so quote and
// contribution figures can never drift apart.
func FundingReturns(c *contract.Contract, amount int64) (int64, error) {
	return InvestorRepayment(c, amount)
}
