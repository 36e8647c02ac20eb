// Package costs implements the trading cost formulas: brokerage commission,
// securities transaction tax, and unrealized P&L estimation.
//
// All arithmetic uses shopspring/decimal so that fee thresholds and rounding
// are bit-reproducible for reconciliation. Float64 never enters a calculation.
package costs

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/domain"
)

var (
	// commissionRate is the statutory brokerage rate (0.1425%)
	commissionRate = decimal.RequireFromString("0.001425")

	// taxRate is the securities transaction tax on sells (0.3%)
	taxRate = decimal.RequireFromString("0.003")

	// minCommission is the broker's minimum fee per trade
	minCommission = decimal.NewFromInt(20)

	// DefaultDiscountRate is the broker discount applied to the statutory rate
	DefaultDiscountRate = decimal.RequireFromString("0.6")
)

// TradingCost is the fee breakdown for one execution
type TradingCost struct {
	Commission     decimal.Decimal `json:"commission"`
	TransactionTax decimal.Decimal `json:"transaction_tax"`
	TotalCost      decimal.Decimal `json:"total_cost"`
}

// PnLEstimate is the mark-to-market view of a held position
type PnLEstimate struct {
	MarketValue   decimal.Decimal `json:"market_value"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	ReturnRate    decimal.Decimal `json:"return_rate"`
}

// Commission computes the brokerage fee for a trade notional,
// floored at the broker minimum. The discount rate is taken as given;
// out-of-range values are the caller's problem.
func Commission(amount, discountRate decimal.Decimal) decimal.Decimal {
	commission := amount.Mul(commissionRate).Mul(discountRate)
	if commission.LessThan(minCommission) {
		return minCommission
	}
	return commission
}

// TransactionTax computes the securities transaction tax for a sell notional.
// Buys are not taxed; callers must not invoke this for buy-side trades.
func TransactionTax(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(taxRate)
}

// TotalCost computes the full fee breakdown for a trade notional and side.
func TotalCost(amount decimal.Decimal, side domain.Side, discountRate decimal.Decimal) TradingCost {
	commission := Commission(amount, discountRate)
	tax := decimal.Zero
	if side.IsSell() {
		tax = TransactionTax(amount)
	}
	return TradingCost{
		Commission:     commission,
		TransactionTax: tax,
		TotalCost:      commission.Add(tax),
	}
}

// EstimatePnL marks a position to market. Unrealized P&L nets out the
// estimated cost of selling the whole position at the current price.
// ReturnRate is a ratio (0.05 = 5%); it is zero for a zero cost basis.
func EstimatePnL(currentPrice decimal.Decimal, quantity int64, averageCost, discountRate decimal.Decimal) PnLEstimate {
	qty := decimal.NewFromInt(quantity)
	costBasis := averageCost.Mul(qty)
	marketValue := currentPrice.Mul(qty)

	estimatedSellCost := TotalCost(marketValue, domain.SideSell, discountRate).TotalCost
	unrealized := marketValue.Sub(costBasis).Sub(estimatedSellCost)

	returnRate := decimal.Zero
	if !costBasis.IsZero() {
		returnRate = unrealized.Div(costBasis)
	}

	return PnLEstimate{
		MarketValue:   marketValue,
		CostBasis:     costBasis,
		UnrealizedPnL: unrealized,
		ReturnRate:    returnRate,
	}
}
