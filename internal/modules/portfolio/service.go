package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/domain"
	"github.com/aristath/paper-trader/pkg/costs"
)

// ErrInsufficientQuantity is returned when a sell would take a position
// below zero
var ErrInsufficientQuantity = errors.New("sell exceeds held quantity")

var hundred = decimal.NewFromInt(100)

// Service maintains the position ledger
type Service struct {
	positions    *PositionRepository
	discountRate decimal.Decimal
	log          zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(positions *PositionRepository, discountRate decimal.Decimal, log zerolog.Logger) *Service {
	return &Service{
		positions:    positions,
		discountRate: discountRate,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// GetPosition returns the ledger row for a stock, nil when never traded
func (s *Service) GetPosition(stockID int64) (*Position, error) {
	return s.positions.Get(stockID)
}

// HeldQuantity returns how many shares of a stock are currently held
func (s *Service) HeldQuantity(stockID int64) (int64, error) {
	position, err := s.positions.Get(stockID)
	if err != nil {
		return 0, err
	}
	if position == nil {
		return 0, nil
	}
	return position.Quantity, nil
}

// ApplyFill posts an executed trade to the ledger inside the caller's
// transaction.
//
// A buy raises the weighted average cost with the commission
// capitalized into the basis. A sell books realized profit against the
// average cost and leaves the average unchanged. Rows are never
// deleted; a fully sold position stays at quantity zero.
func (s *Service) ApplyFill(
	tx *sql.Tx,
	stockID int64,
	side domain.Side,
	quantity int64,
	price decimal.Decimal,
	commission decimal.Decimal,
) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	position, err := s.positions.GetTx(tx, stockID)
	if err != nil {
		return err
	}
	if position == nil {
		position = &Position{
			StockID:     stockID,
			AverageCost: decimal.Zero,
			TotalCost:   decimal.Zero,
			RealizedPnL: decimal.Zero,
		}
	}

	qty := decimal.NewFromInt(quantity)

	switch {
	case side.IsBuy():
		totalCost := position.TotalCost.Add(price.Mul(qty)).Add(commission)
		totalQuantity := position.Quantity + quantity

		position.AverageCost = totalCost.Div(decimal.NewFromInt(totalQuantity))
		position.TotalCost = totalCost
		position.Quantity = totalQuantity

	case side.IsSell():
		if quantity > position.Quantity {
			return fmt.Errorf("%w: have %d, selling %d", ErrInsufficientQuantity, position.Quantity, quantity)
		}

		sellAmount := price.Mul(qty)
		costBasis := position.AverageCost.Mul(qty)

		position.RealizedPnL = position.RealizedPnL.Add(sellAmount.Sub(costBasis).Sub(commission))
		position.Quantity -= quantity
		position.TotalCost = position.TotalCost.Sub(costBasis)

	default:
		return fmt.Errorf("invalid side: %s", side)
	}

	position.UpdatedAt = time.Now().UTC()

	if err := s.positions.UpsertTx(tx, position); err != nil {
		return err
	}

	s.log.Info().
		Int64("stock_id", stockID).
		Str("side", string(side)).
		Int64("quantity", quantity).
		Int64("held", position.Quantity).
		Msg("Position updated")

	return nil
}

// GetPortfolio returns currently held positions with estimated profit.
// The unrealized figure nets the cost of selling at the current price.
func (s *Service) GetPortfolio() ([]PositionView, error) {
	held, err := s.positions.ListHeld()
	if err != nil {
		return nil, err
	}

	views := make([]PositionView, 0, len(held))
	for _, p := range held {
		est := costs.EstimatePnL(p.CurrentPrice, p.Quantity, p.AverageCost, s.discountRate)

		views = append(views, PositionView{
			StockID:       p.StockID,
			Symbol:        p.Symbol,
			Name:          p.Name,
			Quantity:      p.Quantity,
			AverageCost:   p.AverageCost,
			CurrentPrice:  p.CurrentPrice,
			MarketValue:   est.MarketValue,
			UnrealizedPnL: est.UnrealizedPnL,
			ReturnRate:    est.ReturnRate.Mul(hundred),
		})
	}

	return views, nil
}

// GetSummary aggregates the whole book, realized profit included
func (s *Service) GetSummary() (Summary, error) {
	views, err := s.GetPortfolio()
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		TotalMarketValue:   decimal.Zero,
		TotalCost:          decimal.Zero,
		TotalUnrealizedPnL: decimal.Zero,
		TotalReturnRate:    decimal.Zero,
	}
	for _, v := range views {
		summary.TotalMarketValue = summary.TotalMarketValue.Add(v.MarketValue)
		summary.TotalCost = summary.TotalCost.Add(v.AverageCost.Mul(decimal.NewFromInt(v.Quantity)))
		summary.TotalUnrealizedPnL = summary.TotalUnrealizedPnL.Add(v.UnrealizedPnL)
	}

	realized, err := s.positions.TotalRealizedPnL()
	if err != nil {
		return Summary{}, err
	}
	summary.TotalRealizedPnL = realized

	if summary.TotalCost.IsPositive() {
		summary.TotalReturnRate = summary.TotalUnrealizedPnL.Div(summary.TotalCost).Mul(hundred)
	}

	return summary, nil
}
