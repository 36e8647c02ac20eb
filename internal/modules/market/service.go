package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/paper-trader/internal/events"
)

// Service provides the stock catalog, quotes and price history
type Service struct {
	stocks  *StockRepository
	history *HistoryRepository
	hours   *MarketHours
	events  *events.Manager
	log     zerolog.Logger
}

// NewService creates a new market service
func NewService(
	stocks *StockRepository,
	history *HistoryRepository,
	hours *MarketHours,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		stocks:  stocks,
		history: history,
		hours:   hours,
		events:  eventManager,
		log:     log.With().Str("service", "market").Logger(),
	}
}

// Hours exposes the exchange calendar
func (s *Service) Hours() *MarketHours {
	return s.hours
}

// GetStock retrieves a stock by ID. Returns nil when not found.
func (s *Service) GetStock(id int64) (*Stock, error) {
	return s.stocks.GetByID(id)
}

// GetStockBySymbol retrieves a stock by symbol. Returns nil when not found.
func (s *Service) GetStockBySymbol(symbol string) (*Stock, error) {
	return s.stocks.GetBySymbol(symbol)
}

// SearchStocks returns catalog entries matching the filter
func (s *Service) SearchStocks(filter SearchFilter) ([]Stock, error) {
	return s.stocks.Search(filter)
}

// CreateStock adds a new entry to the catalog
func (s *Service) CreateStock(stock *Stock) error {
	symbol := strings.TrimSpace(stock.Symbol)
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if stock.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !stock.Market.IsValid() {
		return fmt.Errorf("invalid market type: %s", stock.Market)
	}

	return s.stocks.Create(stock)
}

// GetCurrentPrice returns the latest quoted price for a symbol
func (s *Service) GetCurrentPrice(symbol string) (decimal.Decimal, error) {
	stock, err := s.stocks.GetBySymbol(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if stock == nil {
		return decimal.Zero, fmt.Errorf("stock %s not found", symbol)
	}

	return stock.CurrentPrice, nil
}

// UpdateQuote stores a fresh quote and announces the new price
func (s *Service) UpdateQuote(stockID int64, quote Quote) error {
	stock, err := s.stocks.GetByID(stockID)
	if err != nil {
		return err
	}
	if stock == nil {
		return fmt.Errorf("stock %d not found", stockID)
	}

	if quote.UpdatedAt.IsZero() {
		quote.UpdatedAt = time.Now().UTC()
	}

	if err := s.stocks.UpdateQuote(stockID, quote); err != nil {
		return err
	}

	s.events.Emit(events.PriceUpdated, "market", map[string]interface{}{
		"stock_id": stockID,
		"symbol":   stock.Symbol,
		"price":    quote.CurrentPrice.String(),
	})

	return nil
}

// UpdateQuoteBySymbol resolves the symbol and stores the quote
func (s *Service) UpdateQuoteBySymbol(symbol string, quote Quote) error {
	stock, err := s.stocks.GetBySymbol(symbol)
	if err != nil {
		return err
	}
	if stock == nil {
		return fmt.Errorf("stock %s not found", symbol)
	}

	return s.UpdateQuote(stock.ID, quote)
}

// GetPriceHistory returns daily bars between fromDate and toDate
// inclusive, newest first
func (s *Service) GetPriceHistory(stockID int64, fromDate, toDate string) ([]PriceBar, error) {
	return s.history.GetRange(stockID, fromDate, toDate)
}

// WriteDailyClose records one daily bar. Writing the same stock and
// date twice is a no-op.
func (s *Service) WriteDailyClose(bar PriceBar) error {
	inserted, err := s.history.Insert(bar)
	if err != nil {
		return err
	}

	if !inserted {
		s.log.Debug().
			Int64("stock_id", bar.StockID).
			Str("date", bar.Date).
			Msg("Daily close already recorded")
		return nil
	}

	s.log.Info().
		Int64("stock_id", bar.StockID).
		Str("date", bar.Date).
		Str("close", bar.ClosePrice.String()).
		Msg("Daily close recorded")

	return nil
}

// CalculatePriceStatistics summarizes the price history between fromDate
// and toDate inclusive. An empty range yields all-zero statistics.
func (s *Service) CalculatePriceStatistics(stockID int64, fromDate, toDate string) (PriceStatistics, error) {
	bars, err := s.history.GetRangeAscending(stockID, fromDate, toDate)
	if err != nil {
		return PriceStatistics{}, err
	}
	if len(bars) == 0 {
		return PriceStatistics{}, nil
	}

	highest := bars[0].HighPrice
	lowest := bars[0].LowPrice
	sum := decimal.Zero
	for _, bar := range bars {
		if bar.HighPrice.GreaterThan(highest) {
			highest = bar.HighPrice
		}
		if bar.LowPrice.LessThan(lowest) {
			lowest = bar.LowPrice
		}
		sum = sum.Add(bar.ClosePrice)
	}

	average := sum.Div(decimal.NewFromInt(int64(len(bars)))).Round(2)

	firstClose := bars[0].ClosePrice
	lastClose := bars[len(bars)-1].ClosePrice
	change := lastClose.Sub(firstClose)

	changePercent := decimal.Zero
	if !firstClose.IsZero() {
		changePercent = change.Div(firstClose).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return PriceStatistics{
		HighestPrice:  highest,
		LowestPrice:   lowest,
		AveragePrice:  average,
		PriceChange:   change,
		ChangePercent: changePercent,
		Volatility:    closeReturnStdDev(bars),
	}, nil
}

// closeReturnStdDev computes the sample standard deviation of daily
// close-to-close returns
func closeReturnStdDev(bars []PriceBar) float64 {
	if len(bars) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev, _ := bars[i-1].ClosePrice.Float64()
		cur, _ := bars[i].ClosePrice.Float64()
		if prev == 0 {
			continue
		}
		returns = append(returns, cur/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	return stat.StdDev(returns, nil)
}

// CalculateIndicators computes SMA and EMA series over the history range
func (s *Service) CalculateIndicators(stockID int64, fromDate, toDate string, period int) (*Indicators, error) {
	if period < 2 {
		return nil, fmt.Errorf("period must be at least 2")
	}

	bars, err := s.history.GetRangeAscending(stockID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	if len(bars) < period {
		return nil, fmt.Errorf("need at least %d bars, have %d", period, len(bars))
	}

	dates := make([]string, len(bars))
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		dates[i] = bar.Date
		closes[i], _ = bar.ClosePrice.Float64()
	}

	return &Indicators{
		Dates:  dates,
		Closes: closes,
		SMA:    talib.Sma(closes, period),
		EMA:    talib.Ema(closes, period),
		Period: period,
	}, nil
}
