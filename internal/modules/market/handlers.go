package market

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/domain"
)

// Handlers contains HTTP handlers for the market API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new market handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// HandleSearchStocks returns catalog entries matching query parameters
// GET /api/stocks?keyword=&market=&industry=
func (h *Handlers) HandleSearchStocks(w http.ResponseWriter, r *http.Request) {
	filter := SearchFilter{
		Keyword:  r.URL.Query().Get("keyword"),
		Industry: r.URL.Query().Get("industry"),
	}

	if marketParam := r.URL.Query().Get("market"); marketParam != "" {
		market, err := domain.MarketTypeFromString(marketParam)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Market = market
	}

	stocks, err := h.service.SearchStocks(filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to search stocks")
		http.Error(w, "Failed to search stocks", http.StatusInternalServerError)
		return
	}

	if stocks == nil {
		stocks = []Stock{}
	}
	writeJSON(w, http.StatusOK, stocks)
}

// HandleGetStock returns one stock by symbol
// GET /api/stocks/{symbol}
func (h *Handlers) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	stock, err := h.service.GetStockBySymbol(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get stock")
		http.Error(w, "Failed to get stock", http.StatusInternalServerError)
		return
	}
	if stock == nil {
		http.Error(w, "Stock not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, stock)
}

// HandleCreateStock adds a stock to the catalog
// POST /api/stocks
func (h *Handlers) HandleCreateStock(w http.ResponseWriter, r *http.Request) {
	var stock Stock
	if err := json.NewDecoder(r.Body).Decode(&stock); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.CreateStock(&stock); err != nil {
		h.log.Error().Err(err).Str("symbol", stock.Symbol).Msg("Failed to create stock")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, stock)
}

// HandleUpdateQuote stores a fresh quote for a stock
// PUT /api/stocks/{symbol}/quote
func (h *Handlers) HandleUpdateQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var quote Quote
	if err := json.NewDecoder(r.Body).Decode(&quote); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateQuoteBySymbol(symbol, quote); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to update quote")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetHistory returns daily price bars for a stock
// GET /api/stocks/{symbol}/history?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handlers) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	stock, from, to, ok := h.resolveHistoryParams(w, r)
	if !ok {
		return
	}

	bars, err := h.service.GetPriceHistory(stock.ID, from, to)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", stock.Symbol).Msg("Failed to get price history")
		http.Error(w, "Failed to get price history", http.StatusInternalServerError)
		return
	}

	if bars == nil {
		bars = []PriceBar{}
	}
	writeJSON(w, http.StatusOK, bars)
}

// HandleGetStatistics returns price statistics over a history range
// GET /api/stocks/{symbol}/statistics?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handlers) HandleGetStatistics(w http.ResponseWriter, r *http.Request) {
	stock, from, to, ok := h.resolveHistoryParams(w, r)
	if !ok {
		return
	}

	stats, err := h.service.CalculatePriceStatistics(stock.ID, from, to)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", stock.Symbol).Msg("Failed to calculate statistics")
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleGetIndicators returns SMA/EMA series over a history range
// GET /api/stocks/{symbol}/indicators?from=&to=&period=20
func (h *Handlers) HandleGetIndicators(w http.ResponseWriter, r *http.Request) {
	stock, from, to, ok := h.resolveHistoryParams(w, r)
	if !ok {
		return
	}

	period := 20
	if periodParam := r.URL.Query().Get("period"); periodParam != "" {
		parsed, err := strconv.Atoi(periodParam)
		if err != nil {
			http.Error(w, "Invalid period", http.StatusBadRequest)
			return
		}
		period = parsed
	}

	indicators, err := h.service.CalculateIndicators(stock.ID, from, to, period)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, indicators)
}

// HandleMarketStatus reports whether the market is open and the next open
// GET /api/market/status
func (h *Handlers) HandleMarketStatus(w http.ResponseWriter, r *http.Request) {
	hours := h.service.Hours()
	now := time.Now()

	response := map[string]interface{}{
		"is_open":   hours.IsOpen(now),
		"timestamp": now.Format(time.RFC3339),
	}
	if next := hours.NextOpen(now); !next.IsZero() {
		response["next_open"] = next.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) resolveHistoryParams(w http.ResponseWriter, r *http.Request) (*Stock, string, string, bool) {
	symbol := chi.URLParam(r, "symbol")

	stock, err := h.service.GetStockBySymbol(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get stock")
		http.Error(w, "Failed to get stock", http.StatusInternalServerError)
		return nil, "", "", false
	}
	if stock == nil {
		http.Error(w, "Stock not found", http.StatusNotFound)
		return nil, "", "", false
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		http.Error(w, "from and to are required", http.StatusBadRequest)
		return nil, "", "", false
	}

	return stock, from, to, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
