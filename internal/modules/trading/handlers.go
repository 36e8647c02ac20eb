package trading

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/domain"
)

// Handlers contains HTTP handlers for the trading API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new trading handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "trading").Logger(),
	}
}

// HandleCreateOrder books a new order
// POST /api/orders
func (h *Handlers) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.service.CreateOrder(req)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// HandleCancelOrder cancels a pending order
// DELETE /api/orders/{id}
func (h *Handlers) HandleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(orderID)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// HandleGetOrder returns one order
// GET /api/orders/{id}
func (h *Handlers) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(orderID)
	if err != nil {
		h.log.Error().Err(err).Int64("order_id", orderID).Msg("Failed to get order")
		http.Error(w, "Failed to get order", http.StatusInternalServerError)
		return
	}
	if order == nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// HandleGetOrders returns orders matching query parameters
// GET /api/orders?status=&stock_id=&from=&to=
func (h *Handlers) HandleGetOrders(w http.ResponseWriter, r *http.Request) {
	var filter OrderFilter

	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status, err := domain.OrderStatusFromString(statusParam)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Status = status
	}
	if stockParam := r.URL.Query().Get("stock_id"); stockParam != "" {
		stockID, err := strconv.ParseInt(stockParam, 10, 64)
		if err != nil {
			http.Error(w, "Invalid stock_id", http.StatusBadRequest)
			return
		}
		filter.StockID = stockID
	}
	var ok bool
	if filter.FromDate, filter.ToDate, ok = parseDateRange(w, r); !ok {
		return
	}

	orders, err := h.service.GetOrders(filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list orders")
		http.Error(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}

	if orders == nil {
		orders = []Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// HandleExecuteMatch fills one pending order at a given price
// POST /api/orders/{id}/match
func (h *Handlers) HandleExecuteMatch(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}

	var body struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := h.service.ExecuteMatch(orderID, body.Price)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

// HandleProcessPending sweeps the pending book on demand
// POST /api/orders/process
func (h *Handlers) HandleProcessPending(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ProcessPendingOrders(); err != nil {
		h.log.Error().Err(err).Msg("Failed to process pending orders")
		http.Error(w, "Failed to process pending orders", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetTrades returns fills matching query parameters
// GET /api/trades?symbol=&from=&to=
func (h *Handlers) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.tradeFilterFromQuery(w, r)
	if !ok {
		return
	}

	trades, err := h.service.GetTrades(filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list trades")
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}

	if trades == nil {
		trades = []Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// HandleExportTrades downloads fills as CSV
// GET /api/trades/export?symbol=&from=&to=
func (h *Handlers) HandleExportTrades(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.tradeFilterFromQuery(w, r)
	if !ok {
		return
	}

	trades, err := h.service.GetTrades(filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list trades for export")
		http.Error(w, "Failed to export trades", http.StatusInternalServerError)
		return
	}

	data, err := ExportTradesCSV(trades)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to render trades CSV")
		http.Error(w, "Failed to export trades", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)
	_, _ = w.Write(data)
}

func (h *Handlers) tradeFilterFromQuery(w http.ResponseWriter, r *http.Request) (TradeFilter, bool) {
	filter := TradeFilter{StockSymbol: r.URL.Query().Get("symbol")}

	var ok bool
	if filter.FromDate, filter.ToDate, ok = parseDateRange(w, r); !ok {
		return TradeFilter{}, false
	}

	return filter, true
}

// respondOrderError maps lifecycle errors onto HTTP status codes
func (h *Handlers) respondOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrInvalidStock):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrDuplicateOrder), errors.Is(err, ErrOrderNotCancellable):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidLimitPrice),
		errors.Is(err, ErrInsufficientHoldings),
		errors.Is(err, ErrExceedsTradeLimit):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Error().Err(err).Msg("Order operation failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func parseDateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	var from, to time.Time

	if fromParam := r.URL.Query().Get("from"); fromParam != "" {
		parsed, err := time.Parse(time.RFC3339, fromParam)
		if err != nil {
			http.Error(w, "Invalid from date", http.StatusBadRequest)
			return from, to, false
		}
		from = parsed
	}
	if toParam := r.URL.Query().Get("to"); toParam != "" {
		parsed, err := time.Parse(time.RFC3339, toParam)
		if err != nil {
			http.Error(w, "Invalid to date", http.StatusBadRequest)
			return from, to, false
		}
		to = parsed
	}

	return from, to, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
