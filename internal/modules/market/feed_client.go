package market

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"nhooyr.io/websocket"
)

// feedMessage is one tick from the quote feed
type feedMessage struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Volume int64  `json:"volume"`
}

// FeedClient consumes a websocket quote feed and pushes quotes into the
// market service. It reconnects with exponential backoff until the
// context is cancelled.
type FeedClient struct {
	url     string
	service *Service
	log     zerolog.Logger
}

// NewFeedClient creates a new quote feed client
func NewFeedClient(url string, service *Service, log zerolog.Logger) *FeedClient {
	return &FeedClient{
		url:     url,
		service: service,
		log:     log.With().Str("component", "feed_client").Logger(),
	}
}

// Run connects and consumes the feed until ctx is cancelled
func (c *FeedClient) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		err := c.consume(ctx)
		if ctx.Err() != nil {
			return
		}

		attempt++
		delay := backoffDelay(attempt)
		c.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("Feed connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// consume dials the feed and processes messages until the connection
// drops or ctx is cancelled
func (c *FeedClient) consume(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, c.url, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c.log.Info().Str("url", c.url).Msg("Connected to quote feed")

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg feedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn().Err(err).Msg("Skipping malformed feed message")
			continue
		}

		if err := c.apply(msg); err != nil {
			c.log.Warn().Err(err).Str("symbol", msg.Symbol).Msg("Failed to apply quote")
		}
	}
}

func (c *FeedClient) apply(msg feedMessage) error {
	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return err
	}

	quote := Quote{
		CurrentPrice: price,
		Volume:       msg.Volume,
		UpdatedAt:    time.Now().UTC(),
	}
	if quote.OpenPrice, err = decimal.NewFromString(orZero(msg.Open)); err != nil {
		return err
	}
	if quote.HighPrice, err = decimal.NewFromString(orZero(msg.High)); err != nil {
		return err
	}
	if quote.LowPrice, err = decimal.NewFromString(orZero(msg.Low)); err != nil {
		return err
	}

	return c.service.UpdateQuoteBySymbol(msg.Symbol, quote)
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// backoffDelay returns the reconnect delay for the given attempt,
// capped at 30 seconds
func backoffDelay(attempt int) time.Duration {
	delay := time.Second
	for i := 1; i < attempt && delay < 30*time.Second; i++ {
		delay *= 2
	}
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
