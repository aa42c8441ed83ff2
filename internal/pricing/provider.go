// Package pricing looks up last-traded stock prices.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// ErrNoQuote is returned when the provider knows nothing usable about a ticker.
var ErrNoQuote = errors.New("no quote for ticker")

// Provider fetches the latest price for a single ticker.
type Provider interface {
	Quote(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// YahooProvider reads quotes from Yahoo Finance.
type YahooProvider struct {
	fetch func(symbol string) (*finance.Quote, error)
}

var _ Provider = (*YahooProvider)(nil)

func NewYahooProvider() *YahooProvider {
	return &YahooProvider{fetch: quote.Get}
}

// Quote returns the regular market price, falling back to the previous close
// when the market has not traded yet today.
func (p *YahooProvider) Quote(ctx context.Context, ticker string) (decimal.Decimal, error) {
	type result struct {
		quote *finance.Quote
		err   error
	}

	// finance-go has no context support; the buffered channel lets the goroutine finish after a timeout.
	done := make(chan result, 1)
	go func() {
		q, err := p.fetch(strings.ToUpper(ticker))
		done <- result{quote: q, err: err}
	}()

	select {
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return decimal.Zero, fmt.Errorf("yahoo quote %s: %w", ticker, res.err)
		}
		return priceOf(res.quote)
	}
}

func priceOf(q *finance.Quote) (decimal.Decimal, error) {
	if q == nil {
		return decimal.Zero, ErrNoQuote
	}

	for _, candidate := range []float64{q.RegularMarketPrice, q.RegularMarketPreviousClose} {
		if candidate > 0 {
			return decimal.NewFromFloat(candidate), nil
		}
	}

	return decimal.Zero, ErrNoQuote
}
