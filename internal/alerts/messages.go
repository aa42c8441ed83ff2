package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Proton-105/stockgenie-bot/internal/pricing"
)

const (
	marketUpdateHeader = "📈 Market Update:"
	digestDateLayout   = "Monday, January 02"
	priceNotAvailable  = "Price not available"

	reconcileNotice = "🔄 StockGenie was restarted and your market alerts were paused. " +
		"Use /marketalert <interval> to turn them back on."
)

// PriceLines renders one "• TICKER: $P" line per ticker, looking prices up sequentially.
func PriceLines(ctx context.Context, prices PriceLookup, tickers []string) []string {
	lines := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		price, ok := prices.Price(ctx, ticker)
		if !ok {
			lines = append(lines, fmt.Sprintf("• %s: %s", ticker, priceNotAvailable))
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s: %s", ticker, pricing.FormatPrice(price)))
	}
	return lines
}

func marketUpdate(lines []string) Message {
	return Message{Text: marketUpdateHeader + "\n" + strings.Join(lines, "\n")}
}

func digestMessage(day time.Time, lines []string) Message {
	var b strings.Builder
	b.WriteString("🌙 Good evening!\n")
	b.WriteString("📅 *" + day.Format(digestDateLayout) + "*\n")
	b.WriteString("Here’s your stock update for today:\n\n")
	b.WriteString(strings.Join(lines, "\n"))

	return Message{Text: b.String(), Markdown: true}
}
