package market

import (
	"strings"
	"time"

	"github.com/rxtech-lab/argo-executor/internal/types"
	"github.com/rxtech-lab/argo-executor/pkg/errors"
)

// binanceSymbol strips separators: "BTC/USD" becomes "BTCUSD".
func binanceSymbol(symbol string) string {
	symbol = strings.ReplaceAll(symbol, "/", "")
	symbol = strings.ReplaceAll(symbol, "-", "")

	return strings.ToUpper(symbol)
}

// polygonTicker maps a pair to the Polygon crypto ticker format:
// "BTC/USD" becomes "X:BTCUSD".
func polygonTicker(symbol string) string {
	stripped := binanceSymbol(symbol)
	if strings.HasPrefix(stripped, "X:") {
		return stripped
	}

	return "X:" + stripped
}

// intervalDuration converts an interval to its bar duration.
func intervalDuration(interval types.Interval) (time.Duration, error) {
	switch interval {
	case types.Interval1m:
		return time.Minute, nil
	case types.Interval5m:
		return 5 * time.Minute, nil
	case types.Interval15m:
		return 15 * time.Minute, nil
	case types.Interval1h:
		return time.Hour, nil
	case types.Interval4h:
		return 4 * time.Hour, nil
	case types.Interval1d:
		return 24 * time.Hour, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval: %s", interval)
	}
}
