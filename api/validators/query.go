package validators

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/stockforge-backend/pkg/errors"
)

// ParseQueryDecimal reads a positive decimal query parameter.
func ParseQueryDecimal(r *http.Request, key string, required bool) (decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		if required {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "query parameter required").
				WithDetails(map[string]any{"field": key})
		}
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a number").
			WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// ParseQueryDate reads an optional RFC 3339 date or date-time parameter.
func ParseQueryDate(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be an RFC 3339 date").
		WithDetails(map[string]any{"field": key})
}
