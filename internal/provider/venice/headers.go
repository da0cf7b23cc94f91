package venice

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/davidbz/venicedesk/internal/domain"
)

// Response headers carrying request, rate-limit, balance and deprecation signals.
const (
	HeaderRequestID                  = "CF-RAY"
	HeaderRateLimitRemainingRequests = "x-ratelimit-remaining-requests"
	HeaderRateLimitRemainingTokens   = "x-ratelimit-remaining-tokens"
	HeaderRateLimitResetRequests     = "x-ratelimit-reset-requests"
	HeaderRateLimitResetTokens       = "x-ratelimit-reset-tokens"
	HeaderBalanceUSD                 = "x-venice-balance-usd"
	HeaderBalanceDiem                = "x-venice-balance-diem"
	HeaderDeprecationWarning         = "x-venice-model-deprecation-warning"
	HeaderDeprecationWarningLegacy   = "x-venice-deprecation"
	HeaderDeprecationDate            = "x-venice-model-deprecation-date"
)

// ExtractMetadata reads the known response headers. Absent headers, and numeric
// headers that do not parse, leave the corresponding field nil.
func ExtractMetadata(h http.Header) domain.ResponseMetadata {
	meta := domain.ResponseMetadata{
		RequestID:                  headerString(h, HeaderRequestID),
		RateLimitRemainingRequests: headerInt(h, HeaderRateLimitRemainingRequests),
		RateLimitRemainingTokens:   headerInt(h, HeaderRateLimitRemainingTokens),
		RateLimitResetRequests:     headerString(h, HeaderRateLimitResetRequests),
		RateLimitResetTokens:       headerString(h, HeaderRateLimitResetTokens),
		BalanceUSD:                 headerFloat(h, HeaderBalanceUSD),
		BalanceDiem:                headerFloat(h, HeaderBalanceDiem),
		DeprecationWarning:         headerString(h, HeaderDeprecationWarning),
		DeprecationDate:            headerString(h, HeaderDeprecationDate),
	}

	if meta.DeprecationWarning == nil {
		meta.DeprecationWarning = headerString(h, HeaderDeprecationWarningLegacy)
	}

	return meta
}

func headerString(h http.Header, key string) *string {
	v := strings.TrimSpace(h.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

// headerInt accepts decimal forms such as "99.0" and truncates them. Values
// outside the int64 range are treated as absent.
func headerInt(h http.Header, key string) *int64 {
	v := headerString(h, key)
	if v == nil {
		return nil
	}

	if n, err := strconv.ParseInt(*v, 10, 64); err == nil {
		return &n
	}

	f := parseFinite(*v)
	if f == nil {
		return nil
	}
	t := math.Trunc(*f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return nil
	}
	n := int64(t)
	return &n
}

func headerFloat(h http.Header, key string) *float64 {
	v := headerString(h, key)
	if v == nil {
		return nil
	}

	return parseFinite(*v)
}

func parseFinite(v string) *float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
