package payment

import (
	"net/url"
	"strings"
)

const DefaultFrontendURL = "https://parkingspotfinder.onrender.com"

// PlanCatalog maps "{plan}_{period}" keys to provider price IDs. It is
// built once at startup and never mutated.
type PlanCatalog struct {
	prices map[string]string
}

func NewPlanCatalog(prices map[string]string) PlanCatalog {
	cp := make(map[string]string, len(prices))
	for k, v := range prices {
		if k = strings.TrimSpace(k); k != "" && strings.TrimSpace(v) != "" {
			cp[k] = strings.TrimSpace(v)
		}
	}

	return PlanCatalog{prices: cp}
}

func PlanKey(planID, billingPeriod string) string {
	return planID + "_" + billingPeriod
}

func (c PlanCatalog) PriceID(planID, billingPeriod string) (string, bool) {
	id, ok := c.prices[PlanKey(planID, billingPeriod)]
	return id, ok
}

func (c PlanCatalog) Len() int { return len(c.prices) }

// NormalizeBaseURL turns an operator-supplied frontend URL into a usable
// redirect base. Anything that is not an absolute http(s) URL falls back
// to DefaultFrontendURL.
func NormalizeBaseURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || !strings.HasPrefix(strings.ToLower(s), "http") {
		return DefaultFrontendURL
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return DefaultFrontendURL
	}

	s = strings.TrimRight(s, "/")
	if s == "" {
		return DefaultFrontendURL
	}

	return s
}
