package domain

// Luxury price thresholds, fixed per currency.
const (
	LuxuryThresholdIDR int64 = 78_656_000_000
	LuxuryThresholdUSD int64 = 5_000_000
)

// PropertyTypeLand is the property type that maps to the Land tier.
const PropertyTypeLand = "Land"

// ClassifyTier maps (price, currency, property type) to a display tier.
// Rule order matters: a luxury-priced land plot is Luxury, not Land.
func ClassifyTier(price int64, currency string, propertyType *string) Tier {
	switch {
	case currency == "IDR" && price >= LuxuryThresholdIDR:
		return TierLuxury
	case currency == "USD" && price >= LuxuryThresholdUSD:
		return TierLuxury
	case propertyType != nil && *propertyType == PropertyTypeLand:
		return TierLand
	}
	return TierStandard
}

// ReclassifyTier recomputes the listing's tier from its current fields.
func (l *CanonicalListing) ReclassifyTier() {
	l.Tier = ClassifyTier(l.Price, l.Currency, l.PropertyType)
}
