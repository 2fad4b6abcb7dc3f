package plans

import (
	"strings"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Plan is a subscription tier as sold on the site.
type Plan struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Tier          string          `json:"tier"`
	Price         decimal.Decimal `json:"price"`
	PriceDisplay  string          `json:"price_display"`
	Currency      enums.Currency  `json:"currency"`
	DropsPerMonth int             `json:"drops_per_month"`
	Unlimited     bool            `json:"unlimited"`
	StripePriceID string          `json:"-"`
	Features      []string        `json:"features"`
	SortOrder     int             `json:"sort_order"`
	Active        bool            `json:"-"`
}

// Purchasable reports whether checkout can sell this plan.
func (p Plan) Purchasable() bool {
	return p.Active && strings.TrimSpace(p.StripePriceID) != ""
}

const (
	fieldActive    = "Active"
	fieldSortOrder = "Sort Order"
)

type planFields struct {
	Name          string          `json:"Name"`
	Tier          string          `json:"Tier"`
	Price         decimal.Decimal `json:"Price"`
	Currency      string          `json:"Currency"`
	DropsPerMonth float64         `json:"Drops Per Month"`
	StripePriceID string          `json:"Stripe Price ID"`
	Features      string          `json:"Features"`
	Active        bool            `json:"Active"`
	SortOrder     float64         `json:"Sort Order"`
}

func planFromRecord(rec airtable.Record) (Plan, error) {
	var f planFields
	if err := rec.Decode(&f); err != nil {
		return Plan{}, err
	}
	currency, err := enums.ParseCurrency(f.Currency)
	if err != nil {
		currency = enums.CurrencyGBP
	}
	drops := int(f.DropsPerMonth)
	price := f.Price.Round(2)
	return Plan{
		ID:            rec.ID,
		Name:          f.Name,
		Tier:          strings.TrimSpace(f.Tier),
		Price:         price,
		PriceDisplay:  currency.Symbol() + price.StringFixed(2),
		Currency:      currency,
		DropsPerMonth: drops,
		Unlimited:     drops <= 0,
		StripePriceID: strings.TrimSpace(f.StripePriceID),
		Features:      splitFeatures(f.Features),
		SortOrder:     int(f.SortOrder),
		Active:        f.Active,
	}, nil
}

// Features are stored one per line, optionally bulleted.
func splitFeatures(raw string) []string {
	out := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
