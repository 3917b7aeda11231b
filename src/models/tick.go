package models

import (
	"github.com/shopspring/decimal"
)

// MTick is one realtime quote row for an instrument. Only TsCode and Time are
// interpreted by the streaming core; everything else is passed through.
type MTick struct {
	TsCode   string              `json:"tsCode"`
	Name     string              `json:"name,omitempty"`
	Trade    decimal.NullDecimal `json:"trade"`
	Price    decimal.NullDecimal `json:"price"`
	Open     decimal.NullDecimal `json:"open"`
	High     decimal.NullDecimal `json:"high"`
	Low      decimal.NullDecimal `json:"low"`
	PreClose decimal.NullDecimal `json:"preClose"`
	Bid      decimal.NullDecimal `json:"bid"`
	Ask      decimal.NullDecimal `json:"ask"`
	Volume   decimal.NullDecimal `json:"volume"`
	Amount   decimal.NullDecimal `json:"amount"`

	// Five levels of depth, bid side then ask side
	B1V decimal.NullDecimal `json:"b1V"`
	B1P decimal.NullDecimal `json:"b1P"`
	B2V decimal.NullDecimal `json:"b2V"`
	B2P decimal.NullDecimal `json:"b2P"`
	B3V decimal.NullDecimal `json:"b3V"`
	B3P decimal.NullDecimal `json:"b3P"`
	B4V decimal.NullDecimal `json:"b4V"`
	B4P decimal.NullDecimal `json:"b4P"`
	B5V decimal.NullDecimal `json:"b5V"`
	B5P decimal.NullDecimal `json:"b5P"`
	A1V decimal.NullDecimal `json:"a1V"`
	A1P decimal.NullDecimal `json:"a1P"`
	A2V decimal.NullDecimal `json:"a2V"`
	A2P decimal.NullDecimal `json:"a2P"`
	A3V decimal.NullDecimal `json:"a3V"`
	A3P decimal.NullDecimal `json:"a3P"`
	A4V decimal.NullDecimal `json:"a4V"`
	A4P decimal.NullDecimal `json:"a4P"`
	A5V decimal.NullDecimal `json:"a5V"`
	A5P decimal.NullDecimal `json:"a5P"`

	Date    *MDate     `json:"date"`
	Time    *MTickTime `json:"time"`
	Source  string     `json:"source,omitempty"`
	RawJSON string     `json:"rawJson,omitempty"`
}

// HasTime reports whether the tick carries a timestamp.
func (t *MTick) HasTime() bool {
	return t != nil && t.Time != nil && !t.Time.IsZero()
}

// DepthColumns returns pointers to the depth fields in the column order used by storage.
func (t *MTick) DepthColumns() []*decimal.NullDecimal {
	return []*decimal.NullDecimal{
		&t.B1V, &t.B1P, &t.B2V, &t.B2P, &t.B3V, &t.B3P, &t.B4V, &t.B4P, &t.B5V, &t.B5P,
		&t.A1V, &t.A1P, &t.A2V, &t.A2P, &t.A3V, &t.A3P, &t.A4V, &t.A4P, &t.A5V, &t.A5P,
	}
}

// QuoteColumns returns pointers to the top-of-book and session fields in storage column order.
func (t *MTick) QuoteColumns() []*decimal.NullDecimal {
	return []*decimal.NullDecimal{
		&t.Trade, &t.Price, &t.Open, &t.High, &t.Low, &t.PreClose, &t.Bid, &t.Ask, &t.Volume, &t.Amount,
	}
}
