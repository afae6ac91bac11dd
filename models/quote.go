package models

import "time"

// Quote is a point-in-time price snapshot for a symbol. Quotes are fetched
// on demand from the market-data provider and never persisted.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Currency      string    `json:"currency,omitempty"`
	Time          time.Time `json:"time"`
}

// Candle represents one daily bar of historical price data
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}
