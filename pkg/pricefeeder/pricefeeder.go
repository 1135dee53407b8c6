package pricefeeder

import (
	"github.com/shopspring/decimal"
)

// PriceFeeder streams USD quotes for wallet tokens from an external source.
// A failing feeder never blocks wallet operation; consumers simply keep the
// last quote they saw.
type PriceFeeder interface {
	WellKnownMarkets() []Market
	SubscribeMarkets([]Market) error
	UnSubscribeMarkets([]Market) error

	Start() error
	Stop()

	FeedChan() chan PriceFeed
}

// Market identifies a token quoted against USD on the external source.
type Market struct {
	Token  string
	Ticker string
}

// PriceFeed is one quote update for a market.
type PriceFeed struct {
	Market Market
	Price  Price
}

// Price is the USD quote of one token unit.
type Price struct {
	QuotePrice decimal.Decimal
}
