package domain

import (
	"strings"

	dErrors "walletgate/pkg/domain-errors"
)

// Chain names a blockchain network accepted for liquidation addresses.
// Construct via ParseChain at trust boundaries; direct casting bypasses the allowlist.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainPolygon  Chain = "polygon"
	ChainBase     Chain = "base"
	ChainSolana   Chain = "solana"
	ChainStellar  Chain = "stellar"
)

var validChains = map[Chain]bool{
	ChainEthereum: true,
	ChainPolygon:  true,
	ChainBase:     true,
	ChainSolana:   true,
	ChainStellar:  true,
}

// ParseChain normalizes and validates a chain name.
func ParseChain(s string) (Chain, error) {
	c := Chain(strings.ToLower(strings.TrimSpace(s)))
	if !validChains[c] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported chain: "+s)
	}
	return c, nil
}

func (c Chain) String() string { return string(c) }

// Currency names an asset code. Crypto and fiat codes share the type because a
// liquidation address maps one onto the other.
type Currency string

const (
	CurrencyUSD  Currency = "usd"
	CurrencyUSDC Currency = "usdc"
	CurrencyUSDT Currency = "usdt"
	CurrencyUSDB Currency = "usdb"
	CurrencyETH  Currency = "eth"
	CurrencySOL  Currency = "sol"
)

var validCurrencies = map[Currency]bool{
	CurrencyUSD:  true,
	CurrencyUSDC: true,
	CurrencyUSDT: true,
	CurrencyUSDB: true,
	CurrencyETH:  true,
	CurrencySOL:  true,
}

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	if !validCurrencies[c] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported currency: "+s)
	}
	return c, nil
}

func (c Currency) String() string { return string(c) }
