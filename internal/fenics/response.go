package fenics

import (
	"strconv"
	"strings"
	"time"
)

const (
	horDateLayout  = "15:04 Mon 02 Jan 06"
	expiryLayout   = "15:04 MST 02 Jan 06"
	premDateLayout = "Mon 02 Jan 06"
	isoLayout      = "2006-01-02T15:04:05Z"
)

type SpotRate struct {
	BaseCurrency    string   `json:"baseCurrency"`
	ForeignCurrency string   `json:"foreignCurrency"`
	SpotRate        *float64 `json:"spotRate"`
	Timestamp       *string  `json:"timestamp"`
}

type Expiry struct {
	Date string `json:"date"`
	Days int    `json:"days"`
}

type ForwardRate struct {
	BaseCurrency    string   `json:"baseCurrency"`
	ForeignCurrency string   `json:"foreignCurrency"`
	SpotRate        *float64 `json:"spotRate"`
	ForwardRate     *float64 `json:"forwardRate"`
	Expiry          *Expiry  `json:"expiry"`
	Timestamp       *string  `json:"timestamp"`
}

type Premium struct {
	Type            string   `json:"type"`
	Percentage      *float64 `json:"percentage"`
	Amount          *float64 `json:"amount"`
	Currency        string   `json:"currency"`
	CounterAmount   *float64 `json:"counterAmount"`
	CounterCurrency string   `json:"counterCurrency"`
	Timestamp       *string  `json:"timestamp"`
}

type OptionPrice struct {
	BaseCurrency    string   `json:"baseCurrency"`
	ForeignCurrency string   `json:"foreignCurrency"`
	IsCall          *bool    `json:"isCall"`
	Strike          *float64 `json:"strike"`
	Expiry          *Expiry  `json:"expiry"`
	Premium         Premium  `json:"premium"`
	SpotRate        *float64 `json:"spotRate"`
	ForwardRate     *float64 `json:"forwardRate"`
	Timestamp       *string  `json:"timestamp"`
	Greeks          *Greeks  `json:"greeks,omitempty"`
}

type Greeks struct {
	Delta struct {
		Value                        *float64 `json:"value"`
		Percentage                   *float64 `json:"percentage"`
		VolatilityAdjustedValue      *float64 `json:"volatilityAdjustedValue"`
		VolatilityAdjustedPercentage *float64 `json:"volatilityAdjustedPercentage"`
		Amount                       *float64 `json:"amount"`
		CounterAmount                *float64 `json:"counterAmount"`
		CounterPercentageAmount      *float64 `json:"counterPercentageAmount"`
	} `json:"delta"`
	Gamma struct {
		Value  *float64 `json:"value"`
		Amount *float64 `json:"amount"`
	} `json:"gamma"`
	Vega struct {
		Value         *float64 `json:"value"`
		Amount        *float64 `json:"amount"`
		CounterValue  *float64 `json:"counterValue"`
		CounterAmount *float64 `json:"counterAmount"`
	} `json:"vega"`
	DVegaDVol struct {
		Value            *float64 `json:"value"`
		Amount           *float64 `json:"amount"`
		Percentage       *float64 `json:"percentage"`
		PercentageAmount *float64 `json:"percentageAmount"`
	} `json:"dVegaDVol"`
	Phi struct {
		Percentage *float64 `json:"percentage"`
		Value      *float64 `json:"value"`
	} `json:"phi"`
	Theta struct {
		Percentage *float64 `json:"percentage"`
		Value      *float64 `json:"value"`
	} `json:"theta"`
	Rho struct {
		Value      *float64 `json:"value"`
		Percentage *float64 `json:"percentage"`
	} `json:"rho"`
	Vanna struct {
		Value  *float64 `json:"value"`
		Amount *float64 `json:"amount"`
	} `json:"vanna"`
}

// Number reads a numeric field. FENICS groups thousands with commas.
func (f Fields) Number(name string) *float64 {
	raw := strings.ReplaceAll(strings.TrimSpace(f[name]), ",", "")
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (f Fields) timestamp() *string {
	return f.formatted("HorDate", horDateLayout)
}

func (f Fields) formatted(name, layout string) *string {
	raw := strings.TrimSpace(f[name])
	if raw == "" {
		return nil
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return nil
	}
	s := t.Format(isoLayout)
	return &s
}

func (f Fields) expiry() *Expiry {
	exTime, exDate := strings.TrimSpace(f["ExTime"]), strings.TrimSpace(f["ExDate"])
	if exTime == "" || exDate == "" {
		return nil
	}
	t, err := time.Parse(expiryLayout, exTime+" "+exDate)
	if err != nil {
		return nil
	}
	days, _ := strconv.Atoi(strings.ReplaceAll(f["ExDays"], ",", ""))
	return &Expiry{Date: t.Format(isoLayout), Days: days}
}

func (f Fields) Spot() SpotRate {
	return SpotRate{
		BaseCurrency:    f["Currency"],
		ForeignCurrency: f["CtrCcy"],
		SpotRate:        f.Number("Spot"),
		Timestamp:       f.timestamp(),
	}
}

func (f Fields) Forward() ForwardRate {
	return ForwardRate{
		BaseCurrency:    f["Currency"],
		ForeignCurrency: f["CtrCcy"],
		SpotRate:        f.Number("Spot"),
		ForwardRate:     f.Number("Forward"),
		Expiry:          f.expiry(),
		Timestamp:       f.timestamp(),
	}
}

func (f Fields) Option(includeGreeks bool) OptionPrice {
	out := OptionPrice{
		BaseCurrency:    f["Currency"],
		ForeignCurrency: f["CtrCcy"],
		Strike:          f.Number("Strike"),
		Expiry:          f.expiry(),
		SpotRate:        f.Number("Spot"),
		ForwardRate:     f.Number("Forward"),
		Timestamp:       f.timestamp(),
		Premium: Premium{
			Type:            strings.ToLower(f["PremType"]),
			Percentage:      f.Number("PctPrice"),
			Amount:          f.Number("Premium"),
			Currency:        f["PremCcy"],
			CounterAmount:   f.Number("CtrPrem"),
			CounterCurrency: f["CtrCcy"],
			Timestamp:       f.formatted("PremDate", premDateLayout),
		},
	}
	if strategy := strings.ToLower(f["Strategy"]); strategy != "" {
		isCall := strategy == "call"
		out.IsCall = &isCall
	}
	if includeGreeks {
		out.Greeks = f.greeks()
	}
	return out
}

func (f Fields) greeks() *Greeks {
	g := &Greeks{}
	g.Delta.Value = f.Number("Delta")
	g.Delta.Percentage = f.Number("PctDelta")
	g.Delta.VolatilityAdjustedValue = f.Number("VolAdjDelta")
	g.Delta.VolatilityAdjustedPercentage = f.Number("PctVolAdjDelta")
	g.Delta.Amount = f.Number("DeltaAmt")
	g.Delta.CounterAmount = f.Number("CtrDeltaAmt")
	g.Delta.CounterPercentageAmount = f.Number("CtrPctDeltaAmt")
	g.Gamma.Value = f.Number("Gamma")
	g.Gamma.Amount = f.Number("GammaAmt")
	g.Vega.Value = f.Number("PctVega")
	g.Vega.Amount = f.Number("CtrVegaAmt")
	g.Vega.CounterValue = f.Number("Vega")
	g.Vega.CounterAmount = f.Number("CtrPctVegaAmt")
	g.DVegaDVol.Value = f.Number("Dvegadvol")
	g.DVegaDVol.Amount = f.Number("DvegadvolAmt")
	g.DVegaDVol.Percentage = f.Number("PctDvegadvol")
	g.DVegaDVol.PercentageAmount = f.Number("PctDvegadvolAmt")
	g.Phi.Percentage = f.Number("PctPhi")
	g.Phi.Value = f.Number("Phi")
	g.Theta.Percentage = f.Number("PctDecay")
	g.Theta.Value = f.Number("Decay")
	g.Rho.Value = f.Number("Rho")
	g.Rho.Percentage = f.Number("PctRho")
	g.Vanna.Value = f.Number("Vanna")
	g.Vanna.Amount = f.Number("VannaAmount")
	return g
}
