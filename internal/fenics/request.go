package fenics

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is how FENICS expects horizon and expiry dates, e.g. "05 Mar 24".
const DateLayout = "02 Jan 06"

const (
	DefaultTransactionID = "1234567890"
	StyleEuropean        = "european"
	StyleAmerican        = "american"
)

var barrierTypes = map[string]bool{
	"up-in":    true,
	"up-out":   true,
	"down-in":  true,
	"down-out": true,
}

func IsBarrierType(t string) bool {
	return barrierTypes[t]
}

// VanillaQuery prices a spot, forward or vanilla option. Nil fields are
// left out of the request and FENICS applies its own defaults.
type VanillaQuery struct {
	BaseCurrency    string
	ForeignCurrency string
	Notional        *float64
	SpotOverride    *float64
	Strike          *float64
	IsCall          bool
	StartDate       *time.Time
	EndDate         *time.Time
	TransactionID   string
	OptionStyle     string
	HedgeRatio      float64
	IsBaseSold      bool
	IsBought        bool
}

// BarrierQuery prices a knock-in or knock-out option.
type BarrierQuery struct {
	BaseCurrency    string
	ForeignCurrency string
	BarrierType     string
	BarrierLevel    float64
	IsCall          bool
	Strike          *float64
	StartDate       *time.Time
	EndDate         time.Time
	Notional        *float64
	SpotOverride    *float64
	ForwardOverride *float64
	LowBarrier      *float64
	HighBarrier     *float64
	Maturity        string
	TransactionID   string
	HedgeRatio      float64
	IsBaseSold      bool
	IsBought        bool
}

type gfiRequest struct {
	XMLName xml.Name      `xml:"gfi_message"`
	Version string        `xml:"version,attr"`
	Header  requestHeader `xml:"header"`
	Body    requestBody   `xml:"body"`
}

type requestHeader struct {
	TransactionID string `xml:"transaction_id"`
	Timestamp     string `xml:"timestamp"`
	Username      string `xml:"authenticate>username"`
	Password      string `xml:"authenticate>password"`
}

type requestBody struct {
	Action string     `xml:"action,attr"`
	Node   []xmlField `xml:"data>node>field"`
}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// fieldSet keeps insertion order so requests are stable on the wire.
type fieldSet []xmlField

func (f *fieldSet) str(name, value string) {
	if value == "" {
		return
	}
	*f = append(*f, xmlField{Name: name, Value: value})
}

func (f *fieldSet) num(name string, value *float64) {
	if value == nil {
		return
	}
	f.str(name, strconv.FormatFloat(*value, 'f', -1, 64))
}

func (f *fieldSet) date(name string, value *time.Time) {
	if value == nil || value.IsZero() {
		return
	}
	f.str(name, value.UTC().Format(DateLayout))
}

func optionType(isCall bool) string {
	if isCall {
		return "call"
	}
	return "put"
}

func direction(isBought bool) string {
	if isBought {
		return "buy"
	}
	return "sell"
}

// currencies returns (currency, ctrCcy) as FENICS reads them: the sold
// currency is the counter currency.
func currencies(base, foreign string, isBaseSold bool) (string, string) {
	if isBaseSold {
		return strings.ToUpper(foreign), strings.ToUpper(base)
	}
	return strings.ToUpper(base), strings.ToUpper(foreign)
}

func (q VanillaQuery) fields(now time.Time) fieldSet {
	var f fieldSet
	start := q.StartDate
	if start == nil {
		start = &now
	}
	currency, ctr := currencies(q.BaseCurrency, q.ForeignCurrency, q.IsBaseSold)
	style := q.OptionStyle
	if style == "" {
		style = StyleEuropean
	}
	hedge := q.HedgeRatio
	if hedge == 0 {
		hedge = 1
	}

	f.date("HorDate", start)
	f.date("ExDate", q.EndDate)
	f.num("Strike", q.Strike)
	f.str("CtrCcy", ctr)
	f.str("Currency", currency)
	f.str("Strategy", optionType(q.IsCall))
	f.num("Amount", q.Notional)
	f.num("PctHedge", &hedge)
	f.num("Spot", q.SpotOverride)
	f.str("Class", strings.ToUpper(style[:1])+strings.ToLower(style[1:]))
	f.str("Direction", direction(q.IsBought))
	return f
}

// barrierClass maps a barrier direction onto the FENICS option class. Up
// barriers on calls and down barriers on puts are the reverse variants.
func barrierClass(barrierType string, isCall bool) (string, error) {
	put := !isCall
	switch barrierType {
	case "up-in":
		if put {
			return "Knockin", nil
		}
		return "Reverse Knockin", nil
	case "up-out":
		if put {
			return "Knockout", nil
		}
		return "Reverse Knockout", nil
	case "down-in":
		if put {
			return "Reverse Knockin", nil
		}
		return "Knockin", nil
	case "down-out":
		if put {
			return "Reverse Knockout", nil
		}
		return "Knockout", nil
	}
	return "", fmt.Errorf("unsupported barrier type: %s", barrierType)
}

func (q BarrierQuery) fields() (fieldSet, error) {
	class, err := barrierClass(q.BarrierType, q.IsCall)
	if err != nil {
		return nil, err
	}
	base := q.BaseCurrency
	if base == "" {
		base = "USD"
	}
	currency, ctr := currencies(base, q.ForeignCurrency, q.IsBaseSold)
	hedge := q.HedgeRatio
	if hedge == 0 {
		hedge = 1
	}
	level := q.BarrierLevel

	var f fieldSet
	f.date("HorDate", q.StartDate)
	f.date("ExDate", &q.EndDate)
	f.str("CtrCcy", ctr)
	f.str("Currency", currency)
	f.str("Class", class)
	f.str("Strategy", optionType(q.IsCall))
	f.str("Maturity", q.Maturity)
	f.num("Strike", q.Strike)
	f.num("Trigger", &level)
	f.num("LoTrigger", q.LowBarrier)
	f.num("HiTrigger", q.HighBarrier)
	f.num("Amount", q.Notional)
	f.num("PctHedge", &hedge)
	f.num("Spot", q.SpotOverride)
	f.num("Forward", q.ForwardOverride)
	f.str("Direction", direction(q.IsBought))
	return f, nil
}

// encodeRequest renders the request document without indentation, which is
// the form FENICS accepts in the xml= form field.
func (c *Client) encodeRequest(transactionID string, fields fieldSet, now time.Time) ([]byte, error) {
	if transactionID == "" {
		transactionID = DefaultTransactionID
	}
	doc := gfiRequest{
		Version: "1.0",
		Header: requestHeader{
			TransactionID: transactionID,
			Timestamp:     now.UTC().Format(time.RFC3339),
			Username:      c.username,
			Password:      c.password,
		},
		Body: requestBody{Action: "price", Node: fields},
	}
	return xml.Marshal(doc)
}
