package polymarket

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// flexBool unmarshals from a JSON bool or a "true"/"false" string; Gamma
// sends both.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// stringList unmarshals from a JSON array or from a string holding a
// JSON-encoded array, e.g. "[\"Yes\",\"No\"]".
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*l = nil
		return nil
	}
	return json.Unmarshal([]byte(s), (*[]string)(l))
}

// flexFloat unmarshals from a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*f = flexFloat(d.InexactFloat64())
	return nil
}

// APIMarket is a market as returned by the Gamma API.
type APIMarket struct {
	ID               string     `json:"id"`
	Question         string     `json:"question"`
	ConditionID      string     `json:"conditionId"`
	Slug             string     `json:"slug"`
	Description      string     `json:"description"`
	ResolutionSource string     `json:"resolutionSource"`
	Category         string     `json:"category"`
	EndDate          string     `json:"endDate"`
	Active           flexBool   `json:"active"`
	Closed           flexBool   `json:"closed"`
	Outcomes         stringList `json:"outcomes"`
	OutcomePrices    stringList `json:"outcomePrices"`
	ClobTokenIDs     stringList `json:"clobTokenIds"`
	Volume24hr       flexFloat  `json:"volume24hr"`
	LastTradePrice   flexFloat  `json:"lastTradePrice"`
}

// BookLevel is one price level of a CLOB book. Price and size are decimal
// strings.
type BookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Book is the CLOB /book response for one outcome token.
type Book struct {
	Market    string      `json:"market"`
	AssetID   string      `json:"asset_id"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	Timestamp string      `json:"timestamp"`
}
