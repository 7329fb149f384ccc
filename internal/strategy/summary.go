package strategy

import (
	"encoding/json"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"option-screener/internal/models"
)

// Metric is a float that survives JSON and YAML encoding when infinite or NaN.
// Infinities encode as the strings "+Inf" and "-Inf"; NaN encodes as null.
type Metric float64

// MarshalJSON implements json.Marshaler.
func (m Metric) MarshalJSON() ([]byte, error) {
	f := float64(m)
	switch {
	case math.IsNaN(f):
		return []byte("null"), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Metric(math.NaN())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*m = Metric(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m Metric) MarshalYAML() (interface{}, error) {
	f := float64(m)
	switch {
	case math.IsNaN(f):
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case math.IsInf(f, 1):
		return "+Inf", nil
	case math.IsInf(f, -1):
		return "-Inf", nil
	}
	return f, nil
}

// LegSummary describes one leg in a Summary.
type LegSummary struct {
	Side   models.OptionSide `json:"side" yaml:"side"`
	Strike float64           `json:"strike" yaml:"strike"`
	Expiry string            `json:"expiry" yaml:"expiry"`
	Action models.Action     `json:"action" yaml:"action"`
	Price  float64           `json:"price" yaml:"price"`
}

// Summary is a flat, serializable view of a Strategy and all its metrics.
type Summary struct {
	Kind        Kind             `json:"kind" yaml:"kind"`
	Direction   models.Direction `json:"direction" yaml:"direction"`
	Expiry      string           `json:"expiry" yaml:"expiry"`
	Description string           `json:"description" yaml:"description"`
	Legs        []LegSummary     `json:"legs" yaml:"legs"`
	Debit       Metric           `json:"debit" yaml:"debit"`
	Credit      Metric           `json:"credit" yaml:"credit"`
	Cost        Metric           `json:"cost" yaml:"cost"`
	MaxGain     Metric           `json:"max_gain" yaml:"max_gain"`
	MaxLoss     Metric           `json:"max_loss" yaml:"max_loss"`
	RiskReward  Metric           `json:"rr" yaml:"rr"`
	NetDelta    Metric           `json:"net_delta" yaml:"net_delta"`
	NetTheta    Metric           `json:"net_theta" yaml:"net_theta"`
	NetVega     Metric           `json:"net_vega" yaml:"net_vega"`
	AvgIV       *float64         `json:"avg_iv" yaml:"avg_iv"`
}

// Summarize evaluates every metric of s once.
func (s Strategy) Summarize() Summary {
	legs := s.Legs()
	sum := Summary{
		Kind:        s.kind,
		Direction:   s.direction,
		Expiry:      s.Expiry(),
		Description: s.Describe(),
		Legs:        make([]LegSummary, 0, len(legs)),
		Debit:       Metric(s.Debit()),
		Credit:      Metric(s.Credit()),
		Cost:        Metric(s.Cost()),
		MaxGain:     Metric(s.MaxGain()),
		MaxLoss:     Metric(s.MaxLoss()),
		RiskReward:  Metric(s.RiskReward()),
		NetDelta:    Metric(s.NetDelta()),
		NetTheta:    Metric(s.NetTheta()),
		NetVega:     Metric(s.NetVega()),
	}
	for _, leg := range legs {
		sum.Legs = append(sum.Legs, LegSummary{
			Side:   leg.Option.Side,
			Strike: leg.Option.Strike,
			Expiry: leg.Option.Expiry,
			Action: leg.Action,
			Price:  leg.Option.Price(),
		})
	}
	if iv, ok := s.AvgIV(); ok {
		sum.AvgIV = &iv
	}
	return sum
}
