// Package core shapes simulation requests for the core compute service. The
// payloads are snake_case JSON documents sent through SQS.
package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/google/uuid"
)

const (
	TypeStrategy = "STRATEGY"
	TypeMargin   = "MARGIN"
	TypeHedge    = "HEDGE"

	DerivativeForward = "FORWARD"
	DerivativeVanilla = "VANILLA"
	DerivativeBarrier = "BARRIER"
)

// Message is one simulation job. GroupID is the FIFO message group and is not
// part of the body.
type Message struct {
	UserID       string `json:"user_id"`
	ResultID     string `json:"result_id"`
	SimulationID string `json:"simulation_id"`
	Type         string `json:"type"`
	Data         any    `json:"data"`

	GroupID string `json:"-"`
}

type Currency struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func currency(c *model.TypeCurrency) Currency {
	if c == nil {
		return Currency{}
	}
	return Currency{Symbol: c.Code, Name: c.Name}
}

type Environment struct {
	DateAdded           time.Time `json:"date_added"`
	Name                string    `json:"name"`
	Volatility          float64   `json:"volatility"`
	Skew                float64   `json:"skew"`
	AppreciationPercent float64   `json:"appreciation_percent"`
	StartDate           string    `json:"start_date"`
	EndDate             string    `json:"end_date"`
	InitialSpotRate     float64   `json:"initial_spot_rate"`
	InitialForwardRate  float64   `json:"initial_forward_rate"`
}

type StrategySimulationData struct {
	Name                  string      `json:"name"`
	Notional              float64     `json:"notional"`
	Spread                float64     `json:"spread"`
	IsBaseSold            bool        `json:"is_base_sold"`
	BaseCurrency          Currency    `json:"base_currency"`
	ForeignCurrency       Currency    `json:"foreign_currency"`
	SimulationEnvironment Environment `json:"simulation_environment"`
	Strategies            []Strategy  `json:"strategies"`
}

type Strategy struct {
	Name string       `json:"name"`
	Legs []Derivative `json:"legs"`
}

type Derivative struct {
	Type string         `json:"type"`
	Data DerivativeData `json:"data"`
}

type DerivativeData struct {
	Name         string   `json:"name"`
	IsBought     bool     `json:"is_bought"`
	Notional     float64  `json:"notional"`
	IsCall       *bool    `json:"is_call"`
	Strike       float64  `json:"strike"`
	Premium      float64  `json:"premium"`
	HedgeRatio   float64  `json:"hedge_ratio"`
	BarrierType  *string  `json:"barrier_type"`
	BarrierLevel *float64 `json:"barrier_level"`
	FwdRate      float64  `json:"fwd_rate"`
}

type MarginSimulationData struct {
	Name                  string  `json:"name"`
	StrategyID            string  `json:"strategy_id"`
	StrategyResultID      string  `json:"strategy_result_id"`
	InitialMargin         float64 `json:"initial_margin"`
	VariationMargin       float64 `json:"variation_margin"`
	MinimumTransferAmount float64 `json:"minimum_transfer_amount"`
}

type HedgeSimulationData struct {
	Skew            float64              `json:"skew"`
	Volatility      float64              `json:"volatility"`
	SpotRate        float64              `json:"spot_rate"`
	BaseCurrency    Currency             `json:"base_currency"`
	ForeignCurrency Currency             `json:"foreign_currency"`
	FwdRates        [][]float64          `json:"fwd_rates"`
	Harvest         []model.HarvestEntry `json:"harvest"`
}

// InstanceGroup is one strategy as instantiated inside a simulation: the
// instances sharing an instance_group number.
type InstanceGroup struct {
	Number      int
	StrategyID  uuid.UUID
	IsCustom    bool
	Name        string
	Description string
	Instances   []model.StrategyInstance
}

// GroupInstances groups instances by instance_group in ascending order. Each
// group is named "<strategy>-<n>" where n counts earlier groups of the same
// strategy name. Instances whose leg was not loaded are skipped.
func GroupInstances(instances []model.StrategyInstance) []InstanceGroup {
	sorted := make([]model.StrategyInstance, len(instances))
	copy(sorted, instances)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].InstanceGroup < sorted[j].InstanceGroup
	})

	var groups []InstanceGroup
	index := map[int]int{}
	names := map[string]int{}
	for _, inst := range sorted {
		if inst.StrategyLeg == nil || inst.StrategyLeg.Strategy == nil {
			continue
		}
		i, ok := index[inst.InstanceGroup]
		if !ok {
			st := inst.StrategyLeg.Strategy
			names[st.Name]++
			groups = append(groups, InstanceGroup{
				Number:      inst.InstanceGroup,
				StrategyID:  st.ID,
				IsCustom:    st.IsCustom(),
				Name:        fmt.Sprintf("%s-%d", st.Name, names[st.Name]),
				Description: st.Description,
			})
			i = len(groups) - 1
			index[inst.InstanceGroup] = i
		}
		groups[i].Instances = append(groups[i].Instances, inst)
	}
	return groups
}

// StrategySimulation builds the STRATEGY job. sim must carry its environment
// and its instances with their legs and strategies.
func StrategySimulation(userID, resultID uuid.UUID, sim *model.StrategySimulation, base, foreign *model.TypeCurrency) Message {
	notional := sim.Notional.InexactFloat64()
	groups := GroupInstances(sim.Instances)
	strategies := make([]Strategy, 0, len(groups))
	for _, g := range groups {
		strategies = append(strategies, StrategyFromGroup(g, notional, sim.InitialSpotRate, sim.InitialForwardRate, sim.IsBaseSold))
	}

	env := Environment{
		StartDate:          sim.StartDate.String(),
		EndDate:            sim.EndDate.String(),
		InitialSpotRate:    sim.InitialSpotRate,
		InitialForwardRate: sim.InitialForwardRate,
	}
	if e := sim.SimulationEnvironment; e != nil {
		env.DateAdded = e.DateAdded
		env.Name = e.Name
		env.Volatility = e.Volatility
		env.Skew = e.Skew
		env.AppreciationPercent = e.AppreciationPercent
	}

	return Message{
		UserID:       userID.String(),
		ResultID:     resultID.String(),
		SimulationID: sim.ID.String(),
		Type:         TypeStrategy,
		Data: StrategySimulationData{
			Name:                  sim.ID.String(),
			Notional:              notional,
			Spread:                0.0,
			IsBaseSold:            sim.IsBaseSold,
			BaseCurrency:          currency(base),
			ForeignCurrency:       currency(foreign),
			SimulationEnvironment: env,
			Strategies:            strategies,
		},
		GroupID: sim.ID.String(),
	}
}

// StrategyFromGroup converts one instance group. Default strategies with more
// than one leg are composite.
func StrategyFromGroup(g InstanceGroup, notional, spot, fwd float64, isBaseSold bool) Strategy {
	composite := !g.IsCustom && len(g.Instances) > 1
	legs := make([]Derivative, 0, len(g.Instances))
	for _, inst := range g.Instances {
		legs = append(legs, NewDerivative(inst, notional, spot, fwd, isBaseSold, composite))
	}
	return Strategy{Name: g.Name, Legs: legs}
}

// NewDerivative converts an instance and its template leg. Strike and barrier
// inputs are ITM/OTM percentages; the strike is scaled by the spot rate, the
// barrier level is left relative.
func NewDerivative(inst model.StrategyInstance, notional, spot, fwd float64, isBaseSold, composite bool) Derivative {
	leg := inst.StrategyLeg
	if leg == nil {
		leg = &model.StrategyLeg{}
	}

	derType := DerivativeForward
	if leg.IsCall != nil {
		derType = DerivativeVanilla
		if leg.BarrierType != nil {
			derType = DerivativeBarrier
		}
	}

	isCall := leg.IsCall
	if isCall != nil && !isBaseSold && composite {
		flipped := !*isCall
		isCall = &flipped
	}
	call := isCall != nil && *isCall

	strikeOverride := firstFloat(inst.StrikeOverride, leg.Strike, 0)
	var strike float64
	if call {
		strike = (1 - strikeOverride/100) * spot
	} else {
		strike = (1 + strikeOverride/100) * spot
	}

	var barrierLevel *float64
	if leg.BarrierLevel != nil {
		level := 1 + *leg.BarrierLevel/100
		if call {
			level = 1 - *leg.BarrierLevel/100
		}
		barrierLevel = &level
	}

	isBought := leg.IsBought
	if leg.IsCall == nil {
		isBought = !isBaseSold
	}

	return Derivative{
		Type: derType,
		Data: DerivativeData{
			Name:         inst.StrategyLegID.String(),
			IsBought:     isBought,
			Notional:     notional,
			IsCall:       isCall,
			Strike:       strike,
			Premium:      firstFloat(inst.PremiumOverride, nil, leg.Premium.InexactFloat64()),
			HedgeRatio:   firstFloat(inst.LeverageOverride, nil, leg.Leverage),
			BarrierType:  leg.BarrierType,
			BarrierLevel: barrierLevel,
			FwdRate:      fwd,
		},
	}
}

func firstFloat(override, fallback *float64, def float64) float64 {
	if override != nil {
		return *override
	}
	if fallback != nil {
		return *fallback
	}
	return def
}

// MarginSimulation builds the MARGIN job, grouped by the strategy simulation.
func MarginSimulation(userID, resultID uuid.UUID, m *model.MarginSimulation, strategyResultID uuid.UUID) Message {
	return Message{
		UserID:       userID.String(),
		ResultID:     resultID.String(),
		SimulationID: m.ID.String(),
		Type:         TypeMargin,
		Data: MarginSimulationData{
			Name:                  m.ID.String(),
			StrategyID:            m.StrategySimulationID.String(),
			StrategyResultID:      strategyResultID.String(),
			InitialMargin:         m.InitialMarginPercentage,
			VariationMargin:       m.VariationMarginPercentage,
			MinimumTransferAmount: m.MinimumTransferAmount.InexactFloat64(),
		},
		GroupID: m.StrategySimulationID.String(),
	}
}

// HedgeSimulation builds the HEDGE job.
func HedgeSimulation(userID, resultID uuid.UUID, h *model.HedgeSimulation, spotRate float64, base, foreign *model.TypeCurrency) Message {
	data := HedgeSimulationData{
		SpotRate:        spotRate,
		BaseCurrency:    currency(base),
		ForeignCurrency: currency(foreign),
		FwdRates:        h.FwdRates,
		Harvest:         h.Harvest,
	}
	if e := h.SimulationEnvironment; e != nil {
		data.Skew = e.Skew
		data.Volatility = e.Volatility
	}
	return Message{
		UserID:       userID.String(),
		ResultID:     resultID.String(),
		SimulationID: h.ID.String(),
		Type:         TypeHedge,
		Data:         data,
		GroupID:      h.ID.String(),
	}
}
