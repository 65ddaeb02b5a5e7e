package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }
func stringPtr(v string) *string  { return &v }

func day(s string) model.Date {
	d, _ := model.ParseDate(s)
	return d
}

var (
	userID   = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	resultID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	simID    = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	legID    = uuid.MustParse("00000000-0000-0000-0000-000000000004")
	usd      = &model.TypeCurrency{Code: "USD", Name: "US Dollar"}
	eur      = &model.TypeCurrency{Code: "EUR", Name: "Euro"}
)

func TestStrategySimulationPayload(t *testing.T) {
	owner := uuid.New()
	custom := &model.Strategy{ID: uuid.New(), Name: "My call", CreatedByUserID: &owner}
	sim := &model.StrategySimulation{
		ID:                 simID,
		StartDate:          day("2024-01-01"),
		EndDate:            day("2024-12-31"),
		Notional:           decimal.NewFromInt(1000),
		InitialSpotRate:    2,
		InitialForwardRate: 2.5,
		SimulationEnvironment: &model.SimulationEnvironment{
			Name:                "base",
			Volatility:          0.1,
			Skew:                0.05,
			AppreciationPercent: 0.2,
			Base:                model.Base{DateAdded: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		Instances: []model.StrategyInstance{{
			StrategyLegID: legID,
			StrategyLeg: &model.StrategyLeg{
				ID:       legID,
				Strategy: custom,
				IsCall:   boolPtr(true),
				IsBought: true,
				Premium:  decimal.Zero,
				Leverage: 1,
			},
			PremiumOverride:  floatPtr(0.5),
			LeverageOverride: floatPtr(1),
			StrikeOverride:   floatPtr(25),
			InstanceGroup:    1,
		}},
	}

	msg := StrategySimulation(userID, resultID, sim, usd, eur)
	assert.Equal(t, simID.String(), msg.GroupID)

	body, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"user_id": "00000000-0000-0000-0000-000000000001",
		"result_id": "00000000-0000-0000-0000-000000000002",
		"simulation_id": "00000000-0000-0000-0000-000000000003",
		"type": "STRATEGY",
		"data": {
			"name": "00000000-0000-0000-0000-000000000003",
			"notional": 1000,
			"spread": 0,
			"is_base_sold": false,
			"base_currency": {"symbol": "USD", "name": "US Dollar"},
			"foreign_currency": {"symbol": "EUR", "name": "Euro"},
			"simulation_environment": {
				"date_added": "2024-01-01T00:00:00Z",
				"name": "base",
				"volatility": 0.1,
				"skew": 0.05,
				"appreciation_percent": 0.2,
				"start_date": "2024-01-01",
				"end_date": "2024-12-31",
				"initial_spot_rate": 2,
				"initial_forward_rate": 2.5
			},
			"strategies": [{
				"name": "My call-1",
				"legs": [{
					"type": "VANILLA",
					"data": {
						"name": "00000000-0000-0000-0000-000000000004",
						"is_bought": true,
						"notional": 1000,
						"is_call": true,
						"strike": 1.5,
						"premium": 0.5,
						"hedge_ratio": 1,
						"barrier_type": null,
						"barrier_level": null,
						"fwd_rate": 2.5
					}
				}]
			}]
		}
	}`, string(body))
}

func TestDerivativeCompositeFlip(t *testing.T) {
	leg := &model.StrategyLeg{IsCall: boolPtr(false), IsBought: true}
	inst := model.StrategyInstance{StrategyLeg: leg, StrikeOverride: floatPtr(50)}

	d := NewDerivative(inst, 100, 2, 2, false, true)
	require.NotNil(t, d.Data.IsCall)
	assert.True(t, *d.Data.IsCall, "composite leg flips when base is bought")
	assert.Equal(t, 1.0, d.Data.Strike)

	d = NewDerivative(inst, 100, 2, 2, true, true)
	assert.False(t, *d.Data.IsCall, "base sold keeps the template direction")
	assert.Equal(t, 3.0, d.Data.Strike)

	d = NewDerivative(inst, 100, 2, 2, false, false)
	assert.False(t, *d.Data.IsCall)
	assert.False(t, *leg.IsCall, "template leg is not mutated")
}

func TestDerivativeForward(t *testing.T) {
	inst := model.StrategyInstance{StrategyLeg: &model.StrategyLeg{IsBought: true}}

	d := NewDerivative(inst, 100, 2, 2.2, true, false)
	assert.Equal(t, DerivativeForward, d.Type)
	assert.Nil(t, d.Data.IsCall)
	assert.False(t, d.Data.IsBought)
	assert.Equal(t, 2.0, d.Data.Strike)
	assert.Equal(t, 2.2, d.Data.FwdRate)

	d = NewDerivative(inst, 100, 2, 2.2, false, false)
	assert.True(t, d.Data.IsBought)
}

func TestDerivativeBarrier(t *testing.T) {
	leg := &model.StrategyLeg{
		IsCall:       boolPtr(false),
		BarrierType:  stringPtr("up-in"),
		BarrierLevel: floatPtr(50),
		Strike:       floatPtr(-25),
		Premium:      decimal.NewFromFloat(0.25),
		Leverage:     0.5,
	}
	d := NewDerivative(model.StrategyInstance{StrategyLeg: leg}, 100, 4, 4, false, false)
	assert.Equal(t, DerivativeBarrier, d.Type)
	require.NotNil(t, d.Data.BarrierLevel)
	assert.Equal(t, 1.5, *d.Data.BarrierLevel)
	assert.Equal(t, "up-in", *d.Data.BarrierType)
	// overrides fall back to the template leg
	assert.Equal(t, 3.0, d.Data.Strike)
	assert.Equal(t, 0.25, d.Data.Premium)
	assert.Equal(t, 0.5, d.Data.HedgeRatio)

	leg.IsCall = boolPtr(true)
	d = NewDerivative(model.StrategyInstance{StrategyLeg: leg}, 100, 4, 4, true, false)
	assert.Equal(t, 0.5, *d.Data.BarrierLevel)
}

func TestGroupInstancesNamesRepeats(t *testing.T) {
	call := &model.Strategy{ID: uuid.New(), Name: "Call"}
	collar := &model.Strategy{ID: uuid.New(), Name: "Collar"}
	inst := func(group int, st *model.Strategy) model.StrategyInstance {
		return model.StrategyInstance{InstanceGroup: group, StrategyLeg: &model.StrategyLeg{Strategy: st}}
	}
	groups := GroupInstances([]model.StrategyInstance{
		inst(3, call), inst(1, call), inst(2, collar), inst(2, collar),
	})
	require.Len(t, groups, 3)
	assert.Equal(t, "Call-1", groups[0].Name)
	assert.Equal(t, "Collar-1", groups[1].Name)
	assert.Len(t, groups[1].Instances, 2)
	assert.Equal(t, "Call-2", groups[2].Name)

	s := StrategyFromGroup(groups[1], 1, 1, 1, false)
	assert.Len(t, s.Legs, 2)
}

func TestMarginAndHedgeMessages(t *testing.T) {
	strategySimID := uuid.New()
	m := &model.MarginSimulation{
		ID:                        simID,
		StrategySimulationID:      strategySimID,
		MinimumTransferAmount:     decimal.NewFromInt(250),
		InitialMarginPercentage:   0.1,
		VariationMarginPercentage: 0.05,
	}
	msg := MarginSimulation(userID, resultID, m, legID)
	assert.Equal(t, TypeMargin, msg.Type)
	assert.Equal(t, strategySimID.String(), msg.GroupID)
	data := msg.Data.(MarginSimulationData)
	assert.Equal(t, legID.String(), data.StrategyResultID)
	assert.Equal(t, 250.0, data.MinimumTransferAmount)

	h := &model.HedgeSimulation{
		ID:                    simID,
		SimulationEnvironment: &model.SimulationEnvironment{Volatility: 0.2, Skew: 0.01},
		FwdRates:              [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		Harvest: []model.HarvestEntry{
			{Date: day("2024-01-01"), Amount: -10},
			{Date: day("2024-03-01"), Amount: 20},
		},
	}
	msg = HedgeSimulation(userID, resultID, h, 1.1, usd, eur)
	assert.Equal(t, simID.String(), msg.GroupID)
	body, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"skew": 0.01,
		"volatility": 0.2,
		"spot_rate": 1.1,
		"base_currency": {"symbol": "USD", "name": "US Dollar"},
		"foreign_currency": {"symbol": "EUR", "name": "Euro"},
		"fwd_rates": [[1,2,3],[4,5,6],[7,8,9]],
		"harvest": [["2024-01-01", -10], ["2024-03-01", 20]]
	}`, string(body))
}
