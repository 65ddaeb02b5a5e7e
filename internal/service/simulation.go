package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deaglo/apigateway/internal/core"
	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MsgObjectNotFound   = "Object not found"
	MsgAnalysisNotFound = "Analysis not found"
	MsgHarvestShape     = "Harvest data must contain at least 1 deployment and 1 harvest"
	MsgHarvestSpan      = "Harvest data must span at least 30 days"
	MsgUploadFailed     = "Failed to upload harvest data"

	minHarvestSpan     = 30 * 24 * time.Hour
	spotHistoryMonths  = 12
	harvestContentType = "text/csv"
)

// Enqueuer hands simulation jobs to the core service.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg core.Message) error
}

type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

type SpotQuoter interface {
	SpotRate(ctx context.Context, base, foreign string) float64
}

type EnvironmentRequest struct {
	Name                *string  `json:"name" binding:"omitempty,max=50"`
	Volatility          *float64 `json:"volatility" binding:"required,min=0,max=1"`
	Skew                *float64 `json:"skew" binding:"required,min=-0.1,max=0.1"`
	AppreciationPercent *float64 `json:"appreciationPercent" binding:"required,min=-1,max=1"`
}

type InstanceLegRequest struct {
	StrategyLegID    *uuid.UUID `json:"strategyLegId" binding:"required"`
	PremiumOverride  *float64   `json:"premiumOverride" binding:"omitempty,min=0"`
	LeverageOverride *float64   `json:"leverageOverride" binding:"omitempty,min=0,max=1"`
	StrikeOverride   *float64   `json:"strikeOverride" binding:"omitempty,min=-100,max=100"`
}

type StrategyInstanceRequest struct {
	StrategyID *uuid.UUID           `json:"strategyId" binding:"required"`
	Legs       []InstanceLegRequest `json:"legs" binding:"dive"`
}

type StrategySimulationRequest struct {
	Name                  string                    `json:"name" binding:"required,max=100"`
	SimulationEnvironment *EnvironmentRequest       `json:"simulationEnvironment" binding:"required"`
	Status                *string                   `json:"status"`
	StartDate             *model.Date               `json:"startDate" binding:"required"`
	EndDate               *model.Date               `json:"endDate" binding:"required"`
	IsBaseSold            *bool                     `json:"isBaseSold"`
	Notional              *decimal.Decimal          `json:"notional" binding:"required"`
	SpotRateOverride      *float64                  `json:"spotRateOverride"`
	ForwardRateOverride   *float64                  `json:"forwardRateOverride"`
	InitialSpotRate       *float64                  `json:"initialSpotRate" binding:"required"`
	InitialForwardRate    *float64                  `json:"initialForwardRate" binding:"required"`
	Spread                *float64                  `json:"spread" binding:"omitempty,min=0,max=1"`
	Pin                   *bool                     `json:"pin"`
	StrategyInstance      []StrategyInstanceRequest `json:"strategyInstance" binding:"dive"`
}

type MarginSimulationRequest struct {
	Name                      string           `json:"name" binding:"required,max=100"`
	StrategySimulationID      *uuid.UUID       `json:"strategySimulationId" binding:"required"`
	Status                    *string          `json:"status"`
	MinimumTransferAmount     *decimal.Decimal `json:"minimumTransferAmount" binding:"required"`
	InitialMarginPercentage   *float64         `json:"initialMarginPercentage" binding:"required,min=0.001,max=1"`
	VariationMarginPercentage *float64         `json:"variationMarginPercentage" binding:"required,min=0.001,max=1"`
	Pin                       *bool            `json:"pin"`
}

// HedgeSimulationRequest serves create, full and partial updates. Start and
// end dates are derived from the harvest series.
type HedgeSimulationRequest struct {
	Name                  *string              `json:"name" binding:"omitempty,max=255"`
	SimulationEnvironment *EnvironmentRequest  `json:"simulationEnvironment"`
	Harvest               []model.HarvestEntry `json:"harvest"`
	FwdRates              [][]float64          `json:"fwdRates" binding:"omitempty,len=3,dive,len=3,dive,min=-10000,max=10000"`
	Pin                   *bool                `json:"pin"`
}

// StrategySimulationView is a strategy simulation with the spot history that
// led up to its start date, when that date is not in the future.
type StrategySimulationView struct {
	*model.StrategySimulation
	SpotHistory []SpotRate
}

// SimulationService creates and updates simulations and queues them for the
// core service. Every write runs in one transaction with its enqueue, so a
// job that cannot be queued leaves nothing behind.
type SimulationService struct {
	store   *repository.Store
	queue   Enqueuer
	storage ObjectStore
	spot    SpotQuoter
	history *SpotHistoryService
	now     func() time.Time
}

func NewSimulationService(store *repository.Store, queue Enqueuer, storage ObjectStore, spot SpotQuoter, history *SpotHistoryService) *SimulationService {
	return &SimulationService{
		store:   store,
		queue:   queue,
		storage: storage,
		spot:    spot,
		history: history,
		now:     time.Now,
	}
}

func (s *SimulationService) analysis(ctx context.Context, user *model.User, id uuid.UUID, msg string) (*model.Analysis, error) {
	a, err := s.store.AnalysisForUser(ctx, user.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Generic(msg, nil, http.StatusNotFound)
	}
	return a, err
}

func (s *SimulationService) statusID(ctx context.Context, store *repository.Store, name *string, current uuid.UUID) (uuid.UUID, error) {
	if name == nil || *name == "" {
		if current == uuid.Nil {
			return model.StatusInProgressID, nil
		}
		return current, nil
	}
	st, err := store.StatusByName(ctx, *name)
	if errors.Is(err, repository.ErrNotFound) {
		return uuid.Nil, apperrors.NewFieldError("status", "Object with name="+*name+" does not exist.")
	}
	if err != nil {
		return uuid.Nil, err
	}
	return st.ID, nil
}

func applyEnvironment(env *model.SimulationEnvironment, req *EnvironmentRequest) {
	if req == nil {
		return
	}
	setString(&env.Name, req.Name)
	if req.Volatility != nil {
		env.Volatility = *req.Volatility
	}
	if req.Skew != nil {
		env.Skew = *req.Skew
	}
	if req.AppreciationPercent != nil {
		env.AppreciationPercent = *req.AppreciationPercent
	}
}

func (s *SimulationService) ListStrategy(ctx context.Context, user *model.User, analysisID uuid.UUID) ([]StrategySimulationView, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgObjectNotFound)
	if err != nil {
		return nil, err
	}
	sims, err := s.store.ListStrategySimulations(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	out := make([]StrategySimulationView, 0, len(sims))
	for i := range sims {
		v, err := s.strategyView(ctx, a, &sims[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *SimulationService) GetStrategy(ctx context.Context, user *model.User, analysisID, id uuid.UUID) (StrategySimulationView, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgAnalysisNotFound)
	if err != nil {
		return StrategySimulationView{}, err
	}
	sim, err := s.store.StrategySimulation(ctx, a.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return StrategySimulationView{}, apperrors.NewNotFound("")
	}
	if err != nil {
		return StrategySimulationView{}, err
	}
	return s.strategyView(ctx, a, sim)
}

func (s *SimulationService) strategyView(ctx context.Context, a *model.Analysis, sim *model.StrategySimulation) (StrategySimulationView, error) {
	v := StrategySimulationView{StrategySimulation: sim}
	if sim.StartDate.IsZero() || sim.StartDate.After(s.now()) {
		return v, nil
	}
	if a.BaseCurrency == nil || a.ForeignCurrency == nil {
		return v, nil
	}
	from := model.NewDate(sim.StartDate.AddDate(0, -spotHistoryMonths, 0))
	rates, err := s.history.PairRates(ctx, a.BaseCurrency.Code, a.ForeignCurrency.Code, from, sim.StartDate, sim.IsBaseSold)
	if err != nil {
		return v, err
	}
	v.SpotHistory = rates
	return v, nil
}

func (s *SimulationService) CreateStrategy(ctx context.Context, user *model.User, analysisID uuid.UUID, req StrategySimulationRequest) (StrategySimulationView, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgObjectNotFound)
	if err != nil {
		return StrategySimulationView{}, err
	}
	if err := req.validate(); err != nil {
		return StrategySimulationView{}, err
	}

	var created *model.StrategySimulation
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		env := &model.SimulationEnvironment{}
		applyEnvironment(env, req.SimulationEnvironment)
		if err := tx.CreateEnvironment(ctx, env); err != nil {
			return err
		}
		sim := &model.StrategySimulation{AnalysisID: a.ID, SimulationEnvironmentID: env.ID}
		if err := s.applyStrategy(ctx, tx, sim, req); err != nil {
			return err
		}
		if err := tx.CreateStrategySimulation(ctx, sim); err != nil {
			return err
		}
		instances, err := s.buildInstances(ctx, tx, user, sim.ID, req.StrategyInstance)
		if err != nil {
			return err
		}
		if err := tx.CreateStrategyInstances(ctx, instances); err != nil {
			return err
		}
		created, err = tx.StrategySimulation(ctx, a.ID, sim.ID)
		if err != nil {
			return err
		}
		return s.queue.Enqueue(ctx, core.StrategySimulation(user.ID, created.ResultID, created, a.BaseCurrency, a.ForeignCurrency))
	})
	if err != nil {
		return StrategySimulationView{}, err
	}
	return s.strategyView(ctx, a, created)
}

// UpdateStrategy replaces the simulation inputs and its instances, then
// queues the simulation again under a fresh result id.
func (s *SimulationService) UpdateStrategy(ctx context.Context, user *model.User, analysisID, id uuid.UUID, req StrategySimulationRequest) (StrategySimulationView, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgAnalysisNotFound)
	if err != nil {
		return StrategySimulationView{}, err
	}
	sim, err := s.store.StrategySimulation(ctx, a.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return StrategySimulationView{}, apperrors.Generic(MsgObjectNotFound, nil, http.StatusNotFound)
	}
	if err != nil {
		return StrategySimulationView{}, err
	}
	if err := req.validate(); err != nil {
		return StrategySimulationView{}, err
	}

	var updated *model.StrategySimulation
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		instances, err := s.buildInstances(ctx, tx, user, sim.ID, req.StrategyInstance)
		if err != nil {
			return err
		}
		if env := sim.SimulationEnvironment; env != nil && req.SimulationEnvironment != nil {
			applyEnvironment(env, req.SimulationEnvironment)
			if err := tx.SaveEnvironment(ctx, env); err != nil {
				return err
			}
		}
		if err := s.applyStrategy(ctx, tx, sim, req); err != nil {
			return err
		}
		if err := tx.SaveStrategySimulation(ctx, sim); err != nil {
			return err
		}
		if err := tx.RetireStrategyInstances(ctx, sim.ID); err != nil {
			return err
		}
		if err := tx.CreateStrategyInstances(ctx, instances); err != nil {
			return err
		}
		updated, err = tx.StrategySimulation(ctx, a.ID, sim.ID)
		if err != nil {
			return err
		}
		return s.queue.Enqueue(ctx, core.StrategySimulation(user.ID, updated.ResultID, updated, a.BaseCurrency, a.ForeignCurrency))
	})
	if err != nil {
		return StrategySimulationView{}, err
	}
	return s.strategyView(ctx, a, updated)
}

func (s *SimulationService) DeleteStrategy(ctx context.Context, user *model.User, analysisID, id uuid.UUID) error {
	a, err := s.analysis(ctx, user, analysisID, MsgAnalysisNotFound)
	if err != nil {
		return err
	}
	err = s.store.SoftDeleteStrategySimulation(ctx, a.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("")
	}
	return err
}

// validate reports missing fields first, then values out of range.
func (r StrategySimulationRequest) validate() error {
	if missing := r.missing(); len(missing) > 0 {
		return apperrors.NewFieldErrors(missing)
	}
	if err := validateInput(r); err != nil {
		return err
	}
	return nonNegative("notional", r.Notional)
}

func (r StrategySimulationRequest) missing() map[string]string {
	m := map[string]string{}
	if r.SimulationEnvironment == nil {
		m["simulationEnvironment"] = msgFieldRequired
	}
	if r.StartDate == nil {
		m["startDate"] = msgFieldRequired
	}
	if r.EndDate == nil {
		m["endDate"] = msgFieldRequired
	}
	if r.Notional == nil {
		m["notional"] = msgFieldRequired
	}
	if r.InitialSpotRate == nil {
		m["initialSpotRate"] = msgFieldRequired
	}
	if r.InitialForwardRate == nil {
		m["initialForwardRate"] = msgFieldRequired
	}
	return m
}

func (s *SimulationService) applyStrategy(ctx context.Context, tx *repository.Store, sim *model.StrategySimulation, req StrategySimulationRequest) error {
	if missing := req.missing(); len(missing) > 0 {
		return apperrors.NewFieldErrors(missing)
	}
	statusID, err := s.statusID(ctx, tx, req.Status, sim.TypeStatusID)
	if err != nil {
		return err
	}
	if req.EndDate.Before(req.StartDate.Time) {
		return apperrors.NewFieldError("endDate", "End date must not be before the start date.")
	}
	sim.Name = strings.TrimSpace(req.Name)
	sim.TypeStatusID = statusID
	sim.StartDate = *req.StartDate
	sim.EndDate = *req.EndDate
	sim.Notional = req.Notional.Round(2)
	sim.SpotRateOverride = req.SpotRateOverride
	sim.ForwardRateOverride = req.ForwardRateOverride
	sim.InitialSpotRate = *req.InitialSpotRate
	sim.InitialForwardRate = *req.InitialForwardRate
	setBool(&sim.IsBaseSold, req.IsBaseSold)
	setBool(&sim.Pin, req.Pin)
	if req.Spread != nil {
		sim.Spread = *req.Spread
	}
	sim.SimulationStatus = model.SimulationEnqueued
	sim.Analysis, sim.SimulationEnvironment, sim.TypeStatus, sim.Instances = nil, nil, nil, nil
	return nil
}

// buildInstances resolves every requested leg before anything is written.
// Instance groups number the requested strategies from 1.
func (s *SimulationService) buildInstances(ctx context.Context, tx *repository.Store, user *model.User, simID uuid.UUID, reqs []StrategyInstanceRequest) ([]model.StrategyInstance, error) {
	var out []model.StrategyInstance
	for i, r := range reqs {
		if r.StrategyID == nil {
			return nil, apperrors.NewFieldError("strategyId", msgFieldRequired)
		}
		st, err := tx.VisibleStrategy(ctx, user.ID, *r.StrategyID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Generic(MsgObjectNotFound, nil, http.StatusNotFound)
		}
		if err != nil {
			return nil, err
		}
		for _, legReq := range r.Legs {
			if legReq.StrategyLegID == nil {
				return nil, apperrors.NewFieldError("strategyLegId", msgFieldRequired)
			}
			leg, err := tx.StrategyLeg(ctx, st.ID, *legReq.StrategyLegID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.Generic(MsgObjectNotFound, nil, http.StatusNotFound)
			}
			if err != nil {
				return nil, err
			}
			out = append(out, model.StrategyInstance{
				StrategySimulationID: simID,
				StrategyLegID:        leg.ID,
				PremiumOverride:      legReq.PremiumOverride,
				LeverageOverride:     legReq.LeverageOverride,
				StrikeOverride:       legReq.StrikeOverride,
				InstanceGroup:        i + 1,
			})
		}
	}
	return out, nil
}

func (s *SimulationService) ListMargin(ctx context.Context, user *model.User, analysisID uuid.UUID) ([]model.MarginSimulation, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgObjectNotFound)
	if err != nil {
		return nil, err
	}
	return s.store.ListMarginSimulations(ctx, a.ID)
}

func (s *SimulationService) GetMargin(ctx context.Context, user *model.User, analysisID, id uuid.UUID) (*model.MarginSimulation, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgObjectNotFound)
	if err != nil {
		return nil, err
	}
	m, err := s.store.MarginSimulation(ctx, a.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	return m, err
}

func (s *SimulationService) CreateMargin(ctx context.Context, user *model.User, analysisID uuid.UUID, req MarginSimulationRequest) (*model.MarginSimulation, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgAnalysisNotFound)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	var created *model.MarginSimulation
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		strategy, err := tx.StrategySimulation(ctx, a.ID, *req.StrategySimulationID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.Generic(MsgAnalysisNotFound, nil, http.StatusNotFound)
		}
		if err != nil {
			return err
		}
		m := &model.MarginSimulation{AnalysisID: a.ID}
		if err := s.applyMargin(ctx, tx, m, req); err != nil {
			return err
		}
		if err := tx.CreateMarginSimulation(ctx, m); err != nil {
			return err
		}
		created, err = tx.MarginSimulation(ctx, a.ID, m.ID)
		if err != nil {
			return err
		}
		return s.queue.Enqueue(ctx, core.MarginSimulation(user.ID, created.ResultID, created, strategy.ResultID))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *SimulationService) UpdateMargin(ctx context.Context, user *model.User, analysisID, id uuid.UUID, req MarginSimulationRequest) (*model.MarginSimulation, error) {
	m, err := s.GetMargin(ctx, user, analysisID, id)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	var updated *model.MarginSimulation
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		strategy, err := tx.StrategySimulation(ctx, m.AnalysisID, *req.StrategySimulationID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.Generic(MsgObjectNotFound, nil, http.StatusNotFound)
		}
		if err != nil {
			return err
		}
		if err := s.applyMargin(ctx, tx, m, req); err != nil {
			return err
		}
		if err := tx.SaveMarginSimulation(ctx, m); err != nil {
			return err
		}
		updated, err = tx.MarginSimulation(ctx, m.AnalysisID, m.ID)
		if err != nil {
			return err
		}
		return s.queue.Enqueue(ctx, core.MarginSimulation(user.ID, updated.ResultID, updated, strategy.ResultID))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SimulationService) DeleteMargin(ctx context.Context, user *model.User, analysisID, id uuid.UUID) error {
	a, err := s.analysis(ctx, user, analysisID, MsgObjectNotFound)
	if err != nil {
		return err
	}
	err = s.store.SoftDeleteMarginSimulation(ctx, a.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("")
	}
	return err
}

func (r MarginSimulationRequest) validate() error {
	if missing := r.missing(); len(missing) > 0 {
		return apperrors.NewFieldErrors(missing)
	}
	if err := validateInput(r); err != nil {
		return err
	}
	return nonNegative("minimumTransferAmount", r.MinimumTransferAmount)
}

func (r MarginSimulationRequest) missing() map[string]string {
	m := map[string]string{}
	if r.StrategySimulationID == nil {
		m["strategySimulationId"] = msgFieldRequired
	}
	if r.MinimumTransferAmount == nil {
		m["minimumTransferAmount"] = msgFieldRequired
	}
	if r.InitialMarginPercentage == nil {
		m["initialMarginPercentage"] = msgFieldRequired
	}
	if r.VariationMarginPercentage == nil {
		m["variationMarginPercentage"] = msgFieldRequired
	}
	return m
}

func (s *SimulationService) applyMargin(ctx context.Context, tx *repository.Store, m *model.MarginSimulation, req MarginSimulationRequest) error {
	statusID, err := s.statusID(ctx, tx, req.Status, m.TypeStatusID)
	if err != nil {
		return err
	}
	m.Name = strings.TrimSpace(req.Name)
	m.StrategySimulationID = *req.StrategySimulationID
	m.TypeStatusID = statusID
	m.MinimumTransferAmount = req.MinimumTransferAmount.Round(2)
	m.InitialMarginPercentage = *req.InitialMarginPercentage
	m.VariationMarginPercentage = *req.VariationMarginPercentage
	setBool(&m.Pin, req.Pin)
	m.SimulationStatus = model.SimulationEnqueued
	m.StrategySimulation, m.TypeStatus = nil, nil
	return nil
}

// ValidateHarvest checks that the series both deploys and harvests capital
// and covers at least thirty days.
func ValidateHarvest(entries []model.HarvestEntry) error {
	var deploys, harvests bool
	for _, e := range entries {
		deploys = deploys || e.Amount < 0
		harvests = harvests || e.Amount > 0
	}
	if len(entries) < 2 || !deploys || !harvests {
		return apperrors.NewInvalidRequest(MsgHarvestShape)
	}
	if model.HarvestSpan(entries) < minHarvestSpan {
		return apperrors.NewInvalidRequest(MsgHarvestSpan)
	}
	return nil
}

func harvestCSV(entries []model.HarvestEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "amount"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Date.String(), strconv.FormatFloat(e.Amount, 'f', -1, 64)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (s *SimulationService) ListHedge(ctx context.Context, user *model.User, analysisID uuid.UUID) ([]model.HedgeSimulation, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgAnalysisNotFound)
	if err != nil {
		return nil, err
	}
	return s.store.ListHedgeSimulations(ctx, a.ID)
}

func (s *SimulationService) GetHedge(ctx context.Context, user *model.User, analysisID, id uuid.UUID) (*model.HedgeSimulation, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgAnalysisNotFound)
	if err != nil {
		return nil, err
	}
	h, err := s.store.HedgeSimulation(ctx, a.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Generic(MsgAnalysisNotFound, nil, http.StatusNotFound)
	}
	return h, err
}

func (s *SimulationService) CreateHedge(ctx context.Context, user *model.User, analysisID uuid.UUID, req HedgeSimulationRequest) (*model.HedgeSimulation, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgAnalysisNotFound)
	if err != nil {
		return nil, err
	}
	missing := map[string]string{}
	if req.Name == nil {
		missing["name"] = msgFieldRequired
	}
	if req.SimulationEnvironment == nil {
		missing["simulationEnvironment"] = msgFieldRequired
	}
	if len(missing) > 0 {
		return nil, apperrors.NewFieldErrors(missing)
	}
	if err := validateInput(req); err != nil {
		return nil, err
	}
	if err := ValidateHarvest(req.Harvest); err != nil {
		return nil, err
	}

	h := &model.HedgeSimulation{AnalysisID: a.ID}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		env := &model.SimulationEnvironment{}
		applyEnvironment(env, req.SimulationEnvironment)
		if err := tx.CreateEnvironment(ctx, env); err != nil {
			return err
		}
		h.SimulationEnvironmentID = env.ID
		applyHedge(h, req)
		if err := tx.CreateHedgeSimulation(ctx, h); err != nil {
			return err
		}
		return s.submitHedge(ctx, tx, user, a, h.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.store.HedgeSimulation(ctx, a.ID, h.ID)
}

// UpdateHedge applies a full (PUT) or partial (PATCH) update. The simulation
// is queued again only when an input of the computation changed.
func (s *SimulationService) UpdateHedge(ctx context.Context, user *model.User, analysisID, id uuid.UUID, req HedgeSimulationRequest, partial bool) (*model.HedgeSimulation, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgAnalysisNotFound)
	if err != nil {
		return nil, err
	}
	h, err := s.store.HedgeSimulation(ctx, a.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Generic(MsgAnalysisNotFound, nil, http.StatusNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := validateInput(req); err != nil {
		return nil, err
	}
	if !partial || req.Harvest != nil {
		if err := ValidateHarvest(req.Harvest); err != nil {
			return nil, err
		}
	}
	rerun := !partial || req.Harvest != nil || req.SimulationEnvironment != nil || req.FwdRates != nil

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if env := h.SimulationEnvironment; env != nil && req.SimulationEnvironment != nil {
			applyEnvironment(env, req.SimulationEnvironment)
			if err := tx.SaveEnvironment(ctx, env); err != nil {
				return err
			}
		}
		applyHedge(h, req)
		if !rerun {
			// a rename or pin must not discard the current result
			return tx.UpdateHedgeLabels(ctx, h)
		}
		h.SimulationStatus = model.SimulationEnqueued
		if err := tx.SaveHedgeSimulation(ctx, h); err != nil {
			return err
		}
		return s.submitHedge(ctx, tx, user, a, h.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.store.HedgeSimulation(ctx, a.ID, h.ID)
}

func (s *SimulationService) DeleteHedge(ctx context.Context, user *model.User, analysisID, id uuid.UUID) error {
	a, err := s.analysis(ctx, user, analysisID, MsgAnalysisNotFound)
	if err != nil {
		return err
	}
	err = s.store.SoftDeleteHedgeSimulation(ctx, a.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.Generic(MsgAnalysisNotFound, nil, http.StatusNotFound)
	}
	return err
}

func applyHedge(h *model.HedgeSimulation, req HedgeSimulationRequest) {
	if req.Name != nil {
		h.Name = strings.TrimSpace(*req.Name)
	}
	if req.Harvest != nil {
		h.Harvest = req.Harvest
		h.ApplyHarvestDates()
	}
	if req.FwdRates != nil {
		h.FwdRates = req.FwdRates
	}
	setBool(&h.Pin, req.Pin)
	h.Analysis, h.SimulationEnvironment, h.TypeStatus = nil, nil, nil
}

// submitHedge uploads the harvest input next to the user's other files and
// queues the job. The stored row is reloaded so the job carries the result id
// written by the save.
func (s *SimulationService) submitHedge(ctx context.Context, tx *repository.Store, user *model.User, a *model.Analysis, id uuid.UUID) error {
	h, err := tx.HedgeSimulation(ctx, a.ID, id)
	if err != nil {
		return err
	}
	data, err := harvestCSV(h.Harvest)
	if err != nil {
		return err
	}
	if err := s.storage.Upload(ctx, h.FilePath(user.ID), data, harvestContentType); err != nil {
		logger.LogError(ctx, err, "harvest upload failed", "simulation_id", h.ID)
		appErr := apperrors.Generic(MsgUploadFailed, nil, http.StatusInternalServerError)
		appErr.Cause = err
		return appErr
	}
	var base, foreign string
	if a.BaseCurrency != nil && a.ForeignCurrency != nil {
		base, foreign = a.BaseCurrency.Code, a.ForeignCurrency.Code
	}
	spot := s.spot.SpotRate(ctx, base, foreign)
	return s.queue.Enqueue(ctx, core.HedgeSimulation(user.ID, h.ResultID, h, spot, a.BaseCurrency, a.ForeignCurrency))
}

// CoreMessage rebuilds the job that was queued for a stored simulation, with
// its current result id. Nothing is written or queued.
func (s *SimulationService) CoreMessage(ctx context.Context, user *model.User, kind repository.SimulationKind, analysisID, id uuid.UUID) (core.Message, error) {
	a, err := s.analysis(ctx, user, analysisID, MsgAnalysisNotFound)
	if err != nil {
		return core.Message{}, err
	}
	notFound := func(err error) error {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound(MsgSimulationNotFound)
		}
		return err
	}
	switch kind {
	case repository.KindStrategy:
		sim, err := s.store.StrategySimulation(ctx, a.ID, id)
		if err != nil {
			return core.Message{}, notFound(err)
		}
		return core.StrategySimulation(user.ID, sim.ResultID, sim, a.BaseCurrency, a.ForeignCurrency), nil
	case repository.KindMargin:
		m, err := s.store.MarginSimulation(ctx, a.ID, id)
		if err != nil {
			return core.Message{}, notFound(err)
		}
		strategy, err := s.store.StrategySimulationAny(ctx, m.StrategySimulationID)
		if err != nil {
			return core.Message{}, notFound(err)
		}
		return core.MarginSimulation(user.ID, m.ResultID, m, strategy.ResultID), nil
	case repository.KindHedge:
		h, err := s.store.HedgeSimulation(ctx, a.ID, id)
		if err != nil {
			return core.Message{}, notFound(err)
		}
		var base, foreign string
		if a.BaseCurrency != nil && a.ForeignCurrency != nil {
			base, foreign = a.BaseCurrency.Code, a.ForeignCurrency.Code
		}
		spot := s.spot.SpotRate(ctx, base, foreign)
		return core.HedgeSimulation(user.ID, h.ResultID, h, spot, a.BaseCurrency, a.ForeignCurrency), nil
	}
	return core.Message{}, apperrors.NewNotFound(MsgSimulationNotFound)
}
