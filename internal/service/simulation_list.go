package service

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/google/uuid"
)

// Display names of the simulation kinds, as used by the type filter.
const (
	SimTypeStrategy = "Strategy Simulation"
	SimTypeMargin   = "Margin Simulation"
	SimTypeHedge    = "Hedge IRR"

	MsgSimulationNotFound = "Simulation not found"

	simulationPageSize    = 3
	simulationMaxPageSize = 100
)

// SimulationSummary is the kind-agnostic view of a simulation.
type SimulationSummary struct {
	ID               uuid.UUID                 `json:"id"`
	Kind             repository.SimulationKind `json:"-"`
	Type             string                    `json:"type"` // STRATEGY, MARGIN or HEDGE, as accepted by TogglePin
	DateAdded        time.Time                 `json:"-"`
	DateUpdated      time.Time                 `json:"dateUpdated"`
	Name             string                    `json:"name"`
	Status           string                    `json:"-"`
	SimulationStatus string                    `json:"simulationStatus"`
	Pin              bool                      `json:"pin"`
	ResultID         uuid.UUID                 `json:"resultId"`
}

// SimulationQuery holds the parsed list parameters.
type SimulationQuery struct {
	Types    []string
	Statuses []string
	OrderBy  string
	Page     int
	PageSize int
}

func ParseSimulationQuery(values url.Values) SimulationQuery {
	q := SimulationQuery{
		OrderBy:  strings.TrimSpace(values.Get("order_by")),
		Page:     1,
		PageSize: simulationPageSize,
	}
	if v := values.Get("orderBy"); q.OrderBy == "" && v != "" {
		q.OrderBy = strings.TrimSpace(v)
	}
	if q.OrderBy == "" {
		q.OrderBy = "date_added"
	}
	if v, ok := values["type"]; ok && len(v) > 0 {
		q.Types = splitList(v[0])
		if q.Types == nil {
			q.Types = []string{}
		}
	}
	if v := values.Get("status"); v != "" {
		q.Statuses = splitList(v)
	}
	if n, err := strconv.Atoi(values.Get("page")); err == nil && n > 0 {
		q.Page = n
	}
	size := values.Get("page_size")
	if size == "" {
		size = values.Get("pageSize")
	}
	if n, err := strconv.Atoi(size); err == nil && n > 0 {
		q.PageSize = min(n, simulationMaxPageSize)
	}
	return q
}

// SimulationListService merges the three simulation kinds of an analysis
// into one sortable, pageable list.
type SimulationListService struct {
	store *repository.Store
}

func NewSimulationListService(store *repository.Store) *SimulationListService {
	return &SimulationListService{store: store}
}

// List returns one page of the caller's analysis simulations and the total
// number of matches. Pinned entries lead their page.
func (s *SimulationListService) List(ctx context.Context, user *model.User, analysisID uuid.UUID, q SimulationQuery) ([]SimulationSummary, int, error) {
	if _, err := s.store.AnalysisForUser(ctx, user.ID, analysisID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, apperrors.NewNotFound("")
		}
		return nil, 0, err
	}
	all, err := s.load(ctx, analysisID, q.Types)
	if err != nil {
		return nil, 0, err
	}
	if len(q.Statuses) > 0 {
		wanted := map[string]bool{}
		for _, st := range q.Statuses {
			wanted[st] = true
		}
		filtered := all[:0]
		for _, sum := range all {
			if wanted[sum.Status] {
				filtered = append(filtered, sum)
			}
		}
		all = filtered
	}
	sortSummaries(all, q.OrderBy)

	total := len(all)
	if q.PageSize <= 0 {
		q.PageSize = simulationPageSize
	}
	start := (max(q.Page, 1) - 1) * q.PageSize
	if start >= total {
		if total > 0 && q.Page > 1 {
			return nil, total, apperrors.NewNotFound("Invalid page.")
		}
		return []SimulationSummary{}, total, nil
	}
	page := append([]SimulationSummary(nil), all[start:min(start+q.PageSize, total)]...)
	sort.SliceStable(page, func(i, j int) bool {
		return page[i].Pin && !page[j].Pin
	})
	return page, total, nil
}

// sortSummaries orders by name ascending (case-insensitive) or by any date
// key descending. Unknown keys fall back to date_added.
func sortSummaries(items []SimulationSummary, orderBy string) {
	key := strings.TrimPrefix(orderBy, "-")
	if strings.EqualFold(key, "name") {
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		})
		return
	}
	pick := func(s SimulationSummary) time.Time { return s.DateAdded }
	if key == "date_updated" || key == "dateUpdated" {
		pick = func(s SimulationSummary) time.Time { return s.DateUpdated }
	}
	sort.SliceStable(items, func(i, j int) bool {
		return pick(items[i]).After(pick(items[j]))
	})
}

// load collects live simulations of the requested kinds. A nil types slice
// means every kind.
func (s *SimulationListService) load(ctx context.Context, analysisID uuid.UUID, types []string) ([]SimulationSummary, error) {
	include := func(name string) bool {
		if types == nil {
			return true
		}
		for _, t := range types {
			if t == name {
				return true
			}
		}
		return false
	}

	var out []SimulationSummary
	if include(SimTypeStrategy) {
		sims, err := s.store.ListStrategySimulations(ctx, analysisID)
		if err != nil {
			return nil, err
		}
		for _, sim := range sims {
			out = append(out, SimulationSummary{
				ID: sim.ID, Kind: repository.KindStrategy, Type: string(repository.KindStrategy),
				DateAdded: sim.DateAdded, DateUpdated: sim.DateUpdated,
				Name: sim.Name, Status: statusName(sim.TypeStatus),
				SimulationStatus: sim.SimulationStatus, Pin: sim.Pin, ResultID: sim.ResultID,
			})
		}
	}
	if include(SimTypeMargin) {
		sims, err := s.store.ListMarginSimulations(ctx, analysisID)
		if err != nil {
			return nil, err
		}
		for _, sim := range sims {
			out = append(out, SimulationSummary{
				ID: sim.ID, Kind: repository.KindMargin, Type: string(repository.KindMargin),
				DateAdded: sim.DateAdded, DateUpdated: sim.DateUpdated,
				Name: sim.Name, Status: statusName(sim.TypeStatus),
				SimulationStatus: sim.SimulationStatus, Pin: sim.Pin, ResultID: sim.ResultID,
			})
		}
	}
	if include(SimTypeHedge) {
		sims, err := s.store.ListHedgeSimulations(ctx, analysisID)
		if err != nil {
			return nil, err
		}
		for _, sim := range sims {
			out = append(out, SimulationSummary{
				ID: sim.ID, Kind: repository.KindHedge, Type: string(repository.KindHedge),
				DateAdded: sim.DateAdded, DateUpdated: sim.DateUpdated,
				Name: sim.Name, Status: statusName(sim.TypeStatus),
				SimulationStatus: sim.SimulationStatus, Pin: sim.Pin, ResultID: sim.ResultID,
			})
		}
	}
	return out, nil
}

func statusName(st *model.TypeStatus) string {
	if st == nil {
		return ""
	}
	return st.Name
}

// TogglePin flips the pin of a STRATEGY, MARGIN or HEDGE simulation owned by
// the caller. The result id is kept.
func (s *SimulationListService) TogglePin(ctx context.Context, user *model.User, kind string, id uuid.UUID) error {
	k := repository.SimulationKind(strings.ToUpper(kind))
	switch k {
	case repository.KindStrategy, repository.KindMargin, repository.KindHedge:
	default:
		return apperrors.NewNotFound(MsgSimulationNotFound)
	}
	analysisID, err := s.store.SimulationAnalysisID(ctx, k, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(MsgSimulationNotFound)
	}
	if err != nil {
		return err
	}
	if _, err := s.store.AnalysisForUser(ctx, user.ID, analysisID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound(MsgSimulationNotFound)
		}
		return err
	}
	err = s.store.TogglePin(ctx, k, analysisID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(MsgSimulationNotFound)
	}
	return err
}

// Snapshot returns every live simulation of the caller's analysis, unpaged.
func (s *SimulationListService) Snapshot(ctx context.Context, user *model.User, analysisID uuid.UUID) ([]SimulationSummary, error) {
	if _, err := s.store.AnalysisForUser(ctx, user.ID, analysisID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("")
		}
		return nil, err
	}
	return s.load(ctx, analysisID, nil)
}
