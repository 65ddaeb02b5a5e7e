package handler

import (
	"time"

	"github.com/deaglo/apigateway/internal/core"
	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Response shapes. Models carry no json tags; everything leaving the API
// goes through one of these.

type currencyPublic struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	CountryName string `json:"countryName"`
}

func toCurrencyPublic(c *model.TypeCurrency) *currencyPublic {
	if c == nil {
		return nil
	}
	return &currencyPublic{Code: c.Code, Name: c.Name, CountryName: c.CountryName}
}

type currencyListItem struct {
	currencyPublic
	FlagURL string `json:"flagUrl"`
}

func toCurrencyList(items []model.TypeCurrency) []currencyListItem {
	out := make([]currencyListItem, 0, len(items))
	for i := range items {
		out = append(out, currencyListItem{currencyPublic: *toCurrencyPublic(&items[i]), FlagURL: items[i].FlagURL})
	}
	return out
}

type preferencesPublic struct {
	ValueDisplayMode               string `json:"valueDisplayMode"`
	SimulationToolbarStrategyAdded bool   `json:"simulationToolbarStrategyAdded"`
	SimulationToolbarMarginAdded   bool   `json:"simulationToolbarMarginAdded"`
	SimulationToolbarHedgeIRRAdded bool   `json:"simulationToolbarHedgeIrrAdded"`
}

type userPublic struct {
	FirstName   string             `json:"firstName"`
	LastName    string             `json:"lastName"`
	Email       string             `json:"email"`
	PhoneNumber *string            `json:"phoneNumber"`
	City        *string            `json:"city"`
	State       *string            `json:"state"`
	ZipCode     *string            `json:"zipCode"`
	Country     *string            `json:"country"`
	Company     *string            `json:"company"`
	JobTitle    *string            `json:"jobTitle"`
	CompanyType *string            `json:"companyType"`
	IsVerified  bool               `json:"isVerified"`
	SSO         *string            `json:"sso"`
	Preferences *preferencesPublic `json:"preferences"`
}

func toUserPublic(u *model.User) userPublic {
	out := userPublic{
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		City:        u.City,
		State:       u.State,
		ZipCode:     u.ZipCode,
		Country:     u.Country,
		Company:     u.Company,
		JobTitle:    u.JobTitle,
		CompanyType: u.CompanyType,
		IsVerified:  u.IsVerified,
	}
	if u.SSO != nil {
		out.SSO = u.SSO.LinkedinID
	}
	if p := u.Preferences; p != nil {
		out.Preferences = &preferencesPublic{
			ValueDisplayMode:               p.ValueDisplayMode,
			SimulationToolbarStrategyAdded: p.SimulationToolbarStrategyAdded,
			SimulationToolbarMarginAdded:   p.SimulationToolbarMarginAdded,
			SimulationToolbarHedgeIRRAdded: p.SimulationToolbarHedgeIRRAdded,
		}
	}
	return out
}

// adminUserPublic exposes the flags staff manage.
type adminUserPublic struct {
	ID           uuid.UUID  `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	City         *string    `json:"city"`
	Country      *string    `json:"country"`
	UserRole     string     `json:"userRole"`
	Organization *string    `json:"organization"`
	IsActive     bool       `json:"isActive"`
	IsVerified   bool       `json:"isVerified"`
	IsDeleted    bool       `json:"isDeleted"`
	SSO          *string    `json:"sso"`
	LastLogin    *time.Time `json:"lastLogin"`
	DateAdded    time.Time  `json:"dateAdded"`
}

func toAdminUserPublic(u *model.User) adminUserPublic {
	out := adminUserPublic{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		City:       u.City,
		Country:    u.Country,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		IsDeleted:  u.IsDeleted,
		LastLogin:  u.LastLogin,
		DateAdded:  u.DateAdded,
	}
	if u.TypeUserRole != nil {
		out.UserRole = u.TypeUserRole.Name
	}
	if u.Organization != nil {
		name := u.Organization.Name
		out.Organization = &name
	}
	if u.SSO != nil {
		out.SSO = u.SSO.LinkedinID
	}
	return out
}

func toAdminUserList(users []model.User) []adminUserPublic {
	out := make([]adminUserPublic, 0, len(users))
	for i := range users {
		out = append(out, toAdminUserPublic(&users[i]))
	}
	return out
}

type organizationUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

type organizationPublic struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	IsDeleted   bool               `json:"isDeleted"`
	DateAdded   time.Time          `json:"dateAdded"`
	DateUpdated time.Time          `json:"dateUpdated"`
	Users       []organizationUser `json:"users"`
}

func toOrganizationPublic(o *model.Organization) organizationPublic {
	out := organizationPublic{
		ID:          o.ID,
		Name:        o.Name,
		IsDeleted:   o.IsDeleted,
		DateAdded:   o.DateAdded,
		DateUpdated: o.DateUpdated,
		Users:       make([]organizationUser, 0, len(o.Users)),
	}
	for _, u := range o.Users {
		out.Users = append(out.Users, organizationUser{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName})
	}
	return out
}

func toOrganizationList(orgs []model.Organization) []organizationPublic {
	out := make([]organizationPublic, 0, len(orgs))
	for i := range orgs {
		out = append(out, toOrganizationPublic(&orgs[i]))
	}
	return out
}

type analysisPublic struct {
	AnalysisID      uuid.UUID       `json:"analysisId"`
	DateAdded       time.Time       `json:"dateAdded"`
	Name            string          `json:"name"`
	Category        *string         `json:"category"`
	BaseCurrency    *currencyPublic `json:"baseCurrency"`
	ForeignCurrency *currencyPublic `json:"foreignCurrency"`
	Organization    *string         `json:"organization"`
}

func toAnalysisPublic(a *model.Analysis) analysisPublic {
	out := analysisPublic{
		AnalysisID:      a.ID,
		DateAdded:       a.DateAdded,
		Name:            a.Name,
		BaseCurrency:    toCurrencyPublic(a.BaseCurrency),
		ForeignCurrency: toCurrencyPublic(a.ForeignCurrency),
	}
	if a.TypeCategory != nil {
		name := a.TypeCategory.Name
		out.Category = &name
	}
	if a.Organization != nil {
		name := a.Organization.Name
		out.Organization = &name
	}
	return out
}

type analysisListItem struct {
	analysisPublic
	Simulations []service.SimulationSummary `json:"simulations,omitempty"`
}

func toAnalysisList(items []service.AnalysisWithSimulations, withSimulations bool) []analysisListItem {
	out := make([]analysisListItem, 0, len(items))
	for i := range items {
		item := analysisListItem{analysisPublic: toAnalysisPublic(&items[i].Analysis)}
		if withSimulations {
			item.Simulations = items[i].Simulations
			if item.Simulations == nil {
				item.Simulations = []service.SimulationSummary{}
			}
		}
		out = append(out, item)
	}
	return out
}

type workspacePublic struct {
	WorkspaceID  uuid.UUID        `json:"workspaceId"`
	BaseCurrency *currencyPublic  `json:"baseCurrency"`
	Name         string           `json:"name"`
	DateAdded    time.Time        `json:"dateAdded"`
	DateUpdated  time.Time        `json:"dateUpdated"`
	IsDeleted    bool             `json:"isDeleted"`
	Analysis     []analysisPublic `json:"analysis"`
}

func toWorkspacePublic(w *model.Workspace) workspacePublic {
	out := workspacePublic{
		WorkspaceID:  w.ID,
		BaseCurrency: toCurrencyPublic(w.BaseCurrency),
		Name:         w.Name,
		DateAdded:    w.DateAdded,
		DateUpdated:  w.DateUpdated,
		IsDeleted:    w.IsDeleted,
		Analysis:     make([]analysisPublic, 0, len(w.Analyses)),
	}
	for i := range w.Analyses {
		out.Analysis = append(out.Analysis, toAnalysisPublic(&w.Analyses[i]))
	}
	return out
}

func toWorkspaceList(items []model.Workspace) []workspacePublic {
	out := make([]workspacePublic, 0, len(items))
	for i := range items {
		out = append(out, toWorkspacePublic(&items[i]))
	}
	return out
}

type legPublic struct {
	StrategyLegID uuid.UUID       `json:"strategyLegId"`
	IsCall        *bool           `json:"isCall"`
	IsBought      bool            `json:"isBought"`
	Premium       decimal.Decimal `json:"premium"`
	Leverage      float64         `json:"leverage"`
	Strike        *float64        `json:"strike"`
	BarrierType   *string         `json:"barrierType"`
	BarrierLevel  *float64        `json:"barrierLevel"`
}

func toLegPublic(l *model.StrategyLeg) *legPublic {
	if l == nil {
		return nil
	}
	return &legPublic{
		StrategyLegID: l.ID,
		IsCall:        l.IsCall,
		IsBought:      l.IsBought,
		Premium:       l.Premium,
		Leverage:      l.Leverage,
		Strike:        l.Strike,
		BarrierType:   l.BarrierType,
		BarrierLevel:  l.BarrierLevel,
	}
}

type strategyPublic struct {
	StrategyID  uuid.UUID   `json:"strategyId"`
	DateAdded   time.Time   `json:"dateAdded"`
	IsCustom    bool        `json:"isCustom"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Legs        []legPublic `json:"legs"`
}

// toStrategyPublic hides retired legs.
func toStrategyPublic(s *model.Strategy) strategyPublic {
	out := strategyPublic{
		StrategyID:  s.ID,
		DateAdded:   s.DateAdded,
		IsCustom:    s.IsCustom(),
		Name:        s.Name,
		Description: s.Description,
		Legs:        make([]legPublic, 0, len(s.Legs)),
	}
	for i := range s.Legs {
		if s.Legs[i].IsDeleted {
			continue
		}
		out.Legs = append(out.Legs, *toLegPublic(&s.Legs[i]))
	}
	return out
}

func toStrategyList(items []model.Strategy) []strategyPublic {
	out := make([]strategyPublic, 0, len(items))
	for i := range items {
		out = append(out, toStrategyPublic(&items[i]))
	}
	return out
}

type environmentPublic struct {
	DateAdded           time.Time `json:"dateAdded"`
	Name                string    `json:"name"`
	Volatility          float64   `json:"volatility"`
	Skew                float64   `json:"skew"`
	AppreciationPercent float64   `json:"appreciationPercent"`
}

func toEnvironmentPublic(e *model.SimulationEnvironment) *environmentPublic {
	if e == nil {
		return nil
	}
	return &environmentPublic{
		DateAdded:           e.DateAdded,
		Name:                e.Name,
		Volatility:          e.Volatility,
		Skew:                e.Skew,
		AppreciationPercent: e.AppreciationPercent,
	}
}

func statusLabel(st *model.TypeStatus) string {
	if st == nil {
		return ""
	}
	return st.Name
}

type instanceLegPublic struct {
	StrategyLegID     uuid.UUID  `json:"strategyLegId"`
	DateAdded         time.Time  `json:"dateAdded"`
	PremiumOverride   *float64   `json:"premiumOverride"`
	LeverageOverride  *float64   `json:"leverageOverride"`
	StrikeOverride    *float64   `json:"strikeOverride"`
	HiddenStrategyLeg *legPublic `json:"hiddenStrategyLeg,omitempty"`
}

type instanceGroupPublic struct {
	StrategyID  uuid.UUID           `json:"strategyId"`
	IsCustom    bool                `json:"isCustom"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Legs        []instanceLegPublic `json:"legs"`
}

type strategySimulationPublic struct {
	ID                   uuid.UUID             `json:"id"`
	StrategySimulationID uuid.UUID             `json:"strategySimulationId"`
	ResultID             uuid.UUID             `json:"resultId"`
	Name                 string                `json:"name"`
	Type                 string                `json:"type"`
	DateAdded            time.Time             `json:"dateAdded"`
	DateUpdated          time.Time             `json:"dateUpdated"`
	SimulationEnv        *environmentPublic    `json:"simulationEnvironment"`
	Status               string                `json:"status"`
	StartDate            model.Date            `json:"startDate"`
	EndDate              model.Date            `json:"endDate"`
	IsBaseSold           bool                  `json:"isBaseSold"`
	Notional             decimal.Decimal       `json:"notional"`
	SpotRateOverride     *float64              `json:"spotRateOverride"`
	ForwardRateOverride  *float64              `json:"forwardRateOverride"`
	InitialSpotRate      float64               `json:"initialSpotRate"`
	InitialForwardRate   float64               `json:"initialForwardRate"`
	Spread               float64               `json:"spread"`
	StrategyInstance     []instanceGroupPublic `json:"strategyInstance"`
	Pin                  bool                  `json:"pin"`
	SpotHistoryData      []service.SpotRate    `json:"spotHistoryData,omitempty"`
	SimulationStatus     string                `json:"simulationStatus"`
}

// toStrategySimulationPublic renders instances grouped by instance group.
// withLegs controls whether each instance embeds its strategy leg.
func toStrategySimulationPublic(v service.StrategySimulationView, withLegs bool) strategySimulationPublic {
	sim := v.StrategySimulation
	out := strategySimulationPublic{
		ID:                   sim.ID,
		StrategySimulationID: sim.ID,
		ResultID:             sim.ResultID,
		Name:                 sim.Name,
		Type:                 "STRATEGY",
		DateAdded:            sim.DateAdded,
		DateUpdated:          sim.DateUpdated,
		SimulationEnv:        toEnvironmentPublic(sim.SimulationEnvironment),
		Status:               statusLabel(sim.TypeStatus),
		StartDate:            sim.StartDate,
		EndDate:              sim.EndDate,
		IsBaseSold:           sim.IsBaseSold,
		Notional:             sim.Notional,
		SpotRateOverride:     sim.SpotRateOverride,
		ForwardRateOverride:  sim.ForwardRateOverride,
		InitialSpotRate:      sim.InitialSpotRate,
		InitialForwardRate:   sim.InitialForwardRate,
		Spread:               sim.Spread,
		Pin:                  sim.Pin,
		SpotHistoryData:      v.SpotHistory,
		SimulationStatus:     sim.SimulationStatus,
	}
	groups := core.GroupInstances(sim.Instances)
	out.StrategyInstance = make([]instanceGroupPublic, 0, len(groups))
	for _, g := range groups {
		pg := instanceGroupPublic{
			StrategyID:  g.StrategyID,
			IsCustom:    g.IsCustom,
			Name:        g.Name,
			Description: g.Description,
			Legs:        make([]instanceLegPublic, 0, len(g.Instances)),
		}
		for i := range g.Instances {
			inst := &g.Instances[i]
			leg := instanceLegPublic{
				StrategyLegID:    inst.StrategyLegID,
				DateAdded:        inst.DateAdded,
				PremiumOverride:  inst.PremiumOverride,
				LeverageOverride: inst.LeverageOverride,
				StrikeOverride:   inst.StrikeOverride,
			}
			if withLegs {
				leg.HiddenStrategyLeg = toLegPublic(inst.StrategyLeg)
			}
			pg.Legs = append(pg.Legs, leg)
		}
		out.StrategyInstance = append(out.StrategyInstance, pg)
	}
	return out
}

type marginParentPublic struct {
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	DateUpdated time.Time `json:"dateUpdated"`
}

type marginSimulationPublic struct {
	ID                          uuid.UUID           `json:"id"`
	Name                        string              `json:"name"`
	MarginSimulationID          uuid.UUID           `json:"marginSimulationId"`
	ResultID                    uuid.UUID           `json:"resultId"`
	StrategyResultID            *uuid.UUID          `json:"strategyResultId"`
	DateAdded                   time.Time           `json:"dateAdded"`
	DateUpdated                 time.Time           `json:"dateUpdated"`
	Type                        string              `json:"type"`
	StartDate                   *model.Date         `json:"startDate"`
	EndDate                     *model.Date         `json:"endDate"`
	Status                      string              `json:"status"`
	StrategySimulationID        uuid.UUID           `json:"strategySimulationId"`
	StrategySimulation          *marginParentPublic `json:"strategySimulation"`
	IsStrategySimulationDeleted bool                `json:"isStrategySimulationDeleted"`
	MinimumTransferAmount       decimal.Decimal     `json:"minimumTransferAmount"`
	InitialMarginPercentage     float64             `json:"initialMarginPercentage"`
	VariationMarginPercentage   float64             `json:"variationMarginPercentage"`
	Pin                         bool                `json:"pin"`
	SimulationStatus            string              `json:"simulationStatus"`
}

func toMarginSimulationPublic(m *model.MarginSimulation) marginSimulationPublic {
	out := marginSimulationPublic{
		ID:                        m.ID,
		Name:                      m.Name,
		MarginSimulationID:        m.ID,
		ResultID:                  m.ResultID,
		DateAdded:                 m.DateAdded,
		DateUpdated:               m.DateUpdated,
		Type:                      "MARGIN",
		Status:                    statusLabel(m.TypeStatus),
		StrategySimulationID:      m.StrategySimulationID,
		MinimumTransferAmount:     m.MinimumTransferAmount,
		InitialMarginPercentage:   m.InitialMarginPercentage,
		VariationMarginPercentage: m.VariationMarginPercentage,
		Pin:                       m.Pin,
		SimulationStatus:          m.SimulationStatus,
	}
	if parent := m.StrategySimulation; parent != nil {
		resultID := parent.ResultID
		start, end := parent.StartDate, parent.EndDate
		out.StrategyResultID = &resultID
		out.StartDate, out.EndDate = &start, &end
		out.IsStrategySimulationDeleted = parent.IsDeleted
		out.StrategySimulation = &marginParentPublic{
			Name:        parent.Name,
			Status:      statusLabel(parent.TypeStatus),
			DateUpdated: parent.DateUpdated,
		}
	}
	return out
}

func toMarginList(items []model.MarginSimulation) []marginSimulationPublic {
	out := make([]marginSimulationPublic, 0, len(items))
	for i := range items {
		out = append(out, toMarginSimulationPublic(&items[i]))
	}
	return out
}

type hedgeSimulationPublic struct {
	ID                    uuid.UUID            `json:"id"`
	HedgeIRRSimulationID  uuid.UUID            `json:"hedgeIrrSimulationId"`
	ResultID              uuid.UUID            `json:"resultId"`
	Name                  string               `json:"name"`
	Type                  string               `json:"type"`
	DateAdded             time.Time            `json:"dateAdded"`
	DateUpdated           time.Time            `json:"dateUpdated"`
	Status                string               `json:"status"`
	SimulationEnvironment *environmentPublic   `json:"simulationEnvironment"`
	StartDate             model.Date           `json:"startDate"`
	EndDate               model.Date           `json:"endDate"`
	FwdRates              [][]float64          `json:"fwdRates"`
	Harvest               []model.HarvestEntry `json:"harvest"`
	Pin                   bool                 `json:"pin"`
	SimulationStatus      string               `json:"simulationStatus"`
}

func toHedgeSimulationPublic(h *model.HedgeSimulation) hedgeSimulationPublic {
	return hedgeSimulationPublic{
		ID:                    h.ID,
		HedgeIRRSimulationID:  h.ID,
		ResultID:              h.ResultID,
		Name:                  h.Name,
		Type:                  "HEDGE",
		DateAdded:             h.DateAdded,
		DateUpdated:           h.DateUpdated,
		Status:                statusLabel(h.TypeStatus),
		SimulationEnvironment: toEnvironmentPublic(h.SimulationEnvironment),
		StartDate:             h.StartDate,
		EndDate:               h.EndDate,
		FwdRates:              h.FwdRates,
		Harvest:               h.Harvest,
		Pin:                   h.Pin,
		SimulationStatus:      h.SimulationStatus,
	}
}

func toHedgeList(items []model.HedgeSimulation) []hedgeSimulationPublic {
	out := make([]hedgeSimulationPublic, 0, len(items))
	for i := range items {
		out = append(out, toHedgeSimulationPublic(&items[i]))
	}
	return out
}

type pairToolPublic struct {
	ID              uuid.UUID          `json:"id"`
	Name            *string            `json:"name"`
	BaseCurrency    *currencyPublic    `json:"baseCurrency"`
	ForeignCurrency *currencyPublic    `json:"foreignCurrency"`
	DurationMonths  int                `json:"durationMonths"`
	Layered         *bool              `json:"layered,omitempty"`
	IsDefault       bool               `json:"isDefault"`
	DateAdded       time.Time          `json:"dateAdded"`
	SpotHistoryData []service.SpotRate `json:"spotHistoryData,omitempty"`
}

func toFwdEfficiencyPublic(fe *model.FwdEfficiency) pairToolPublic {
	return pairToolPublic{
		ID:              fe.ID,
		Name:            fe.Name,
		BaseCurrency:    toCurrencyPublic(fe.BaseCurrency),
		ForeignCurrency: toCurrencyPublic(fe.ForeignCurrency),
		DurationMonths:  fe.Duration,
		IsDefault:       fe.IsDefault,
		DateAdded:       fe.DateAdded,
	}
}

func toSpotHistoryPublic(sh *model.SpotHistory, rates []service.SpotRate) pairToolPublic {
	layered := sh.Layered
	out := pairToolPublic{
		ID:              sh.ID,
		Name:            sh.Name,
		BaseCurrency:    toCurrencyPublic(sh.BaseCurrency),
		ForeignCurrency: toCurrencyPublic(sh.ForeignCurrency),
		DurationMonths:  sh.Duration,
		Layered:         &layered,
		IsDefault:       sh.IsDefault,
		DateAdded:       sh.DateAdded,
		SpotHistoryData: rates,
	}
	if out.SpotHistoryData == nil {
		out.SpotHistoryData = []service.SpotRate{}
	}
	return out
}

type currencyPairPublic struct {
	BaseCurrency    *currencyPublic    `json:"baseCurrency"`
	ForeignCurrency *currencyPublic    `json:"foreignCurrency"`
	SpotHistoryData []service.SpotRate `json:"spotHistoryData"`
}

type fxMovementPublic struct {
	ID             uuid.UUID            `json:"id"`
	Name           *string              `json:"name"`
	CurrencyPairs  []currencyPairPublic `json:"currencyPairs"`
	DurationMonths int                  `json:"durationMonths"`
	IsDefault      bool                 `json:"isDefault"`
	DateAdded      time.Time            `json:"dateAdded"`
}

// toFxMovementPublic pairs rates[i] with CurrencyPairs[i].
func toFxMovementPublic(fm *model.FxMovement, rates [][]service.SpotRate) fxMovementPublic {
	out := fxMovementPublic{
		ID:             fm.ID,
		Name:           fm.Name,
		DurationMonths: fm.Duration,
		IsDefault:      fm.IsDefault,
		DateAdded:      fm.DateAdded,
		CurrencyPairs:  make([]currencyPairPublic, 0, len(fm.CurrencyPairs)),
	}
	for i := range fm.CurrencyPairs {
		p := &fm.CurrencyPairs[i]
		cp := currencyPairPublic{
			BaseCurrency:    toCurrencyPublic(p.BaseCurrency),
			ForeignCurrency: toCurrencyPublic(p.ForeignCurrency),
			SpotHistoryData: []service.SpotRate{},
		}
		if i < len(rates) && rates[i] != nil {
			cp.SpotHistoryData = rates[i]
		}
		out.CurrencyPairs = append(out.CurrencyPairs, cp)
	}
	return out
}
