package repository

import (
	"context"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const strategyImageBase = "https://strategies-images.s3.us-east-2.amazonaws.com/"

var seedStatuses = []model.TypeStatus{
	{ID: model.StatusReadyForExecutionID, Name: "Ready For Execution", Color: "green"},
	{ID: model.StatusConfirmedID, Name: "Confirmed", Color: "green"},
	{ID: model.StatusOnHoldID, Name: "On Hold", Color: "gray"},
	{ID: model.StatusInProgressID, Name: "In Progress", Color: "gray"},
	{ID: model.StatusNeedReviewID, Name: "Need Review", Color: "purple"},
}

var seedCategories = []model.TypeCategory{
	{ID: uuid.MustParse("3d9e421e-b088-4bab-9586-7409fe36407d"), Name: "Foreign share class"},
	{ID: uuid.MustParse("4baf1976-0740-48fe-b3f5-93da2f71d662"), Name: "Operational fx"},
	{ID: uuid.MustParse("409bd7ae-274b-45e5-b755-6534c2a89a62"), Name: "Foreign investment"},
}

var seedTools = []model.TypeTool{
	{ID: uuid.MustParse("3bb8e864-23a4-4871-890e-5476f09f6594"), Name: "Strategy Simulation", IsAnalysisTool: true},
	{ID: uuid.MustParse("f6cf45a6-72ac-418a-ba11-1313aadafc7f"), Name: "Margin Simulation", IsAnalysisTool: true},
	{ID: uuid.MustParse("67180b0e-5abe-4073-a346-9e70173da4d5"), Name: "Hedge IRR Simulation", IsAnalysisTool: true},
	{ID: uuid.MustParse("410bed79-c6ce-40ac-8ff5-12dd9882022c"), Name: "Fwd Efficiency", IsMarketTool: true},
	{ID: uuid.MustParse("0b21f439-d0ab-427a-9875-b201660b27f7"), Name: "Spot History", IsMarketTool: true},
	{ID: uuid.MustParse("43c0bc4e-33b6-4aa3-8e2c-16088d6f885a"), Name: "Fx Movement", IsMarketTool: true},
	{ID: uuid.MustParse("c4803434-b69d-404f-b56e-b0b384a67648"), Name: "Portfolio Stress Test", IsHedgingTool: true},
	{ID: uuid.MustParse("e65f0c20-3d4b-45d6-b9bf-427dcd8f02ea"), Name: "Portfolio Value At Risk", IsHedgingTool: true},
	{ID: uuid.MustParse("930619d8-c2ae-4113-ad97-29f5fb091f09"), Name: "Value At Risk", IsHedgingTool: true},
	{ID: uuid.MustParse("65fbb660-ae79-452d-8bd9-edfbf328a6f8"), Name: "Hedge Efficiency", IsHedgingTool: true},
	{ID: uuid.MustParse("a296952d-b907-4e21-b844-bc30731ae93e"), Name: "Expected Shortfall", IsHedgingTool: true},
	{ID: uuid.MustParse("d987042a-026b-4521-9a92-8ed5bf9d604f"), Name: "IM Collateral Drag", IsHedgingTool: true},
	{ID: uuid.MustParse("fa3d14d4-5e84-4cda-9c86-4c7c658f1404"), Name: "VM Collateral Drag", IsHedgingTool: true},
}

var seedAnalysisRoles = []model.TypeAnalysisRole{
	{ID: uuid.MustParse("a4e1a9dc-9ad9-42ad-afac-782cf17b96df"), Name: "Viewer", Level: 200, Description: "A viewer only has read abilities"},
	{ID: uuid.MustParse("4489e13b-a588-4895-ac73-096c295b1ea3"), Name: "Editor", Level: 300, Description: "An editor has read and write abilities"},
	{ID: uuid.MustParse("9a29b804-74c8-47e2-be75-54dec1efee23"), Name: "Owner", Level: 400, Description: "An owner has read and write abilities"},
}

var seedUserRoles = []model.TypeUserRole{
	{ID: model.UserRoleProviderID, Name: "Provider", Level: 100,
		Description: "A provider is someone who executes, hedges a strategy or analysis. They can only view the derivatives of the analysis."},
	{ID: model.UserRoleFreeMemberID, Name: "Free Member", Level: 200,
		Description: "A free member is someone that has very limited access to the application."},
	{ID: model.UserRolePremiumMemberID, Name: "Premium Member", Level: 210,
		Description: "A premium member is someone that has more access to the application than a free member."},
	{ID: model.UserRoleAdminID, Name: "Admin", Level: 300,
		Description: "An admin is a member of an organization that manages other members of an organization."},
	{ID: model.UserRoleDeagloAdminID, Name: "Deaglo Admin", Level: 400,
		Description: "A deaglo admin is a part of deaglo staff that adds organizations and creates account plans."},
}

// DefaultBaseCurrencyID and DefaultForeignCurrencyIDs drive the market tools
// every new user starts with.
var (
	DefaultBaseCurrencyID     = uuid.MustParse("ebc1f86f-fca0-4341-8200-4e5c5af18683")
	DefaultForeignCurrencyID  = uuid.MustParse("9dd97c25-c43f-466a-9bc4-fedc89ec9ff6")
	DefaultForeignCurrencyIDs = []uuid.UUID{
		uuid.MustParse("1b35674b-caf9-4144-a40c-afee70a3cbb9"),
		uuid.MustParse("1969f8bf-5b0c-4b7d-8a04-466ce27f6877"),
		uuid.MustParse("c3cab86f-0cdb-4a15-8a06-5f714aed4026"),
		uuid.MustParse("9dd97c25-c43f-466a-9bc4-fedc89ec9ff6"),
		uuid.MustParse("360e8471-7b70-401f-ad05-b1b8fa521518"),
		uuid.MustParse("e3f6218f-ee26-445c-a6d6-21c63a2d0ba5"),
		uuid.MustParse("969b34b1-5e58-41af-96bd-c508a4b3536a"),
	}
)

// seedCurrencies is a starter set for empty databases carrying the ids the
// default market tools reference. Production currencies are loaded by the
// market data pipeline.
func seedCurrency(id, code, name, country string, order int) model.TypeCurrency {
	return model.TypeCurrency{
		ID:              uuid.MustParse(id),
		Code:            code,
		Name:            name,
		CountryName:     country,
		SortOrder:       order,
		IsAnalysis:      true,
		IsSpotHistory:   true,
		IsFwdEfficiency: true,
		IsFxMovement:    true,
	}
}

var seedCurrencies = []model.TypeCurrency{
	seedCurrency("ebc1f86f-fca0-4341-8200-4e5c5af18683", "USD", "US Dollar", "United States", 1),
	seedCurrency("9dd97c25-c43f-466a-9bc4-fedc89ec9ff6", "EUR", "Euro", "European Union", 2),
	seedCurrency("1b35674b-caf9-4144-a40c-afee70a3cbb9", "GBP", "Pound Sterling", "United Kingdom", 3),
	seedCurrency("1969f8bf-5b0c-4b7d-8a04-466ce27f6877", "JPY", "Yen", "Japan", 4),
	seedCurrency("c3cab86f-0cdb-4a15-8a06-5f714aed4026", "CAD", "Canadian Dollar", "Canada", 5),
	seedCurrency("360e8471-7b70-401f-ad05-b1b8fa521518", "CHF", "Swiss Franc", "Switzerland", 6),
	seedCurrency("e3f6218f-ee26-445c-a6d6-21c63a2d0ba5", "MXN", "Mexican Peso", "Mexico", 7),
	seedCurrency("969b34b1-5e58-41af-96bd-c508a4b3536a", "BRL", "Brazilian Real", "Brazil", 8),
}

var (
	StrategyCallID    = uuid.MustParse("007a4b59-a73f-422f-90bb-5ac05cac637d")
	StrategyForwardID = uuid.MustParse("a88cbfc8-12a5-41d0-8151-c869ed39b8b5")
	StrategySeagullID = uuid.MustParse("482a966f-0f37-407b-9cb8-58b60c7e30e2")
	StrategyPutID     = uuid.MustParse("2e754bea-a58a-4e96-87f7-adaea5356d20")
	StrategyParFwdID  = uuid.MustParse("37113527-54b2-4ce1-bf55-b077b810b395")
	StrategyCollarID  = uuid.MustParse("5bd5fe24-079b-45a2-ab2b-17e717808bf7")
)

func seedImage(name string) *string {
	url := strategyImageBase + name
	return &url
}

var seedStrategies = []model.Strategy{
	{ID: StrategyCallID, Name: "Call", ImageURL: seedImage("Call.png"),
		Description: "A call offers upside if the spot rate rises. This can be used to hedge a short position in the underlying asset"},
	{ID: StrategyForwardID, Name: "Forward", ImageURL: seedImage("Forward.png"),
		Description: "A forward is a contract which offers 100% protection downside, but zero upside potential. NB: This is not an option"},
	{ID: StrategySeagullID, Name: "Seagull", ImageURL: seedImage("Seagull.png"),
		Description: "A Seagull consists of a long option, and two OTM positions: short call and short put. It offers downside protection and some upside. However, having two short legs results in higher tail risk in scenario where the rate moves too far from initial spot rate"},
	{ID: StrategyPutID, Name: "Put", ImageURL: seedImage("Put.png"),
		Description: "A put offers upside if the spot rate falls. This can be used to offset losses in an underlying long position"},
	{ID: StrategyParFwdID, Name: "Participating forward", ImageURL: seedImage("Par+fwd.png"),
		Description: "A participating forward consists of a long option covering 100% of the notional, and a short option covering 50% of the notional. The short leg offsets a portion of the long leg premium. It protects 100% against downside, but only offers 50% of the upside"},
	{ID: StrategyCollarID, Name: "Collar", ImageURL: seedImage("Collar.png"),
		Description: "A collar consists of a long OTM and a short OTM options. It limits the upside and the downside to a small range"},
}

type seedLeg struct {
	id, strategy string
	order        *int
	image        string
	isCall       *bool
	isBought     bool
	leverage     float64
	strike       float64
}

func ptr[T any](v T) *T { return &v }

var seedLegs = []seedLeg{
	// collar
	{"6beead00-4e23-44fa-8960-87cd4df1bb4c", "5bd5fe24-079b-45a2-ab2b-17e717808bf7", ptr(2), "call_sold.png", ptr(true), false, 1.0, -1.5},
	{"abbe8a47-d619-4f7f-b947-9ba35a4924ed", "5bd5fe24-079b-45a2-ab2b-17e717808bf7", ptr(1), "put_bought.png", ptr(false), true, 1.0, -2.0},
	// seagull
	{"f8645b8e-569b-4461-ac9e-c13fac00ed11", "482a966f-0f37-407b-9cb8-58b60c7e30e2", ptr(1), "put_bought.png", ptr(false), true, 1.0, 0},
	{"4ee6f2ed-87f0-489c-bb57-39f4c03ab128", "482a966f-0f37-407b-9cb8-58b60c7e30e2", ptr(2), "call_sold.png", ptr(true), false, 1.0, -7.0},
	{"fe45c81d-d8fe-4f9a-911a-27f37211db88", "482a966f-0f37-407b-9cb8-58b60c7e30e2", ptr(3), "put_sold.png", ptr(false), false, 1.0, -5.0},
	// participating forward
	{"98ecc461-687c-40e4-8ae1-a74edead95f3", "37113527-54b2-4ce1-bf55-b077b810b395", ptr(1), "put_bought.png", ptr(false), true, 1.0, -3.0},
	{"2fdac258-f848-4947-bf5d-0179c1c62ead", "37113527-54b2-4ce1-bf55-b077b810b395", ptr(2), "call_sold.png", ptr(true), false, 0.5, 3.0},
	{"211df86b-74f6-4a89-9c01-4ddecc477925", "007a4b59-a73f-422f-90bb-5ac05cac637d", nil, "Call.png", ptr(true), true, 1.0, -5.0},
	{"5d2b3945-207f-48fe-a537-c29d5299d364", "a88cbfc8-12a5-41d0-8151-c869ed39b8b5", nil, "Forward.png", nil, true, 1.0, 0},
	{"b0de48dd-8287-4611-a3fb-9981b6ee479e", "2e754bea-a58a-4e96-87f7-adaea5356d20", nil, "Put.png", ptr(false), true, 1.0, 0},
}

func defaultLegs() []model.StrategyLeg {
	legs := make([]model.StrategyLeg, 0, len(seedLegs))
	for _, l := range seedLegs {
		legs = append(legs, model.StrategyLeg{
			ID:         uuid.MustParse(l.id),
			StrategyID: uuid.MustParse(l.strategy),
			SortOrder:  l.order,
			ImageURL:   seedImage(l.image),
			IsCall:     l.isCall,
			IsBought:   l.isBought,
			Premium:    decimal.Zero,
			Leverage:   l.leverage,
			Strike:     ptr(l.strike),
		})
	}
	return legs
}

// Seed upserts every lookup row and the default strategies. It is safe to run
// on every start.
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := clause.OnConflict{UpdateAll: true}
		steps := []any{
			&seedStatuses,
			&seedCategories,
			&seedTools,
			&seedAnalysisRoles,
			&seedUserRoles,
			&seedCurrencies,
		}
		for _, rows := range steps {
			if err := tx.Clauses(upsert).Create(rows).Error; err != nil {
				return err
			}
		}
		strategies := make([]model.Strategy, len(seedStrategies))
		copy(strategies, seedStrategies)
		if err := tx.Clauses(upsert).Omit("Legs").Create(&strategies).Error; err != nil {
			return err
		}
		legs := defaultLegs()
		return tx.Clauses(upsert).Omit("Strategy").Create(&legs).Error
	})
}
