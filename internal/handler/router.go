package handler

import (
	"net/http"

	"github.com/deaglo/apigateway/internal/middleware"
	"github.com/gin-gonic/gin"
)

const APIPrefix = "/api/v2"

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth        *AuthHandler
	Admin       *AdminHandler
	Audit       *AuditHandler
	Analysis    *AnalysisHandler
	Simulation  *SimulationHandler
	Strategy    *StrategyHandler
	Market      *MarketHandler
	Pricing     *PricingHandler
	Reference   *ReferenceHandler
	Stream      *StreamHandler
	Idempotency middleware.IdempotencyStore
}

// Register mounts the API under /api/v2. Global middleware (errors, audit,
// identification, throttling) is expected on r already.
func Register(r gin.IRouter, h Handlers) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "deaglo-api"})
	})

	api := r.Group(APIPrefix)
	registerAuth(api, h)

	verified := api.Group("", middleware.RequireUser(), middleware.RequireVerified())
	registerAnalysis(verified, h)
	registerStrategy(verified, h)
	registerMarket(verified, h)

	verified.GET("/currency/", h.Reference.Currencies)
	verified.POST("/time-series/spot-history/", h.Reference.SpotHistory)

	admin := verified.Group("/admin", middleware.StaffOnly())
	{
		admin.GET("/organization/", h.Admin.ListOrganizations)
		admin.POST("/organization/", h.Admin.CreateOrganization)
		admin.GET("/organization/:id/", h.Admin.GetOrganization)
		admin.PUT("/organization/:id/", h.Admin.UpdateOrganization)
		admin.PATCH("/organization/:id/", h.Admin.UpdateOrganization)
		admin.DELETE("/organization/:id/", h.Admin.DeleteOrganization)

		admin.GET("/user/", h.Admin.ListUsers)
		admin.POST("/user/", h.Admin.CreateUser)
		admin.GET("/user/:id/", h.Admin.GetUser)
		admin.PUT("/user/:id/", h.Admin.UpdateUser)
		admin.PATCH("/user/:id/", h.Admin.UpdateUser)
		admin.DELETE("/user/:id/", h.Admin.DeleteUser)

		admin.GET("/audit/", h.Audit.List)
	}
}

func registerAuth(api *gin.RouterGroup, h Handlers) {
	auth := api.Group("/auth")
	auth.POST("/refresh/", h.Auth.Refresh)
	auth.POST("/signin/", h.Auth.SignIn)
	auth.POST("/signup/", h.Auth.SignUp)
	auth.POST("/forgot-password/", h.Auth.ForgotPassword)
	auth.GET("/linkedin/", h.Auth.LinkedInURL)
	auth.POST("/linkedin/", h.Auth.LinkedInSignIn)

	user := auth.Group("", middleware.RequireUser())
	user.GET("/get-otp/", h.Auth.GetOTP)
	user.POST("/verify-otp/", h.Auth.VerifyOTP)
	user.PATCH("/change-password/", h.Auth.ChangePassword)
	user.PATCH("/linkedin/link/", h.Auth.LinkedInLink)
	user.GET("/user/", h.Auth.GetUser)
	user.PATCH("/user/", h.Auth.UpdateUser)
	user.DELETE("/user/", h.Auth.DeleteUser)
}

func registerAnalysis(g *gin.RouterGroup, h Handlers) {
	idem := middleware.IdempotencyMiddleware(h.Idempotency)

	a := g.Group("/analysis")
	a.GET("/", h.Analysis.List)
	a.POST("/", h.Analysis.Create)

	a.GET("/workspaces/", h.Analysis.ListWorkspaces)
	a.POST("/workspaces/", h.Analysis.CreateWorkspace)
	a.GET("/workspaces/:wid/", h.Analysis.GetWorkspace)
	a.PUT("/workspaces/:wid/", h.Analysis.UpdateWorkspace)
	a.PATCH("/workspaces/:wid/", h.Analysis.UpdateWorkspace)
	a.DELETE("/workspaces/:wid/", h.Analysis.DeleteWorkspace)
	a.PATCH("/workspaces/:wid/:aid/:action/", h.Analysis.ModifyWorkspace)

	a.GET("/:id/", h.Analysis.Get)
	a.PUT("/:id/", h.Analysis.Update)
	a.PATCH("/:id/", h.Analysis.Update)
	a.DELETE("/:id/", h.Analysis.Delete)
	a.GET("/:id/simulations", h.Analysis.Simulations)
	a.GET("/:id/simulations/stream", h.Stream.Simulations)

	// :id is the simulation kind here; gin needs one wildcard name per segment.
	a.PATCH("/:id/:sid/pin", h.Analysis.TogglePin)

	a.GET("/:id/strategy-simulation/", h.Simulation.ListStrategy)
	a.POST("/:id/strategy-simulation/", idem, h.Simulation.CreateStrategy)
	a.GET("/:id/strategy-simulation/:sid/", h.Simulation.GetStrategy)
	a.PUT("/:id/strategy-simulation/:sid/", idem, h.Simulation.UpdateStrategy)
	a.PATCH("/:id/strategy-simulation/:sid/", h.Simulation.PatchNotImplemented)
	a.DELETE("/:id/strategy-simulation/:sid/", h.Simulation.DeleteStrategy)

	a.GET("/:id/margin-simulation/", h.Simulation.ListMargin)
	a.POST("/:id/margin-simulation/", idem, h.Simulation.CreateMargin)
	a.GET("/:id/margin-simulation/:mid/", h.Simulation.GetMargin)
	a.PUT("/:id/margin-simulation/:mid/", idem, h.Simulation.UpdateMargin)
	a.PATCH("/:id/margin-simulation/:mid/", h.Simulation.PatchNotImplemented)
	a.DELETE("/:id/margin-simulation/:mid/", h.Simulation.DeleteMargin)

	a.GET("/:id/hedge-simulation/", h.Simulation.ListHedge)
	a.POST("/:id/hedge-simulation/", idem, h.Simulation.CreateHedge)
	a.GET("/:id/hedge-simulation/:hid", h.Simulation.GetHedge)
	a.PUT("/:id/hedge-simulation/:hid", idem, h.Simulation.UpdateHedge)
	a.PATCH("/:id/hedge-simulation/:hid", h.Simulation.UpdateHedge)
	a.DELETE("/:id/hedge-simulation/:hid", h.Simulation.DeleteHedge)
}

func registerStrategy(g *gin.RouterGroup, h Handlers) {
	s := g.Group("/strategy-simulation/strategy")
	s.GET("/", h.Strategy.List)
	s.POST("/", h.Strategy.Create)
	s.GET("/:id/", h.Strategy.Get)
	s.PUT("/:id/", h.Strategy.Update)
	s.PATCH("/:id/", h.Strategy.Patch)
	s.DELETE("/:id/", h.Strategy.Delete)
}

func registerMarket(g *gin.RouterGroup, h Handlers) {
	m := g.Group("/market")
	m.GET("/", h.Market.Default)

	m.GET("/fwd-efficiency/", h.Market.ListFwdEfficiencies)
	m.POST("/fwd-efficiency/", h.Market.CreateFwdEfficiency)
	m.GET("/fwd-efficiency/:id/", h.Market.GetFwdEfficiency)
	m.PUT("/fwd-efficiency/:id/", h.Market.UpdateFwdEfficiency)
	m.PATCH("/fwd-efficiency/:id/", h.Market.UpdateFwdEfficiency)
	m.DELETE("/fwd-efficiency/:id/", h.Market.DeleteFwdEfficiency)

	m.GET("/spot-history/", h.Market.ListSpotHistories)
	m.POST("/spot-history/", h.Market.CreateSpotHistory)
	m.GET("/spot-history/:id/", h.Market.GetSpotHistory)
	m.PUT("/spot-history/:id/", h.Market.UpdateSpotHistory)
	m.PATCH("/spot-history/:id/", h.Market.UpdateSpotHistory)
	m.DELETE("/spot-history/:id/", h.Market.DeleteSpotHistory)

	m.GET("/fx-movement/", h.Market.ListFxMovements)
	m.POST("/fx-movement/", h.Market.CreateFxMovement)
	m.GET("/fx-movement/:id/", h.Market.GetFxMovement)
	m.PUT("/fx-movement/:id/", h.Market.UpdateFxMovement)
	m.PATCH("/fx-movement/:id/", h.Market.UpdateFxMovement)
	m.DELETE("/fx-movement/:id/", h.Market.DeleteFxMovement)

	m.POST("/pricing/spot", h.Pricing.Spot)
	m.POST("/pricing/forward", h.Pricing.Forward)
	m.POST("/pricing/option", h.Pricing.Option)
}
