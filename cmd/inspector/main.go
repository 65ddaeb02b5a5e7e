// Command inspector prints the core-service job of a stored simulation, the
// same payload the API queues, and can queue it again.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/deaglo/apigateway/internal/cloud"
	"github.com/deaglo/apigateway/internal/config"
	"github.com/deaglo/apigateway/internal/fenics"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/deaglo/apigateway/internal/service"
	"github.com/google/uuid"
)

type fixedSpot float64

func (f fixedSpot) SpotRate(context.Context, string, string) float64 { return float64(f) }

func main() {
	email := flag.String("email", "", "owner of the analysis")
	analysis := flag.String("analysis", "", "analysis id")
	kind := flag.String("kind", "strategy", "strategy, margin or hedge")
	id := flag.String("id", "", "simulation id")
	spot := flag.Float64("spot", 0, "spot rate for hedge jobs; 0 asks FENICS")
	send := flag.Bool("send", false, "queue the job again")
	flag.Parse()

	analysisID, err := uuid.Parse(*analysis)
	if err != nil {
		log.Fatalf("invalid -analysis: %v", err)
	}
	simID, err := uuid.Parse(*id)
	if err != nil {
		log.Fatalf("invalid -id: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitWithFormat(cfg.Log.Level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	awsCfg, err := cloud.LoadConfig(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	if cfg.AWS.SSMEnabled {
		if err := config.ApplySSM(ctx, cfg, cloud.NewParameterStore(awsCfg)); err != nil {
			log.Fatalf("Failed to load SSM parameters: %v", err)
		}
	}

	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	store := repository.NewStore(db)
	user, err := store.UserByEmail(ctx, strings.ToLower(*email))
	if err != nil {
		log.Fatalf("user %q: %v", *email, err)
	}

	var quoter service.SpotQuoter = fixedSpot(*spot)
	if *spot == 0 {
		quoter = service.NewPricingService(fenics.NewClient(cfg.Fenics))
	}
	queue := cloud.NewQueue(awsCfg, cfg.Simulation.QueueURL)
	svc := service.NewSimulationService(store, queue, nil, quoter, nil)

	msg, err := svc.CoreMessage(ctx, user, repository.SimulationKind(strings.ToUpper(*kind)), analysisID, simID)
	if err != nil {
		log.Fatalf("Failed to build job: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(msg); err != nil {
		log.Fatal(err)
	}

	if *send {
		if err := queue.Enqueue(ctx, msg); err != nil {
			log.Fatalf("Failed to queue job: %v", err)
		}
		logger.Info("✅ Job queued", "simulation_id", msg.SimulationID, "result_id", msg.ResultID)
	}
}
