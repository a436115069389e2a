package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-scheduler/internal/booking"
	"clinic-scheduler/internal/config"
	"clinic-scheduler/internal/db"
	"clinic-scheduler/internal/eta"
	"clinic-scheduler/internal/maps"
	"clinic-scheduler/internal/queue"
	"clinic-scheduler/internal/store"
)

func main() {
	cfg := config.Load()

	// Persistence is best-effort: a missing database degrades the service to
	// in-memory scheduling instead of refusing to start.
	var dataStore *store.PostgresStore
	if conn, err := db.Open(cfg.DSN()); err != nil {
		log.Printf("clinicd: database unavailable, running in-memory: %v", err)
	} else {
		defer conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.EnsureSchema(ctx, conn); err != nil {
			log.Printf("clinicd: schema setup failed, running in-memory: %v", err)
		} else {
			dataStore = store.NewPostgresStore(conn)
		}
		cancel()
	}

	var mapsOpts []maps.ClientOption
	if cfg.OSRMBase != "" {
		mapsOpts = append(mapsOpts, maps.WithOSRMBase(cfg.OSRMBase))
	}
	if cfg.NominatimBase != "" {
		mapsOpts = append(mapsOpts, maps.WithNominatimBase(cfg.NominatimBase))
	}
	mapsClient := maps.NewClient(mapsOpts...)

	estimator := eta.NewEstimator(eta.DemoGraph(), eta.WithRouter(mapsClient))

	schedOpts := []queue.Option{
		queue.WithWeights(queue.Weights{
			Emergency: cfg.WeightEmergency,
			Travel:    cfg.WeightTravel,
			Consult:   cfg.WeightConsult,
			Waiting:   cfg.WeightWaiting,
			Arrival:   cfg.WeightArrival,
		}),
		queue.WithAgingInterval(time.Duration(cfg.AgingIntervalMinutes * float64(time.Minute))),
		queue.WithStarvationThreshold(cfg.StarvationThresholdMinutes),
		queue.WithStarvationFunc(func(token int, waiting float64) {
			log.Printf("clinicd: starvation alert: token %d waiting %.0f minutes", token, waiting)
		}),
	}
	if dataStore != nil {
		schedOpts = append(schedOpts, queue.WithStore(dataStore))
	}
	sched := queue.NewScheduler(schedOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)
	defer sched.Stop()

	clinic := eta.Coord{Lat: cfg.ClinicLat, Lon: cfg.ClinicLon}
	var tokens booking.TokenSource
	if dataStore != nil {
		tokens = dataStore
	}
	svc := booking.NewService(sched, estimator, mapsClient, tokens, clinic)

	snap := sched.Snapshot()
	log.Printf("clinicd: scheduler ready: %d waiting (%d emergency), degraded=%v",
		snap.Total, snap.EmergencyCount, sched.Degraded())

	if os.Getenv("CLINIC_DEMO") == "1" {
		runDemo(ctx, svc, sched)
	}

	<-ctx.Done()
	log.Println("clinicd: shutting down")
}

// runDemo books a few walk-in patients so a fresh install has something to
// look at.
func runDemo(ctx context.Context, svc *booking.Service, sched *queue.Scheduler) {
	demo := []struct {
		name, contact, symptoms, address string
	}{
		{"Asha Patil", "+91-98200-00001", "fever and cough since yesterday", "Andheri West, Mumbai"},
		{"Ravi Mehta", "+91-98200-00002", "severe chest pain, heart condition", "Dadar, Mumbai"},
		{"Sunita Rao", "+91-98200-00003", "routine annual checkup", "Bandra West, Mumbai"},
	}
	for _, d := range demo {
		if _, err := svc.Book(ctx, d.name, d.contact, d.symptoms, d.address); err != nil {
			log.Printf("clinicd: demo booking failed: %v", err)
		}
	}

	snap := sched.Snapshot()
	for i, p := range snap.Patients {
		log.Printf("clinicd: queue[%d] token=%d tier=%s score=%.2f", i, p.Token, p.Tier, p.PriorityScore)
	}
}
