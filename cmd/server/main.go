/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the scheduling sync engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Configure structured logging
  3. Initialize SQLite store
  4. Connect the cloud store (Firestore, or in-memory for development)
  5. Wire the engines (identity, sync, publish, time off)
  6. Start the offline-queue flusher
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port               HTTP server port (default: 8080)
  -db                 SQLite database path (default: schedulehq.db)
                      Use ":memory:" for an in-memory database
  -manager            Manager identity for the cloud partition (required
                      for cloud access; empty runs unauthenticated)
  -cloud              Cloud backend: "firestore" or "memory" (default:
                      firestore)
  -project            Firestore project id (default: schedulehq-cf87f)
  -credentials        Service-account JSON path; empty uses application
                      default credentials
  -auto-approve-limit Approved requests per day before new ones stay
                      pending (default: 2)
  -flush-interval     Offline queue retry interval (default: 1m)
  -log-level          logrus level: debug, info, warn, error

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the queue flusher
  4. Close database and cloud connections
  5. Exit

EXAMPLES:
  # Local development, no cloud
  ./server -db=":memory:" -cloud=memory -manager=dev

  # Production against Firestore
  ./server -db=./data/schedulehq.db -manager=mgr_1234 \
      -credentials=./serviceAccount.json

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JasonS1999/ScheduleHQ-sub002/api"
	"github.com/JasonS1999/ScheduleHQ-sub002/approval"
	"github.com/JasonS1999/ScheduleHQ-sub002/availability"
	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/cloud/firestore"
	"github.com/JasonS1999/ScheduleHQ-sub002/cloud/memory"
	"github.com/JasonS1999/ScheduleHQ-sub002/conflict"
	"github.com/JasonS1999/ScheduleHQ-sub002/identity"
	"github.com/JasonS1999/ScheduleHQ-sub002/publish"
	"github.com/JasonS1999/ScheduleHQ-sub002/store/sqlite"
	syncer "github.com/JasonS1999/ScheduleHQ-sub002/sync"
	"github.com/JasonS1999/ScheduleHQ-sub002/timeoff"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "schedulehq.db", "SQLite database path")
	managerID := flag.String("manager", "", "manager identity for the cloud partition")
	cloudBackend := flag.String("cloud", "firestore", "cloud backend: firestore or memory")
	projectID := flag.String("project", "schedulehq-cf87f", "Firestore project id")
	credentials := flag.String("credentials", "", "service-account JSON path")
	approveLimit := flag.Int("auto-approve-limit", approval.DefaultLimit, "approved requests per day before new ones stay pending")
	flushInterval := flag.Duration("flush-interval", timeoff.DefaultFlushInterval, "offline queue retry interval")
	logLevel := flag.String("log-level", "info", "logrus level: debug, info, warn, error")
	flag.Parse()

	// Logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(lvl)
	}
	log := logger.WithField("component", "server")

	// Local store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Cloud store
	ctx := context.Background()
	var cl cloud.Store
	switch *cloudBackend {
	case "memory":
		cl = memory.New(*managerID)
	case "firestore":
		fs, err := firestore.New(ctx, *projectID, *credentials, *managerID)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to cloud store")
		}
		defer fs.Close()
		cl = fs
	default:
		log.Fatalf("unknown cloud backend %q", *cloudBackend)
	}

	// Engines
	resolver := &identity.Resolver{
		Local: store,
		Cloud: cl,
		Log:   logger.WithField("component", "identity"),
	}
	syncEngine := syncer.NewEngine(store, cl, resolver, logger.WithField("component", "sync"))
	publishEngine := publish.NewEngine(store, cl, resolver, logger.WithField("component", "publish"))
	availEngine := &availability.Engine{
		Rules: store,
		Log:   logger.WithField("component", "availability"),
	}
	detector := &conflict.Detector{Shifts: store}
	policy := &approval.Policy{TimeOff: store, Limit: *approveLimit}
	timeOffSvc := timeoff.NewService(store, cl, store, availEngine, policy, logger.WithField("component", "timeoff"))

	// Offline queue flusher
	flusher := &timeoff.Flusher{
		Queue:    store,
		Cloud:    cl,
		Interval: *flushInterval,
		Log:      logger.WithField("component", "queue"),
	}
	flusher.Start()
	defer flusher.Stop()

	// Router
	handler := &api.Handler{
		Local:        store,
		Queue:        store,
		Sync:         syncEngine,
		Publish:      publishEngine,
		Availability: availEngine,
		Conflicts:    detector,
		TimeOff:      timeOffSvc,
		Identity:     resolver,
		Flusher:      flusher,
		Log:          logger.WithField("component", "api"),
	}
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    server.Addr,
			"cloud":   *cloudBackend,
			"manager": *managerID,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
