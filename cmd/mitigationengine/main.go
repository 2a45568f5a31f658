package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mitigationengine/internal/alert"
	"mitigationengine/internal/attackinstance"
	"mitigationengine/internal/condition"
	"mitigationengine/internal/config"
	"mitigationengine/internal/dispatcher"
	"mitigationengine/internal/graphcatalog"
	"mitigationengine/internal/graphdb/redisdb"
	"mitigationengine/internal/ingress"
	"mitigationengine/internal/ingress/httpapi"
	"mitigationengine/internal/ingress/redisbus"
	"mitigationengine/internal/logger"
	"mitigationengine/internal/metrics"
	"mitigationengine/internal/persistence"
	"mitigationengine/internal/planner"
	"mitigationengine/internal/worker"
	"mitigationengine/internal/workflowcatalog"
	"mitigationengine/pkg/models"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("warning: config file not found at %s, trying default locations", configArg)
	}
	if _, err := os.Stat("mitigationengine.yml"); err == nil {
		return "mitigationengine.yml"
	}
	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), "mitigationengine.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return "mitigationengine.yml"
}

func main() {
	configArg := flag.String("config", "", "path to the engine's YAML config file")
	flag.Parse()

	configPath := findConfigFile(*configArg)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Engine.Logging.Enabled, cfg.Engine.Logging.Level, cfg.Engine.Logging.File, cfg.Engine.Logging.Console); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	logger.Infof("mitigation engine starting")
	logger.Infof("config loaded from: %s", configPath)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatalf("failed to register metrics: %v", err)
	}

	var graphDB condition.GraphDB
	if cfg.Engine.GraphDB.Addr != "" {
		client, err := redisdb.New(redisdb.Config{
			Addr: cfg.Engine.GraphDB.Addr, Password: cfg.Engine.GraphDB.Password,
			DB: cfg.Engine.GraphDB.DB, Timeout: cfg.Engine.GraphDB.Timeout,
		})
		if err != nil {
			logger.Warnf("graph-database escape unavailable: %v (conditions using graphdb() will evaluate false)", err)
		} else {
			graphDB = client
			defer client.Close()
		}
	}

	conditions := condition.NewEngine(graphDB)
	graphs := graphcatalog.New()
	workflows := workflowcatalog.New()

	conditionStore := persistence.NewStore[models.Condition](cfg.Engine.Persistence.ConditionsPath)
	graphStore := persistence.NewStore[models.AttackGraph](cfg.Engine.Persistence.NodesPath)
	workflowStore := persistence.NewStore[models.WorkflowSignature](cfg.Engine.Persistence.WorkflowsPath)

	if err := bootstrap(conditionStore, graphStore, workflowStore, conditions, graphs, workflows, cfg.Engine.Persistence.BootstrapYAML); err != nil {
		logger.Fatalf("fatal startup failure loading persisted catalogs: %v", err)
	}

	plan := planner.New(workflows, conditions, cfg.Engine.Planner.MitigationSlots, cfg.Engine.Planner.TimeLimit)
	dispatch := dispatcher.New(cfg.Engine.Dispatcher.Timeout)
	engine := attackinstance.New(graphs, conditions)

	queue := ingress.NewQueue(256)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Engine.Bus.Topic != "" {
		sub, err := redisbus.New(redisbus.Config{
			Addr: cfg.Engine.Bus.Addr, Password: cfg.Engine.Bus.Password, DB: cfg.Engine.Bus.DB,
			Topic: cfg.Engine.Bus.Topic, BlockTimeout: cfg.Engine.Bus.BlockTimeout,
		})
		if err != nil {
			logger.Warnf("bus subscriber unavailable: %v (relying on HTTP ingress only)", err)
		} else {
			defer sub.Close()
			go func() {
				for {
					raw, err := sub.Next(ctx)
					if err != nil {
						return
					}
					if err := queue.Enqueue(raw); err != nil {
						logger.Warnf("dropping bus alert: %v", err)
					}
				}
			}()
		}
	}

	w := worker.New(queue, alert.DefaultSchema(), engine, plan, dispatch)
	if cfg.Engine.Planner.ProbabilityMode {
		w = w.WithProbabilityMode(&planner.ProbabilityPlan{
			Planner:              plan,
			Risk:                 engine,
			RiskyFireThreshold:   cfg.Engine.Planner.RiskyFireThreshold,
			ProbabilityThreshold: cfg.Engine.Planner.ProbabilityThreshold,
		})
	}
	go w.Run(ctx)

	api := httpapi.New(queue, conditions, graphs, workflows)
	mux := http.NewServeMux()
	mux.Handle("/", api.Handler())
	mux.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{Addr: cfg.Engine.HTTP.ListenAddr, Handler: mux}

	go func() {
		logger.Infof("HTTP API listening on %s", cfg.Engine.HTTP.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("error shutting down HTTP server: %v", err)
	}

	logger.Infof("mitigation engine stopped")
}

func bootstrap(
	conditionStore *persistence.Store[models.Condition],
	graphStore *persistence.Store[models.AttackGraph],
	workflowStore *persistence.Store[models.WorkflowSignature],
	conditions *condition.Engine,
	graphs *graphcatalog.Catalog,
	workflows *workflowcatalog.Catalog,
	bootstrapYAMLPath string,
) error {
	conds, err := conditionStore.Load()
	if err != nil {
		return err
	}
	graphList, err := graphStore.Load()
	if err != nil {
		return err
	}
	workflowList, err := workflowStore.Load()
	if err != nil {
		return err
	}

	if len(conds) == 0 && len(graphList) == 0 && len(workflowList) == 0 && bootstrapYAMLPath != "" {
		fixture, err := persistence.LoadBootstrapFixture(bootstrapYAMLPath)
		if err != nil {
			logger.Warnf("bootstrap fixture unavailable: %v (starting with empty catalogs)", err)
		} else {
			logger.Infof("seeding catalogs from bootstrap fixture %s", bootstrapYAMLPath)
			conds = fixture.Conditions
			graphList = fixture.Graphs
			workflowList = fixture.Workflows
			if err := conditionStore.Save(conds); err != nil {
				logger.Warnf("failed to persist bootstrap conditions: %v", err)
			}
			if err := graphStore.Save(graphList); err != nil {
				logger.Warnf("failed to persist bootstrap graphs: %v", err)
			}
			if err := workflowStore.Save(workflowList); err != nil {
				logger.Warnf("failed to persist bootstrap workflows: %v", err)
			}
		}
	}

	for i := range conds {
		if err := conditions.Load(&conds[i]); err != nil {
			logger.Warnf("rejecting persisted condition %s at startup: %v", conds[i].ID, err)
		}
	}
	for i := range graphList {
		if err := graphs.Put(&graphList[i]); err != nil {
			return err // a persisted catalog violating §3 invariants is fatal at startup
		}
	}
	for i := range workflowList {
		if err := workflows.Put(&workflowList[i]); err != nil {
			return err
		}
	}
	return nil
}
