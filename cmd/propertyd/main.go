// propertyd serves property objects over HTTP and WebSocket.
//
// Classes are loaded from YAML or CUE schema files, root objects persist
// as snapshots in SQLite, and every change flows through the core-event
// relay to the configured sinks: MQTT, NATS, InfluxDB history, metrics and
// WebSocket clients. With MQTT enabled, remote writers can set values by
// publishing to <prefix>/set/<object>/<path>.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/openDAQ/openDAQ-sub004/migrations"

	"github.com/openDAQ/openDAQ-sub004/internal/api"
	"github.com/openDAQ/openDAQ-sub004/internal/audit"
	"github.com/openDAQ/openDAQ-sub004/internal/coreevent"
	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/config"
	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/database"
	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/influxdb"
	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/logging"
	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/mqtt"
	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/nats"
	"github.com/openDAQ/openDAQ-sub004/internal/metrics"
	"github.com/openDAQ/openDAQ-sub004/internal/registry"
	"github.com/openDAQ/openDAQ-sub004/internal/remote"
	"github.com/openDAQ/openDAQ-sub004/internal/schema"
	"github.com/openDAQ/openDAQ-sub004/internal/schemafile"
	"github.com/openDAQ/openDAQ-sub004/internal/store"
)

// Set at build time:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/propertyd.yaml"

	// shutdownTimeout bounds the final snapshot save.
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the daemon and blocks until ctx is cancelled. Resources are
// released in reverse order by the deferred closers.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup sequence
	log := logging.Default()
	log.Info("starting propertyd", "version", version, "commit", commit, "build_date", date)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version).With("instance", cfg.Instance.ID)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	repo, trail, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	tm := schema.NewTypeManager()
	types, err := loadSchemas(tm, cfg.Schema.Paths)
	if err != nil {
		return fmt.Errorf("loading schemas: %w", err)
	}
	log.Info("schemas loaded", "paths", len(cfg.Schema.Paths), "types", types)

	m := metrics.New()
	relay := coreevent.NewRelay(cfg.Relay.QueueSize)
	relay.SetLogger(log)
	reg := registry.New(repo, tm,
		registry.WithLogger(log),
		registry.WithCoreEventTrigger(relay.Trigger()),
	)
	hub := api.NewHub(log)
	health := map[string]api.HealthChecker{}

	relay.AddSink(reg)
	relay.AddSink(m)
	relay.AddSink(hub)
	relay.AddSink(coreevent.NewLogSink(log))

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		relay.AddSink(coreevent.NewMQTTSink(mqttClient, mqttClient.Topics().Events(), byte(cfg.MQTT.QoS)))
		health["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.NATS.Enabled {
		natsClient, natsErr := nats.Connect(ctx, cfg.NATS, nats.WithLogger(log))
		if natsErr != nil {
			return fmt.Errorf("connecting to NATS: %w", natsErr)
		}
		defer func() {
			log.Info("draining NATS connection")
			if closeErr := natsClient.Close(); closeErr != nil {
				log.Error("error closing NATS", "error", closeErr)
			}
		}()
		relay.AddSink(coreevent.NewNATSSink(natsClient, cfg.NATS.SubjectPrefix))
		health["nats"] = natsClient
		log.Info("NATS connected", "url", cfg.NATS.URL)
	} else {
		log.Info("NATS disabled")
	}

	var history api.HistoryReader
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) { log.Error("InfluxDB write error", "error", err) })
		relay.AddSink(coreevent.NewHistorySink(influxClient))
		history = influxClient
		health["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "org", cfg.InfluxDB.Org, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := relay.Start(ctx); err != nil {
		return fmt.Errorf("starting relay: %w", err)
	}
	log.Info("core-event relay started", "sinks", relay.Sinks())

	restored, err := reg.Restore(ctx)
	if err != nil {
		relay.Close()
		return fmt.Errorf("restoring objects: %w", err)
	}
	log.Info("objects restored", "count", restored)

	m.WatchRelay(relay)
	m.WatchObjects(reg)

	var bridge *remote.Bridge
	if mqttClient != nil {
		bridge = remote.NewBridge(cfg.MQTT.TopicPrefix, reg,
			remote.WithLogger(log),
			remote.WithAuditRecorder(trail),
			remote.WithObserver(func(result string) { m.RemoteWrites.WithLabelValues(result).Inc() }),
		)
		if err := bridge.Start(mqttClient, byte(cfg.MQTT.QoS)); err != nil {
			relay.Close()
			return fmt.Errorf("starting remote write bridge: %w", err)
		}
		log.Info("remote writes enabled", "topic", mqttClient.Topics().AllSets())
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Registry: reg,
		Metrics:  m,
		Hub:      hub,
		History:  history,
		Audit:    trail,
		Health:   health,
		Version:  version,
	})
	if err != nil {
		relay.Close()
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		relay.Close()
		return fmt.Errorf("starting API server: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if err := server.Close(); err != nil {
		log.Error("error closing API server", "error", err)
	}
	if bridge != nil {
		if err := bridge.Stop(mqttClient); err != nil {
			log.Warn("error stopping remote write bridge", "error", err)
		}
	}
	relay.Close()
	stats := relay.Stats()
	log.Info("core-event relay stopped", "delivered", stats.Delivered, "failed", stats.Failed, "dropped", stats.Dropped)

	saveCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := reg.SaveAll(saveCtx); err != nil {
		log.Error("saving objects failed", "error", err)
	}

	log.Info("propertyd stopped")
	return nil
}

// openStore opens the SQLite snapshot store and audit trail and applies
// migrations, or returns in-memory ones when the database is disabled.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (store.Repository, audit.Repository, func(), error) {
	if !cfg.Enabled {
		log.Warn("database disabled, objects will not survive a restart")
		return store.NewMemoryRepository(), audit.NewMemoryRepository(), func() {}, nil
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}
	closeDB := func() {
		log.Info("closing database")
		if err := db.Close(); err != nil {
			log.Error("error closing database", "error", err)
		}
	}
	log.Info("database connected", "path", cfg.Path)

	if err := db.Migrate(ctx); err != nil {
		closeDB()
		return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")
	return store.NewSQLiteRepository(db.DB), audit.NewSQLiteRepository(db.DB), closeDB, nil
}

// loadSchemas parses every schema file or directory in paths into one
// document and registers its types. It returns the number of types the
// manager holds afterwards.
func loadSchemas(tm *schema.TypeManager, paths []string) (int, error) {
	doc := &schemafile.Document{}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return 0, fmt.Errorf("schema path %s: %w", p, err)
		}
		var part *schemafile.Document
		if info.IsDir() {
			part, err = schemafile.LoadDir(p)
		} else {
			part, err = schemafile.LoadFile(filepath.Clean(p))
		}
		if err != nil {
			return 0, err
		}
		doc.Merge(part)
	}
	if err := schemafile.Apply(tm, doc); err != nil {
		return 0, err
	}
	return len(tm.TypeNames()), nil
}

// getConfigPath returns PROPERTYD_CONFIG or the default path.
func getConfigPath() string {
	if path := os.Getenv("PROPERTYD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
