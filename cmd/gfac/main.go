// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/docker/libkv/store"
	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/common/config"
	"github.com/apache/airavata-gfac/pkg/common/health"
	"github.com/apache/airavata-gfac/pkg/common/leader"
	"github.com/apache/airavata-gfac/pkg/common/logging"
	"github.com/apache/airavata-gfac/pkg/common/metrics"
	"github.com/apache/airavata-gfac/pkg/gfac"
	"github.com/apache/airavata-gfac/pkg/gfac/cascade"
	"github.com/apache/airavata-gfac/pkg/gfac/checkpoint"
	"github.com/apache/airavata-gfac/pkg/gfac/cluster"
	"github.com/apache/airavata-gfac/pkg/gfac/engine"
	"github.com/apache/airavata-gfac/pkg/gfac/event"
	"github.com/apache/airavata-gfac/pkg/gfac/handler"
	"github.com/apache/airavata-gfac/pkg/gfac/monitor"
	"github.com/apache/airavata-gfac/pkg/gfac/pipeline"
	"github.com/apache/airavata-gfac/pkg/gfac/provider"
	"github.com/apache/airavata-gfac/pkg/gfac/scheduler"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/storage"
	"github.com/apache/airavata-gfac/pkg/storage/memory"
	"github.com/apache/airavata-gfac/pkg/storage/mysql"
)

const (
	_metricFlushInterval = time.Second

	// _leaderPath serves the id of the current leader of this server name.
	_leaderPath = "/leader"
)

var (
	version string
	app     = kingpin.New(common.GFacServer, "Airavata GFac job execution daemon")

	debug = app.Flag(
		"debug", "enable debug mode (print full json responses)").
		Short('d').
		Default("false").
		Envar("ENABLE_DEBUG_LOGGING").
		Bool()

	cfgFiles = app.Flag(
		"config",
		"YAML config files (can be provided multiple times to merge configs)").
		Short('c').
		Required().
		ExistingFiles()

	secretsFile = app.Flag(
		"secrets-file",
		"Secret file containing the registry and ssh passwords").
		Default("").
		Envar("GFAC_SECRETS_FILE").
		String()

	serverName = app.Flag(
		"server-name",
		"Name of this server in the coordination store "+
			"(coordination.server_name override) (set $GFAC_SERVER_NAME to override)").
		Envar("GFAC_SERVER_NAME").
		String()

	zkServers = app.Flag(
		"zk-server",
		"Zookeeper servers. Specify multiple times for multiple servers "+
			"(coordination.zk_servers override) (set $ZK_SERVERS to override)").
		Envar("ZK_SERVERS").
		Strings()

	httpPort = app.Flag(
		"http-port", "GFac HTTP port (gfac.http_port override) "+
			"(set $HTTP_PORT to override)").
		Envar("HTTP_PORT").
		Int()

	dbHost = app.Flag(
		"db-host",
		"Registry database host (registry.mysql.host override) (set $DB_HOST to override)").
		Envar("DB_HOST").
		String()

	catalogFile = app.Flag(
		"catalog-file",
		"Host and deployment catalog (gfac.catalog_file override)").
		Envar("GFAC_CATALOG_FILE").
		String()

	watchLaunchRequests = app.Flag(
		"watch-launch-requests",
		"Launch experiments registered in the coordination store by the orchestrator").
		Default("false").
		Envar("WATCH_LAUNCH_REQUESTS").
		Bool()
)

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log.SetFormatter(
		&logging.LogFieldFormatter{
			Formatter: &logging.SecretsFormatter{JSONFormatter: &log.JSONFormatter{}},
			Fields: log.Fields{
				common.AppLogField: app.Name,
			},
		},
	)

	initialLevel := log.InfoLevel
	if *debug {
		initialLevel = log.DebugLevel
	}
	log.SetLevel(initialLevel)

	log.WithField("files", *cfgFiles).Info("Loading gfac config")
	var cfg Config
	if err := config.Parse(&cfg, *cfgFiles...); err != nil {
		log.WithField("error", err).Fatal("Cannot parse yaml config")
	}
	applyOverrides(&cfg)

	secrets, err := config.ParseSecrets(*secretsFile)
	if err != nil {
		log.WithError(err).
			WithField("secrets_file", *secretsFile).
			Fatal("Cannot parse secret config")
	}
	applySecrets(&cfg, secrets)

	log.WithField("server_name", cfg.Coordination.ServerName).Info("Loaded gfac configuration")

	var checkpoints *checkpoint.Store
	healthCheck := func() error {
		if checkpoints == nil {
			return errors.New("coordination store not initialized")
		}
		return checkpoints.Healthy()
	}

	rootScope, scopeCloser, mux, err := metrics.InitMetricScope(
		&cfg.Metrics,
		common.GFacServer,
		_metricFlushInterval,
		healthCheck,
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize metrics")
	}
	defer scopeCloser.Close()

	mux.HandleFunc(
		logging.LevelOverwrite,
		logging.LevelOverwriteHandler(initialLevel),
	)

	ctx := context.Background()
	registry, closeRegistry := mustCreateRegistry(ctx, &cfg.Registry, rootScope)
	defer closeRegistry()

	checkpoints = checkpoint.New(cfg.Coordination, rootScope)
	defer checkpoints.Close()

	bus := event.NewBus(rootScope)
	updater := cascade.New(registry, bus, checkpoints, rootScope)
	updater.Register(bus)

	jobMonitor := monitor.New(cfg.GFac.Monitor, bus, rootScope)

	var creds security.CredentialReader
	var clouds security.CloudCredentialReader
	if cfg.GFac.CredentialFile != "" {
		fileStore, err := security.NewFileCredentialStore(cfg.GFac.CredentialFile)
		if err != nil {
			log.WithError(err).Fatal("Cannot load credential file")
		}
		creds, clouds = fileStore, fileStore
	}
	builder := security.NewBuilder(
		cfg.GFac.Security, creds, clouds, cluster.NewCache(rootScope), rootScope)

	plugins := pipeline.NewRegistry()
	if err := handler.Register(plugins, handler.Dependencies{
		Registry: registry,
		Recorder: updater,
		Clouds:   builder,
		Scope:    rootScope,
	}); err != nil {
		log.WithError(err).Fatal("Cannot register handlers")
	}
	if err := provider.Register(plugins, provider.Dependencies{
		Registry:  registry,
		Publisher: bus,
		Monitor:   jobMonitor,
		Scope:     rootScope,
	}); err != nil {
		log.WithError(err).Fatal("Cannot register providers")
	}
	pl, err := pipeline.Build(
		plugins, cfg.GFac.Pipeline, engine.NewPipelineHooks(checkpoints), rootScope)
	if err != nil {
		log.WithError(err).Fatal("Invalid handler pipeline")
	}

	catalog, err := scheduler.LoadStaticCatalog(cfg.GFac.CatalogFile)
	if err != nil {
		log.WithError(err).Fatal("Cannot load catalog")
	}
	policy, err := scheduler.NewPolicy(cfg.GFac.HostSelectionPolicy, nil)
	if err != nil {
		log.WithError(err).Fatal("Invalid host selection policy")
	}

	eng, err := engine.New(cfg.GFac.Engine, engine.Dependencies{
		Registry:    registry,
		Publisher:   bus,
		Checkpoints: checkpoints,
		Scheduler:   scheduler.New(catalog, policy, pl, rootScope),
		Security:    builder,
		Pipeline:    pl,
		Monitor:     jobMonitor,
		Recorder:    updater,
		Scope:       rootScope,
	})
	if err != nil {
		log.WithError(err).Fatal("Cannot create engine")
	}

	id, err := leader.NewID(cfg.GFac.HTTPPort, cfg.Coordination.ServerName, version)
	if err != nil {
		log.WithError(err).Fatal("Cannot create leader id")
	}
	server := gfac.NewServer(id, eng)

	kv := func() (store.Store, error) { return checkpoints.KV(ctx) }
	candidate, err := leader.NewCandidate(cfg.Election, kv, rootScope, common.GFacRole, server)
	if err != nil {
		log.WithError(err).Fatal("Unable to create leader candidate")
	}
	mux.HandleFunc(_leaderPath, leaderHandler(cfg.Election, kv))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.GFac.HTTPPort)
		if err := nethttp.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	if err := candidate.Start(); err != nil {
		log.Fatalf("Unable to start leader candidate: %v", err)
	}

	heartbeat := health.New(cfg.Health, candidate, healthCheck, rootScope)
	heartbeat.Start()
	defer heartbeat.Stop()

	log.WithFields(log.Fields{
		"httpPort":    cfg.GFac.HTTPPort,
		"server_name": cfg.Coordination.ServerName,
	}).Info("Started gfac")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.WithField("signal", sig.String()).Info("Shutting down gfac")
	if err := candidate.Stop(); err != nil {
		log.WithError(err).Error("Failed to stop leader candidate")
	}
}

func applyOverrides(cfg *Config) {
	if *serverName != "" {
		cfg.Coordination.ServerName = *serverName
	}
	if len(*zkServers) > 0 {
		cfg.Coordination.ZKServers = *zkServers
	}
	if *httpPort != 0 {
		cfg.GFac.HTTPPort = *httpPort
	}
	if *dbHost != "" {
		cfg.Registry.MySQL.Host = *dbHost
	}
	if *catalogFile != "" {
		cfg.GFac.CatalogFile = *catalogFile
	}
	if *watchLaunchRequests {
		cfg.GFac.Engine.WatchLaunchRequests = true
	}
	// replicas sharing a server name elect one leader among them
	cfg.Election.Root = path.Join(cfg.Election.Root, cfg.Coordination.ServerName)
}

func applySecrets(cfg *Config, secrets *config.GFacSecretsConfig) {
	if secrets.RegistryPassword != "" {
		cfg.Registry.MySQL.Password = secrets.RegistryPassword
	}
	if secrets.SSHPassword != "" {
		cfg.GFac.Security.SSH.Password = secrets.SSHPassword
	}
	if secrets.KeyPassphrase != "" {
		cfg.GFac.Security.SSH.Passphrase = secrets.KeyPassphrase
	}
}

func mustCreateRegistry(
	ctx context.Context,
	cfg *RegistryConfig,
	scope tally.Scope) (storage.Registry, func()) {
	switch cfg.Backend {
	case _registryMemory:
		log.Warn("Using the in-memory registry, records are lost on restart")
		return memory.NewRegistry(scope), func() {}
	case _registryMySQL, "":
		db, err := cfg.MySQL.Connect(ctx)
		if err != nil {
			log.WithError(err).Fatal("Cannot connect to registry database")
		}
		return mysql.NewRegistry(db, scope), func() { db.Close() }
	}
	log.WithField("backend", cfg.Backend).Fatal("Unknown registry backend")
	return nil, nil
}

func leaderHandler(
	cfg leader.ElectionConfig,
	kv leader.KVSource) func(nethttp.ResponseWriter, *nethttp.Request) {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		client, err := kv()
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusServiceUnavailable)
			return
		}
		id, err := leader.CurrentLeader(client, cfg, common.GFacRole)
		if err == store.ErrKeyNotFound {
			nethttp.Error(w, "no leader", nethttp.StatusNotFound)
			return
		}
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(id)
	}
}
