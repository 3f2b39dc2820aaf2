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

	"proxy-fleet/pkg/api"
	"proxy-fleet/pkg/bridge"
	"proxy-fleet/pkg/config"
	"proxy-fleet/pkg/db"
	"proxy-fleet/pkg/jobs"
	"proxy-fleet/pkg/journal"
	"proxy-fleet/pkg/node"
	"proxy-fleet/pkg/notification"
	"proxy-fleet/pkg/store"
	"proxy-fleet/pkg/version"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	token := flag.String("token", "", "bootstrap auth token (optional)")
	mirror := flag.String("mirror", "none", "config mirror backend: none|consul (requires build tag consul)")
	consulAddr := flag.String("consul-addr", "127.0.0.1:8500", "consul address (when mirror=consul)")
	tlsCert := flag.String("tls-cert", "", "TLS cert path (enables HTTPS if set with --tls-key)")
	tlsKey := flag.String("tls-key", "", "TLS key path (enables HTTPS if set with --tls-cert)")
	clientCA := flag.String("client-ca", "", "require and verify client certs using this CA (optional)")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("controller version=%s\n", version.Build)
		return
	}

	logger := logrus.NewEntry(logrus.StandardLogger())

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	gdb, err := db.Init()
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}

	var cfgMirror store.ConfigMirror
	switch *mirror {
	case "consul":
		cfgMirror = store.NewConsulMirror(*consulAddr)
	case "none":
		cfgMirror = store.NewNoop()
	default:
		logger.Fatalf("unsupported mirror backend: %s", *mirror)
	}

	j, err := journal.Open(cfg.JournalPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open node event journal")
	}
	defer func() { _ = j.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := node.NewManager(bridge.New, logger, cfg.NodeStopTimeout)

	// The registry is an in-memory view; rebuild it from the persisted
	// node configuration before accepting traffic.
	rows, err := db.ListNodes(gdb)
	if err != nil {
		logger.WithError(err).Fatal("failed to load persisted nodes")
	}
	for _, row := range rows {
		if _, err := mgr.UpdateNode(ctx, node.ConfigFromNode(row)); err != nil {
			logger.WithField("node", row.ID).WithError(err).Error("failed to restore node handle")
			continue
		}
		logger.WithField("node", row.ID).WithField("name", row.Name).Info("node handle restored")
	}

	queues := notification.NewQueues()
	sender := notification.NewSender(cfg.Notifications, queues, logger)
	jobs.StartUserSync(ctx, gdb, mgr, cfg.UserSyncInterval, logger)
	jobs.NewHealthMonitor(mgr, j, queues, logger).Start(ctx, cfg.HealthInterval)
	jobs.StartNotificationFlusher(ctx, sender, cfg.NotifyInterval)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.Deps{
		DB:      gdb,
		Nodes:   mgr,
		Mirror:  cfgMirror,
		Journal: j,
		Logger:  logger,
	}, *token)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("controller listening on %s", *addr)
	if *tlsCert != "" && *tlsKey != "" {
		if *clientCA != "" {
			tlsCfg, errTLS := api.ServerTLSConfig(*tlsCert, *tlsKey, *clientCA)
			if errTLS != nil {
				logger.WithError(errTLS).Fatal("failed to build TLS config")
			}
			srv.TLSConfig = tlsCfg
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServeTLS(*tlsCert, *tlsKey)
		}
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("server error")
	}
}
