package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/findrandomevents/harvest/auth"
	"github.com/findrandomevents/harvest/log"
	"github.com/findrandomevents/harvest/prom"
	"github.com/findrandomevents/harvest/rest"
	"github.com/findrandomevents/harvest/service"
)

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the harvest REST API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	addHarvestFlags(cmd)

	f := cmd.Flags()
	f.String("admin-uids", "", "comma-separated list of firebase uids that have admin privileges")
	f.String("cors-origins", "", "comma-separated list of request origins where CORS requests are allowed")
	f.String("project-id", "the-third-party", "the firebase project-id used for auth")
	f.Int("port", 8080, "the port where the REST API listens for connections")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	dbURL := viper.GetString("db")
	if dbURL == "" {
		return fmt.Errorf("missing --db")
	}

	opts := harvestOptions()
	if err := opts.Validate(); err != nil {
		return err
	}

	eventStore, err := openEventStore(cmd, dbURL)
	if err != nil {
		logger.Fatal("init event store failed", zap.Error(err))
	}

	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID: viper.GetString("project-id"),
	})
	if err != nil {
		logger.Fatal("init firebase failed", zap.Error(err))
	}
	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		logger.Fatal("init firebase failed", zap.Error(err))
	}
	jwtProvider := &auth.FirebaseProvider{
		AuthClient: authClient,
		AdminUIDs:  strings.Split(viper.GetString("admin-uids"), ","),
	}

	service := &service.Service{
		EventStore: eventStore,

		Harvest: service.NewHarvester(opts).Harvest,
		Time:    service.RealTime,

		Auth: jwtProvider,
	}

	var handler http.Handler
	handler = rest.New(service)
	handler = log.WrapHandler(handler, logger)
	handler = handlers.CORS(
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS", "HEAD"}),
		handlers.AllowedOrigins(strings.Split(viper.GetString("cors-origins"), ",")),
	)(handler)

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", prom.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprint(":", viper.GetInt("port")),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
	return nil
}
