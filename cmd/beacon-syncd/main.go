package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rshallam/drift-beacon/internal/auth"
	"github.com/rshallam/drift-beacon/internal/config"
	"github.com/rshallam/drift-beacon/internal/discover"
	"github.com/rshallam/drift-beacon/internal/events"
	"github.com/rshallam/drift-beacon/internal/hub"
	"github.com/rshallam/drift-beacon/internal/poll"
	httptransport "github.com/rshallam/drift-beacon/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New(os.Stdout, "[beacon-syncd] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host, port, scheme := cfg.Host, cfg.Port, cfg.Scheme
	if host == "" {
		location, ok := discover.DetectHub(ctx, discover.DetectionCandidates, logger)
		if !ok {
			log.Fatalf("no hub configured and none detected on the local network")
		}
		host, port, scheme = location.Host, location.Port, location.Scheme
	}

	cred := credentialFromConfig(cfg, scheme)
	if cred == nil {
		logger.Printf("no stored token, authenticating as %s", cfg.Email)
		cred, err = auth.Authenticate(ctx, auth.Params{
			Host:     host,
			Port:     port,
			Email:    cfg.Email,
			Password: cfg.Password,
			Scheme:   scheme,
		}, auth.WithLogger(logger))
		if err != nil {
			log.Fatalf("authentication failed: %v", err)
		}
		logger.Printf("authenticated %s against hub %q, token expires %s", cred.UserEmail, cred.HubName, cred.ExpiresAt)
	}

	client := hub.NewClient(cred.Scheme, host, port, cred.BearerToken)

	coordinator := poll.New(client,
		poll.WithInterval(cfg.ScanInterval),
		poll.WithLogger(log.New(os.Stdout, "[poll] ", log.LstdFlags)),
		poll.WithUnauthorizedHook(func(ctx context.Context) error {
			if cfg.Password == "" {
				return errors.New("bearer token rejected and no password configured for reauthentication")
			}
			next, err := auth.Reauthenticate(ctx, cred, host, port, cfg.Password, auth.WithLogger(logger))
			if err != nil {
				return err
			}
			cred = next
			client.SetToken(next.BearerToken)
			logger.Printf("reauthenticated, new token expires %s", next.ExpiresAt)
			return nil
		}),
	)

	coordinator.Subscribe(poll.NewLoggingSubscriber(log.New(os.Stdout, "[events] ", log.LstdFlags)))

	if len(cfg.KafkaBrokers) > 0 {
		forwarder := events.NewKafkaForwarder(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer forwarder.Close()
		coordinator.Subscribe(forwarder)
		logger.Printf("forwarding session events to kafka topic %q", cfg.KafkaTopic)
	}

	server, _ := httptransport.NewOpsServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	go func() {
		logger.Printf("metrics listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	runErr := make(chan error, 1)
	go func() {
		logger.Printf("polling %s://%s:%d every %s", cred.Scheme, host, port, cfg.ScanInterval)
		runErr <- coordinator.Run(ctx)
	}()

	select {
	case <-shutdownCh:
		logger.Printf("shutting down")
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("poll loop stopped: %v", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

// credentialFromConfig rebuilds the stored credential from the injected
// connection record, or returns nil when no token was provisioned.
func credentialFromConfig(cfg *config.Config, scheme string) *auth.Credential {
	if cfg.Token == "" {
		return nil
	}
	if scheme == "" {
		scheme = hub.SchemeHTTPS
	}
	return &auth.Credential{
		BearerToken: cfg.Token,
		ExpiresAt:   cfg.TokenExpires,
		HubID:       cfg.HubID,
		HubName:     cfg.HubName,
		UserID:      cfg.UserID,
		UserEmail:   cfg.Email,
		Scheme:      scheme,
	}
}
