package main

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"asset-inventory-api/internal"
	"asset-inventory-api/internal/config"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	srv := internal.NewServer(cfg, log)

	log.WithFields(logrus.Fields{
		"addr":       cfg.ListenAddr,
		"jwt_issuer": cfg.JWTIssuer,
		"jwt_expiry": cfg.JWTExpiry.String(),
		"metrics":    cfg.MetricsOn,
	}).Info("starting asset inventory API server")

	log.Fatal(http.ListenAndServe(cfg.ListenAddr, srv.Router))
}
