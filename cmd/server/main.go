package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"qgate/internal/core"
	"qgate/internal/history"
	"qgate/internal/security"
	"qgate/internal/server"
)

func main() {
	addr := flag.String("addr", "", "listen address (default :8080, or PORT env)")
	configPath := flag.String("config", "", "pipelines YAML file (builtin gate when empty)")
	journalPath := flag.String("journal", "", "JSONL run journal (off when empty)")
	keyDir := flag.String("keys", "./keys", "key directory for signing journal records")
	flag.Parse()

	log := logrus.New()

	cfg := core.BuiltinConfig()
	if *configPath != "" {
		loaded, err := core.LoadConfig(*configPath)
		if err != nil {
			log.WithError(err).Fatal("cannot load pipelines")
		}
		cfg = loaded
	}

	opts := []server.Option{server.WithLogger(log)}
	if *journalPath != "" {
		journal, err := history.Open(*journalPath)
		if err != nil {
			log.WithError(err).Fatal("cannot open journal")
		}
		pub, priv, err := security.EnsureKeyPair(*keyDir)
		if err != nil {
			log.WithError(err).Fatal("cannot init signing keys")
		}
		opts = append(opts, server.WithJournal(journal, priv, pub))
	}

	s := server.New(cfg, opts...)

	listen := *addr
	if listen == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		listen = ":" + port
	}

	log.WithField("addr", listen).Info("qgate server listening")
	if err := http.ListenAndServe(listen, s.Routes()); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
