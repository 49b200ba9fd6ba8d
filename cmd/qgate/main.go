package main

import (
	"context"
	"crypto/ed25519"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"qgate/internal/core"
	"qgate/internal/history"
	"qgate/internal/security"
	"qgate/internal/storage"
	"qgate/pkg/utils"
)

const defaultConfigFile = "qgate.yaml"
const defaultJournalFile = "qgate.jsonl"

// Exit codes: 0 passed, 1 failed, 2 pipeline config broken, 130 interrupted.
const (
	exitPassed    = 0
	exitFailed    = 1
	exitConfig    = 2
	exitCancelled = 130
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  qgate [flags]            list available pipelines")
	fmt.Fprintln(os.Stderr, "  qgate [flags] <name>     run the named pipeline")
	fmt.Fprintln(os.Stderr, "  qgate [flags] history    list journal records")
	fmt.Fprintln(os.Stderr, "  qgate [flags] verify     verify the journal chain")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "pipelines YAML file (default: "+defaultConfigFile+" if present, else builtin)")
	logDir := flag.String("logs", "", "directory to persist per-step logs (off when empty)")
	journalPath := flag.String("journal", "", "append a run record to this JSONL journal (off when empty)")
	keyDir := flag.String("keys", "", "key directory for signing journal records (off when empty)")
	flag.Usage = usage
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("cannot load pipelines")
		os.Exit(exitConfig)
	}

	args := flag.Args()
	if len(args) == 0 {
		listPipelines(cfg)
		os.Exit(exitPassed)
	}

	switch args[0] {
	case "history":
		os.Exit(showHistory(log, journalFile(*journalPath)))
	case "verify":
		os.Exit(verifyJournal(log, journalFile(*journalPath)))
	default:
		os.Exit(runPipeline(log, cfg, args[0], *logDir, *journalPath, *keyDir))
	}
}

func loadConfig(path string) (*core.Config, error) {
	if path != "" {
		return core.LoadConfig(path)
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return core.LoadConfig(defaultConfigFile)
	}
	return core.BuiltinConfig(), nil
}

func journalFile(path string) string {
	if path == "" {
		return defaultJournalFile
	}
	return path
}

func listPipelines(cfg *core.Config) {
	fmt.Println("Available pipelines:")
	for _, name := range cfg.Names() {
		fmt.Printf("  %s\n", name)
	}
}

func runPipeline(log *logrus.Logger, cfg *core.Config, name, logDir, journalPath, keyDir string) int {
	pipeline, err := cfg.Lookup(name)
	if err != nil {
		log.WithError(err).Error("cannot select pipeline")
		return exitConfig
	}

	// an interrupt kills the running child and aborts the pipeline
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := core.NewRunner()
	runner.Report = reportStep
	if logDir != "" {
		runner.Logs = storage.NewLogStorage(logDir)
	}

	fmt.Printf("Running pipeline %q\n", pipeline.Name)
	res, err := runner.Run(ctx, pipeline)
	if err != nil {
		log.WithError(err).Error("pipeline definition rejected")
		return exitConfig
	}

	if journalPath != "" {
		if err := appendJournal(journalFile(journalPath), keyDir, res); err != nil {
			log.WithError(err).Warn("cannot append journal record")
		}
	}

	switch res.Status {
	case core.StatusPassed:
		fmt.Printf("\nPipeline %q passed\n", res.Pipeline)
		return exitPassed
	case core.StatusCancelled:
		fmt.Printf("\nPipeline %q cancelled\n", res.Pipeline)
		return exitCancelled
	default:
		if fail := res.FirstFailure(); fail != nil {
			fmt.Printf("\nPipeline %q failed at step %q (exit %d)\n", res.Pipeline, fail.Name, fail.ExitCode)
			if fail.Detail != "" {
				fmt.Printf("  %s\n", fail.Detail)
			}
		} else {
			fmt.Printf("\nPipeline %q failed\n", res.Pipeline)
		}
		return exitFailed
	}
}

func reportStep(sr core.StepResult) {
	switch sr.Status {
	case core.StatusSkipped:
		fmt.Printf("==> %s: skipped\n", sr.Name)
	case core.StatusPassed:
		fmt.Printf("==> %s: passed (%.1fs)\n", sr.Name, sr.Duration.Seconds())
	default:
		fmt.Printf("==> %s: %s (%.1fs)\n", sr.Name, sr.Status, sr.Duration.Seconds())
	}
}

func appendJournal(path, keyDir string, res *core.PipelineResult) error {
	journal, err := history.Open(path)
	if err != nil {
		return err
	}

	var priv ed25519.PrivateKey
	var pub ed25519.PublicKey
	if keyDir != "" {
		p, k, err := security.EnsureKeyPair(keyDir)
		if err != nil {
			return err
		}
		pub, priv = p, k
	}

	var outputs string
	for _, step := range res.Steps {
		outputs += step.Output
	}
	rec, err := history.NewRecord(journal.NextSeq(), res, utils.HashString(outputs), journal.LastDigest())
	if err != nil {
		return err
	}
	return journal.Append(rec, priv, pub)
}

func showHistory(log *logrus.Logger, path string) int {
	journal, err := history.Open(path)
	if err != nil {
		log.WithError(err).Error("cannot open journal")
		return exitFailed
	}
	for _, rec := range journal.Records() {
		fmt.Printf("seq=%d time=%s pipeline=%s status=%s digest=%s\n",
			rec.Seq, rec.Timestamp, rec.Pipeline, rec.Status, rec.Digest[:16])
	}
	return exitPassed
}

func verifyJournal(log *logrus.Logger, path string) int {
	journal, err := history.Open(path)
	if err != nil {
		log.WithError(err).Error("cannot open journal")
		return exitFailed
	}
	if err := journal.Verify(); err != nil {
		fmt.Printf("Journal verification FAILED: %v\n", err)
		return exitFailed
	}
	fmt.Println("Journal verification ok")
	return exitPassed
}
