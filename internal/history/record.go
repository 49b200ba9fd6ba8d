package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"qgate/internal/core"
)

// StepRecord is the journal's summary of one step outcome.
type StepRecord struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	ExitCode int    `json:"exitCode"`
}

// Record is one tamper-evident journal entry for a whole pipeline run.
// Each record links to the previous one through PrevDigest.
type Record struct {
	Seq        int          `json:"seq"`
	Timestamp  string       `json:"timestamp"`
	Pipeline   string       `json:"pipeline"`
	Status     string       `json:"status"`
	Steps      []StepRecord `json:"steps"`
	LogDigest  string       `json:"logDigest,omitempty"` // digest over persisted step logs
	PrevDigest string       `json:"prevDigest"`
	Digest     string       `json:"digest"`
	Signature  string       `json:"signature,omitempty"`
	PubKey     string       `json:"pubKey,omitempty"`
}

// canonicalData returns the JSON bytes the digest is computed over.
// Digest, Signature and PubKey are intentionally excluded.
func (r *Record) canonicalData() ([]byte, error) {
	view := struct {
		Seq        int          `json:"seq"`
		Timestamp  string       `json:"timestamp"`
		Pipeline   string       `json:"pipeline"`
		Status     string       `json:"status"`
		Steps      []StepRecord `json:"steps"`
		LogDigest  string       `json:"logDigest,omitempty"`
		PrevDigest string       `json:"prevDigest"`
	}{
		Seq:        r.Seq,
		Timestamp:  r.Timestamp,
		Pipeline:   r.Pipeline,
		Status:     r.Status,
		Steps:      r.Steps,
		LogDigest:  r.LogDigest,
		PrevDigest: r.PrevDigest,
	}
	return json.Marshal(view)
}

// ComputeDigest calculates sha256 over the canonical view.
func (r *Record) ComputeDigest() (string, error) {
	data, err := r.canonicalData()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewRecord builds a journal record for a finished run and computes its
// digest (no signature yet).
func NewRecord(seq int, res *core.PipelineResult, logDigest, prevDigest string) (*Record, error) {
	steps := make([]StepRecord, 0, len(res.Steps))
	for _, s := range res.Steps {
		steps = append(steps, StepRecord{Name: s.Name, Status: string(s.Status), ExitCode: s.ExitCode})
	}

	rec := &Record{
		Seq:        seq,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Pipeline:   res.Pipeline,
		Status:     string(res.Status),
		Steps:      steps,
		LogDigest:  logDigest,
		PrevDigest: prevDigest,
	}

	d, err := rec.ComputeDigest()
	if err != nil {
		return nil, errors.Wrap(err, "compute record digest")
	}
	rec.Digest = d
	return rec, nil
}
