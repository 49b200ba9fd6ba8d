package history

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"qgate/internal/security"
)

// Journal is an append-only run history backed by a JSON-lines file.
// Records are hash-linked so after-the-fact edits are detectable.
type Journal struct {
	mu      sync.Mutex
	records []*Record
	path    string
}

// Open loads an existing journal file or starts an empty one.
func Open(path string) (*Journal, error) {
	j := &Journal{
		records: make([]*Record, 0),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return j, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read journal")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, errors.Wrap(err, "decode journal entry")
		}
		j.records = append(j.records, &rec)
	}
	return j, nil
}

// Append persists a record (JSONL) and keeps it in memory. When priv is
// non-empty the record digest is signed and the hex public key stored
// alongside so anyone holding the journal can check the attestation.
func (j *Journal) Append(rec *Record, priv ed25519.PrivateKey, pub ed25519.PublicKey) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	// recompute so the stored digest always matches the canonical fields
	d, err := rec.ComputeDigest()
	if err != nil {
		return errors.Wrap(err, "recompute record digest")
	}
	rec.Digest = d

	if len(j.records) > 0 {
		last := j.records[len(j.records)-1]
		if rec.PrevDigest != last.Digest {
			return errors.Errorf("prevDigest mismatch: expected %s, got %s", last.Digest, rec.PrevDigest)
		}
	}

	if len(priv) > 0 {
		rec.Signature = security.Sign(priv, []byte(rec.Digest))
		rec.PubKey = hex.EncodeToString(pub)
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open journal file")
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(rec); err != nil {
		return errors.Wrap(err, "write journal file")
	}

	j.records = append(j.records, rec)
	return nil
}

// Records returns the in-memory records in journal order.
func (j *Journal) Records() []*Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.records
}

// NextSeq returns the sequence number the next record should carry.
func (j *Journal) NextSeq() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}

// LastDigest returns the digest of the newest record, or empty.
func (j *Journal) LastDigest() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.records) == 0 {
		return ""
	}
	return j.records[len(j.records)-1].Digest
}

// Verify recomputes every digest, link and signature to detect tampering.
func (j *Journal) Verify() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i, rec := range j.records {
		d, err := rec.ComputeDigest()
		if err != nil {
			return errors.Wrapf(err, "compute digest for seq %d", rec.Seq)
		}
		if d != rec.Digest {
			return errors.Errorf("digest mismatch at seq %d", rec.Seq)
		}
		if i > 0 && rec.PrevDigest != j.records[i-1].Digest {
			return errors.Errorf("prevDigest mismatch at seq %d", rec.Seq)
		}
		if rec.Seq != i {
			return errors.Errorf("seq mismatch: expected %d, got %d", i, rec.Seq)
		}
		if rec.Signature != "" {
			ok, err := security.VerifyFromHex(rec.PubKey, []byte(rec.Digest), rec.Signature)
			if err != nil {
				return errors.Wrapf(err, "check signature at seq %d", rec.Seq)
			}
			if !ok {
				return errors.Errorf("bad signature at seq %d", rec.Seq)
			}
		}
	}
	return nil
}
