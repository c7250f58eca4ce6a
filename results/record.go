// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: record.go — Flattened run results & configuration digests
//
// Purpose:
//   - Turns a bench.Result into a flat, persistable Record.
//   - Digests the comparable part of a configuration so repeated runs of the
//     same shape group together regardless of when they ran.
//
// Notes:
//   - Debug is not part of the digest: tracing changes timings, not shape.
// ─────────────────────────────────────────────────────────────────────────────

package results

import (
	"encoding/hex"
	"strconv"

	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/crypto/sha3"

	"tokenring/bench"
	"tokenring/constants"
)

// Record is one persisted run.
type Record struct {
	ID          int64   `json:"id,omitempty"`
	Digest      string  `json:"digest"`
	Executor    string  `json:"executor"`
	Transport   string  `json:"transport"`
	RingSize    int     `json:"ring_size"`
	Rounds      int     `json:"rounds"`
	Pinned      bool    `json:"pinned"`
	Hops        int64   `json:"hops"`
	Seconds     float64 `json:"seconds"`
	FinalValue  int64   `json:"final_value"`
	FinalSender int32   `json:"final_sender"`
	FinalOK     bool    `json:"final_ok"`
	StartedAt   int64   `json:"started_unix_ns"`
}

// Digest identifies the shape of cfg: executor, transport, ring size,
// rounds and pinning.
func Digest(cfg bench.Config) string {
	key := cfg.Executor.String() + "|" +
		cfg.Transport.String() + "|" +
		strconv.Itoa(cfg.RingSize) + "|" +
		strconv.Itoa(cfg.Rounds) + "|" +
		strconv.FormatBool(cfg.Pinned)
	sum := sha3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:constants.DigestHexLen]
}

// NewRecord flattens r.
func NewRecord(r bench.Result) Record {
	rec := Record{
		Digest:      Digest(r.Config),
		Executor:    r.Config.Executor.String(),
		Transport:   r.Config.Transport.String(),
		RingSize:    r.Config.RingSize,
		Rounds:      r.Config.Rounds,
		Pinned:      r.Config.Pinned,
		Hops:        r.Hops,
		Seconds:     r.Seconds(),
		FinalValue:  r.Final.Value,
		FinalSender: r.Final.Sender,
		FinalOK:     r.FinalOK,
	}
	if !r.StartedAt.IsZero() {
		rec.StartedAt = r.StartedAt.UnixNano()
	}
	return rec
}

// HopsPerSecond is the throughput of the run, zero for an instant run.
func (r Record) HopsPerSecond() float64 {
	if r.Seconds <= 0 {
		return 0
	}
	return float64(r.Hops) / r.Seconds
}

// JSON encodes r as a single JSON object.
func (r Record) JSON() ([]byte, error) {
	return sonnet.Marshal(r)
}
