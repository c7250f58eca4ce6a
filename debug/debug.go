// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go — Prefix-tagged stderr logging & per-run hop tracing
//
// Purpose:
//   - Logs cold-path events (startup, readiness, teardown, errors).
//   - Traces every hop of a run when debug output is requested.
//
// Notes:
//   - Avoids fmt to keep the hop path cheap; hop lines are appended into one
//     buffer and emitted with one write(2).
//   - The trace switch lives in a Tracer value owned by the run, never in a
//     package variable, so concurrent runs do not share it.
//
// ⚠️ DropMessage/DropError are always on — keep them out of hop loops.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import "tokenring/utils"

// DropError logs prefix and err on one line. A nil err logs the prefix only,
// which is handy for tagged warnings.
//
//go:nosplit
//go:inline
func DropError(prefix string, err error) {
	if err != nil {
		utils.PrintWarning(prefix + ": " + err.Error() + "\n")
		return
	}
	utils.PrintWarning(prefix + "\n")
}

// DropMessage logs a tagged diagnostic line.
//
//go:nosplit
//go:inline
func DropMessage(prefix, message string) {
	utils.PrintWarning(prefix + ": " + message + "\n")
}

// Tracer emits hop-level lines for a single run. The zero value is disabled.
type Tracer struct {
	enabled bool
	emit    func(string)
}

// NewTracer returns a tracer writing to stderr when enabled is true.
func NewTracer(enabled bool) *Tracer {
	return &Tracer{enabled: enabled, emit: utils.PrintWarning}
}

// NewTracerFunc returns an enabled tracer that hands each line to emit.
// Tests use it to capture output.
func NewTracerFunc(emit func(string)) *Tracer {
	return &Tracer{enabled: true, emit: emit}
}

// Enabled reports whether lines are being emitted. Safe on a nil tracer.
func (t *Tracer) Enabled() bool {
	return t != nil && t.enabled
}

// Message emits a tagged line when tracing is on.
func (t *Tracer) Message(prefix, message string) {
	if !t.Enabled() {
		return
	}
	t.emit(prefix + ": " + message + "\n")
}

// Hop emits the per-hop line in the ring's traditional wording. The line is
// built in a single buffer and handed over without a copy; the buffer is
// never touched again, so emitters may keep the string.
func (t *Tracer) Hop(id, round, sender int, received, sent int64) {
	if !t.Enabled() {
		return
	}
	b := make([]byte, 0, hopLineCap)
	b = append(b, "I'm "...)
	b = utils.AppendInt(b, int64(id))
	b = append(b, " in round "...)
	b = utils.AppendInt(b, int64(round))
	b = append(b, ", received token "...)
	b = utils.AppendInt(b, received)
	b = append(b, " from "...)
	b = utils.AppendInt(b, int64(sender))
	b = append(b, ", increment and send \""...)
	b = utils.AppendInt(b, int64(id))
	b = append(b, ';')
	b = utils.AppendInt(b, sent)
	b = append(b, "\"\n"...)
	t.emit(utils.B2s(b))
}

// hopLineCap fits the fixed wording plus six 20-digit integers.
const hopLineCap = 192
