// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — Ring tunables, wire layout & handshake values
//
// Purpose:
//   - Defines defaults for ring size and per-participant round budget.
//   - Fixes the token record layout shared by every pipe endpoint.
//   - Names the environment and inherited descriptors of child participants.
//
// Notes:
//   - Record layout is little-endian and 16 bytes, well under PIPE_BUF, so a
//     single write(2) of one record is atomic.
//   - Descriptor numbers follow exec.Cmd.ExtraFiles ordering (entry i → fd 3+i).
//
// ⚠️ No runtime logic here — all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ──────────────────────────────── Run Defaults ──────────────────────────────

const (
	// DefaultRingSize is the participant count used when none is configured.
	DefaultRingSize = 5

	// DefaultRounds is the number of hops each participant performs.
	DefaultRounds = 5

	// DefaultRepeat is how many times the CLI runs the configured benchmark.
	DefaultRepeat = 1
)

// ───────────────────────────── Token Semantics ──────────────────────────────

const (
	// DriverID is the sender identity stamped on the injected seed token.
	DriverID = -1

	// SeedValue is the counter value carried by the seed token. After a run
	// with uniform budgets the token resting in slot 0 holds SeedValue+N×R.
	SeedValue = 1
)

// ─────────────────────────────── Wire Record ────────────────────────────────

const (
	// RecordSize is the fixed size of one encoded token on a byte stream.
	//   [0:2]  magic   uint16
	//   [2]    version uint8
	//   [3]    flags   uint8 (zero)
	//   [4:8]  sender  int32
	//   [8:16] value   int64
	RecordSize = 16

	// RecordMagic spells "TK" when read little-endian.
	RecordMagic = 0x4B54

	// RecordVersion is the only layout revision understood by decoders.
	RecordVersion = 1
)

// ──────────────────────────── Readiness Handshake ───────────────────────────

const (
	// ReadyFlagSize is the byte width of a readiness word on a report pipe.
	ReadyFlagSize = 4

	// ReadyFlag is written by a child once its pipes are wired.
	ReadyFlag = 1

	// NotReadyFlag is written by a child that failed to set itself up.
	NotReadyFlag = 0
)

// ───────────────────────────── Child Participants ───────────────────────────

const (
	// ChildEnv carries the JSON participant spec. Its presence switches the
	// binary into participant mode before any flag parsing happens.
	ChildEnv = "TOKENRING_PARTICIPANT"

	// ChildInputFD is the read end of the participant's inbox pipe.
	ChildInputFD = 3

	// ChildOutputFD is the write end of the successor's inbox pipe.
	ChildOutputFD = 4

	// ChildReportFD is the write end of the participant's report pipe.
	ChildReportFD = 5

	// ChildExitProtocol is the exit status of a child that hit a protocol error.
	ChildExitProtocol = 1

	// ChildExitSetup is the exit status of a child that could not start.
	ChildExitSetup = 2
)

// ──────────────────────────────── Spin Transport ────────────────────────────

const (
	// SpinBudget is the number of failed polls before a spinning taker
	// yields its processor.
	SpinBudget = 224

	// SpinCapacity is the slot depth of the spin transport. One cell gives
	// exactly the EMPTY/FULL alternation of a mailbox.
	SpinCapacity = 1
)

// ──────────────────────────────── Persistence ───────────────────────────────

const (
	// DefaultDBPath is empty: results are only persisted when asked for.
	DefaultDBPath = ""

	// DigestHexLen is the number of hex characters kept from a config digest.
	DigestHexLen = 16
)
