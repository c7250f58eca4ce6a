// ════════════════════════════════════════════════════════════════════════════════════════════════
// CPU Relaxation - AMD64 Architecture
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Emits PAUSE between polls of a spin slot so a sibling hyperthread (often the
// producer) keeps its execution resources.
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build amd64 && cgo && !noasm

package slot

/*
static inline void cpu_pause() {
    __asm__ __volatile__("pause" ::: "memory");
}
*/
import "C"

// cpuRelax emits the x86-64 PAUSE instruction.
func cpuRelax() {
	C.cpu_pause()
}
