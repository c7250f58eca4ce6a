// relax_stub.go — no-op cpuRelax where no spin hint is wired (other
// architectures, cgo disabled, or the noasm tag).

//go:build (!amd64 && !arm64) || !cgo || noasm

package slot

func cpuRelax() {}
