// summary.go — human-readable reports

package results

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteSummary prints one aligned line per configuration, with grouped
// thousands in the throughput column.
func WriteSummary(w io.Writer, sums []Summary) error {
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "%-16s  %-9s  %-5s  %6s  %8s  %4s  %5s  %12s  %12s  %12s  %15s\n",
		"digest", "executor", "trans", "ring", "rounds", "pin", "runs",
		"min (s)", "mean (s)", "max (s)", "hops/s"); err != nil {
		return err
	}
	for _, s := range sums {
		pin := "no"
		if s.Pinned {
			pin = "yes"
		}
		if _, err := p.Fprintf(w, "%-16s  %-9s  %-5s  %6d  %8d  %4s  %5d  %12.6f  %12.6f  %12.6f  %15.0f\n",
			s.Digest, s.Executor, s.Transport, s.RingSize, s.Rounds, pin, s.Runs,
			s.MinSeconds, s.MeanSeconds, s.MaxSeconds, s.HopsPerSecond); err != nil {
			return err
		}
	}
	return nil
}

// WriteRun prints the throughput report of a single record.
func WriteRun(w io.Writer, r Record) error {
	p := message.NewPrinter(language.English)
	_, err := p.Fprintf(w,
		"Ring size            : %d\n"+
			"Rounds               : %d\n"+
			"Executor / transport : %s / %s\n"+
			"Total hops           : %d\n"+
			"Hops per second      : %.2f\n"+
			"ns per hop           : %.2f\n",
		r.RingSize, r.Rounds, r.Executor, r.Transport, r.Hops,
		r.HopsPerSecond(), nsPerHop(r))
	return err
}

func nsPerHop(r Record) float64 {
	if r.Hops == 0 {
		return 0
	}
	return r.Seconds * 1e9 / float64(r.Hops)
}
