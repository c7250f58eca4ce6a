// child.go — participant side of the process family

package proc

import (
	"encoding/binary"
	"errors"
	"os"

	"tokenring/constants"
	"tokenring/control"
	"tokenring/debug"
	"tokenring/ring"
	"tokenring/slot"
	"tokenring/utils"
)

// Main runs this process as the participant described by its environment
// and returns the exit status. Call it before anything else touches flags.
func Main() int {
	report := os.NewFile(constants.ChildReportFD, "report")
	defer report.Close()

	spec, err := decodeSpec(os.Getenv(constants.ChildEnv))
	if err == nil {
		err = spec.validate()
	}
	if err != nil {
		debug.DropError("PARTICIPANT SETUP", err)
		writeFlag(report, constants.NotReadyFlag)
		return constants.ChildExitSetup
	}

	in := os.NewFile(constants.ChildInputFD, "inbox")
	out := os.NewFile(constants.ChildOutputFD, "outbox")
	if in == nil || out == nil {
		debug.DropMessage("PARTICIPANT SETUP", "missing inherited pipes")
		writeFlag(report, constants.NotReadyFlag)
		return constants.ChildExitSetup
	}

	inbox := slot.NewPipeFiles(in, nil)
	outbox := slot.NewPipeFiles(nil, out)
	defer inbox.Close()
	defer outbox.Close()

	opts := []ring.Option{
		ring.WithProbe(control.NewParent(spec.ParentPID)),
		ring.WithTracer(debug.NewTracer(spec.Debug)),
	}
	if spec.Pinned {
		opts = append(opts, ring.WithPinning())
	}
	p := ring.NewParticipant(spec.ID, spec.Rounds, inbox, outbox, opts...)

	if err := writeFlag(report, constants.ReadyFlag); err != nil {
		debug.DropError("PARTICIPANT "+utils.Itoa(spec.ID)+" READY", err)
		return constants.ChildExitSetup
	}
	_ = report.Close()

	if err := p.Run(nil); err != nil {
		debug.DropError("PARTICIPANT "+utils.Itoa(spec.ID), err)
		return constants.ChildExitProtocol
	}
	return 0
}

func writeFlag(w *os.File, flag uint32) error {
	if w == nil {
		return errors.New("no report pipe")
	}
	var buf [constants.ReadyFlagSize]byte
	binary.LittleEndian.PutUint32(buf[:], flag)
	_, err := w.Write(buf[:])
	return err
}
