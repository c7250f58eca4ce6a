package slot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"

	"tokenring/token"
)

// Pipe is a slot backed by an anonymous OS pipe. Each token crosses the pipe
// as one fixed-size record; a record is smaller than PIPE_BUF so writes are
// atomic and never interleave.
//
// Either end may be nil: a child participant holds only the read end of its
// inbox and only the write end of its outbox.
type Pipe struct {
	r, w  *os.File
	rbuf  token.Record // consumer-owned
	wbuf  token.Record // producer-owned
	ronce sync.Once
	wonce sync.Once
	rerr  error
	werr  error
	wmu   sync.Mutex // orders Put against CloseWrite on the same end
	wshut bool
}

// NewPipe creates a pipe slot owning both ends.
func NewPipe() (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("slot: pipe: %w", err)
	}
	return &Pipe{r: r, w: w}, nil
}

// NewPipeFiles wraps existing pipe ends. Pass nil for an end this process
// does not hold.
func NewPipeFiles(r, w *os.File) *Pipe {
	return &Pipe{r: r, w: w}
}

// Reader returns the read end, or nil.
func (p *Pipe) Reader() *os.File { return p.r }

// Writer returns the write end, or nil.
func (p *Pipe) Writer() *os.File { return p.w }

// Put implements Slot with a blocking write of one record.
func (p *Pipe) Put(t token.Token) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()

	if p.w == nil || p.wshut {
		return ErrClosed
	}

	token.Encode(&p.wbuf, t)
	if _, err := p.w.Write(p.wbuf[:]); err != nil {
		return mapPipeErr(err)
	}
	return nil
}

// Take implements Slot with a blocking read of exactly one record. A clean
// EOF between records is ErrClosed; EOF inside a record is malformed.
func (p *Pipe) Take() (token.Token, error) {
	if p.r == nil {
		return token.Token{}, ErrClosed
	}

	n, err := io.ReadFull(p.r, p.rbuf[:])
	switch {
	case err == nil:
		return token.Decode(p.rbuf[:])
	case errors.Is(err, io.ErrUnexpectedEOF):
		return token.Token{}, fmt.Errorf("%w: stream ended after %d bytes", token.ErrMalformed, n)
	default:
		return token.Token{}, mapPipeErr(err)
	}
}

// CloseWrite implements Slot by closing the write end held by this process.
// Other holders of the same pipe (a parent, a sibling process) keep theirs.
func (p *Pipe) CloseWrite() error {
	p.wonce.Do(func() {
		p.wmu.Lock()
		defer p.wmu.Unlock()
		p.wshut = true
		if p.w != nil {
			p.werr = p.w.Close()
		}
	})
	return p.werr
}

// Close implements Slot by closing both ends.
func (p *Pipe) Close() error {
	werr := p.CloseWrite()
	p.ronce.Do(func() {
		if p.r != nil {
			p.rerr = p.r.Close()
		}
	})
	return errors.Join(werr, p.rerr)
}

// mapPipeErr folds the ways a pipe can go away into ErrClosed.
func mapPipeErr(err error) error {
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, os.ErrClosed),
		errors.Is(err, syscall.EPIPE):
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return err
}
