// Package ioutil provides buffer-pooled io.Copy helpers used to splice
// proxied connections without per-call allocations.
package ioutil

import (
	"io"

	"github.com/seiftnesse/mc-lazyproxy/internal/bufpool"
)

// Copy is io.CopyBuffer using a pooled buffer.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := bufpool.Large.Get()
	defer bufpool.Large.Put(buf)
	return io.CopyBuffer(dst, src, buf)
}

// CopyResult is the outcome of one direction of a bidirectional copy.
type CopyResult struct {
	Written int64
	Err     error
}

// CopyBidirectional copies a->b and b->a concurrently. When one direction
// finishes it half-closes its destination (CloseWrite if available,
// otherwise Close); the other direction keeps running until its own
// source ends. It returns once both directions have finished.
func CopyBidirectional(a, b io.ReadWriteCloser) (aToB, bToA CopyResult) {
	done := make(chan struct{}, 2)
	var go1, go2 CopyResult

	go func() {
		go1.Written, go1.Err = Copy(b, a)
		closeWrite(b)
		done <- struct{}{}
	}()
	go func() {
		go2.Written, go2.Err = Copy(a, b)
		closeWrite(a)
		done <- struct{}{}
	}()

	<-done
	<-done
	return go1, go2
}

func closeWrite(c io.ReadWriteCloser) {
	type closeWriter interface {
		CloseWrite() error
	}
	if cw, ok := c.(closeWriter); ok {
		cw.CloseWrite()
		return
	}
	c.Close()
}
