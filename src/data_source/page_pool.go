package datasource

import "context"

// PagePool bounds how many rendered-page extractions run at once across all
// vendors and batch workers.
type PagePool struct {
	slots chan struct{}
}

// -----------------------------------------------------------------------------

func NewPagePool(size int) *PagePool {
	if size < 1 {
		size = 1
	}
	return &PagePool{slots: make(chan struct{}, size)}
}

// -----------------------------------------------------------------------------

// Acquire blocks until a slot is free or ctx is done.
func (p *PagePool) Acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -----------------------------------------------------------------------------

func (p *PagePool) Release() {
	<-p.slots
}

// -----------------------------------------------------------------------------

func (p *PagePool) Size() int {
	return cap(p.slots)
}

// -----------------------------------------------------------------------------

func (p *PagePool) InUse() int {
	return len(p.slots)
}
