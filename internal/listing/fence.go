package listing

// Fence hands out increasing request ids. Only a response carrying the
// latest id may be applied.
type Fence struct {
	latest uint64
}

func (f *Fence) Next() uint64 {
	f.latest++
	return f.latest
}

func (f *Fence) IsCurrent(id uint64) bool { return id == f.latest }

func (f *Fence) Latest() uint64 { return f.latest }
