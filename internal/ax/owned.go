package ax

// Owned holds a value that may only be touched from the OS thread that
// created it. Builds with the dwindle_debug tag panic on cross-thread
// access; release builds skip the check.
type Owned[T any] struct {
	value T
	owner int
}

// NewOwned tags v with the calling thread. The caller must have locked its
// goroutine to the thread.
func NewOwned[T any](v T) *Owned[T] {
	return &Owned[T]{value: v, owner: threadID()}
}

// Get returns the wrapped value.
func (o *Owned[T]) Get() T {
	checkOwner(o.owner)
	return o.value
}

// Owner is the thread id recorded at creation.
func (o *Owned[T]) Owner() int {
	return o.owner
}
