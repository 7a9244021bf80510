package sharednotes

// Outcome is the single result of an asynchronous operation.
// Exactly one of Value and Err is meaningful: Value when Err is nil.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Get returns the outcome as a value and error pair.
func (o Outcome[T]) Get() (T, error) {
	return o.Value, o.Err
}

// async runs fn in a new goroutine. The returned channel receives exactly one
// Outcome and is then closed, so it never blocks fn even if nobody reads it.
func async[T any](fn func() (T, error)) <-chan Outcome[T] {
	ch := make(chan Outcome[T], 1)
	go func() {
		defer close(ch)
		v, err := fn()
		if err != nil {
			var zero T
			ch <- Outcome[T]{Value: zero, Err: err}
			return
		}
		ch <- Outcome[T]{Value: v}
	}()
	return ch
}
