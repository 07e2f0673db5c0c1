// Package stream holds the generic channel combinator the source
// package builds its decode pipeline on.
package stream

import "context"

// Transform, taken from:
// https://betterprogramming.pub/writing-a-stream-api-in-go-afbc3c4350e2
func Transform[I any, O any](ctx context.Context, transformer func(I) O, in <-chan I) <-chan O {
	out := make(chan O)
	go func() {
		defer close(out)
		for element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- transformer(element):
			}
		}
	}()
	return out
}
