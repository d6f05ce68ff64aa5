package lib

import (
	"context"
	"math/rand"
	"time"
)

// Burn keeps one core busy multiplying random matrices, pausing between
// rounds, until ctx is done.
func Burn(ctx context.Context, size int, pause time.Duration) {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		multiply(randomMatrix(rnd, size), randomMatrix(rnd, size))
		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}

func randomMatrix(rnd *rand.Rand, size int) [][]float64 {
	m := make([][]float64, size)
	for i := range m {
		m[i] = make([]float64, size)
		for j := range m[i] {
			m[i][j] = rnd.Float64()
		}
	}
	return m
}

func multiply(a, b [][]float64) [][]float64 {
	n := len(a)
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for k := 0; k < n; k++ {
			aik := a[i][k]
			for j := 0; j < n; j++ {
				out[i][j] += aik * b[k][j]
			}
		}
	}
	return out
}
