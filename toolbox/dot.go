//go:build !(goexperiment.simd && amd64)

package toolbox

// dot returns the inner product of x and y, which must be the same length.
func dot(x, y []float32) float32 {
	y = y[:len(x)]
	var sum float32
	for i := range x {
		sum += x[i] * y[i]
	}
	return sum
}
