//go:build goexperiment.simd && amd64

package toolbox

import "simd"

// dot returns the inner product of x and y, which must be the same length.
//
// https://go.dev/play/p/NY5rJYPoJcl
func dot(x, y []float32) float32 {
	var s0, s1, s2, s3 simd.Float32x8

	// Constant offsets keep the bounds checks out of the loop body.
	for len(x) >= 32 && len(y) >= 32 {
		x3 := simd.LoadFloat32x8Slice(x[24:])
		x2 := simd.LoadFloat32x8Slice(x[16:])
		x1 := simd.LoadFloat32x8Slice(x[8:])
		x0 := simd.LoadFloat32x8Slice(x[:])
		x = x[32:]
		y3 := simd.LoadFloat32x8Slice(y[24:])
		y2 := simd.LoadFloat32x8Slice(y[16:])
		y1 := simd.LoadFloat32x8Slice(y[8:])
		y0 := simd.LoadFloat32x8Slice(y[:])
		y = y[32:]

		s0 = x0.MulAdd(y0, s0)
		s1 = x1.MulAdd(y1, s1)
		s2 = x2.MulAdd(y2, s2)
		s3 = x3.MulAdd(y3, s3)
	}

	s0 = s0.Add(s1).Add(s2.Add(s3))
	sum4 := s0.GetLo().Add(s0.GetHi())
	sum2 := sum4.AddPairs(sum4)
	sum1 := sum2.AddPairs(sum2)
	var lanes [4]float32
	sum1.StoreSlice(lanes[:])
	sum := lanes[0]

	if len(x) == len(y) {
		for i := range len(x) {
			sum += x[i] * y[i]
		}
	}
	return sum
}
