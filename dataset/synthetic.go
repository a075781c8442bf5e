package dataset

import "math"

// SphereSamples returns the (n+1)² records [x, y, z, label] of points on a sphere of
// radius r centered at offset, sampled with uniform steps of azimuth u in [0,2π]
// and polar angle v in [0,π]. Samples cluster at the poles.
func SphereSamples(n int, r float64, offset [3]float64, label Value) [][]Value {
	return AppendSphereSamples(nil, n, r, offset, label)
}

// AppendSphereSamples appends the records of [SphereSamples] to dst.
func AppendSphereSamples(dst [][]Value, n int, r float64, offset [3]float64, label Value) [][]Value {
	du := 2 * math.Pi / float64(n)
	dv := math.Pi / float64(n)
	for i := 0; i <= n; i++ {
		sinu, cosu := math.Sincos(float64(i) * du)
		for j := 0; j <= n; j++ {
			sinv, cosv := math.Sincos(float64(j) * dv)
			dst = append(dst, []Value{
				Num(offset[0] + r*sinv*cosu),
				Num(offset[1] + r*sinv*sinu),
				Num(offset[2] + r*cosv),
				label,
			})
		}
	}
	return dst
}

// NestedSpheres returns the records of two concentric spheres sampled with n steps
// per angle, the unit sphere labeled 0 and the sphere of radius 2 labeled 1.
func NestedSpheres(n int) [][]Value {
	records := make([][]Value, 0, 2*(n+1)*(n+1))
	records = AppendSphereSamples(records, n, 1, [3]float64{}, Num(0))
	records = AppendSphereSamples(records, n, 2, [3]float64{}, Num(1))
	return records
}

// ExperimentNested names the concentric spheres of [NestedSpheres].
const ExperimentNested = "nested"

// Synthesize generates the records of a named experiment with n samples per angle.
func Synthesize(experiment string, n int) ([][]Value, bool) {
	switch experiment {
	case ExperimentNested:
		return NestedSpheres(n), true
	}
	return nil, false
}
