// SPDX-License-Identifier: EPL-2.0

package utils

// FastCos approximates cos(x) on [0, pi/2] with a Taylor polynomial.
// The error stays under 1e-3 on that range.
func FastCos(x float32) float32 {
	x2 := x * x
	x4 := x2 * x2
	x6 := x4 * x2
	return 1 - x2/2 + x4/24 - x6/720
}

// FastSin approximates sin(x) on [0, pi/2] with a Taylor polynomial.
func FastSin(x float32) float32 {
	x2 := x * x
	x3 := x2 * x
	x5 := x3 * x2
	x7 := x5 * x2
	return x - x3/6 + x5/120 - x7/5040
}
