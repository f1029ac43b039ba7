/*
 * bspline.go, part of abipy.
 *
 * Copyright 2023 The abipy authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package gw

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

//bspline is a clamped B-spline curve fitted to scattered data by weighted
//least squares. It is the smoothing backend of the scissor builder. The
//knots are placed at quantiles of the abscissas so every knot interval
//contains data, which keeps the normal equations well posed.
type bspline struct {
	p    int       //degree
	U    []float64 //knot vector, clamped at both ends
	coef []float64
}

//maxInteriorKnots bounds the flexibility of the fit. More knots would
//interpolate the noise we are trying to smooth out.
const maxInteriorKnots = 10

//fitBSpline fits a clamped B-spline of the requested degree to the points
//(x[i], y[i]) with weights w. The abscissas must be non-decreasing;
//repeated values, from degenerate states, are permitted. A nil w means
//unit weights. The degree is lowered when there are not enough distinct
//abscissas to support it, down to a constant fit on a single energy.
func fitBSpline(x, y, w []float64, degree int) (*bspline, error) {
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("abipy/gw.fitBSpline: no data points given")
	}
	if len(y) != n {
		return nil, fmt.Errorf("abipy/gw.fitBSpline: got %d abscissas but %d ordinates", n, len(y))
	}
	if w != nil && len(w) != n {
		return nil, fmt.Errorf("abipy/gw.fitBSpline: got %d abscissas but %d weights", n, len(w))
	}
	ndist := 1
	for i := 1; i < n; i++ {
		if x[i] < x[i-1] {
			return nil, fmt.Errorf("abipy/gw.fitBSpline: abscissas are not sorted in ascending order")
		}
		if x[i] > x[i-1] {
			ndist++
		}
	}
	if degree < 0 {
		return nil, fmt.Errorf("abipy/gw.fitBSpline: negative degree %d", degree)
	}
	//repeated abscissas add rows but no rank, the degree must follow
	//the distinct count or the normal equations turn rank deficient
	p := degree
	if p > ndist-1 {
		p = ndist - 1
	}
	U := knotVector(x, p, ndist)
	ncoef := len(U) - p - 1
	B := mat.NewDense(n, ncoef, nil)
	Y := mat.NewVecDense(n, nil)
	for r := 0; r < n; r++ {
		sw := 1.0
		if w != nil {
			if w[r] < 0 {
				return nil, fmt.Errorf("abipy/gw.fitBSpline: negative weight %v at point %d", w[r], r)
			}
			sw = math.Sqrt(w[r])
		}
		span := findSpan(ncoef-1, p, x[r], U)
		N := basisFuns(span, x[r], p, U)
		for j := 0; j <= p; j++ {
			B.Set(r, span-p+j, sw*N[j])
		}
		Y.SetVec(r, sw*y[r])
	}
	var c mat.VecDense
	if err := c.SolveVec(B, Y); err != nil {
		//an ill-conditioned system still yields a usable fit, an
		//infinite condition number means no solution was written
		if cnd, ok := err.(mat.Condition); !ok || math.IsInf(float64(cnd), 1) {
			return nil, fmt.Errorf("abipy/gw.fitBSpline: singular design matrix: %v", err)
		}
	}
	ret := &bspline{p: p, U: U, coef: make([]float64, ncoef)}
	for j := 0; j < ncoef; j++ {
		v := c.AtVec(j)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("abipy/gw.fitBSpline: the fit produced non finite coefficients")
		}
		ret.coef[j] = v
	}
	return ret, nil
}

//knotVector builds a clamped knot vector for degree p with interior knots
//at quantiles of the sorted abscissas. Duplicates are skipped so the
//interior knots are strictly increasing, and the coefficient count
//p+1+interior never exceeds the number ndist of distinct abscissas, so
//the collocation rows of the distinct points keep full column rank.
func knotVector(x []float64, p, ndist int) []float64 {
	n := len(x)
	nint := (n - p - 1) / 3
	if nint > maxInteriorKnots {
		nint = maxInteriorKnots
	}
	if nint > ndist-p-1 {
		nint = ndist - p - 1
	}
	if nint < 0 {
		nint = 0
	}
	U := make([]float64, 0, nint+2*(p+1))
	for i := 0; i <= p; i++ {
		U = append(U, x[0])
	}
	last := x[0]
	for j := 1; j <= nint; j++ {
		idx := int(math.Round(float64(j) * float64(n-1) / float64(nint+1)))
		u := x[idx]
		if u > last && u < x[n-1] {
			U = append(U, u)
			last = u
		}
	}
	for i := 0; i <= p; i++ {
		U = append(U, x[n-1])
	}
	return U
}

//findSpan returns the knot span index of u. n is the highest basis
//function index, that is, the number of coefficients minus one.
func findSpan(n, p int, u float64, U []float64) int {
	if u >= U[n+1] {
		return n
	}
	if u <= U[p] {
		return p
	}
	low, high := p, n+1
	mid := (low + high) / 2
	for u < U[mid] || u >= U[mid+1] {
		if u < U[mid] {
			high = mid
		} else {
			low = mid
		}
		mid = (low + high) / 2
	}
	return mid
}

//basisFuns evaluates the p+1 basis functions that do not vanish on the
//span i at the point u.
func basisFuns(i int, u float64, p int, U []float64) []float64 {
	N := make([]float64, p+1)
	left := make([]float64, p+1)
	right := make([]float64, p+1)
	N[0] = 1.0
	for j := 1; j <= p; j++ {
		left[j] = u - U[i+1-j]
		right[j] = U[i+j] - u
		saved := 0.0
		for r := 0; r < j; r++ {
			temp := N[r] / (right[r+1] + left[j-r])
			N[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		N[j] = saved
	}
	return N
}

//Eval evaluates the fitted curve at u. Points outside the fitted range
//are clamped to the nearest boundary, callers that care about the domain
//must check it themselves.
func (B *bspline) Eval(u float64) float64 {
	ncoef := len(B.coef)
	lo, hi := B.U[B.p], B.U[ncoef]
	if u < lo {
		u = lo
	}
	if u > hi {
		u = hi
	}
	span := findSpan(ncoef-1, B.p, u, B.U)
	N := basisFuns(span, u, B.p, B.U)
	ret := 0.0
	for j := 0; j <= B.p; j++ {
		ret += N[j] * B.coef[span-B.p+j]
	}
	return ret
}
