/*
 * skw.go, part of abipy.
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

//Package skw interpolates band energies in k-space with the star-function
//method of Shankland, Koelling and Wood. Energies computed ab initio on a
//set of k-points are expanded in symmetrized plane waves over real-space
//lattice vectors, with a roughness penalty that keeps the bands smooth
//between the input points while reproducing them there exactly.
package skw

import (
	"fmt"
	"log"
	"math"
	"math/cmplx"
	"sort"

	"github.com/GingrasO/abipy/xtal"
	"gonum.org/v1/gonum/mat"
)

//roughness function constants, from Pickett, Krakauer and Allen,
//Phys. Rev. B 38, 2721 (1988).
const (
	rhoC1 = 0.25
	rhoC2 = 0.25
)

//maeTol is the mean absolute fitting error, in eV, above which New warns
//that the expansion does not reproduce the input energies.
const maeTol = 0.01

//kptAtol is the tolerance on reduced coordinates under which two
//k-points count as the same point of the fit.
const kptAtol = 1e-8

//Interpolator holds the fitted star-function expansion of a set of
//bands. It is read-only after construction and safe for concurrent use.
type Interpolator struct {
	lpratio             int
	nsppol, nkpt, nband int
	fermie, nelect      float64
	ptg                 [][3][3]int //the point group, time reversal included
	rpts                [][3]int    //one lattice vector per star, sorted by length
	rho                 []float64   //roughness of each star, rho[0] is unused
	coefs               [][][]complex128
	mae                 float64
}

//New fits a star-function expansion to the given bands. The kcoords are
//the reduced coordinates of the ab-initio k-points, eigens the energies
//indexed by spin, k-point and band, in eV. The number of star functions
//is lpratio times the number of k-points. The rotations are the
//ferromagnetic part of the crystal symmetries, in reduced coordinates;
//time reversal adds the inversion when the crystal lacks it. K-points
//repeated in the input, modulo a lattice translation, are dropped
//before fitting and at least two distinct ones must remain. K-points
//equivalent under the rotations make the fit singular and must be
//avoided.
func New(lpratio int, kcoords [][3]float64, eigens [][][]float64, fermie, nelect float64,
	lat *xtal.Lattice, fmSymrel [][3][3]int, hasTimrev bool) (*Interpolator, error) {
	if lpratio < 1 {
		return nil, fmt.Errorf("abipy/skw.New: the ratio of star functions to k-points must be at least 1, got %d", lpratio)
	}
	if lat == nil {
		return nil, fmt.Errorf("abipy/skw.New: nil lattice")
	}
	nkpt := len(kcoords)
	if nkpt < 2 {
		return nil, fmt.Errorf("abipy/skw.New: at least two distinct k-points are required, got %d", nkpt)
	}
	nsppol := len(eigens)
	if nsppol == 0 {
		return nil, fmt.Errorf("abipy/skw.New: empty eigenvalue array")
	}
	nband := 0
	for spin := range eigens {
		if len(eigens[spin]) != nkpt {
			return nil, fmt.Errorf("abipy/skw.New: eigens for spin %d cover %d k-points, expected %d", spin, len(eigens[spin]), nkpt)
		}
		for ik := range eigens[spin] {
			if spin == 0 && ik == 0 {
				nband = len(eigens[0][0])
			}
			if len(eigens[spin][ik]) != nband {
				return nil, fmt.Errorf("abipy/skw.New: ragged eigenvalue array at spin %d, k-point %d", spin, ik)
			}
		}
	}
	if nband == 0 {
		return nil, fmt.Errorf("abipy/skw.New: no bands to interpolate")
	}
	//a repeated k-point carries no new information and its duplicated
	//star functions make the fit exactly singular, keep the first copy
	keep := make([]int, 0, nkpt)
	for i := range kcoords {
		dup := false
		for _, j := range keep {
			if sameKpt(kcoords[i], kcoords[j]) {
				dup = true
				break
			}
		}
		if !dup {
			keep = append(keep, i)
		}
	}
	if len(keep) < 2 {
		return nil, fmt.Errorf("abipy/skw.New: at least two distinct k-points are required, got %d", len(keep))
	}
	if len(keep) < nkpt {
		log.Printf("Found %d duplicated k-points, the fit uses the %d distinct ones", nkpt-len(keep), len(keep))
		kuniq := make([][3]float64, len(keep))
		euniq := make([][][]float64, nsppol)
		for spin := range euniq {
			euniq[spin] = make([][]float64, len(keep))
		}
		for n, i := range keep {
			kuniq[n] = kcoords[i]
			for spin := 0; spin < nsppol; spin++ {
				euniq[spin][n] = eigens[spin][i]
			}
		}
		kcoords, eigens = kuniq, euniq
		nkpt = len(keep)
	}
	I := &Interpolator{
		lpratio: lpratio,
		nsppol:  nsppol,
		nkpt:    nkpt,
		nband:   nband,
		fermie:  fermie,
		nelect:  nelect,
		ptg:     pointGroup(fmSymrel, hasTimrev),
	}
	var err error
	var r2 []float64
	I.rpts, r2, err = starPoints(lat, I.ptg, lpratio*nkpt)
	if err != nil {
		return nil, err
	}
	I.rho = roughness(r2)
	if err := I.fit(kcoords, eigens); err != nil {
		return nil, err
	}
	if I.mae > maeTol {
		log.Printf("Large mean absolute error in the band interpolation: %g eV. Results may be inaccurate, try increasing lpratio", I.mae)
	}
	return I, nil
}

//sameKpt reports whether a and b are the same k-point modulo a lattice
//translation, within kptAtol.
func sameKpt(a, b [3]float64) bool {
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		if math.Abs(d-math.Round(d)) > kptAtol {
			return false
		}
	}
	return true
}

//pointGroup removes duplicated rotations and, when time reversal must be
//used and the crystal lacks the inversion, doubles the group with the
//negated rotations. The result is still a group, which starPoints relies
//on.
func pointGroup(fmSymrel [][3][3]int, hasTimrev bool) [][3][3]int {
	inv := [3][3]int{{-1, 0, 0}, {0, -1, 0}, {0, 0, -1}}
	seen := make(map[[3][3]int]bool)
	var ptg [][3][3]int
	hasInv := false
	add := func(g [3][3]int) {
		if seen[g] {
			return
		}
		seen[g] = true
		ptg = append(ptg, g)
		if g == inv {
			hasInv = true
		}
	}
	for _, g := range fmSymrel {
		add(g)
	}
	if len(ptg) == 0 {
		add([3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	}
	if hasTimrev && !hasInv {
		cur := make([][3][3]int, len(ptg))
		copy(cur, ptg)
		for _, g := range cur {
			var ng [3][3]int
			for r := 0; r < 3; r++ {
				for c := 0; c < 3; c++ {
					ng[r][c] = -g[r][c]
				}
			}
			add(ng)
		}
	}
	return ptg
}

//starPoints collects nrwant stars of real-space lattice vectors, sorted
//by length. A star is the orbit of a vector under the point group, all
//its members share the same star function, so only a representative is
//kept. Vectors are gathered inside growing cubes and accepted only up to
//the radius of the sphere a cube is guaranteed to contain, so that no
//shorter star can be missed. Ties in length with the last accepted star
//are kept to avoid splitting a shell.
func starPoints(lat *xtal.Lattice, ptg [][3][3]int, nrwant int) ([][3]int, []float64, error) {
	g := lat.Metric()
	var met [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			met[i][j] = g.At(i, j)
		}
	}
	var ginv mat.Dense
	if err := ginv.Inverse(g); err != nil {
		return nil, nil, fmt.Errorf("abipy/skw.starPoints: singular lattice metric: %v", err)
	}
	maxdiag := ginv.At(0, 0)
	for i := 1; i < 3; i++ {
		if ginv.At(i, i) > maxdiag {
			maxdiag = ginv.At(i, i)
		}
	}
	length2 := func(R [3]int) float64 {
		tot := 0.0
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				tot += float64(R[i]) * met[i][j] * float64(R[j])
			}
		}
		return tot
	}
	canon := func(R [3]int) [3]int {
		best := R
		for _, op := range ptg {
			var T [3]int
			for r := 0; r < 3; r++ {
				T[r] = op[r][0]*R[0] + op[r][1]*R[1] + op[r][2]*R[2]
			}
			if T[0] > best[0] || (T[0] == best[0] && (T[1] > best[1] || (T[1] == best[1] && T[2] > best[2]))) {
				best = T
			}
		}
		return best
	}
	for msize := 4; msize <= 512; msize *= 2 {
		rin2 := float64(msize*msize) / maxdiag //radius of the sphere the cube contains
		stars := make(map[[3]int]float64)
		var R [3]int
		for R[0] = -msize; R[0] <= msize; R[0]++ {
			for R[1] = -msize; R[1] <= msize; R[1]++ {
				for R[2] = -msize; R[2] <= msize; R[2]++ {
					l2 := length2(R)
					if l2 > rin2 {
						continue
					}
					rep := canon(R)
					if _, ok := stars[rep]; !ok {
						stars[rep] = l2
					}
				}
			}
		}
		if len(stars) < nrwant {
			continue
		}
		rpts := make([][3]int, 0, len(stars))
		for rep := range stars {
			rpts = append(rpts, rep)
		}
		sort.Slice(rpts, func(i, j int) bool {
			li, lj := stars[rpts[i]], stars[rpts[j]]
			if li != lj {
				return li < lj
			}
			//deterministic order inside a shell
			if rpts[i][0] != rpts[j][0] {
				return rpts[i][0] < rpts[j][0]
			}
			if rpts[i][1] != rpts[j][1] {
				return rpts[i][1] < rpts[j][1]
			}
			return rpts[i][2] < rpts[j][2]
		})
		cut := nrwant
		for cut < len(rpts) && stars[rpts[cut]]-stars[rpts[cut-1]] < 1e-9*(1+stars[rpts[cut-1]]) {
			cut++
		}
		rpts = rpts[:cut]
		r2 := make([]float64, cut)
		for i, rep := range rpts {
			r2[i] = stars[rep]
		}
		return rpts, r2, nil
	}
	return nil, nil, fmt.Errorf("abipy/skw.starPoints: cannot generate %d stars of lattice points", nrwant)
}

//roughness penalizes the long lattice vectors of the expansion, measured
//against the shortest nonzero star. The constant star is never
//penalized.
func roughness(r2 []float64) []float64 {
	rho := make([]float64, len(r2))
	rho[0] = 1
	if len(r2) < 2 {
		return rho
	}
	r2min := r2[1]
	for j := 1; j < len(r2); j++ {
		x := r2[j] / r2min
		rho[j] = (1-rhoC1*x)*(1-rhoC1*x) + rhoC2*x*x*x
	}
	return rho
}

//starFunctions evaluates every star function at the given reduced
//k-point. The first entry, the star of R=0, is always 1.
func (I *Interpolator) starFunctions(k [3]float64) []complex128 {
	skr := make([]complex128, len(I.rpts))
	for _, g := range I.ptg {
		//the transposed rotation acts on k so that the phase equals
		//the plane wave at the rotated lattice vector
		var sk [3]float64
		for c := 0; c < 3; c++ {
			sk[c] = 2 * math.Pi * (float64(g[0][c])*k[0] + float64(g[1][c])*k[1] + float64(g[2][c])*k[2])
		}
		for j, R := range I.rpts {
			arg := sk[0]*float64(R[0]) + sk[1]*float64(R[1]) + sk[2]*float64(R[2])
			skr[j] += cmplx.Exp(complex(0, arg))
		}
	}
	nrm := complex(1/float64(len(I.ptg)), 0)
	for j := range skr {
		skr[j] *= nrm
	}
	return skr
}

//fit solves the constrained minimization of the roughness for every spin
//and band. The linear system depends only on the k-points, so it is
//factorized once and reused across bands with different right-hand
//sides. The complex Hermitian system is solved through its real
//embedding.
func (I *Interpolator) fit(kcoords [][3]float64, eigens [][][]float64) error {
	n := I.nkpt
	nstar := len(I.rpts)
	if nstar < 2 {
		return fmt.Errorf("abipy/skw.New: at least two stars are needed, got %d", nstar)
	}
	skr := make([][]complex128, n)
	for i, k := range kcoords {
		skr[i] = I.starFunctions(k)
	}
	//differences of the star functions to the reference k-point, the
	//last one, excluding the constant star
	d := make([][]complex128, n-1)
	for i := 0; i < n-1; i++ {
		row := make([]complex128, nstar-1)
		for j := 1; j < nstar; j++ {
			row[j-1] = skr[i][j] - skr[n-1][j]
		}
		d[i] = row
	}
	invrho := make([]float64, nstar-1)
	for j := 1; j < nstar; j++ {
		invrho[j-1] = 1 / I.rho[j]
	}
	dim := n - 1
	M := mat.NewDense(2*dim, 2*dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			var h complex128
			for s := range invrho {
				h += d[i][s] * cmplx.Conj(d[j][s]) * complex(invrho[s], 0)
			}
			M.Set(i, j, real(h))
			M.Set(i+dim, j+dim, real(h))
			M.Set(i, j+dim, -imag(h))
			M.Set(i+dim, j, imag(h))
		}
	}
	var lu mat.LU
	lu.Factorize(M)
	rhs := mat.NewVecDense(2*dim, nil)
	sol := mat.NewVecDense(2*dim, nil)
	I.coefs = make([][][]complex128, I.nsppol)
	for spin := 0; spin < I.nsppol; spin++ {
		I.coefs[spin] = make([][]complex128, I.nband)
		for band := 0; band < I.nband; band++ {
			for i := 0; i < dim; i++ {
				rhs.SetVec(i, eigens[spin][i][band]-eigens[spin][n-1][band])
				rhs.SetVec(i+dim, 0)
			}
			if err := lu.SolveVecTo(sol, false, rhs); err != nil {
				//a finite condition number still comes with a usable
				//solution, an infinite one means none was written
				if c, ok := err.(mat.Condition); !ok || math.IsInf(float64(c), 1) {
					return fmt.Errorf("abipy/skw.New: singular interpolation system, check for symmetry equivalent k-points: %v", err)
				}
			}
			c := make([]complex128, nstar)
			for s := 1; s < nstar; s++ {
				var sum complex128
				for i := 0; i < dim; i++ {
					sum += complex(sol.AtVec(i), sol.AtVec(i+dim)) * cmplx.Conj(d[i][s-1])
				}
				c[s] = sum * complex(invrho[s-1], 0)
			}
			//the constant star is 1 everywhere, so the reference energy
			//fixes the remaining coefficient
			var tail complex128
			for s := 1; s < nstar; s++ {
				tail += c[s] * skr[n-1][s]
			}
			c[0] = complex(eigens[spin][n-1][band], 0) - tail
			I.coefs[spin][band] = c
		}
	}
	//fitting error at the input points
	tot := 0.0
	for ik := 0; ik < n; ik++ {
		for spin := 0; spin < I.nsppol; spin++ {
			for band := 0; band < I.nband; band++ {
				var e complex128
				for s, c := range I.coefs[spin][band] {
					e += c * skr[ik][s]
				}
				tot += math.Abs(real(e) - eigens[spin][ik][band])
			}
		}
	}
	I.mae = tot / float64(n*I.nsppol*I.nband)
	return nil
}

//InterpKpts evaluates the fitted bands at the given reduced k-points.
//The result is indexed by spin, k-point and band like the input of New.
func (I *Interpolator) InterpKpts(kcoords [][3]float64) ([][][]float64, error) {
	if len(kcoords) == 0 {
		return nil, fmt.Errorf("abipy/skw.InterpKpts: no k-points given")
	}
	ret := make([][][]float64, I.nsppol)
	for spin := range ret {
		ret[spin] = make([][]float64, len(kcoords))
		for ik := range kcoords {
			ret[spin][ik] = make([]float64, I.nband)
		}
	}
	for ik, k := range kcoords {
		skr := I.starFunctions(k)
		for spin := 0; spin < I.nsppol; spin++ {
			for band := 0; band < I.nband; band++ {
				var e complex128
				for s, c := range I.coefs[spin][band] {
					e += c * skr[s]
				}
				ret[spin][ik][band] = real(e)
			}
		}
	}
	return ret, nil
}

//InterpKptsAndEnforceDegs evaluates the fitted bands at the given
//k-points and averages the values over the groups of states that are
//degenerate in refEigens, within atol, so that the interpolation cannot
//split a degeneracy of the reference bands. refEigens must cover the
//same k-points and bands being interpolated. A negative atol disables
//the averaging.
func (I *Interpolator) InterpKptsAndEnforceDegs(kcoords [][3]float64, refEigens [][][]float64, atol float64) ([][][]float64, error) {
	ret, err := I.InterpKpts(kcoords)
	if err != nil {
		return nil, err
	}
	if atol < 0 {
		return ret, nil
	}
	if len(refEigens) != I.nsppol {
		return nil, fmt.Errorf("abipy/skw.InterpKptsAndEnforceDegs: reference eigens cover %d spins, expected %d", len(refEigens), I.nsppol)
	}
	for spin := range ret {
		if len(refEigens[spin]) != len(kcoords) {
			return nil, fmt.Errorf("abipy/skw.InterpKptsAndEnforceDegs: reference eigens for spin %d cover %d k-points, expected %d",
				spin, len(refEigens[spin]), len(kcoords))
		}
		for ik := range ret[spin] {
			ref := refEigens[spin][ik]
			if len(ref) != I.nband {
				return nil, fmt.Errorf("abipy/skw.InterpKptsAndEnforceDegs: reference eigens at spin %d, k-point %d hold %d bands, expected %d",
					spin, ik, len(ref), I.nband)
			}
			row := ret[spin][ik]
			start := 0
			for start < len(ref) {
				stop := start + 1
				for stop < len(ref) && math.Abs(ref[stop]-ref[start]) < atol {
					stop++
				}
				if stop-start > 1 {
					avg := 0.0
					for b := start; b < stop; b++ {
						avg += row[b]
					}
					avg /= float64(stop - start)
					for b := start; b < stop; b++ {
						row[b] = avg
					}
				}
				start = stop
			}
		}
	}
	return ret, nil
}

//EvalSK evaluates the fitted bands of one spin channel at a single
//reduced k-point.
func (I *Interpolator) EvalSK(spin int, k [3]float64) ([]float64, error) {
	if spin < 0 || spin >= I.nsppol {
		return nil, fmt.Errorf("abipy/skw.EvalSK: spin %d out of the %d spin channels", spin, I.nsppol)
	}
	skr := I.starFunctions(k)
	ret := make([]float64, I.nband)
	for band := 0; band < I.nband; band++ {
		var e complex128
		for s, c := range I.coefs[spin][band] {
			e += c * skr[s]
		}
		ret[band] = real(e)
	}
	return ret, nil
}

//MAE returns the mean absolute error of the fit at the ab-initio
//k-points, in eV.
func (I *Interpolator) MAE() float64 {
	return I.mae
}

//NStars returns the number of star functions of the expansion.
func (I *Interpolator) NStars() int {
	return len(I.rpts)
}

//NSym returns the order of the point group used to symmetrize the plane
//waves, the time reversal operations included.
func (I *Interpolator) NSym() int {
	return len(I.ptg)
}

func (I *Interpolator) NSppol() int { return I.nsppol }

func (I *Interpolator) NBand() int { return I.nband }

//Fermie returns the Fermi level, in eV, of the bands used in the fit.
func (I *Interpolator) Fermie() float64 { return I.fermie }

//Nelect returns the number of electrons per unit cell of the bands used
//in the fit.
func (I *Interpolator) Nelect() float64 { return I.nelect }

func (I *Interpolator) String() string {
	return fmt.Sprintf("star-function interpolation of %d bands, %d spin channels: %d stars over %d k-points, %d symmetry operations, mean absolute error %.2e eV",
		I.nband, I.nsppol, len(I.rpts), I.nkpt, len(I.ptg), I.mae)
}
