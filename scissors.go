/*
 * scissors.go, part of abipy.
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
	"sort"
)

//Domain is a closed interval of initial KS energies.
type Domain struct {
	Start, Stop float64
}

//Contains returns true if the energy e falls inside the domain, boundaries
//included.
func (D Domain) Contains(e float64) bool {
	return e >= D.Start && e <= D.Stop
}

func (D Domain) String() string {
	return fmt.Sprintf("[%g, %g]", D.Start, D.Stop)
}

//ScissorsOptions contains the tunable settings for the construction of a
//scissor operator. The zero value is not usable, start from
//DefaultScissorsOptions.
type ScissorsOptions struct {
	//K is the degree of the fitted splines.
	K int
	//AnchorWeight is the weight forced on the two samples adjacent to the
	//junction when exactly two domains are given, so both fits pass close
	//to the gap edges.
	AnchorWeight float64
}

//DefaultScissorsOptions returns the settings used by abinit users in the
//vast majority of cases: cubic splines and a junction weight of 1000.
func DefaultScissorsOptions() *ScissorsOptions {
	return &ScissorsOptions{K: 3, AnchorWeight: 1000}
}

//Scissors corrects KS eigenvalues by evaluating, in each energy domain, a
//spline fitted to the GW quasiparticle corrections. Use
//QPList.BuildScissors to obtain one.
type Scissors struct {
	funcs    []*bspline
	domains  []Domain
	residues []float64
}

//Domains returns a copy of the energy domains of the operator.
func (S *Scissors) Domains() []Domain {
	return append([]Domain(nil), S.domains...)
}

//Residues returns, for each domain, the weighted sum of the squared
//deviations between the fit and the input corrections. Large values signal
//a domain that mixes states with different corrections.
func (S *Scissors) Residues() []float64 {
	return append([]float64(nil), S.residues...)
}

//Apply corrects the KS energy e. It fails if e falls in a hole between
//domains or outside all of them.
func (S *Scissors) Apply(e float64) (float64, error) {
	for i, dom := range S.domains {
		if dom.Contains(e) {
			return e + S.funcs[i].Eval(e), nil
		}
	}
	return 0, fmt.Errorf("abipy/gw.Scissors.Apply: cannot find location of energy %v in domains %v", e, S.domains)
}

//BuildScissors constructs a scissor operator by fitting the quasiparticle
//corrections as a function of the initial KS energies. The domains must
//not overlap, must cover the full range of the energies in the list and
//must be given in increasing order. Holes between domains are permitted,
//but applying the operator inside a hole fails. A nil opt selects
//DefaultScissorsOptions. The list is sorted by E0 internally, the caller
//does not need to sort it first.
func (Q *QPList) BuildScissors(domains []Domain, opt *ScissorsOptions) (*Scissors, error) {
	if opt == nil {
		opt = DefaultScissorsOptions()
	}
	if opt.K < 1 {
		return nil, fmt.Errorf("abipy/gw.BuildScissors: the spline degree must be at least 1, got %d", opt.K)
	}
	if len(domains) == 0 {
		return nil, fmt.Errorf("abipy/gw.BuildScissors: no energy domains given")
	}
	if Q.Len() == 0 {
		return nil, fmt.Errorf("abipy/gw.BuildScissors: the QPList is empty")
	}
	qps := Q.SortByE0()
	e0mesh, err := qps.E0Mesh()
	if err != nil {
		return nil, err
	}
	qpeme0 := qps.QPEme0()
	corr := make([]float64, len(qpeme0))
	for i, v := range qpeme0 {
		corr[i] = real(v)
	}

	//the boundaries are validated flattened, exactly as users write them
	dflat := make([]float64, 0, 2*len(domains))
	for _, d := range domains {
		dflat = append(dflat, d.Start, d.Stop)
	}
	dsize := len(dflat)
	for idx, v := range dflat {
		if idx == 0 && v > e0mesh[0] {
			return nil, fmt.Errorf("abipy/gw.BuildScissors: min(e0mesh) %v is not included in domains", e0mesh[0])
		}
		if idx == dsize-1 && v < e0mesh[len(e0mesh)-1] {
			return nil, fmt.Errorf("abipy/gw.BuildScissors: max(e0mesh) %v is not included in domains", e0mesh[len(e0mesh)-1])
		}
		if idx != dsize-1 && dflat[idx] > dflat[idx+1] {
			return nil, fmt.Errorf("abipy/gw.BuildScissors: domain boundaries should be given in increasing order")
		}
		if idx == dsize-1 && dflat[idx] < dflat[idx-1] {
			return nil, fmt.Errorf("abipy/gw.BuildScissors: domain boundaries should be given in increasing order")
		}
	}

	funcs := make([]*bspline, 0, len(domains))
	residues := make([]float64, 0, len(domains))
	for nd, dom := range domains {
		start := findGE(e0mesh, dom.Start)
		stop := findLE(e0mesh, dom.Stop)
		if start < 0 || stop < 0 || stop < start {
			return nil, fmt.Errorf("abipy/gw.BuildScissors: domain %v contains no data points", dom)
		}
		domE0 := e0mesh[start : stop+1]
		domCorr := corr[start : stop+1]

		//with two domains the samples around the junction get a large
		//weight so the fitted corrections stay anchored at the gap edges
		var w []float64
		if len(domains) == 2 {
			w = make([]float64, len(domE0))
			for i := range w {
				w[i] = 1
			}
			if nd == 0 {
				w[len(w)-1] = opt.AnchorWeight
			} else {
				w[0] = opt.AnchorWeight
			}
		}
		f, err := fitBSpline(domE0, domCorr, w, opt.K)
		if err != nil {
			return nil, fmt.Errorf("abipy/gw.BuildScissors: fit in domain %v: %v", dom, err)
		}
		funcs = append(funcs, f)
		residues = append(residues, fitResidual(f, domE0, domCorr, w))
	}
	sciss := &Scissors{funcs: funcs, residues: residues}
	sciss.domains = append(sciss.domains, domains...)
	return sciss, nil
}

//fitResidual returns the weighted sum of squared deviations of the fit
//from the data.
func fitResidual(f *bspline, x, y, w []float64) float64 {
	res := 0.0
	for i := range x {
		d := y[i] - f.Eval(x[i])
		if w != nil {
			res += w[i] * d * d
		} else {
			res += d * d
		}
	}
	return res
}

//findGE returns the index of the leftmost element of the sorted slice a
//greater than or equal to x, or -1 if there is none.
func findGE(a []float64, x float64) int {
	i := sort.SearchFloat64s(a, x)
	if i != len(a) {
		return i
	}
	return -1
}

//findLE returns the index of the rightmost element of the sorted slice a
//less than or equal to x, or -1 if there is none.
func findLE(a []float64, x float64) int {
	i := sort.Search(len(a), func(j int) bool { return a[j] > x })
	if i > 0 {
		return i - 1
	}
	return -1
}
