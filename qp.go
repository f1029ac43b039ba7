/*
 * qp.go, part of abipy.
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
	"strings"

	"github.com/GingrasO/abipy/kpts"
	"gonum.org/v1/gonum/stat"
)

//QPState holds the GW results for one (spin, k-point, band) state. The
//library never modifies a QPState after construction, so states can be
//shared freely; use Copy when an independent value is needed.
type QPState struct {
	Spin     int
	Kpoint   *kpts.Kpoint
	Band     int
	E0       float64    //initial KS energy
	QPE      complex128 //perturbative quasiparticle energy
	QPEDiago float64    //quasiparticle energy from diagonalization
	Vxcme    complex128
	Sigxme   complex128
	Sigcmee0 complex128
	VUme     complex128
	Ze0      complex128 //renormalization factor at e=e0
}

//QPEme0 returns the quasiparticle correction E_QP - E_0.
func (S *QPState) QPEme0() complex128 {
	return S.QPE - complex(S.E0, 0)
}

//SKB is the identity key of a state: spin, k-point and band. Two states
//with the same key describe the same physical state.
type SKB struct {
	Spin   int
	Kpoint *kpts.Kpoint
	Band   int
}

//Equals returns true if both keys refer to the same state. K-points are
//compared modulo lattice translations.
func (K SKB) Equals(o SKB) bool {
	return K.Spin == o.Spin && K.Band == o.Band && K.Kpoint.Equals(o.Kpoint, kpts.DefaultAtol)
}

func (K SKB) String() string {
	return fmt.Sprintf("(spin=%d, kpoint=%v, band=%d)", K.Spin, K.Kpoint, K.Band)
}

//SKB returns the identity key of the state.
func (S *QPState) SKB() SKB {
	return SKB{Spin: S.Spin, Kpoint: S.Kpoint, Band: S.Band}
}

//Copy returns an independent copy of the state.
func (S *QPState) Copy() *QPState {
	if S == nil {
		panic("abipy/gw: attempted to copy a nil QPState")
	}
	ret := *S
	return &ret
}

//Field returns the value of a scalar field, widening real quantities to
//complex. FieldKpoint is not scalar and is rejected, as are unknown
//fields.
func (S *QPState) Field(f Field) (complex128, error) {
	switch f {
	case FieldSpin:
		return complex(float64(S.Spin), 0), nil
	case FieldBand:
		return complex(float64(S.Band), 0), nil
	case FieldE0:
		return complex(S.E0, 0), nil
	case FieldQPE:
		return S.QPE, nil
	case FieldQPEDiago:
		return complex(S.QPEDiago, 0), nil
	case FieldVxcme:
		return S.Vxcme, nil
	case FieldSigxme:
		return S.Sigxme, nil
	case FieldSigcmee0:
		return S.Sigcmee0, nil
	case FieldVUme:
		return S.VUme, nil
	case FieldZe0:
		return S.Ze0, nil
	case FieldQPEme0:
		return S.QPEme0(), nil
	case FieldKpoint:
		return 0, fmt.Errorf("abipy/gw.QPState.Field: field kpoint is not a scalar quantity")
	}
	return 0, fmt.Errorf("abipy/gw.QPState.Field: unknown field %v", f)
}

func (S *QPState) String() string {
	return fmt.Sprintf("%v e0=%.3f qpe=%.3f%+.3fi qpeme0=%.3f",
		S.SKB(), S.E0, real(S.QPE), imag(S.QPE), real(S.QPEme0()))
}

//QPList is a list of quasiparticle states for a given spin. Whether the
//list is currently sorted by the initial KS energies is recorded in a
//flag; several operations, the scissor construction among them, require a
//sorted list and fail otherwise.
type QPList struct {
	qps        []*QPState
	isE0Sorted bool
}

//NewQPList builds a list from the given states. The list is marked as
//unsorted; use SortByE0 to obtain a sorted one.
func NewQPList(qps ...*QPState) *QPList {
	Q := &QPList{}
	Q.qps = append(Q.qps, qps...)
	return Q
}

//Len returns the number of states in the list.
func (Q *QPList) Len() int {
	return len(Q.qps)
}

//At returns the i-th state. It panics if i is out of range.
func (Q *QPList) At(i int) *QPState {
	if i < 0 || i >= len(Q.qps) {
		panic("abipy/gw: QPList index out of range")
	}
	return Q.qps[i]
}

//IsE0Sorted returns true if the list is known to be sorted by E0.
func (Q *QPList) IsE0Sorted() bool {
	return Q.isE0Sorted
}

//Copy returns a new list holding copies of all the states.
func (Q *QPList) Copy() *QPList {
	ret := &QPList{isE0Sorted: Q.isE0Sorted, qps: make([]*QPState, len(Q.qps))}
	for i, qp := range Q.qps {
		ret.qps[i] = qp.Copy()
	}
	return ret
}

//SortByE0 returns a new list with the states sorted by ascending initial
//KS energy. The states themselves are shared with the original list.
func (Q *QPList) SortByE0() *QPList {
	ret := &QPList{isE0Sorted: true, qps: make([]*QPState, len(Q.qps))}
	copy(ret.qps, Q.qps)
	sort.SliceStable(ret.qps, func(i, j int) bool { return ret.qps[i].E0 < ret.qps[j].E0 })
	return ret
}

//E0Mesh returns the initial KS energies. The list must be sorted by E0.
func (Q *QPList) E0Mesh() ([]float64, error) {
	if !Q.isE0Sorted {
		return nil, fmt.Errorf("abipy/gw.QPList.E0Mesh: QPState corrections are not sorted. Use SortByE0")
	}
	ret := make([]float64, len(Q.qps))
	for i, qp := range Q.qps {
		ret[i] = qp.E0
	}
	return ret, nil
}

//Field returns the values of a scalar field for all the states, in list
//order.
func (Q *QPList) Field(f Field) ([]complex128, error) {
	ret := make([]complex128, len(Q.qps))
	for i, qp := range Q.qps {
		v, err := qp.Field(f)
		if err != nil {
			return nil, err
		}
		ret[i] = v
	}
	return ret, nil
}

//QPEnes returns the quasiparticle energies in list order.
func (Q *QPList) QPEnes() []complex128 {
	ret, _ := Q.Field(FieldQPE)
	return ret
}

//QPEme0 returns the quasiparticle corrections in list order.
func (Q *QPList) QPEme0() []complex128 {
	ret, _ := Q.Field(FieldQPEme0)
	return ret
}

//Get returns the state with the given identity key, or an error if no
//state in the list has it.
func (Q *QPList) Get(key SKB) (*QPState, error) {
	for _, qp := range Q.qps {
		if qp.SKB().Equals(key) {
			return qp, nil
		}
	}
	return nil, fmt.Errorf("abipy/gw.QPList.Get: no state with key %v", key)
}

//SKBField returns the value of a scalar field for the state with the
//given identity key.
func (Q *QPList) SKBField(key SKB, f Field) (complex128, error) {
	qp, err := Q.Get(key)
	if err != nil {
		return 0, err
	}
	return qp.Field(f)
}

//Merge returns a new list with the states of both lists. It fails if any
//(spin, kpoint, band) key appears in both, and neither input is modified.
//With copyRecords true the returned list holds copies of the states
//instead of sharing them.
func (Q *QPList) Merge(other *QPList, copyRecords bool) (*QPList, error) {
	for _, qp := range other.qps {
		if _, err := Q.Get(qp.SKB()); err == nil {
			return nil, fmt.Errorf("abipy/gw.QPList.Merge: found duplicated (spin, kpoint, band) indexes: %v", qp.SKB())
		}
	}
	ret := &QPList{qps: make([]*QPState, 0, len(Q.qps)+len(other.qps))}
	if copyRecords {
		for _, qp := range Q.qps {
			ret.qps = append(ret.qps, qp.Copy())
		}
		for _, qp := range other.qps {
			ret.qps = append(ret.qps, qp.Copy())
		}
	} else {
		ret.qps = append(ret.qps, Q.qps...)
		ret.qps = append(ret.qps, other.qps...)
	}
	return ret, nil
}

//CorrectionStats returns the mean and the standard deviation of the real
//part of the quasiparticle corrections. Handy as a first sanity check of a
//GW run before fitting a scissor.
func (Q *QPList) CorrectionStats() (mean, stdev float64) {
	corr := make([]float64, len(Q.qps))
	for i, qp := range Q.qps {
		corr[i] = real(qp.QPEme0())
	}
	mean = stat.Mean(corr, nil)
	stdev = stat.StdDev(corr, nil)
	return mean, stdev
}

func (Q *QPList) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "QPList with %d states (e0-sorted: %v)\n", len(Q.qps), Q.isE0Sorted)
	for _, qp := range Q.qps {
		b.WriteString(qp.String())
		b.WriteString("\n")
	}
	return b.String()
}
