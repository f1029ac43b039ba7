/*
 * kpts.go, part of abipy.
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

//Package kpts provides k-points in reduced coordinates, ordered k-point
//lists with tolerant lookup, and sampled paths between high-symmetry
//points. Two k-points are the same point of the Brillouin zone when their
//coordinates differ by a lattice translation, so all comparisons here are
//modulo integer vectors.
package kpts

import (
	"fmt"
	"math"

	"github.com/GingrasO/abipy/xtal"
)

//DefaultAtol is the tolerance used to compare reduced coordinates when no
//explicit tolerance is given.
const DefaultAtol = 1e-8

//Kpoint is a point of the reciprocal-space cell in reduced coordinates,
//with an optional name ("Gamma", "X", ...). It is immutable.
type Kpoint struct {
	coords [3]float64
	name   string
}

//New returns a k-point with the given reduced coordinates and name. The
//name can be empty.
func New(a, b, c float64, name string) *Kpoint {
	return &Kpoint{coords: [3]float64{a, b, c}, name: name}
}

//FromCoords returns an unnamed k-point.
func FromCoords(c [3]float64) *Kpoint {
	return &Kpoint{coords: c}
}

//FracCoords returns the reduced coordinates.
func (K *Kpoint) FracCoords() [3]float64 {
	return K.coords
}

//Name returns the name of the k-point, or the empty string.
func (K *Kpoint) Name() string {
	return K.name
}

//WithName returns a copy of the k-point carrying the given name.
func (K *Kpoint) WithName(name string) *Kpoint {
	return &Kpoint{coords: K.coords, name: name}
}

//Equals returns true if the two k-points are the same point of the
//Brillouin zone, i.e. if their coordinates differ by an integer vector
//within atol.
func (K *Kpoint) Equals(o *Kpoint, atol float64) bool {
	if o == nil {
		return false
	}
	for i := 0; i < 3; i++ {
		d := K.coords[i] - o.coords[i]
		if math.Abs(d-math.Round(d)) > atol {
			return false
		}
	}
	return true
}

func (K *Kpoint) String() string {
	s := fmt.Sprintf("[%+.3f, %+.3f, %+.3f]", K.coords[0], K.coords[1], K.coords[2])
	if K.name != "" {
		s += " " + K.name
	}
	return s
}

//KpointList is an ordered list of k-points.
type KpointList struct {
	kpoints []*Kpoint
}

//NewList builds a list from the given k-points.
func NewList(kpoints ...*Kpoint) *KpointList {
	L := &KpointList{}
	L.kpoints = append(L.kpoints, kpoints...)
	return L
}

//ListFromCoords builds a list of unnamed k-points from reduced
//coordinates.
func ListFromCoords(coords [][3]float64) *KpointList {
	L := &KpointList{kpoints: make([]*Kpoint, len(coords))}
	for i, c := range coords {
		L.kpoints[i] = FromCoords(c)
	}
	return L
}

//Len returns the number of k-points in the list.
func (L *KpointList) Len() int {
	return len(L.kpoints)
}

//At returns the i-th k-point. It panics if i is out of range.
func (L *KpointList) At(i int) *Kpoint {
	if i < 0 || i >= len(L.kpoints) {
		panic("abipy/kpts: k-point index out of range")
	}
	return L.kpoints[i]
}

//Coords returns the reduced coordinates of all the k-points.
func (L *KpointList) Coords() [][3]float64 {
	ret := make([][3]float64, len(L.kpoints))
	for i, k := range L.kpoints {
		ret[i] = k.coords
	}
	return ret
}

//Names returns the names of all the k-points, empty strings included.
func (L *KpointList) Names() []string {
	ret := make([]string, len(L.kpoints))
	for i, k := range L.kpoints {
		ret[i] = k.name
	}
	return ret
}

//Index returns the position of k in the list, comparing modulo lattice
//translations with DefaultAtol. It returns an error if the k-point is not
//in the list. There is no silent fallback.
func (L *KpointList) Index(k *Kpoint) (int, error) {
	for i, v := range L.kpoints {
		if v.Equals(k, DefaultAtol) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("abipy/kpts.Index: k-point %v not in list", k)
}

//Contains returns true if k is in the list.
func (L *KpointList) Contains(k *Kpoint) bool {
	_, err := L.Index(k)
	return err == nil
}

//Equal returns true if both lists contain the same k-points in the same
//order, compared within atol.
func (L *KpointList) Equal(o *KpointList, atol float64) bool {
	if o == nil || len(L.kpoints) != len(o.kpoints) {
		return false
	}
	for i, k := range L.kpoints {
		if !k.Equals(o.kpoints[i], atol) {
			return false
		}
	}
	return true
}

//Path samples a k-path through the given vertices. The number of points in
//each segment is proportional to its length in the metric of the
//reciprocal lattice rec, with lineDensity points on the shortest segment.
//Vertices keep their names, sampled points are unnamed, and shared
//vertices are not duplicated.
func Path(rec *xtal.Lattice, vertices []*Kpoint, lineDensity int) (*KpointList, error) {
	if len(vertices) < 2 {
		return nil, fmt.Errorf("abipy/kpts.Path: need at least 2 vertices, got %d", len(vertices))
	}
	if lineDensity < 1 {
		return nil, fmt.Errorf("abipy/kpts.Path: line density must be positive, got %d", lineDensity)
	}
	nseg := len(vertices) - 1
	lengths := make([]float64, nseg)
	minlen := math.Inf(1)
	for i := 0; i < nseg; i++ {
		var d [3]float64
		a, b := vertices[i].coords, vertices[i+1].coords
		for j := 0; j < 3; j++ {
			d[j] = b[j] - a[j]
		}
		lengths[i] = math.Sqrt(rec.Norm2(d))
		if lengths[i] <= 0 {
			return nil, fmt.Errorf("abipy/kpts.Path: vertices %d and %d coincide", i, i+1)
		}
		if lengths[i] < minlen {
			minlen = lengths[i]
		}
	}
	L := &KpointList{}
	for i := 0; i < nseg; i++ {
		n := int(math.Round(float64(lineDensity) * lengths[i] / minlen))
		if n < 2 {
			n = 2
		}
		a, b := vertices[i].coords, vertices[i+1].coords
		start := 0
		if i > 0 {
			start = 1 //the vertex was emitted by the previous segment
		}
		for j := start; j < n; j++ {
			t := float64(j) / float64(n-1)
			c := [3]float64{
				a[0] + t*(b[0]-a[0]),
				a[1] + t*(b[1]-a[1]),
				a[2] + t*(b[2]-a[2]),
			}
			switch {
			case j == 0:
				L.kpoints = append(L.kpoints, vertices[i])
			case j == n-1:
				L.kpoints = append(L.kpoints, vertices[i+1])
			default:
				L.kpoints = append(L.kpoints, FromCoords(c))
			}
		}
	}
	return L, nil
}

//HasTimrevFromKptopt returns true if the kptopt value used to generate the
//k-point sampling implies that time-reversal symmetry can be used.
//Following the conventions of the ab-initio code, only kptopt 3 and 4
//forbid it.
func HasTimrevFromKptopt(kptopt int) bool {
	return kptopt != 3 && kptopt != 4
}
