/*
 * xtal.go, part of abipy.
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

//Package xtal holds the minimal crystal-structure machinery needed to
//post-process electronic-structure results: a real-space lattice, a
//structure (lattice plus fractional coordinates plus species) and the
//space-group rotations read from the ab-initio code. The package only
//consumes symmetry information, it never detects it.
package xtal

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//Lattice is a 3x3 matrix whose rows are the primitive vectors of the
//real-space cell, in Angstrom.
type Lattice struct {
	m *mat.Dense
}

//NewLattice builds a lattice from its 3 row vectors.
func NewLattice(rows [3][3]float64) *Lattice {
	data := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			data[3*i+j] = rows[i][j]
		}
	}
	return &Lattice{m: mat.NewDense(3, 3, data)}
}

//Matrix returns a copy of the lattice matrix.
func (L *Lattice) Matrix() *mat.Dense {
	return mat.DenseCopyOf(L.m)
}

//Row returns the i-th primitive vector. It panics if i is out of range.
func (L *Lattice) Row(i int) [3]float64 {
	if i < 0 || i > 2 {
		panic("abipy/xtal: lattice row out of range")
	}
	return [3]float64{L.m.At(i, 0), L.m.At(i, 1), L.m.At(i, 2)}
}

//Metric returns the real-space metric tensor G = L L^T.
func (L *Lattice) Metric() *mat.Dense {
	g := mat.NewDense(3, 3, nil)
	g.Mul(L.m, L.m.T())
	return g
}

//Dot returns the scalar product of two vectors given in reduced
//coordinates, using the metric of the lattice.
func (L *Lattice) Dot(a, b [3]float64) float64 {
	g := L.Metric()
	tot := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			tot += a[i] * g.At(i, j) * b[j]
		}
	}
	return tot
}

//Norm2 returns the squared length of a vector in reduced coordinates.
func (L *Lattice) Norm2(a [3]float64) float64 {
	return L.Dot(a, a)
}

//Volume returns the volume of the cell.
func (L *Lattice) Volume() float64 {
	return math.Abs(mat.Det(L.m))
}

//Reciprocal returns the reciprocal lattice, i.e. the inverse transpose of
//the direct lattice, without the 2pi factor.
func (L *Lattice) Reciprocal() (*Lattice, error) {
	var inv mat.Dense
	if err := inv.Inverse(L.m); err != nil {
		return nil, fmt.Errorf("abipy/xtal.Reciprocal: singular lattice matrix: %v", err)
	}
	rec := mat.NewDense(3, 3, nil)
	rec.CloneFrom(inv.T())
	return &Lattice{m: rec}, nil
}

//Equal returns true if both lattices agree element-wise within atol.
func (L *Lattice) Equal(o *Lattice, atol float64) bool {
	if o == nil {
		return false
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(L.m.At(i, j)-o.m.At(i, j)) > atol {
				return false
			}
		}
	}
	return true
}

//Structure is a crystal structure: a lattice, the fractional coordinates
//of the atoms and their atomic numbers.
type Structure struct {
	lattice *Lattice
	frac    [][3]float64
	species []int
}

//NewStructure builds a structure. The number of coordinates and of atomic
//numbers must match.
func NewStructure(lat *Lattice, frac [][3]float64, species []int) (*Structure, error) {
	if lat == nil {
		return nil, fmt.Errorf("abipy/xtal.NewStructure: nil lattice")
	}
	if len(frac) != len(species) {
		return nil, fmt.Errorf("abipy/xtal.NewStructure: %d coordinates but %d species", len(frac), len(species))
	}
	S := &Structure{lattice: lat}
	S.frac = append(S.frac, frac...)
	S.species = append(S.species, species...)
	return S, nil
}

//Lattice returns the lattice of the structure.
func (S *Structure) Lattice() *Lattice {
	return S.lattice
}

//NAtoms returns the number of atoms in the cell.
func (S *Structure) NAtoms() int {
	return len(S.frac)
}

//FracCoords returns a copy of the fractional coordinates.
func (S *Structure) FracCoords() [][3]float64 {
	ret := make([][3]float64, len(S.frac))
	copy(ret, S.frac)
	return ret
}

//AtomicNumbers returns a copy of the atomic numbers.
func (S *Structure) AtomicNumbers() []int {
	ret := make([]int, len(S.species))
	copy(ret, S.species)
	return ret
}

//Equal returns true if the two structures have the same lattice (within
//atol), the same species in the same order and the same fractional
//coordinates (within atol). A nil other compares false.
func (S *Structure) Equal(o *Structure, atol float64) bool {
	if o == nil {
		return false
	}
	if !S.lattice.Equal(o.lattice, atol) {
		return false
	}
	if len(S.frac) != len(o.frac) {
		return false
	}
	for i := range S.frac {
		if S.species[i] != o.species[i] {
			return false
		}
		for j := 0; j < 3; j++ {
			if math.Abs(S.frac[i][j]-o.frac[i][j]) > atol {
				return false
			}
		}
	}
	return true
}

func (S *Structure) String() string {
	counts := make(map[int]int)
	order := make([]int, 0, len(S.species))
	for _, z := range S.species {
		if counts[z] == 0 {
			order = append(order, z)
		}
		counts[z]++
	}
	var b strings.Builder
	for _, z := range order {
		fmt.Fprintf(&b, "%s%d", Symbol(z), counts[z])
	}
	fmt.Fprintf(&b, " (%d atoms)", len(S.species))
	return b.String()
}

//SpaceGroup holds the symmetry operations of the structure as read from
//the ab-initio results: integer rotation matrices in reduced coordinates
//and, for each of them, the magnetic character symafm (+1 for
//ferromagnetic, -1 for anti-ferromagnetic operations).
type SpaceGroup struct {
	symrel [][3][3]int
	symafm []int
}

//NewSpaceGroup builds a space group from the rotations and their magnetic
//character. An empty rotation list or mismatched lengths are an error.
func NewSpaceGroup(symrel [][3][3]int, symafm []int) (*SpaceGroup, error) {
	if len(symrel) == 0 {
		return nil, fmt.Errorf("abipy/xtal.NewSpaceGroup: no symmetry operations given")
	}
	if len(symrel) != len(symafm) {
		return nil, fmt.Errorf("abipy/xtal.NewSpaceGroup: %d rotations but %d symafm flags", len(symrel), len(symafm))
	}
	G := &SpaceGroup{}
	G.symrel = append(G.symrel, symrel...)
	G.symafm = append(G.symafm, symafm...)
	return G, nil
}

//Identity returns a space group containing only the identity operation.
func Identity() *SpaceGroup {
	ident := [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	G, _ := NewSpaceGroup([][3][3]int{ident}, []int{1})
	return G
}

//NSym returns the number of operations in the group.
func (G *SpaceGroup) NSym() int {
	return len(G.symrel)
}

//Rotation returns the i-th rotation. It panics if i is out of range.
func (G *SpaceGroup) Rotation(i int) [3][3]int {
	if i < 0 || i >= len(G.symrel) {
		panic("abipy/xtal: rotation index out of range")
	}
	return G.symrel[i]
}

//AFM returns the magnetic character of the i-th operation. It panics if i
//is out of range.
func (G *SpaceGroup) AFM(i int) int {
	if i < 0 || i >= len(G.symafm) {
		panic("abipy/xtal: symafm index out of range")
	}
	return G.symafm[i]
}

//FMRotations returns the rotations with no anti-ferromagnetic character,
//i.e. those with symafm == +1. These are the only operations usable to
//symmetrize quantities in k-space.
func (G *SpaceGroup) FMRotations() [][3][3]int {
	ret := make([][3][3]int, 0, len(G.symrel))
	for i, rot := range G.symrel {
		if G.symafm[i] == 1 {
			ret = append(ret, rot)
		}
	}
	return ret
}
