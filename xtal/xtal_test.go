/*
 * xtal_test.go, part of abipy.
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

package xtal

import (
	"fmt"
	"math"
	"testing"
)

func cubic(a float64) *Lattice {
	return NewLattice([3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}})
}

func TestLattice(Te *testing.T) {
	lat := cubic(2.0)
	if v := lat.Volume(); math.Abs(v-8.0) > 1e-12 {
		Te.Errorf("wrong volume for cubic cell: %v", v)
	}
	rec, err := lat.Reciprocal()
	if err != nil {
		Te.Error(err)
	}
	if g := rec.Row(0); math.Abs(g[0]-0.5) > 1e-12 || math.Abs(g[1]) > 1e-12 {
		Te.Errorf("wrong reciprocal lattice: %v", g)
	}
	//the squared length of (1,0,0) in reduced coordinates is a^2
	if r2 := lat.Norm2([3]float64{1, 0, 0}); math.Abs(r2-4.0) > 1e-12 {
		Te.Errorf("wrong metric length: %v", r2)
	}
	fmt.Println("lattice OK, volume:", lat.Volume())
}

func TestStructureEqual(Te *testing.T) {
	lat := cubic(5.43)
	si, err := NewStructure(lat, [][3]float64{{0, 0, 0}, {0.25, 0.25, 0.25}}, []int{14, 14})
	if err != nil {
		Te.Error(err)
	}
	fmt.Println("structure:", si)
	same, _ := NewStructure(cubic(5.43), [][3]float64{{0, 0, 0}, {0.25, 0.25, 0.25}}, []int{14, 14})
	if !si.Equal(same, 1e-8) {
		Te.Error("identical structures compare different")
	}
	moved, _ := NewStructure(lat, [][3]float64{{0, 0, 0}, {0.25, 0.25, 0.3}}, []int{14, 14})
	if si.Equal(moved, 1e-8) {
		Te.Error("different structures compare equal")
	}
	if si.Equal(nil, 1e-8) {
		Te.Error("nil structure compares equal")
	}
}

func TestStructureErrors(Te *testing.T) {
	lat := cubic(1)
	_, err := NewStructure(lat, [][3]float64{{0, 0, 0}}, []int{14, 14})
	if err == nil {
		Te.Error("expected error for mismatched coordinates and species")
	}
	fmt.Println("got expected error:", err)
}

func TestFMRotations(Te *testing.T) {
	ident := [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	inv := [3][3]int{{-1, 0, 0}, {0, -1, 0}, {0, 0, -1}}
	sg, err := NewSpaceGroup([][3][3]int{ident, inv}, []int{1, -1})
	if err != nil {
		Te.Error(err)
	}
	fm := sg.FMRotations()
	if len(fm) != 1 {
		Te.Errorf("expected 1 ferromagnetic rotation, got %d", len(fm))
	}
	if fm[0] != ident {
		Te.Error("wrong rotation kept by the symafm filter")
	}
	if Identity().NSym() != 1 {
		Te.Error("identity group should have one operation")
	}
}
