/*
 * ebands_test.go, part of abipy.
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
	"testing"

	"github.com/GingrasO/abipy/kpts"
	"github.com/GingrasO/abipy/xtal"
)

//cubicStructure returns a one-atom silicon-like cubic cell.
func cubicStructure(Te *testing.T) *xtal.Structure {
	lat := xtal.NewLattice([3][3]float64{{5, 0, 0}, {0, 5, 0}, {0, 0, 5}})
	st, err := xtal.NewStructure(lat, [][3]float64{{0, 0, 0}}, []int{14})
	if err != nil {
		Te.Fatal(err)
	}
	return st
}

func TestHomos(Te *testing.T) {
	st := cubicStructure(Te)
	klist := kpts.NewList(kpts.New(0, 0, 0, "$\\Gamma$"), kpts.New(0.5, 0, 0, "X"))
	eigens := [][][]float64{{
		{-3.0, 1.0, 4.0},
		{-2.5, 1.8, 3.5},
	}}
	occfacts := [][][]float64{{
		{2, 2, 0},
		{2, 2, 0},
	}}
	eb, err := NewElectronBands(st, klist, eigens, occfacts, nil, 2.0, 4)
	if err != nil {
		Te.Fatal(err)
	}
	homos, err := eb.Homos()
	if err != nil {
		Te.Error(err)
	}
	if len(homos) != 1 {
		Te.Fatalf("got %d homos for one spin channel", len(homos))
	}
	h := homos[0]
	if h.Kidx != 1 || h.Band != 1 || h.Eig != 1.8 {
		Te.Errorf("wrong homo: %v", h)
	}
	fmt.Println("homo:", h)

	//zero occupations, as interpolated QP bands carry, have no homo
	qp, err := NewElectronBands(st, klist, eigens, nil, nil, 2.0, 4)
	if err != nil {
		Te.Fatal(err)
	}
	if _, err := qp.Homos(); err == nil {
		Te.Error("expected an error for bands without occupied states")
	}
}

func TestElectronBandsValidation(Te *testing.T) {
	st := cubicStructure(Te)
	klist := kpts.NewList(kpts.New(0, 0, 0, ""), kpts.New(0.5, 0, 0, ""))
	ragged := [][][]float64{{
		{-3.0, 1.0},
		{-2.5},
	}}
	if _, err := NewElectronBands(st, klist, ragged, nil, nil, 0, 2); err == nil {
		Te.Error("expected an error for a ragged band array")
	}
	good := [][][]float64{{
		{-3.0, 1.0},
		{-2.5, 1.8},
	}}
	if _, err := NewElectronBands(st, klist, good, nil, []float64{1}, 0, 2); err == nil {
		Te.Error("expected an error for a wrong number of weights")
	}
	eb, err := NewElectronBands(st, klist, good, nil, nil, 0, 2)
	if err != nil {
		Te.Fatal(err)
	}
	emin, emax := eb.MinMax()
	if emin != -3.0 || emax != 1.8 {
		Te.Errorf("MinMax gave %v %v", emin, emax)
	}
	if eb.NSppol() != 1 || eb.NKpt() != 2 || eb.NBand() != 2 {
		Te.Errorf("wrong dimensions: %d %d %d", eb.NSppol(), eb.NKpt(), eb.NBand())
	}
}

func TestEDOS(Te *testing.T) {
	st := cubicStructure(Te)
	coords := [][3]float64{{0, 0, 0}, {0.5, 0, 0}, {0, 0.5, 0}, {0, 0, 0.5}}
	klist := kpts.ListFromCoords(coords)
	//two fully occupied bands on four k-points with equal weights
	eigens := [][][]float64{{
		{-4.0, -1.0},
		{-3.6, -0.8},
		{-3.6, -0.8},
		{-3.2, -0.5},
	}}
	occfacts := [][][]float64{{
		{2, 2},
		{2, 2},
		{2, 2},
		{2, 2},
	}}
	nelect := 4.0
	eb, err := NewElectronBands(st, klist, eigens, occfacts, []float64{0.25, 0.25, 0.25, 0.25}, 0.5, nelect)
	if err != nil {
		Te.Fatal(err)
	}
	edos, err := eb.EDOS(0.05, 0.2)
	if err != nil {
		Te.Fatal(err)
	}
	idos := edos.TotalIDOS()
	//well above all the bands the integral counts all the electrons
	top, err := edos.ValueAt(idos, 10.0)
	if err != nil {
		Te.Error(err)
	}
	if math.Abs(top-nelect) > 0.05*nelect {
		Te.Errorf("integrated DOS %v does not count %v electrons", top, nelect)
	}
	//in the middle of the two band groups roughly half the electrons
	mid, err := edos.ValueAt(idos, -2.2)
	if err != nil {
		Te.Error(err)
	}
	if math.Abs(mid-nelect/2) > 0.2 {
		Te.Errorf("integrated DOS at midgap is %v, want about %v", mid, nelect/2)
	}
	//the DOS mesh is ascending and the DOS non-negative
	mesh := edos.Mesh()
	dos := edos.TotalDOS()
	for i := range mesh {
		if i > 0 && mesh[i] <= mesh[i-1] {
			Te.Error("EDOS mesh is not ascending")
		}
		if dos[i] < 0 {
			Te.Error("negative DOS")
		}
	}
	if _, err := eb.EDOS(-1, 0.2); err == nil {
		Te.Error("expected an error for a negative step")
	}
	fmt.Println("IDOS at the top of the spectrum:", top)
}
