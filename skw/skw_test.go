/*
 * skw_test.go, part of abipy.
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

package skw

import (
	"fmt"
	"math"
	"testing"

	"github.com/GingrasO/abipy/xtal"
)

var identOp = [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

//a small band structure on a line of k-points in a cubic cell, with
//energies built from the lowest Fourier components so the fit has an
//easy job.
func lineBands() ([][3]float64, [][][]float64) {
	kcoords := [][3]float64{{0, 0, 0}, {0.125, 0, 0}, {0.25, 0, 0}, {0.375, 0, 0}, {0.5, 0, 0}}
	eigens := make([][][]float64, 1)
	eigens[0] = make([][]float64, len(kcoords))
	for ik, k := range kcoords {
		e0 := 3 + math.Cos(2*math.Pi*k[0])
		e1 := 5 + 0.5*math.Cos(2*math.Pi*k[0]) + 0.1*math.Cos(4*math.Pi*k[0])
		eigens[0][ik] = []float64{e0, e1}
	}
	return kcoords, eigens
}

func TestInterpolatorReproducesInput(Te *testing.T) {
	lat := xtal.NewLattice([3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	kcoords, eigens := lineBands()
	intp, err := New(5, kcoords, eigens, 3.9, 2, lat, [][3][3]int{identOp}, true)
	if err != nil {
		Te.Fatal(err)
	}
	fmt.Println(intp)
	if intp.NSym() != 2 {
		Te.Errorf("time reversal should double the trivial point group, got %d operations", intp.NSym())
	}
	if intp.NStars() < 5*len(kcoords) {
		Te.Errorf("expected at least %d stars, got %d", 5*len(kcoords), intp.NStars())
	}
	got, err := intp.InterpKpts(kcoords)
	if err != nil {
		Te.Fatal(err)
	}
	for ik := range kcoords {
		for band := 0; band < 2; band++ {
			if d := math.Abs(got[0][ik][band] - eigens[0][ik][band]); d > 1e-8 {
				Te.Errorf("band %d not reproduced at k-point %d: off by %g", band, ik, d)
			}
		}
	}
	if intp.MAE() > 1e-8 {
		Te.Errorf("large fitting error: %g", intp.MAE())
	}
	if intp.Fermie() != 3.9 || intp.Nelect() != 2 {
		Te.Error("metadata not carried through the fit")
	}
	//single-point evaluation agrees with the batched one
	sk, err := intp.EvalSK(0, kcoords[1])
	if err != nil {
		Te.Fatal(err)
	}
	for band := range sk {
		if sk[band] != got[0][1][band] {
			Te.Errorf("EvalSK disagrees with InterpKpts at band %d: %v vs %v", band, sk[band], got[0][1][band])
		}
	}
	if _, err := intp.EvalSK(1, kcoords[0]); err == nil {
		Te.Error("expected an error for a spin channel that is not there")
	}
}

func TestInterpolatorSymmetries(Te *testing.T) {
	lat := xtal.NewLattice([3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	kcoords, eigens := lineBands()
	intp, err := New(5, kcoords, eigens, 3.9, 2, lat, [][3][3]int{identOp}, true)
	if err != nil {
		Te.Fatal(err)
	}
	ks := [][3]float64{{0.1, 0.03, 0.21}, {0.3, 0.3, 0.0}, {0.42, 0.11, 0.37}}
	for _, k := range ks {
		minus := [3]float64{-k[0], -k[1], -k[2]}
		shifted := [3]float64{k[0] + 1, k[1], k[2] - 2}
		ek, err := intp.InterpKpts([][3]float64{k, minus, shifted})
		if err != nil {
			Te.Fatal(err)
		}
		for band := 0; band < 2; band++ {
			if d := math.Abs(ek[0][0][band] - ek[0][1][band]); d > 1e-9 {
				Te.Errorf("interpolated bands not even under time reversal at %v: off by %g", k, d)
			}
			if d := math.Abs(ek[0][0][band] - ek[0][2][band]); d > 1e-9 {
				Te.Errorf("interpolated bands not periodic at %v: off by %g", k, d)
			}
		}
	}
}

func TestEnforceDegeneracies(Te *testing.T) {
	lat := xtal.NewLattice([3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	kcoords := [][3]float64{{0, 0, 0}, {0.125, 0, 0}, {0.25, 0, 0}, {0.375, 0, 0}, {0.5, 0, 0}}
	//two spin channels with slightly split pairs of bands
	eigens := make([][][]float64, 2)
	for spin := range eigens {
		eigens[spin] = make([][]float64, len(kcoords))
		shift := float64(spin)
		for ik, k := range kcoords {
			base := math.Cos(2 * math.Pi * k[0])
			eigens[spin][ik] = []float64{shift + base, shift + base + 3e-5}
		}
	}
	intp, err := New(5, kcoords, eigens, 0, 2, lat, [][3][3]int{identOp}, true)
	if err != nil {
		Te.Fatal(err)
	}
	ks := [][3]float64{{0.0625, 0, 0}, {0.3, 0, 0}}
	ref := make([][][]float64, 2)
	for spin := range ref {
		ref[spin] = make([][]float64, len(ks))
		for ik := range ks {
			//reference states degenerate within the tolerance
			ref[spin][ik] = []float64{1.0, 1.0 + 1e-5}
		}
	}
	plain, err := intp.InterpKpts(ks)
	if err != nil {
		Te.Fatal(err)
	}
	enforced, err := intp.InterpKptsAndEnforceDegs(ks, ref, 1e-4)
	if err != nil {
		Te.Fatal(err)
	}
	for spin := range enforced {
		for ik := range ks {
			if enforced[spin][ik][0] != enforced[spin][ik][1] {
				Te.Errorf("degenerate pair split at spin %d, k-point %d", spin, ik)
			}
			want := (plain[spin][ik][0] + plain[spin][ik][1]) / 2
			if d := math.Abs(enforced[spin][ik][0] - want); d > 1e-12 {
				Te.Errorf("averaged value off by %g", d)
			}
		}
	}
	if enforced[0][0][0] == enforced[1][0][0] {
		Te.Error("spin channels should stay distinct")
	}
	//a negative tolerance disables the averaging
	raw, err := intp.InterpKptsAndEnforceDegs(ks, ref, -1)
	if err != nil {
		Te.Fatal(err)
	}
	if raw[0][0][0] == raw[0][0][1] {
		Te.Error("averaging should be off with a negative tolerance")
	}
	fmt.Println("degeneracies enforced at", ks)
}

func TestPointGroup(Te *testing.T) {
	inv := [3][3]int{{-1, 0, 0}, {0, -1, 0}, {0, 0, -1}}
	g := pointGroup([][3][3]int{identOp, identOp}, false)
	if len(g) != 1 {
		Te.Errorf("duplicated rotations not removed: %d", len(g))
	}
	g = pointGroup([][3][3]int{identOp}, true)
	if len(g) != 2 {
		Te.Errorf("time reversal should add the inversion: %d", len(g))
	}
	g = pointGroup([][3][3]int{identOp, inv}, true)
	if len(g) != 2 {
		Te.Errorf("no doubling when the crystal already has the inversion: %d", len(g))
	}
	g = pointGroup(nil, false)
	if len(g) != 1 || g[0] != identOp {
		Te.Error("an empty rotation list should fall back to the identity")
	}
}

func TestDistinctKpoints(Te *testing.T) {
	lat := xtal.NewLattice([3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	kcoords, eigens := lineBands()
	//two copies of the same point cannot support a fit
	twice := [][3]float64{kcoords[1], kcoords[1]}
	etwice := [][][]float64{{eigens[0][1], eigens[0][1]}}
	if _, err := New(5, twice, etwice, 0, 2, lat, nil, true); err == nil {
		Te.Error("expected an error for two copies of the same k-point")
	}
	//a lattice translation does not make a k-point distinct
	shifted := [][3]float64{kcoords[1], {kcoords[1][0] + 1, kcoords[1][1], kcoords[1][2] - 2}}
	if _, err := New(5, shifted, etwice, 0, 2, lat, nil, true); err == nil {
		Te.Error("expected an error for k-points equal modulo a lattice translation")
	}
	//a duplicate inside a good set is dropped and the dispersion is
	//still reproduced instead of a flat garbage fit
	dup := append(append([][3]float64{}, kcoords...), kcoords[2])
	edup := [][][]float64{append(append([][]float64{}, eigens[0]...), eigens[0][2])}
	intp, err := New(5, dup, edup, 0, 2, lat, nil, true)
	if err != nil {
		Te.Fatal(err)
	}
	fmt.Println("after dropping the duplicate:", intp)
	got, err := intp.InterpKpts(kcoords)
	if err != nil {
		Te.Fatal(err)
	}
	for ik := range kcoords {
		for band := 0; band < 2; band++ {
			if d := math.Abs(got[0][ik][band] - eigens[0][ik][band]); d > 1e-8 {
				Te.Errorf("band %d not reproduced at k-point %d with a duplicated input: off by %g", band, ik, d)
			}
		}
	}
	if intp.MAE() > 1e-8 {
		Te.Errorf("large fitting error with a duplicated input: %g", intp.MAE())
	}
}

func TestInterpolatorValidation(Te *testing.T) {
	lat := xtal.NewLattice([3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	kcoords, eigens := lineBands()
	if _, err := New(0, kcoords, eigens, 0, 2, lat, nil, true); err == nil {
		Te.Error("expected an error for a zero star ratio")
	}
	if _, err := New(5, kcoords[:1], eigens, 0, 2, lat, nil, true); err == nil {
		Te.Error("expected an error for a single k-point")
	}
	if _, err := New(5, kcoords, eigens, 0, 2, nil, nil, true); err == nil {
		Te.Error("expected an error for a nil lattice")
	}
	ragged := [][][]float64{{{1, 2}, {1}, {1, 2}, {1, 2}, {1, 2}}}
	if _, err := New(5, kcoords, ragged, 0, 2, lat, nil, true); err == nil {
		Te.Error("expected an error for ragged eigenvalues")
	}
	intp, err := New(5, kcoords, eigens, 0, 2, lat, nil, true)
	if err != nil {
		Te.Fatal(err)
	}
	if _, err := intp.InterpKpts(nil); err == nil {
		Te.Error("expected an error for an empty k-point list")
	}
	badref := [][][]float64{{{1, 2}}}
	if _, err := intp.InterpKptsAndEnforceDegs([][3]float64{{0.1, 0, 0}, {0.2, 0, 0}}, badref, 1e-4); err == nil {
		Te.Error("expected an error for mismatched reference eigenvalues")
	}
}
