/*
 * interp_test.go, part of abipy.
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

package sigres

import (
	"math"
	"strings"
	"testing"

	gw "github.com/GingrasO/abipy"
	"github.com/GingrasO/abipy/kpts"
)

//pathBands builds KS reference bands on a Gamma-X path of the test
//lattice, with the same dispersion the datasets of buildRaw use.
func pathBands(Te *testing.T, f *File, nband, density int) *gw.ElectronBands {
	Te.Helper()
	rec, err := f.Structure().Lattice().Reciprocal()
	if err != nil {
		Te.Fatal(err)
	}
	vertices := []*kpts.Kpoint{kpts.New(0, 0, 0, "G"), kpts.New(0.5, 0, 0, "X")}
	kpath, err := kpts.Path(rec, vertices, density)
	if err != nil {
		Te.Fatal(err)
	}
	nsppol := f.NSppol()
	eig := make([][][]float64, nsppol)
	occ := make([][][]float64, nsppol)
	for spin := 0; spin < nsppol; spin++ {
		eig[spin] = make([][]float64, kpath.Len())
		occ[spin] = make([][]float64, kpath.Len())
		for ik := 0; ik < kpath.Len(); ik++ {
			kx := kpath.At(ik).FracCoords()[0]
			eig[spin][ik] = make([]float64, nband)
			occ[spin][ik] = make([]float64, nband)
			for b := 0; b < nband; b++ {
				eig[spin][ik][b] = e0Of(spin, kx, b)
				if b <= 3 {
					occ[spin][ik][b] = 2.0 / float64(nsppol)
				}
			}
		}
	}
	eb, err := gw.NewElectronBands(f.Structure(), kpath, eig, occ, nil, 1.3, 8)
	if err != nil {
		Te.Fatal(err)
	}
	return eb
}

func TestInterpolateVertices(Te *testing.T) {
	f, err := New(testRaw(1, 0), "")
	if err != nil {
		Te.Fatal(err)
	}
	opt := DefaultInterpolateOptions()
	opt.Vertices = []*kpts.Kpoint{kpts.New(0, 0, 0, "G"), kpts.New(0.5, 0, 0, "X")}
	res, err := f.Interpolate(opt)
	if err != nil {
		Te.Fatal(err)
	}
	qp := res.QPKpath
	if qp == nil || res.Interpolator == nil {
		Te.Fatal("missing interpolation results")
	}
	if res.QPKmesh != nil || res.KSKpath != nil || res.KSKmesh != nil {
		Te.Error("no mesh or reference bands were requested")
	}
	//without reference bands the QP energies are interpolated directly
	//over the full band range
	if qp.NBand() != 6 {
		Te.Errorf("expected 6 interpolated bands, got %d", qp.NBand())
	}
	if qp.NKpt() < 2 {
		Te.Fatalf("path too short: %d points", qp.NKpt())
	}
	//both path endpoints are ab-initio k-points, the fit reproduces them
	last := qp.NKpt() - 1
	for b := 0; b < 6; b++ {
		if d := math.Abs(qp.Eigen(0, 0, b) - (e0Of(0, 0, b) + corrOf(b))); d > 1e-6 {
			Te.Errorf("band %d off by %g at Gamma", b, d)
		}
		if d := math.Abs(qp.Eigen(0, last, b) - (e0Of(0, 0.5, b) + corrOf(b))); d > 1e-6 {
			Te.Errorf("band %d off by %g at X", b, d)
		}
	}
	if math.IsNaN(qp.Fermie()) || math.IsInf(qp.Fermie(), 0) {
		Te.Errorf("bad Fermi level %g", qp.Fermie())
	}
}

func TestInterpolateWithReference(Te *testing.T) {
	f, err := New(testRaw(1, 0), "")
	if err != nil {
		Te.Fatal(err)
	}
	ks := pathBands(Te, f, 6, 10)
	opt := DefaultInterpolateOptions()
	opt.KSKpath = ks
	res, err := f.Interpolate(opt)
	if err != nil {
		Te.Fatal(err)
	}
	qp := res.QPKpath
	if qp.NKpt() != ks.NKpt() {
		Te.Fatalf("interpolated bands cover %d k-points, the reference %d", qp.NKpt(), ks.NKpt())
	}
	//the corrections of the test dataset do not depend on k, so the
	//interpolation is exact everywhere on the path
	for ik := 0; ik < qp.NKpt(); ik++ {
		for b := 0; b < 6; b++ {
			want := ks.Eigen(0, ik, b) + corrOf(b)
			if d := math.Abs(qp.Eigen(0, ik, b) - want); d > 1e-9 {
				Te.Errorf("QP band %d off by %g at path point %d", b, d, ik)
			}
		}
	}
	//the Fermi level sits at the QP energy of the highest occupied state
	wantFermie := e0Of(0, 0.5, 3) + corrOf(3)
	if d := math.Abs(qp.Fermie() - wantFermie); d > 1e-9 {
		Te.Errorf("Fermi level %g, want %g", qp.Fermie(), wantFermie)
	}
	if res.KSKpath != ks {
		Te.Error("the reference bands should be echoed in the result")
	}
	//corrections alone
	opt.OnlyCorrections = true
	res, err = f.Interpolate(opt)
	if err != nil {
		Te.Fatal(err)
	}
	for ik := 0; ik < res.QPKpath.NKpt(); ik++ {
		for b := 0; b < 6; b++ {
			if d := math.Abs(res.QPKpath.Eigen(0, ik, b) - corrOf(b)); d > 1e-9 {
				Te.Errorf("correction of band %d off by %g at path point %d", b, d, ik)
			}
		}
	}
	//fewer reference bands limit the interpolated range
	opt = DefaultInterpolateOptions()
	opt.KSKpath = pathBands(Te, f, 5, 10)
	res, err = f.Interpolate(opt)
	if err != nil {
		Te.Fatal(err)
	}
	if res.QPKpath.NBand() != 5 {
		Te.Errorf("expected the band range cut to 5, got %d", res.QPKpath.NBand())
	}
}

func TestInterpolateKmesh(Te *testing.T) {
	f, err := New(testRaw(1, 0), "")
	if err != nil {
		Te.Fatal(err)
	}
	meshBands := func(nband int) *gw.ElectronBands {
		eig := make([][][]float64, 1)
		occ := make([][][]float64, 1)
		eig[0] = make([][]float64, len(testKxs))
		occ[0] = make([][]float64, len(testKxs))
		for ik, kx := range testKxs {
			eig[0][ik] = make([]float64, nband)
			occ[0][ik] = make([]float64, nband)
			for b := 0; b < nband; b++ {
				eig[0][ik][b] = e0Of(0, kx, b)
				if b <= 3 {
					occ[0][ik][b] = 2
				}
			}
		}
		weights := []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
		eb, err := gw.NewElectronBands(f.Structure(), f.IBZ(), eig, occ, weights, 1.3, 8)
		if err != nil {
			Te.Fatal(err)
		}
		return eb
	}
	opt := DefaultInterpolateOptions()
	opt.KSKpath = pathBands(Te, f, 6, 10)
	opt.KSKmesh = meshBands(6)
	res, err := f.Interpolate(opt)
	if err != nil {
		Te.Fatal(err)
	}
	if res.QPKmesh == nil {
		Te.Fatal("expected QP bands on the mesh")
	}
	for ik, kx := range testKxs {
		for b := 0; b < 6; b++ {
			want := e0Of(0, kx, b) + corrOf(b)
			if d := math.Abs(res.QPKmesh.Eigen(0, ik, b) - want); d > 1e-9 {
				Te.Errorf("mesh QP band %d off by %g at k-point %d", b, d, ik)
			}
		}
	}
	if w := res.QPKmesh.Weights(); w == nil || w[0] != 1.0/3 {
		Te.Errorf("mesh weights not carried over: %v", w)
	}
	//not enough bands on the mesh
	opt.KSKmesh = meshBands(4)
	if _, err := f.Interpolate(opt); err == nil ||
		!strings.Contains(err.Error(), "Not enough bands in ks_ebands_kmesh, found 4, minimum expected 6") {
		Te.Errorf("expected a missing bands error, got %v", err)
	}
	//a mesh alone is not enough
	opt = DefaultInterpolateOptions()
	opt.KSKmesh = meshBands(6)
	if _, err := f.Interpolate(opt); err == nil || !strings.Contains(err.Error(), "requires the KS bands on a k-path") {
		Te.Errorf("expected a missing path error, got %v", err)
	}
}

func TestInterpolateValidation(Te *testing.T) {
	partial, err := New(buildRaw(1, 0, 2, []int{0, 0}, []int{6, 6}), "")
	if err != nil {
		Te.Fatal(err)
	}
	opt := DefaultInterpolateOptions()
	opt.Vertices = []*kpts.Kpoint{kpts.New(0, 0, 0, "G"), kpts.New(0.5, 0, 0, "X")}
	if _, err := partial.Interpolate(opt); err == nil ||
		!strings.Contains(err.Error(), "QP energies should be computed for all k-points in the IBZ but nkibz != nkptgw") {
		Te.Errorf("expected an IBZ coverage error, got %v", err)
	}
	single, err := New(buildRaw(1, 0, 1, []int{0}, []int{6}), "")
	if err != nil {
		Te.Fatal(err)
	}
	_, err = single.Interpolate(opt)
	if err == nil {
		Te.Fatal("a single GW k-point cannot be interpolated")
	}
	if !strings.Contains(err.Error(), "nkibz != nkptgw") || !strings.Contains(err.Error(), "QP Interpolation requires nkptgw > 1.") {
		Te.Errorf("expected both validation messages, got %v", err)
	}
	full, err := New(testRaw(1, 0), "")
	if err != nil {
		Te.Fatal(err)
	}
	if _, err := full.Interpolate(DefaultInterpolateOptions()); err == nil || !strings.Contains(err.Error(), "path vertices") {
		Te.Errorf("expected a missing vertices error, got %v", err)
	}
	bad := &InterpolateOptions{Vertices: opt.Vertices, LineDensity: 20, DegAtol: 1e-4}
	if _, err := full.Interpolate(bad); err == nil || !strings.Contains(err.Error(), "at least 1") {
		Te.Errorf("expected a star ratio error, got %v", err)
	}
}
