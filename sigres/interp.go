/*
 * interp.go, part of abipy.
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
	"fmt"
	"log"
	"math"
	"strings"

	gw "github.com/GingrasO/abipy"
	"github.com/GingrasO/abipy/kpts"
	"github.com/GingrasO/abipy/skw"
)

//InterpolateOptions contains the settings of the k-space interpolation of
//the GW results. The zero value is not usable, start from
//DefaultInterpolateOptions.
type InterpolateOptions struct {
	//LPRatio is the ratio between the number of star functions and the
	//number of ab-initio k-points. Larger values give more flexible fits.
	LPRatio int
	//Vertices are the corners of the k-path used when no KS path bands
	//are given, LineDensity the number of points in its smallest segment.
	Vertices    []*kpts.Kpoint
	LineDensity int
	//KSKpath holds KS bands on a k-path. When present, the smoother QP
	//corrections are interpolated and applied on top of these bands
	//instead of interpolating the QP energies directly.
	KSKpath *gw.ElectronBands
	//KSKmesh holds KS bands on a homogeneous mesh, used to build QP bands
	//for a density of states. Requires KSKpath.
	KSKmesh *gw.ElectronBands
	//DegAtol is the energy tolerance below which KS states count as
	//degenerate, so their interpolated corrections can be averaged to
	//avoid splitting degeneracies. A negative value disables the
	//averaging.
	DegAtol float64
	//OnlyCorrections returns the interpolated corrections themselves
	//instead of adding them to the KS bands.
	OnlyCorrections bool
}

//DefaultInterpolateOptions returns the settings that work well in most
//systems.
func DefaultInterpolateOptions() *InterpolateOptions {
	return &InterpolateOptions{LPRatio: 5, LineDensity: 20, DegAtol: 1e-4}
}

//Interpolation bundles the bands produced by File.Interpolate. The KS
//fields echo the reference bands that were passed in, the kmesh fields
//are nil when no mesh was given.
type Interpolation struct {
	QPKpath      *gw.ElectronBands
	QPKmesh      *gw.ElectronBands
	KSKpath      *gw.ElectronBands
	KSKmesh      *gw.ElectronBands
	Interpolator *skw.Interpolator
}

//Interpolate builds quasiparticle bands on a k-path, and optionally on a
//k-mesh, by interpolating the GW results in k-space with star functions.
//With reference KS bands the corrections egw-e0 are interpolated and
//added on top of them, otherwise the QP energies are interpolated
//directly along the path spanned by the vertices. The self-energy must
//have been computed on the whole IBZ and on more than one k-point.
func (F *File) Interpolate(opt *InterpolateOptions) (*Interpolation, error) {
	if opt == nil {
		opt = DefaultInterpolateOptions()
	}
	if opt.LPRatio < 1 {
		return nil, Error{fmt.Sprintf("the ratio of star functions to k-points must be at least 1, got %d", opt.LPRatio),
			F.path, []string{"Interpolate"}, true}
	}
	var errlines []string
	if F.gwkpoints.Len() != F.ibz.Len() {
		errlines = append(errlines, "QP energies should be computed for all k-points in the IBZ but nkibz != nkptgw")
	}
	if F.gwkpoints.Len() == 1 {
		errlines = append(errlines, "QP Interpolation requires nkptgw > 1.")
	}
	if len(errlines) > 0 {
		return nil, Error{strings.Join(errlines, "\n"), F.path, []string{"Interpolate"}, true}
	}
	if opt.KSKmesh != nil && opt.KSKpath == nil {
		return nil, Error{"interpolating on a k-mesh requires the KS bands on a k-path as well",
			F.path, []string{"Interpolate"}, true}
	}

	//the k-points of the output path and the band range to interpolate
	var kpathList *kpts.KpointList
	bstart, bstop := 0, F.raw.Nbnds
	if opt.KSKpath == nil {
		if len(opt.Vertices) == 0 {
			return nil, Error{"either KS bands on a k-path or a list of path vertices is required",
				F.path, []string{"Interpolate"}, true}
		}
		rec, err := F.structure.Lattice().Reciprocal()
		if err != nil {
			return nil, Error{err.Error(), F.path, []string{"Interpolate"}, true}
		}
		kpathList, err = kpts.Path(rec, opt.Vertices, opt.LineDensity)
		if err != nil {
			return nil, Error{err.Error(), F.path, []string{"Interpolate"}, true}
		}
	} else {
		kpathList = opt.KSKpath.Kpoints()
		bstop = opt.KSKpath.NBand()
		if bstop > F.minGwbstop {
			bstop = F.minGwbstop
		}
		if opt.KSKpath.NBand() < F.minGwbstop {
			log.Printf("Number of bands in the KS band structure (%d) is smaller than the number of bands in the GW corrections (%d). The highest GW bands will be ignored",
				opt.KSKpath.NBand(), F.minGwbstop)
		}
		if !F.structure.Equal(opt.KSKpath.Structure(), 1e-6) {
			log.Printf("The sigres structure and the structure of the KS bands on the k-path differ. Check your files!")
		}
	}

	//assemble the data to interpolate, one row per GW k-point. With
	//reference bands the rows hold corrections, otherwise QP energies.
	nk := F.gwkpoints.Len()
	gwKcoords := F.gwkpoints.Coords()
	data := make([][][]float64, F.raw.NSppol)
	for spin := range data {
		data[spin] = make([][]float64, nk)
		for i := 0; i < nk; i++ {
			ikFile, err := F.KIndex(F.gwkpoints.At(i))
			if err != nil {
				return nil, errDecorate(err, "Interpolate")
			}
			row := make([]float64, bstop-bstart)
			for b := bstart; b < bstop; b++ {
				v := real(F.raw.Egw[spin][ikFile][b])
				if opt.KSKpath != nil {
					v -= F.raw.E0[spin][ikFile][b]
				}
				row[b-bstart] = v
			}
			data[spin][i] = row
		}
	}

	hasTimrev := kpts.HasTimrevFromKptopt(F.raw.Kptopt)
	intp, err := skw.New(opt.LPRatio, gwKcoords, data, F.raw.Fermie, F.raw.Nelect,
		F.structure.Lattice(), F.spaceGroup.FMRotations(), hasTimrev)
	if err != nil {
		return nil, Error{err.Error(), F.path, []string{"Interpolate"}, true}
	}

	pathCoords := kpathList.Coords()
	var eigensKpath [][][]float64
	if opt.KSKpath == nil {
		eigensKpath, err = intp.InterpKpts(pathCoords)
		if err != nil {
			return nil, Error{err.Error(), F.path, []string{"Interpolate"}, true}
		}
	} else {
		ref := sliceBands(opt.KSKpath.Eigens(), bstart, bstop)
		corr, err := intp.InterpKptsAndEnforceDegs(pathCoords, ref, opt.DegAtol)
		if err != nil {
			return nil, Error{err.Error(), F.path, []string{"Interpolate"}, true}
		}
		if opt.OnlyCorrections {
			eigensKpath = corr
		} else {
			eigensKpath = addEigens(ref, corr)
		}
	}

	qpFermie := F.alignFermie(opt.KSKpath, eigensKpath)
	qpKpath, err := gw.NewElectronBands(F.structure, kpathList, eigensKpath, nil, nil, qpFermie, F.raw.Nelect)
	if err != nil {
		return nil, Error{err.Error(), F.path, []string{"Interpolate"}, true}
	}
	ret := &Interpolation{QPKpath: qpKpath, KSKpath: opt.KSKpath, KSKmesh: opt.KSKmesh, Interpolator: intp}

	if opt.KSKmesh != nil {
		if bstop > opt.KSKmesh.NBand() {
			return nil, Error{fmt.Sprintf("Not enough bands in ks_ebands_kmesh, found %d, minimum expected %d",
				opt.KSKmesh.NBand(), bstop), F.path, []string{"Interpolate"}, true}
		}
		if !F.structure.Equal(opt.KSKmesh.Structure(), 1e-6) {
			return nil, Error{"the sigres structure and the structure of the KS bands on the k-mesh differ. Check your files!",
				F.path, []string{"Interpolate"}, true}
		}
		dosCoords := opt.KSKmesh.Kpoints().Coords()
		ref := sliceBands(opt.KSKmesh.Eigens(), bstart, bstop)
		corr, err := intp.InterpKptsAndEnforceDegs(dosCoords, ref, opt.DegAtol)
		if err != nil {
			return nil, Error{err.Error(), F.path, []string{"Interpolate"}, true}
		}
		var eigensKmesh [][][]float64
		if opt.OnlyCorrections {
			eigensKmesh = corr
		} else {
			eigensKmesh = addEigens(ref, corr)
		}
		ret.QPKmesh, err = gw.NewElectronBands(F.structure, opt.KSKmesh.Kpoints(), eigensKmesh, nil,
			opt.KSKmesh.Weights(), qpFermie, F.raw.Nelect)
		if err != nil {
			return nil, Error{err.Error(), F.path, []string{"Interpolate"}, true}
		}
	}
	return ret, nil
}

//alignFermie pins the Fermi level of the interpolated bands at the
//highest occupied state of the reference bands, the KS bands of the
//dataset when no reference was given. Finding the true Fermi level of the
//interpolated bands would require a mesh integration, the band alignment
//is what band-structure plots need.
func (F *File) alignFermie(ref *gw.ElectronBands, eigensKpath [][][]float64) float64 {
	src := ref
	if src == nil {
		src = F.ksBands
	}
	homos, err := src.Homos()
	if err != nil {
		log.Printf("Cannot locate occupied states to align the Fermi level, keeping the KS value: %v", err)
		return F.raw.Fermie
	}
	fermie := math.Inf(-1)
	found := false
	for _, h := range homos {
		if h.Spin >= len(eigensKpath) || h.Kidx >= len(eigensKpath[h.Spin]) || h.Band >= len(eigensKpath[h.Spin][h.Kidx]) {
			continue
		}
		if v := eigensKpath[h.Spin][h.Kidx][h.Band]; v > fermie || !found {
			fermie = v
			found = true
		}
	}
	if !found {
		return F.raw.Fermie
	}
	return fermie
}

func sliceBands(eigens [][][]float64, bstart, bstop int) [][][]float64 {
	ret := make([][][]float64, len(eigens))
	for spin := range eigens {
		ret[spin] = make([][]float64, len(eigens[spin]))
		for ik := range eigens[spin] {
			ret[spin][ik] = eigens[spin][ik][bstart:bstop]
		}
	}
	return ret
}

func addEigens(a, b [][][]float64) [][][]float64 {
	ret := make([][][]float64, len(a))
	for spin := range a {
		ret[spin] = make([][]float64, len(a[spin]))
		for ik := range a[spin] {
			row := make([]float64, len(a[spin][ik]))
			for ib := range row {
				row[ib] = a[spin][ik][ib] + b[spin][ik][ib]
			}
			ret[spin][ik] = row
		}
	}
	return ret
}
