/*
 * file.go, part of abipy.
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

//Package sigres reads, stores and queries the results of GW self-energy
//calculations. A dataset holds the KS bands of the underlying
//ground-state run, the quasiparticle energies and the self-energy matrix
//elements for every computed (spin, k-point, band) state, plus the
//crystal structure and the symmetries needed to interpolate the
//corrections in k-space.
package sigres

import (
	"fmt"
	"math"

	gw "github.com/GingrasO/abipy"
	"github.com/GingrasO/abipy/kpts"
	"github.com/GingrasO/abipy/xtal"
)

//FileKIndex indexes the arrays dimensioned with the k-points of the IBZ,
//e.g. the KS bands and the gaps.
type FileKIndex int

//GWKIndex indexes the arrays dimensioned with the k-points where the
//self-energy was computed, e.g. the band windows and the matrix elements.
//The two index spaces coincide only when the self-energy covers the whole
//IBZ, keeping them as distinct types makes mixing them a compile error.
type GWKIndex int

//File gives access to the results of one GW calculation. Build one with
//New from in-memory data or with Open from a stored dataset.
type File struct {
	path        string
	raw         *Raw
	structure   *xtal.Structure
	spaceGroup  *xtal.SpaceGroup
	ibz         *kpts.KpointList
	gwkpoints   *kpts.KpointList
	ksBands     *gw.ElectronBands
	minGwbstart int
	maxGwbstart int
	minGwbstop  int
	maxGwbstop  int
}

//New wraps validated raw data in a File. The filename is used only in
//error messages and may be empty.
func New(raw *Raw, filename string) (*File, error) {
	if raw == nil {
		return nil, Error{"nil raw data", filename, []string{"New"}, true}
	}
	if err := raw.Validate(filename); err != nil {
		return nil, errDecorate(err, "New")
	}
	lat := xtal.NewLattice(raw.LatVecs)
	structure, err := xtal.NewStructure(lat, raw.FracCoords, raw.Species)
	if err != nil {
		return nil, Error{err.Error(), filename, []string{"New"}, true}
	}
	spg, err := xtal.NewSpaceGroup(raw.Symrel, raw.Symafm)
	if err != nil {
		return nil, Error{err.Error(), filename, []string{"New"}, true}
	}
	F := &File{path: filename, raw: raw, structure: structure, spaceGroup: spg}
	F.ibz = kpts.ListFromCoords(raw.IBZ)
	F.gwkpoints = kpts.ListFromCoords(raw.Kptgw)
	//every GW k-point must belong to the IBZ, the data model hangs on it
	for i := 0; i < F.gwkpoints.Len(); i++ {
		if !F.ibz.Contains(F.gwkpoints.At(i)) {
			return nil, Error{fmt.Sprintf("GW k-point %v not found in the IBZ", F.gwkpoints.At(i)),
				filename, []string{"New"}, true}
		}
	}
	F.ksBands, err = gw.NewElectronBands(structure, F.ibz, raw.E0, raw.Occ, raw.Wtk, raw.Fermie, raw.Nelect)
	if err != nil {
		return nil, Error{err.Error(), filename, []string{"New"}, true}
	}
	F.minGwbstart, F.maxGwbstart = minMaxInt(raw.Gwbstart)
	F.minGwbstop, F.maxGwbstop = minMaxInt(raw.Gwbstop)
	return F, nil
}

func minMaxInt(a [][]int) (min, max int) {
	min, max = a[0][0], a[0][0]
	for _, row := range a {
		for _, v := range row {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return min, max
}

//Close releases the decoded data. The file must not be used afterwards.
func (F *File) Close() error {
	F.raw = nil
	F.ksBands = nil
	return nil
}

//Path returns the name the dataset was opened from, or an empty string.
func (F *File) Path() string { return F.path }

//Structure returns the crystal structure of the calculation.
func (F *File) Structure() *xtal.Structure { return F.structure }

//SpaceGroup returns the symmetries read from the dataset.
func (F *File) SpaceGroup() *xtal.SpaceGroup { return F.spaceGroup }

//IBZ returns the k-points of the irreducible zone of the KS run.
func (F *File) IBZ() *kpts.KpointList { return F.ibz }

//GWKpoints returns the k-points where the self-energy was computed.
func (F *File) GWKpoints() *kpts.KpointList { return F.gwkpoints }

//NSppol returns the number of spin channels.
func (F *File) NSppol() int { return F.raw.NSppol }

//Nkibz returns the number of k-points in the IBZ.
func (F *File) Nkibz() int { return F.raw.Nkibz }

//Nkptgw returns the number of k-points with GW corrections.
func (F *File) Nkptgw() int { return F.raw.Nkptgw }

//Nbnds returns the total number of bands of the KS run.
func (F *File) Nbnds() int { return F.raw.Nbnds }

//Gwcalctyp returns the abinit flag with the self-energy calculation type.
func (F *File) Gwcalctyp() int { return F.raw.Gwcalctyp }

//KSBands returns the KS band structure on the IBZ.
func (F *File) KSBands() *gw.ElectronBands { return F.ksBands }

//MinGwbstart returns the lowest band index of the GW windows over all
//spins and k-points.
func (F *File) MinGwbstart() int { return F.minGwbstart }

//MaxGwbstart returns the highest window start over all spins and k-points.
func (F *File) MaxGwbstart() int { return F.maxGwbstart }

//MinGwbstop returns the lowest window stop over all spins and k-points.
func (F *File) MinGwbstop() int { return F.minGwbstop }

//MaxGwbstop returns the highest window stop over all spins and k-points.
func (F *File) MaxGwbstop() int { return F.maxGwbstop }

//KIndex returns the index of a k-point in the IBZ.
func (F *File) KIndex(k *kpts.Kpoint) (FileKIndex, error) {
	i, err := F.ibz.Index(k)
	if err != nil {
		return -1, Error{fmt.Sprintf("k-point %v not in the IBZ", k), F.path, []string{"KIndex"}, true}
	}
	return FileKIndex(i), nil
}

//GWIndex returns the index of a k-point in the list of GW k-points.
func (F *File) GWIndex(k *kpts.Kpoint) (GWKIndex, error) {
	i, err := F.gwkpoints.Index(k)
	if err != nil {
		return -1, Error{fmt.Sprintf("k-point %v has no computed self-energy", k), F.path, []string{"GWIndex"}, true}
	}
	return GWKIndex(i), nil
}

//Gwbstart returns the first band of the GW window at the given spin and
//GW k-point.
func (F *File) Gwbstart(spin int, ik GWKIndex) int { return F.raw.Gwbstart[spin][ik] }

//Gwbstop returns the band after the last one of the GW window at the
//given spin and GW k-point.
func (F *File) Gwbstop(spin int, ik GWKIndex) int { return F.raw.Gwbstop[spin][ik] }

func (F *File) checkSpin(spin int, caller string) error {
	if spin < 0 || spin >= F.raw.NSppol {
		return Error{fmt.Sprintf("spin %d out of range, nsppol is %d", spin, F.raw.NSppol), F.path, []string{caller}, true}
	}
	return nil
}

//BuildRecord assembles the quasiparticle state for the given spin,
//k-point and band. The k-point must be among the GW k-points and the band
//inside the window computed there.
func (F *File) BuildRecord(spin int, kpoint *kpts.Kpoint, band int) (*gw.QPState, error) {
	if err := F.checkSpin(spin, "BuildRecord"); err != nil {
		return nil, err
	}
	ikFile, err := F.KIndex(kpoint)
	if err != nil {
		return nil, errDecorate(err, "BuildRecord")
	}
	ikGW, err := F.GWIndex(kpoint)
	if err != nil {
		return nil, errDecorate(err, "BuildRecord")
	}
	start, stop := F.raw.Gwbstart[spin][ikGW], F.raw.Gwbstop[spin][ikGW]
	if band < start || band >= stop {
		return nil, Error{fmt.Sprintf("band %d outside the GW window [%d, %d) at k-point %v",
			band, start, stop, kpoint), F.path, []string{"BuildRecord"}, true}
	}
	ib := band - start
	qp := &gw.QPState{
		Spin:     spin,
		Kpoint:   kpoint,
		Band:     band,
		E0:       F.raw.E0[spin][ikFile][band],
		QPE:      F.raw.Egw[spin][ikFile][band],
		QPEDiago: F.raw.EnQPDiago[spin][ikFile][band],
		Vxcme:    F.raw.Vxcme[spin][ikGW][ib],
		Sigxme:   F.raw.Sigxme[spin][ikGW][ib],
		Sigcmee0: F.raw.Sigcmee0[spin][ikGW][ib],
		VUme:     F.raw.VUme[spin][ikGW][ib],
		Ze0:      F.raw.Ze0[spin][ikGW][ib],
	}
	return qp, nil
}

//QPListSK returns the quasiparticle states of one spin and k-point, in
//band order.
func (F *File) QPListSK(spin int, kpoint *kpts.Kpoint) (*gw.QPList, error) {
	if err := F.checkSpin(spin, "QPListSK"); err != nil {
		return nil, err
	}
	ikGW, err := F.GWIndex(kpoint)
	if err != nil {
		return nil, errDecorate(err, "QPListSK")
	}
	states := make([]*gw.QPState, 0, F.raw.NWin(spin, int(ikGW)))
	for band := F.raw.Gwbstart[spin][ikGW]; band < F.raw.Gwbstop[spin][ikGW]; band++ {
		qp, err := F.BuildRecord(spin, kpoint, band)
		if err != nil {
			return nil, errDecorate(err, "QPListSK")
		}
		states = append(states, qp)
	}
	return gw.NewQPList(states...), nil
}

//AllRecords returns every quasiparticle state of one spin channel,
//ordered by GW k-point first and band second.
func (F *File) AllRecords(spin int) (*gw.QPList, error) {
	if err := F.checkSpin(spin, "AllRecords"); err != nil {
		return nil, err
	}
	all := gw.NewQPList()
	for i := 0; i < F.gwkpoints.Len(); i++ {
		sk, err := F.QPListSK(spin, F.gwkpoints.At(i))
		if err != nil {
			return nil, errDecorate(err, "AllRecords")
		}
		merged, err := all.Merge(sk, false)
		if err != nil {
			return nil, Error{err.Error(), F.path, []string{"AllRecords"}, true}
		}
		all = merged
	}
	return all, nil
}

//QPEnes returns the quasiparticle energies on the full band range,
//indexed by spin, IBZ k-point and band. The returned slices are owned by
//the receiver, do not modify them.
func (F *File) QPEnes() [][][]complex128 {
	return F.raw.Egw
}

//QPGaps returns a copy of the quasiparticle gaps, indexed by spin and IBZ
//k-point.
func (F *File) QPGaps() [][]float64 {
	return copyGaps(F.raw.EgwGap)
}

//KSGaps returns a copy of the KS gaps, indexed by spin and IBZ k-point.
func (F *File) KSGaps() [][]float64 {
	return copyGaps(F.raw.E0Gap)
}

func copyGaps(g [][]float64) [][]float64 {
	ret := make([][]float64, len(g))
	for spin := range g {
		ret[spin] = append([]float64(nil), g[spin]...)
	}
	return ret
}

//QPGap returns the quasiparticle gap at the given spin and k-point.
func (F *File) QPGap(spin int, kpoint *kpts.Kpoint) (float64, error) {
	if err := F.checkSpin(spin, "QPGap"); err != nil {
		return 0, err
	}
	ik, err := F.KIndex(kpoint)
	if err != nil {
		return 0, errDecorate(err, "QPGap")
	}
	return F.raw.EgwGap[spin][ik], nil
}

//KSGap returns the KS gap at the given spin and k-point.
func (F *File) KSGap(spin int, kpoint *kpts.Kpoint) (float64, error) {
	if err := F.checkSpin(spin, "KSGap"); err != nil {
		return 0, err
	}
	ik, err := F.KIndex(kpoint)
	if err != nil {
		return 0, errDecorate(err, "KSGap")
	}
	return F.raw.E0Gap[spin][ik], nil
}

//HasSpectralFunction returns true if the dataset carries the self-energy
//on a real frequency mesh.
func (F *File) HasSpectralFunction() bool {
	return F.raw.NomegaR > 0
}

//SigmawAt returns the self-energy and the spectral function of one state
//as a function of frequency. It fails if the dataset has no spectral data
//or if the state is outside the computed GW window.
func (F *File) SigmawAt(spin int, kpoint *kpts.Kpoint, band int) (*gw.Sigmaw, error) {
	if !F.HasSpectralFunction() {
		return nil, Error{F.path + " does not contain spectral function data", F.path, []string{"SigmawAt"}, true}
	}
	if err := F.checkSpin(spin, "SigmawAt"); err != nil {
		return nil, err
	}
	ikGW, err := F.GWIndex(kpoint)
	if err != nil {
		return nil, errDecorate(err, "SigmawAt")
	}
	start, stop := F.raw.Gwbstart[spin][ikGW], F.raw.Gwbstop[spin][ikGW]
	if band < start || band >= stop {
		return nil, Error{fmt.Sprintf("band %d outside the GW window [%d, %d) at k-point %v",
			band, start, stop, kpoint), F.path, []string{"SigmawAt"}, true}
	}
	ib := band - start
	hh := real(F.raw.Hhartree[spin][ikGW][ib][ib])
	n := F.raw.NomegaR
	wmesh := append([]float64(nil), F.raw.OmegaR...)
	xc := make([]complex128, n)
	spf := make([]float64, n)
	for iw := 0; iw < n; iw++ {
		sxc := F.raw.Sigxcme[spin][ikGW][iw][ib]
		sc := F.raw.Sigcme[spin][ikGW][iw][ib]
		xc[iw] = sxc
		den := math.Pow(wmesh[iw]-hh-real(sxc), 2) + math.Pow(imag(sc), 2)
		spf[iw] = math.Abs(imag(sc)) / den / math.Pi
	}
	sigw, err := gw.NewSigmaw(spin, kpoint, band, wmesh, xc, spf)
	if err != nil {
		return nil, Error{err.Error(), F.path, []string{"SigmawAt"}, true}
	}
	return sigw, nil
}

//Params returns the parameters of the calculation that are commonly used
//in convergence studies. Parameters the dataset did not record are absent
//from the map.
func (F *File) Params() map[string]float64 {
	ret := make(map[string]float64, len(F.raw.Params)+3)
	for k, v := range F.raw.Params {
		ret[k] = v
	}
	ret["gwcalctyp"] = float64(F.raw.Gwcalctyp)
	ret["scissor_ene"] = F.raw.ScissorEne
	ret["nkibz"] = float64(F.raw.Nkibz)
	return ret
}

func (F *File) String() string {
	return fmt.Sprintf("sigres dataset %q: nsppol=%d nkibz=%d nkptgw=%d nbnds=%d spectral=%v",
		F.path, F.raw.NSppol, F.raw.Nkibz, F.raw.Nkptgw, F.raw.Nbnds, F.HasSpectralFunction())
}
