/*
 * raw.go, part of abipy.
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

import "fmt"

//Raw is the in-memory image of a SIGRES dataset, the collection of GW
//results written by a self-energy calculation. All fields are exported so
//the codec and the tests can fill them directly, use Validate before
//wrapping a hand-built Raw in a File.
//
//Band windows follow the 0-based, half-open Go convention: at each spin
//and GW k-point the self-energy was computed for the bands in
//[Gwbstart, Gwbstop). Arrays marked "windowed" are dimensioned with that
//per-k-point window and are indexed with band-Gwbstart.
type Raw struct {
	//dimensions
	NSppol  int
	Nkibz   int
	Nkptgw  int
	Nbnds   int
	NomegaR int
	//calculation flags
	Gwcalctyp  int
	Usepawu    int
	Kptopt     int
	ScissorEne float64
	//electron data
	Fermie float64
	Nelect float64
	//crystal structure and symmetries
	LatVecs    [3][3]float64
	FracCoords [][3]float64
	Species    []int
	Symrel     [][3][3]int
	Symafm     []int
	//k-points: the IBZ of the KS run with its weights, and the subset
	//where the self-energy was computed
	IBZ   [][3]float64
	Wtk   []float64
	Kptgw [][3]float64
	//band windows, [spin][gw k-point]
	Gwbstart [][]int
	Gwbstop  [][]int
	//KS bands on the IBZ, [spin][ik][band]
	E0  [][][]float64
	Occ [][][]float64
	//QP energies on the full band range, [spin][ik][band]
	Egw       [][][]complex128
	EnQPDiago [][][]float64
	//diagonal matrix elements, windowed, [spin][gw k][ib]
	Vxcme    [][][]complex128
	Sigxme   [][][]complex128
	VUme     [][][]complex128
	Sigcmee0 [][][]complex128
	Ze0      [][][]complex128
	//Hartree hamiltonian on the window, [spin][gw k][ib][jb]
	Hhartree [][][][]complex128
	//self-energy on the real frequency mesh, [spin][gw k][iw][ib].
	//Empty when NomegaR is zero.
	OmegaR  []float64
	Sigcme  [][][][]complex128
	Sigxcme [][][][]complex128
	//gaps on the IBZ, [spin][ik]
	E0Gap   [][]float64
	EgwGap  [][]float64
	DegwGap [][]float64
	//convergence parameters stored in the dataset, e.g. ecuteps. Absent
	//keys mean the calculation did not record them.
	Params map[string]float64
}

//NWin returns the number of bands in the GW window at the given spin and
//GW k-point index.
func (R *Raw) NWin(spin, ikgw int) int {
	return R.Gwbstop[spin][ikgw] - R.Gwbstart[spin][ikgw]
}

//Validate checks the dimensions and the internal consistency of the data.
//The filename is only used in error messages and may be empty.
func (R *Raw) Validate(filename string) error {
	fail := func(format string, args ...interface{}) error {
		return Error{fmt.Sprintf(format, args...), filename, []string{"Validate"}, true}
	}
	if R.NSppol != 1 && R.NSppol != 2 {
		return fail("nsppol is %d, want 1 or 2", R.NSppol)
	}
	if R.Nkibz < 1 || R.Nkptgw < 1 || R.Nbnds < 1 {
		return fail("empty dimensions: nkibz=%d nkptgw=%d nbnds=%d", R.Nkibz, R.Nkptgw, R.Nbnds)
	}
	if R.NomegaR < 0 {
		return fail("negative nomega_r %d", R.NomegaR)
	}
	if len(R.FracCoords) == 0 || len(R.FracCoords) != len(R.Species) {
		return fail("structure has %d coordinates and %d species", len(R.FracCoords), len(R.Species))
	}
	if len(R.Symrel) == 0 || len(R.Symrel) != len(R.Symafm) {
		return fail("got %d symmetry rotations and %d AFM flags", len(R.Symrel), len(R.Symafm))
	}
	if len(R.IBZ) != R.Nkibz {
		return fail("the IBZ has %d k-points, nkibz is %d", len(R.IBZ), R.Nkibz)
	}
	if len(R.Wtk) != R.Nkibz {
		return fail("got %d k-point weights for %d IBZ points", len(R.Wtk), R.Nkibz)
	}
	if len(R.Kptgw) != R.Nkptgw {
		return fail("got %d GW k-points, nkptgw is %d", len(R.Kptgw), R.Nkptgw)
	}
	if err := R.validateWindows(fail); err != nil {
		return err
	}
	for name, arr := range map[string][][][]float64{"e0": R.E0, "occ": R.Occ, "en_qp_diago": R.EnQPDiago} {
		if err := R.checkFullReal(name, arr, fail); err != nil {
			return err
		}
	}
	if err := R.checkFullComplex("egw", R.Egw, fail); err != nil {
		return err
	}
	for name, arr := range map[string][][][]complex128{
		"vxcme": R.Vxcme, "sigxme": R.Sigxme, "vUme": R.VUme, "sigcmee0": R.Sigcmee0, "ze0": R.Ze0} {
		if err := R.checkWindowed(name, arr, fail); err != nil {
			return err
		}
	}
	if err := R.checkHhartree(fail); err != nil {
		return err
	}
	if err := R.checkSpectral(fail); err != nil {
		return err
	}
	for name, arr := range map[string][][]float64{"e0gap": R.E0Gap, "egwgap": R.EgwGap, "degwgap": R.DegwGap} {
		if len(arr) != R.NSppol {
			return fail("%s has %d spin channels, want %d", name, len(arr), R.NSppol)
		}
		for spin := range arr {
			if len(arr[spin]) != R.Nkibz {
				return fail("%s at spin %d has %d k-points, want %d", name, spin, len(arr[spin]), R.Nkibz)
			}
		}
	}
	return nil
}

func (R *Raw) validateWindows(fail func(string, ...interface{}) error) error {
	if len(R.Gwbstart) != R.NSppol || len(R.Gwbstop) != R.NSppol {
		return fail("band windows have %d/%d spin channels, want %d", len(R.Gwbstart), len(R.Gwbstop), R.NSppol)
	}
	for spin := 0; spin < R.NSppol; spin++ {
		if len(R.Gwbstart[spin]) != R.Nkptgw || len(R.Gwbstop[spin]) != R.Nkptgw {
			return fail("band windows at spin %d have %d/%d k-points, want %d",
				spin, len(R.Gwbstart[spin]), len(R.Gwbstop[spin]), R.Nkptgw)
		}
		for ik := 0; ik < R.Nkptgw; ik++ {
			start, stop := R.Gwbstart[spin][ik], R.Gwbstop[spin][ik]
			if start < 0 || start >= stop || stop > R.Nbnds {
				return fail("bad band window [%d, %d) at spin %d, GW k-point %d with nbnds %d",
					start, stop, spin, ik, R.Nbnds)
			}
		}
	}
	return nil
}

func (R *Raw) checkFullReal(name string, arr [][][]float64, fail func(string, ...interface{}) error) error {
	if len(arr) != R.NSppol {
		return fail("%s has %d spin channels, want %d", name, len(arr), R.NSppol)
	}
	for spin := range arr {
		if len(arr[spin]) != R.Nkibz {
			return fail("%s at spin %d has %d k-points, want %d", name, spin, len(arr[spin]), R.Nkibz)
		}
		for ik := range arr[spin] {
			if len(arr[spin][ik]) != R.Nbnds {
				return fail("%s at spin %d, k-point %d has %d bands, want %d", name, spin, ik, len(arr[spin][ik]), R.Nbnds)
			}
		}
	}
	return nil
}

func (R *Raw) checkFullComplex(name string, arr [][][]complex128, fail func(string, ...interface{}) error) error {
	if len(arr) != R.NSppol {
		return fail("%s has %d spin channels, want %d", name, len(arr), R.NSppol)
	}
	for spin := range arr {
		if len(arr[spin]) != R.Nkibz {
			return fail("%s at spin %d has %d k-points, want %d", name, spin, len(arr[spin]), R.Nkibz)
		}
		for ik := range arr[spin] {
			if len(arr[spin][ik]) != R.Nbnds {
				return fail("%s at spin %d, k-point %d has %d bands, want %d", name, spin, ik, len(arr[spin][ik]), R.Nbnds)
			}
		}
	}
	return nil
}

func (R *Raw) checkWindowed(name string, arr [][][]complex128, fail func(string, ...interface{}) error) error {
	if len(arr) != R.NSppol {
		return fail("%s has %d spin channels, want %d", name, len(arr), R.NSppol)
	}
	for spin := range arr {
		if len(arr[spin]) != R.Nkptgw {
			return fail("%s at spin %d has %d GW k-points, want %d", name, spin, len(arr[spin]), R.Nkptgw)
		}
		for ik := range arr[spin] {
			if len(arr[spin][ik]) != R.NWin(spin, ik) {
				return fail("%s at spin %d, GW k-point %d has %d bands, the window holds %d",
					name, spin, ik, len(arr[spin][ik]), R.NWin(spin, ik))
			}
		}
	}
	return nil
}

func (R *Raw) checkHhartree(fail func(string, ...interface{}) error) error {
	if len(R.Hhartree) != R.NSppol {
		return fail("hhartree has %d spin channels, want %d", len(R.Hhartree), R.NSppol)
	}
	for spin := range R.Hhartree {
		if len(R.Hhartree[spin]) != R.Nkptgw {
			return fail("hhartree at spin %d has %d GW k-points, want %d", spin, len(R.Hhartree[spin]), R.Nkptgw)
		}
		for ik := range R.Hhartree[spin] {
			w := R.NWin(spin, ik)
			if len(R.Hhartree[spin][ik]) != w {
				return fail("hhartree at spin %d, GW k-point %d has %d rows, the window holds %d",
					spin, ik, len(R.Hhartree[spin][ik]), w)
			}
			for ib := range R.Hhartree[spin][ik] {
				if len(R.Hhartree[spin][ik][ib]) != w {
					return fail("hhartree at spin %d, GW k-point %d, row %d has %d columns, the window holds %d",
						spin, ik, ib, len(R.Hhartree[spin][ik][ib]), w)
				}
			}
		}
	}
	return nil
}

func (R *Raw) checkSpectral(fail func(string, ...interface{}) error) error {
	if R.NomegaR == 0 {
		if len(R.OmegaR) != 0 || len(R.Sigcme) != 0 || len(R.Sigxcme) != 0 {
			return fail("nomega_r is zero but the dataset carries spectral arrays")
		}
		return nil
	}
	if len(R.OmegaR) != R.NomegaR {
		return fail("the frequency mesh has %d points, nomega_r is %d", len(R.OmegaR), R.NomegaR)
	}
	for name, arr := range map[string][][][][]complex128{"sigcme": R.Sigcme, "sigxcme": R.Sigxcme} {
		if len(arr) != R.NSppol {
			return fail("%s has %d spin channels, want %d", name, len(arr), R.NSppol)
		}
		for spin := range arr {
			if len(arr[spin]) != R.Nkptgw {
				return fail("%s at spin %d has %d GW k-points, want %d", name, spin, len(arr[spin]), R.Nkptgw)
			}
			for ik := range arr[spin] {
				if len(arr[spin][ik]) != R.NomegaR {
					return fail("%s at spin %d, GW k-point %d has %d frequencies, want %d",
						name, spin, ik, len(arr[spin][ik]), R.NomegaR)
				}
				for iw := range arr[spin][ik] {
					if len(arr[spin][ik][iw]) != R.NWin(spin, ik) {
						return fail("%s at spin %d, GW k-point %d, frequency %d has %d bands, the window holds %d",
							name, spin, ik, iw, len(arr[spin][ik][iw]), R.NWin(spin, ik))
					}
				}
			}
		}
	}
	return nil
}
