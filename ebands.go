/*
 * ebands.go, part of abipy.
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

	"github.com/GingrasO/abipy/kpts"
	"github.com/GingrasO/abipy/xtal"
	"gonum.org/v1/gonum/floats"
)

//occTol is the occupation below which a state counts as empty when
//locating band edges.
const occTol = 0.01

//Electron identifies one band state together with its energy and
//occupation. Kidx indexes the k-point list of the bands the state was
//taken from.
type Electron struct {
	Spin int
	Kidx int
	Band int
	Eig  float64
	Occ  float64
}

func (e Electron) String() string {
	return fmt.Sprintf("(spin=%d, kidx=%d, band=%d, eig=%.3f, occ=%.3f)", e.Spin, e.Kidx, e.Band, e.Eig, e.Occ)
}

//ElectronBands holds band energies and occupations on a list of k-points,
//for one or two spin channels. Only collinear calculations are supported,
//so the number of spin channels is 1 or 2.
type ElectronBands struct {
	structure *xtal.Structure
	kpoints   *kpts.KpointList
	eigens    [][][]float64 //spin, k-point, band
	occfacts  [][][]float64
	weights   []float64 //k-point weights, nil for a path
	fermie    float64
	nelect    float64
}

//NewElectronBands builds a band structure object. The eigens and occfacts
//arrays are indexed by spin, k-point and band and must be rectangular. A
//nil occfacts means all occupations are zero, which is what interpolated
//quasiparticle bands carry. The weights are the k-point weights of a
//homogeneous mesh, nil for a band path. None of the slices is copied.
func NewElectronBands(structure *xtal.Structure, kpoints *kpts.KpointList, eigens, occfacts [][][]float64,
	weights []float64, fermie, nelect float64) (*ElectronBands, error) {
	if structure == nil {
		return nil, fmt.Errorf("abipy/gw.NewElectronBands: nil structure")
	}
	if kpoints == nil || kpoints.Len() == 0 {
		return nil, fmt.Errorf("abipy/gw.NewElectronBands: no k-points given")
	}
	nsppol := len(eigens)
	if nsppol != 1 && nsppol != 2 {
		return nil, fmt.Errorf("abipy/gw.NewElectronBands: got %d spin channels, want 1 or 2", nsppol)
	}
	nkpt := kpoints.Len()
	nband := -1
	for spin := range eigens {
		if len(eigens[spin]) != nkpt {
			return nil, fmt.Errorf("abipy/gw.NewElectronBands: spin %d has %d k-points, the k-point list has %d", spin, len(eigens[spin]), nkpt)
		}
		for ik := range eigens[spin] {
			if nband < 0 {
				nband = len(eigens[spin][ik])
			}
			if len(eigens[spin][ik]) != nband {
				return nil, fmt.Errorf("abipy/gw.NewElectronBands: ragged band array at spin %d, k-point %d", spin, ik)
			}
		}
	}
	if nband <= 0 {
		return nil, fmt.Errorf("abipy/gw.NewElectronBands: no bands given")
	}
	if occfacts == nil {
		occfacts = make([][][]float64, nsppol)
		for spin := range occfacts {
			occfacts[spin] = make([][]float64, nkpt)
			for ik := range occfacts[spin] {
				occfacts[spin][ik] = make([]float64, nband)
			}
		}
	}
	if len(occfacts) != nsppol {
		return nil, fmt.Errorf("abipy/gw.NewElectronBands: occupations have %d spin channels, energies have %d", len(occfacts), nsppol)
	}
	for spin := range occfacts {
		if len(occfacts[spin]) != nkpt {
			return nil, fmt.Errorf("abipy/gw.NewElectronBands: occupations at spin %d have %d k-points, want %d", spin, len(occfacts[spin]), nkpt)
		}
		for ik := range occfacts[spin] {
			if len(occfacts[spin][ik]) != nband {
				return nil, fmt.Errorf("abipy/gw.NewElectronBands: occupations at spin %d, k-point %d have %d bands, want %d", spin, ik, len(occfacts[spin][ik]), nband)
			}
		}
	}
	if weights != nil && len(weights) != nkpt {
		return nil, fmt.Errorf("abipy/gw.NewElectronBands: got %d k-point weights for %d k-points", len(weights), nkpt)
	}
	ret := &ElectronBands{structure: structure, kpoints: kpoints, eigens: eigens,
		occfacts: occfacts, weights: weights, fermie: fermie, nelect: nelect}
	return ret, nil
}

//Structure returns the crystal structure the bands belong to.
func (E *ElectronBands) Structure() *xtal.Structure {
	return E.structure
}

//Kpoints returns the k-point list of the bands.
func (E *ElectronBands) Kpoints() *kpts.KpointList {
	return E.kpoints
}

//NSppol returns the number of spin channels.
func (E *ElectronBands) NSppol() int {
	return len(E.eigens)
}

//NKpt returns the number of k-points.
func (E *ElectronBands) NKpt() int {
	return E.kpoints.Len()
}

//NBand returns the number of bands per k-point.
func (E *ElectronBands) NBand() int {
	return len(E.eigens[0][0])
}

//Fermie returns the Fermi energy.
func (E *ElectronBands) Fermie() float64 {
	return E.fermie
}

//Nelect returns the number of electrons per unit cell.
func (E *ElectronBands) Nelect() float64 {
	return E.nelect
}

//Weights returns a copy of the k-point weights, or nil if the bands are
//defined on a path.
func (E *ElectronBands) Weights() []float64 {
	if E.weights == nil {
		return nil
	}
	return append([]float64(nil), E.weights...)
}

//Eigens returns the band energies indexed by spin, k-point and band. The
//returned slices are owned by the receiver, do not modify them.
func (E *ElectronBands) Eigens() [][][]float64 {
	return E.eigens
}

//Eigen returns the energy of one state. It panics if the indexes are out
//of range.
func (E *ElectronBands) Eigen(spin, ik, band int) float64 {
	return E.eigens[spin][ik][band]
}

//Occ returns the occupation of one state. It panics if the indexes are
//out of range.
func (E *ElectronBands) Occ(spin, ik, band int) float64 {
	return E.occfacts[spin][ik][band]
}

//MinMax returns the smallest and the largest band energy.
func (E *ElectronBands) MinMax() (emin, emax float64) {
	emin, emax = math.Inf(1), math.Inf(-1)
	for spin := range E.eigens {
		for ik := range E.eigens[spin] {
			emin = math.Min(emin, floats.Min(E.eigens[spin][ik]))
			emax = math.Max(emax, floats.Max(E.eigens[spin][ik]))
		}
	}
	return emin, emax
}

//Homos returns the highest occupied state of each spin channel. It fails
//if a spin channel has no occupied states, as happens with the zero
//occupations of interpolated bands.
func (E *ElectronBands) Homos() ([]Electron, error) {
	homos := make([]Electron, 0, len(E.eigens))
	for spin := range E.eigens {
		found := false
		var best Electron
		for ik := range E.eigens[spin] {
			for band, eig := range E.eigens[spin][ik] {
				occ := E.occfacts[spin][ik][band]
				if occ < occTol {
					continue
				}
				if !found || eig > best.Eig {
					best = Electron{Spin: spin, Kidx: ik, Band: band, Eig: eig, Occ: occ}
					found = true
				}
			}
		}
		if !found {
			return nil, fmt.Errorf("abipy/gw.ElectronBands.Homos: no occupied states for spin %d", spin)
		}
		homos = append(homos, best)
	}
	return homos, nil
}

//EDOS is an electronic density of states on an energy mesh, with its
//integral. The per-spin arrays hold the bare contribution of each spin
//channel, the Total methods include the factor of two of unpolarized
//calculations.
type EDOS struct {
	mesh   []float64
	dos    [][]float64
	idos   [][]float64
	nsppol int
}

//EDOS computes the electronic DOS with gaussian smearing of the given
//width, on a mesh with the given step. Both are in the energy units of
//the bands. K-point weights are used if the bands carry them, otherwise
//all k-points count the same.
func (E *ElectronBands) EDOS(step, width float64) (*EDOS, error) {
	if step <= 0 {
		return nil, fmt.Errorf("abipy/gw.ElectronBands.EDOS: the mesh step must be positive, got %v", step)
	}
	if width <= 0 {
		return nil, fmt.Errorf("abipy/gw.ElectronBands.EDOS: the gaussian width must be positive, got %v", width)
	}
	emin, emax := E.MinMax()
	emin -= 3 * width
	emax += 3 * width
	n := int((emax-emin)/step) + 1
	if n < 2 {
		n = 2
	}
	mesh := make([]float64, n)
	floats.Span(mesh, emin, emax)

	w := E.weights
	if w == nil {
		w = make([]float64, E.NKpt())
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
	}
	ret := &EDOS{mesh: mesh, nsppol: E.NSppol()}
	ret.dos = make([][]float64, E.NSppol())
	ret.idos = make([][]float64, E.NSppol())
	for spin := range E.eigens {
		dos := make([]float64, n)
		for ik := range E.eigens[spin] {
			for _, eig := range E.eigens[spin][ik] {
				for i, e := range mesh {
					dos[i] += w[ik] * gaussian(e, width, eig)
				}
			}
		}
		//cumulative trapezoidal integral of the smeared DOS
		idos := make([]float64, n)
		for i := 1; i < n; i++ {
			idos[i] = idos[i-1] + 0.5*(dos[i]+dos[i-1])*(mesh[i]-mesh[i-1])
		}
		ret.dos[spin] = dos
		ret.idos[spin] = idos
	}
	return ret, nil
}

//gaussian evaluates a normalized gaussian of the given width centered at
//center.
func gaussian(x, width, center float64) float64 {
	z := (x - center) / width
	return math.Exp(-0.5*z*z) / (width * math.Sqrt(2*math.Pi))
}

//Mesh returns a copy of the energy mesh.
func (D *EDOS) Mesh() []float64 {
	return append([]float64(nil), D.mesh...)
}

//DOS returns a copy of the density of states of one spin channel.
func (D *EDOS) DOS(spin int) []float64 {
	if spin < 0 || spin >= D.nsppol {
		panic("abipy/gw: EDOS spin index out of range")
	}
	return append([]float64(nil), D.dos[spin]...)
}

//IDOS returns a copy of the integrated density of states of one spin
//channel.
func (D *EDOS) IDOS(spin int) []float64 {
	if spin < 0 || spin >= D.nsppol {
		panic("abipy/gw: EDOS spin index out of range")
	}
	return append([]float64(nil), D.idos[spin]...)
}

//TotalDOS returns the total density of states, summed over spin channels
//and doubled for unpolarized calculations.
func (D *EDOS) TotalDOS() []float64 {
	return D.total(D.dos)
}

//TotalIDOS returns the total integrated density of states. Its value at
//the Fermi energy approximates the number of electrons.
func (D *EDOS) TotalIDOS() []float64 {
	return D.total(D.idos)
}

func (D *EDOS) total(per [][]float64) []float64 {
	ret := make([]float64, len(D.mesh))
	for spin := range per {
		floats.Add(ret, per[spin])
	}
	if D.nsppol == 1 {
		floats.Scale(2, ret)
	}
	return ret
}

//ValueAt returns the linear interpolation of the values on the mesh at
//the energy e, clamped at the mesh boundaries.
func (D *EDOS) ValueAt(values []float64, e float64) (float64, error) {
	if len(values) != len(D.mesh) {
		return 0, fmt.Errorf("abipy/gw.EDOS.ValueAt: got %d values for a mesh of %d points", len(values), len(D.mesh))
	}
	if e <= D.mesh[0] {
		return values[0], nil
	}
	last := len(D.mesh) - 1
	if e >= D.mesh[last] {
		return values[last], nil
	}
	i := findLE(D.mesh, e)
	t := (e - D.mesh[i]) / (D.mesh[i+1] - D.mesh[i])
	return values[i] + t*(values[i+1]-values[i]), nil
}
