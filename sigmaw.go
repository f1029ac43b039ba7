/*
 * sigmaw.go, part of abipy.
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

	"github.com/GingrasO/abipy/kpts"
)

//Sigmaw stores, for one band state, the matrix elements of the
//exchange-correlation self-energy and the spectral function on a
//frequency mesh.
type Sigmaw struct {
	Spin   int
	Kpoint *kpts.Kpoint
	Band   int
	wmesh  []float64
	xc     []complex128
	spfunc []float64
}

//NewSigmaw builds a Sigmaw. The three arrays must have the same length
//and are not copied.
func NewSigmaw(spin int, kpoint *kpts.Kpoint, band int, wmesh []float64, xc []complex128, spfunc []float64) (*Sigmaw, error) {
	if len(wmesh) == 0 {
		return nil, fmt.Errorf("abipy/gw.NewSigmaw: empty frequency mesh")
	}
	if len(xc) != len(wmesh) || len(spfunc) != len(wmesh) {
		return nil, fmt.Errorf("abipy/gw.NewSigmaw: mesh has %d frequencies but got %d self-energy and %d spectral values",
			len(wmesh), len(xc), len(spfunc))
	}
	return &Sigmaw{Spin: spin, Kpoint: kpoint, Band: band, wmesh: wmesh, xc: xc, spfunc: spfunc}, nil
}

//Wmesh returns a copy of the frequency mesh.
func (S *Sigmaw) Wmesh() []float64 {
	return append([]float64(nil), S.wmesh...)
}

//SigmaXC returns a copy of the exchange-correlation self-energy on the
//frequency mesh.
func (S *Sigmaw) SigmaXC() []complex128 {
	return append([]complex128(nil), S.xc...)
}

//SpectralFunction returns a copy of the spectral function A(w) on the
//frequency mesh.
func (S *Sigmaw) SpectralFunction() []float64 {
	return append([]float64(nil), S.spfunc...)
}

func (S *Sigmaw) String() string {
	return fmt.Sprintf("Sigmaw(spin=%d, kpoint=%v, band=%d, nomega=%d)", S.Spin, S.Kpoint, S.Band, len(S.wmesh))
}
