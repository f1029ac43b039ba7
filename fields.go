/*
 * fields.go, part of abipy.
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

import "fmt"

//Field identifies one of the quantities stored in a QPState. Dynamic
//selection by name goes through FieldByName, which rejects anything not in
//this enumeration.
type Field int

const (
	FieldSpin Field = iota
	FieldKpoint
	FieldBand
	FieldE0
	FieldQPE
	FieldQPEDiago
	FieldVxcme
	FieldSigxme
	FieldSigcmee0
	FieldVUme
	FieldZe0
	FieldQPEme0
	numFields //keep last
)

//The names follow the variables of the ab-initio code, so they can be used
//directly in labels and column headers.
var fieldNames = [numFields]string{
	"spin",
	"kpoint",
	"band",
	"e0",
	"qpe",
	"qpe_diago",
	"vxcme",
	"sigxme",
	"sigcmee0",
	"vUme",
	"ze0",
	"qpeme0",
}

//One-line description for each field. This is a fixed table filled at
//startup, there is no runtime parsing of documentation.
var fieldTips = [numFields]string{
	"Spin index (starts from zero)",
	"K-point in reduced coordinates",
	"Band index (starts from zero)",
	"Initial KS energy",
	"Quasiparticle energy (complex) computed with the perturbative approach",
	"Quasiparticle energy (real) computed by diagonalizing the self-energy",
	"Matrix element of vxc[n_val] with n_val the valence charge density",
	"Matrix element of Sigma_x",
	"Matrix element of Sigma_c(e0) with e0 the KS energy",
	"Matrix element of the vU term of the LDA+U Hamiltonian",
	"Renormalization factor computed at e=e0",
	"Difference between the quasiparticle and the KS energy",
}

var fieldsByName map[string]Field

func init() {
	fieldsByName = make(map[string]Field, numFields)
	for f := Field(0); f < numFields; f++ {
		fieldsByName[fieldNames[f]] = f
	}
}

func (F Field) String() string {
	if F < 0 || F >= numFields {
		return fmt.Sprintf("Field(%d)", int(F))
	}
	return fieldNames[F]
}

//Description returns a one-line description of the field. It panics if the
//field is not in the enumeration.
func (F Field) Description() string {
	if F < 0 || F >= numFields {
		panic("abipy/gw: description requested for an unknown field")
	}
	return fieldTips[F]
}

//FieldByName returns the field with the given name, or an error if the
//name is not among the allowed quasiparticle attributes.
func FieldByName(name string) (Field, error) {
	f, ok := fieldsByName[name]
	if !ok {
		return 0, fmt.Errorf("abipy/gw.FieldByName: field %q not in allowed fields %v", name, fieldNames)
	}
	return f, nil
}

//Fields returns all the scalar fields, minus the ones in exclude. The
//identity fields spin, kpoint and band are excluded by default since they
//are not quantities to plot or tabulate.
func Fields(exclude ...Field) []Field {
	skip := func(f Field) bool {
		if f == FieldSpin || f == FieldKpoint || f == FieldBand {
			return true
		}
		for _, e := range exclude {
			if e == f {
				return true
			}
		}
		return false
	}
	ret := make([]Field, 0, int(numFields))
	for f := Field(0); f < numFields; f++ {
		if !skip(f) {
			ret = append(ret, f)
		}
	}
	return ret
}
