/*
 * batch.go, part of abipy.
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
	"sort"

	"github.com/GingrasO/abipy/kpts"
)

//Batch collects the datasets of several GW calculations of the same
//system, run with different convergence parameters, and extracts
//quantities across them for convergence studies. All datasets must share
//the spin polarization and the list of GW k-points.
type Batch struct {
	files     []*File
	paramName string
	xvalues   []float64
	detected  bool
}

//NewBatch builds a batch from the given files. See Add.
func NewBatch(files ...*File) (*Batch, error) {
	B := new(Batch)
	for _, f := range files {
		if err := B.Add(f); err != nil {
			return nil, err
		}
	}
	return B, nil
}

//Add appends a dataset to the batch. It fails if the dataset is not
//compatible with the ones already added.
func (B *Batch) Add(f *File) error {
	if f == nil {
		return Error{"can't add a nil file to the batch", "", []string{"Add"}, true}
	}
	if len(B.files) > 0 {
		first := B.files[0]
		if f.NSppol() != first.NSppol() {
			return Error{"Found two SIGRES files with different nsppol", f.Path(), []string{"Add"}, true}
		}
		if !f.GWKpoints().Equal(first.GWKpoints(), kpts.DefaultAtol) {
			return Error{"Found two SIGRES files with different list of GW k-points.", f.Path(), []string{"Add"}, true}
		}
	}
	B.files = append(B.files, f)
	B.detected = false
	return nil
}

//Len returns the number of datasets in the batch.
func (B *Batch) Len() int {
	return len(B.files)
}

//At returns the i-th dataset. Call DetectParam first if you need the
//files ordered by the convergence parameter.
func (B *Batch) At(i int) *File {
	return B.files[i]
}

//NSppol returns the number of spin channels shared by the datasets.
func (B *Batch) NSppol() int {
	if len(B.files) == 0 {
		return 0
	}
	return B.files[0].NSppol()
}

//GWKpoints returns the k-points with computed self-energy, shared by all
//the datasets.
func (B *Batch) GWKpoints() *kpts.KpointList {
	if len(B.files) == 0 {
		return nil
	}
	return B.files[0].GWKpoints()
}

//MaxGwbstart returns the largest first band of the GW windows across the
//datasets, MinGwbstop the smallest band after the last one. Together
//they bound the band range available in every dataset.
func (B *Batch) MaxGwbstart() int {
	ret := 0
	for i, f := range B.files {
		if i == 0 || f.MaxGwbstart() > ret {
			ret = f.MaxGwbstart()
		}
	}
	return ret
}

func (B *Batch) MinGwbstop() int {
	ret := 0
	for i, f := range B.files {
		if i == 0 || f.MinGwbstop() < ret {
			ret = f.MinGwbstop()
		}
	}
	return ret
}

//DetectParam looks for the parameter that drives the convergence study.
//When exactly one parameter takes different values across the datasets,
//the files are sorted by it in ascending order and its name is returned
//together with true. With several differing parameters no ordering is
//possible, the files keep the insertion order and the labels fall back
//to the file paths.
func (B *Batch) DetectParam() (string, bool) {
	if B.detected {
		return B.paramName, B.paramName != ""
	}
	B.detected = true
	B.paramName = ""
	B.xvalues = nil
	if len(B.files) < 2 {
		return "", false
	}
	params := make([]map[string]float64, len(B.files))
	keyset := make(map[string]bool)
	for i, f := range B.files {
		params[i] = f.Params()
		for k := range params[i] {
			keyset[k] = true
		}
	}
	keys := make([]string, 0, len(keyset))
	for k := range keyset {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var differing []string
	for _, k := range keys {
		v0, ok0 := params[0][k]
		for i := 1; i < len(params); i++ {
			v, ok := params[i][k]
			if ok != ok0 || v != v0 {
				differing = append(differing, k)
				break
			}
		}
	}
	if len(differing) == 0 {
		return "", false
	}
	if len(differing) > 1 {
		log.Printf("Cannot perform automatic detection of convergence parameter.\nFound multiple parameters with different values. Will use filepaths as plot labels.")
		return "", false
	}
	B.paramName = differing[0]
	order := make([]int, len(B.files))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return params[order[i]][B.paramName] < params[order[j]][B.paramName]
	})
	sorted := make([]*File, len(B.files))
	B.xvalues = make([]float64, len(B.files))
	for i, idx := range order {
		sorted[i] = B.files[idx]
		B.xvalues[i] = params[idx][B.paramName]
	}
	B.files = sorted
	return B.paramName, true
}

//ParamName returns the name of the detected convergence parameter, the
//empty string when there is none.
func (B *Batch) ParamName() string {
	B.DetectParam()
	return B.paramName
}

//XValues returns the abscissas of a convergence plot, the values of the
//detected parameter in file order, or 0, 1, 2... when no single
//parameter drives the study.
func (B *Batch) XValues() []float64 {
	B.DetectParam()
	if B.xvalues == nil {
		ret := make([]float64, len(B.files))
		for i := range ret {
			ret[i] = float64(i)
		}
		return ret
	}
	ret := make([]float64, len(B.xvalues))
	copy(ret, B.xvalues)
	return ret
}

//Labels returns one legend entry per dataset, "name=value" when a
//convergence parameter was detected and the file paths otherwise.
func (B *Batch) Labels() []string {
	B.DetectParam()
	ret := make([]string, len(B.files))
	for i, f := range B.files {
		if B.paramName != "" {
			ret[i] = fmt.Sprintf("%s=%g", B.paramName, f.Params()[B.paramName])
		} else {
			ret[i] = f.Path()
		}
	}
	return ret
}

//QPGaps returns the QP gap at the given spin and k-point from each
//dataset, in file order.
func (B *Batch) QPGaps(spin int, kpoint *kpts.Kpoint) ([]float64, error) {
	B.DetectParam()
	ret := make([]float64, len(B.files))
	for i, f := range B.files {
		gap, err := f.QPGap(spin, kpoint)
		if err != nil {
			return nil, errDecorate(err, "QPGaps")
		}
		ret[i] = gap
	}
	return ret, nil
}

//QPEnes returns the QP energy of the given state from each dataset, in
//file order.
func (B *Batch) QPEnes(spin int, kpoint *kpts.Kpoint, band int) ([]complex128, error) {
	B.DetectParam()
	ret := make([]complex128, len(B.files))
	for i, f := range B.files {
		if err := f.checkSpin(spin, "QPEnes"); err != nil {
			return nil, err
		}
		ik, err := f.KIndex(kpoint)
		if err != nil {
			return nil, errDecorate(err, "QPEnes")
		}
		if band < 0 || band >= f.Nbnds() {
			return nil, Error{fmt.Sprintf("band %d out of the range [0, %d)", band, f.Nbnds()),
				f.Path(), []string{"QPEnes"}, true}
		}
		ret[i] = f.raw.Egw[spin][ik][band]
	}
	return ret, nil
}
