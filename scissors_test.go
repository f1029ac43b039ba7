/*
 * scissors_test.go, part of abipy.
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
	"strings"
	"testing"

	"github.com/GingrasO/abipy/kpts"
)

//corrList builds a list with one state per energy, corrections given by
//the model function. The states are appended in a scrambled order since
//BuildScissors must sort them itself.
func corrList(e0s []float64, model func(float64) float64) *QPList {
	gamma := kpts.New(0, 0, 0, "")
	qps := NewQPList()
	for i := range e0s {
		j := (i*7 + 3) % len(e0s) //fixed scramble
		e := e0s[j]
		st := testState(0, j, gamma, e, model(e))
		qps.qps = append(qps.qps, st)
	}
	return qps
}

func linspace(lo, hi float64, n int) []float64 {
	ret := make([]float64, n)
	for i := range ret {
		ret[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return ret
}

func TestScissorsSingleDomain(Te *testing.T) {
	model := func(e float64) float64 { return 0.4 + 0.03*e + 0.05*math.Sin(e) }
	e0s := linspace(-5, 5, 41)
	qps := corrList(e0s, model)
	sciss, err := qps.BuildScissors([]Domain{{-5, 5}}, nil)
	if err != nil {
		Te.Fatal(err)
	}
	for _, e := range e0s {
		got, err := sciss.Apply(e)
		if err != nil {
			Te.Error(err)
		}
		want := e + model(e)
		if math.Abs(got-want) > 0.02 {
			Te.Errorf("Apply(%v) = %v, want about %v", e, got, want)
		}
	}
	res := sciss.Residues()
	if len(res) != 1 || res[0] > 1e-3 {
		Te.Errorf("unexpected fit residues %v", res)
	}
	fmt.Println("single domain residues:", res)
}

func TestScissorsTwoDomainsWithHole(Te *testing.T) {
	valence := func(e float64) float64 { return -0.5 - 0.02*e }
	conduction := func(e float64) float64 { return 0.8 + 0.05*e }
	ve := linspace(-5, -0.5, 10)
	ce := linspace(1.0, 5.5, 10)
	qps := corrList(ve, valence)
	for i, e := range ce {
		qps.qps = append(qps.qps, testState(0, 100+i, kpts.New(0, 0, 0, ""), e, conduction(e)))
	}
	domains := []Domain{{-5, -0.25}, {0.75, 5.5}}
	sciss, err := qps.BuildScissors(domains, nil)
	if err != nil {
		Te.Fatal(err)
	}
	//linear corrections are reproduced exactly in both domains
	for _, e := range ve {
		got, err := sciss.Apply(e)
		if err != nil {
			Te.Error(err)
		}
		if math.Abs(got-(e+valence(e))) > 1e-6 {
			Te.Errorf("valence Apply(%v) = %v, want %v", e, got, e+valence(e))
		}
	}
	for _, e := range ce {
		got, err := sciss.Apply(e)
		if err != nil {
			Te.Error(err)
		}
		if math.Abs(got-(e+conduction(e))) > 1e-6 {
			Te.Errorf("conduction Apply(%v) = %v, want %v", e, got, e+conduction(e))
		}
	}
	//the gap region is a hole, the operator must refuse to extrapolate
	if _, err := sciss.Apply(0.3); err == nil || !strings.Contains(err.Error(), "cannot find location") {
		Te.Errorf("expected the hole error, got %v", err)
	}
	if _, err := sciss.Apply(-20); err == nil {
		Te.Error("expected an error below all domains")
	}
	if got := sciss.Domains(); len(got) != 2 || got[0] != domains[0] || got[1] != domains[1] {
		Te.Errorf("Domains() gave %v", got)
	}
	if res := sciss.Residues(); len(res) != 2 || res[0] > 1e-8 || res[1] > 1e-8 {
		Te.Errorf("linear fits should be exact, residues %v", res)
	}
}

//degenerate states put several corrections on the same KS energy, the
//fit must handle the repeated abscissas instead of producing garbage.
func TestScissorsDegenerateStates(Te *testing.T) {
	model := func(e float64) float64 { return 0.5 + 0.2*e }
	e0s := []float64{0, 0, 0, 1, 1, 2, 2, 2}
	qps := corrList(e0s, model)
	sciss, err := qps.BuildScissors([]Domain{{0, 2}}, nil)
	if err != nil {
		Te.Fatal(err)
	}
	for _, e := range []float64{0, 0.5, 1, 1.37, 2} {
		got, err := sciss.Apply(e)
		if err != nil {
			Te.Error(err)
		}
		if math.Abs(got-(e+model(e))) > 1e-9 {
			Te.Errorf("Apply(%v) = %v, want %v", e, got, e+model(e))
		}
	}
	if res := sciss.Residues(); res[0] > 1e-9 {
		Te.Errorf("a consistent degenerate fit should be exact, residues %v", res)
	}
	fmt.Println("degenerate-state residues:", sciss.Residues())

	//all the states on a single energy collapse the fit to a constant,
	//the mean of the corrections
	gamma := kpts.New(0, 0, 0, "")
	flat := NewQPList(
		testState(0, 1, gamma, -1, 0.4),
		testState(0, 2, gamma, -1, 0.5),
		testState(0, 3, gamma, -1, 0.6),
	)
	sciss, err = flat.BuildScissors([]Domain{{-1.5, -0.5}}, nil)
	if err != nil {
		Te.Fatal(err)
	}
	got, err := sciss.Apply(-1)
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(got-(-1+0.5)) > 1e-9 {
		Te.Errorf("Apply(-1) = %v, want the mean correction applied, %v", got, -0.5)
	}
}

func TestScissorsDomainValidation(Te *testing.T) {
	model := func(e float64) float64 { return 0.2 }
	qps := corrList(linspace(-2, 2, 9), model)

	_, err := qps.BuildScissors([]Domain{{-1, 2}}, nil)
	if err == nil || !strings.Contains(err.Error(), "min(e0mesh)") {
		Te.Errorf("expected the min(e0mesh) error, got %v", err)
	}
	_, err = qps.BuildScissors([]Domain{{-2, 1}}, nil)
	if err == nil || !strings.Contains(err.Error(), "max(e0mesh)") {
		Te.Errorf("expected the max(e0mesh) error, got %v", err)
	}
	_, err = qps.BuildScissors([]Domain{{-2, 0}, {-0.5, 2}}, nil)
	if err == nil || !strings.Contains(err.Error(), "increasing order") {
		Te.Errorf("expected the increasing-order error, got %v", err)
	}
	_, err = qps.BuildScissors(nil, nil)
	if err == nil {
		Te.Error("expected an error for empty domains")
	}
	_, err = qps.BuildScissors([]Domain{{-2, 2}}, &ScissorsOptions{K: 0, AnchorWeight: 1000})
	if err == nil {
		Te.Error("expected an error for a zero spline degree")
	}
	empty := NewQPList()
	_, err = empty.BuildScissors([]Domain{{-2, 2}}, nil)
	if err == nil {
		Te.Error("expected an error for an empty list")
	}
}

func TestFindGELE(Te *testing.T) {
	a := []float64{-2, -1, 0, 1, 2}
	if i := findGE(a, -1.5); i != 1 {
		Te.Errorf("findGE(-1.5) = %d, want 1", i)
	}
	if i := findGE(a, 2.5); i != -1 {
		Te.Errorf("findGE(2.5) = %d, want -1", i)
	}
	if i := findLE(a, 1.5); i != 3 {
		Te.Errorf("findLE(1.5) = %d, want 3", i)
	}
	if i := findLE(a, -3); i != -1 {
		Te.Errorf("findLE(-3) = %d, want -1", i)
	}
	//boundaries hit exactly
	if i := findGE(a, -2); i != 0 {
		Te.Errorf("findGE(-2) = %d, want 0", i)
	}
	if i := findLE(a, 2); i != 4 {
		Te.Errorf("findLE(2) = %d, want 4", i)
	}
}
