/*
 * errors.go, part of abipy.
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

	gw "github.com/GingrasO/abipy"
)

//errDecorate is a helper function that asserts that the error implements
//gw.Error and decorates it with the caller's name before returning it.
//Using it with any other error type will cause a panic.
func errDecorate(err error, caller string) error {
	err2 := err.(gw.Error) //I know that is the type returned by the functions in this package
	err2.Decorate(caller)
	return err2
}

//Error is the general structure for SIGRES dataset errors. It satisfies
//gw.Error and gw.DataError.
type Error struct {
	message  string
	filename string //the dataset that has problems, or an empty string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("sigres file %s error: %s", err.filename, err.message)
}

//Decorate adds new information to the error
func (E Error) Decorate(deco string) []string {
	//the value receiver still works since deco is a slice, hence a pointer itself
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//FileName returns the file to which the error is associated
func (err Error) FileName() string { return err.filename }

//Format returns the format of the file associated to the error (always "sigres")
func (err Error) Format() string { return "sigres" }

//Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	UnableToOpen   = "Unable to open file"
	WrongFormat    = "Wrong format in the sigres file"
	WrongDims      = "Dimensions in the sigres data are not consistent"
	KpointNotFound = "k-point not found"
	BandNotInGW    = "band outside the computed GW window"
)
