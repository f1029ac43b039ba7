/*
 * doc.go, part of abipy.
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

/*Package gw is the main package of the abipy library. It post-processes
many-body perturbation theory (GW) results produced by an external
electronic-structure code: it organizes the raw per-(spin, k-point, band)
self-energy matrix elements into a queryable quasiparticle data model and
derives the two quantities one actually wants from a GW run, a scissor
operator and interpolated quasiparticle band structures.



	**Capabilities**


    Collects quasiparticle states into per-spin lists that can be sorted,
	merged and queried field by field.

    Builds a piecewise "scissor" operator by fitting smoothing splines to
	the quasiparticle corrections over user-given energy domains, so GW
	corrections can be applied to a dense band structure without
	recomputing the self-energy.

    Holds reference (Kohn-Sham) band structures, locates the highest
	occupied states and computes smeared densities of states.

    Stores the self-energy and the spectral function versus frequency for
	a given state, when the results file contains them.

    Together with the sigres and skw packages, interpolates quasiparticle
	corrections from the sparse set of computed k-points onto arbitrary
	k-paths and k-meshes using symmetry-adapted star functions, preserving
	the band degeneracies of the reference band structure.

    Plots of all the above through the gwplot package.



All energies are in eV. Complex quantities (quasiparticle energies,
renormalization factors, matrix elements of the correlation self-energy)
are kept complex and only reduced to their real parts at the edges, e.g.
when fitting or plotting.*/
package gw
