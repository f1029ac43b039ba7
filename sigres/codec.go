/*
 * codec.go, part of abipy.
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
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/lzw"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

//The SGR format is a compressed, line-oriented text serialization of a
//Raw dataset. A file starts with key=value header lines, followed by a
//"** nsppol nkibz nkptgw nbnds" line, followed by the data sections in a
//fixed order. Floats are printed with the shortest representation that
//round-trips, complex values as "re im" pairs.

const formatVersion = 1

const lzwLitwidth = 8

//header entries that map to Raw fields rather than to Params.
var fixedHeaderKeys = map[string]bool{
	"version":     true,
	"fermie":      true,
	"nelect":      true,
	"gwcalctyp":   true,
	"usepawu":     true,
	"kptopt":      true,
	"scissor_ene": true,
	"natom":       true,
	"nsym":        true,
	"nomega_r":    true,
}

//Write stores the dataset in the given file. The last letter of the name
//selects the compression: 'l' for LZW, 'z' for gzip, 'r' for flate and
//anything else for zstd. The optional level applies to the gzip and
//flate compressors only.
func Write(name string, raw *Raw, compressionLevel ...int) error {
	level := 9
	if len(compressionLevel) > 0 {
		level = compressionLevel[0]
	}
	if raw == nil {
		return Error{"can't write a nil dataset", name, []string{"Write"}, true}
	}
	if err := raw.Validate(name); err != nil {
		return errDecorate(err, "Write")
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	zwriter := func(a io.Writer) (io.WriteCloser, error) {
		r, err := flate.NewWriter(a, level)
		return r, err
	}
	gzipwriter := func(a io.Writer) (io.WriteCloser, error) { return gzip.NewWriterLevel(a, level) }
	zstdwriter := func(a io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(a, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
	var AnyNewWriter func(io.Writer) (io.WriteCloser, error)
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		AnyNewWriter = func(a io.Writer) (io.WriteCloser, error) { return lzw.NewWriter(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		AnyNewWriter = gzipwriter
	case 'r':
		AnyNewWriter = zwriter
	default:
		AnyNewWriter = zstdwriter
	}
	h, err := AnyNewWriter(f)
	if err != nil {
		f.Close()
		return Error{"Can't write header " + err.Error(), name, []string{"Write"}, true}
	}
	w := bufio.NewWriter(h)
	writeHeader(w, raw)
	writeSections(w, raw)
	if err := w.Flush(); err != nil {
		h.Close()
		f.Close()
		return Error{"Can't write data " + err.Error(), name, []string{"Write"}, true}
	}
	if err := h.Close(); err != nil {
		f.Close()
		return Error{"Can't write data " + err.Error(), name, []string{"Write"}, true}
	}
	return f.Close()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeHeader(w *bufio.Writer, raw *Raw) {
	fmt.Fprintf(w, "version=%d\n", formatVersion)
	w.WriteString("fermie=" + ftoa(raw.Fermie) + "\n")
	w.WriteString("nelect=" + ftoa(raw.Nelect) + "\n")
	fmt.Fprintf(w, "gwcalctyp=%d\n", raw.Gwcalctyp)
	fmt.Fprintf(w, "usepawu=%d\n", raw.Usepawu)
	fmt.Fprintf(w, "kptopt=%d\n", raw.Kptopt)
	w.WriteString("scissor_ene=" + ftoa(raw.ScissorEne) + "\n")
	fmt.Fprintf(w, "natom=%d\n", len(raw.FracCoords))
	fmt.Fprintf(w, "nsym=%d\n", len(raw.Symrel))
	fmt.Fprintf(w, "nomega_r=%d\n", raw.NomegaR)
	keys := make([]string, 0, len(raw.Params))
	for k := range raw.Params {
		if fixedHeaderKeys[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.WriteString(k + "=" + ftoa(raw.Params[k]) + "\n")
	}
	fmt.Fprintf(w, "** %d %d %d %d\n", raw.NSppol, raw.Nkibz, raw.Nkptgw, raw.Nbnds)
}

func writeFloatLine(w *bufio.Writer, vals []float64) {
	for i, v := range vals {
		if i > 0 {
			w.WriteByte(' ')
		}
		w.WriteString(ftoa(v))
	}
	w.WriteByte('\n')
}

func writeComplexLine(w *bufio.Writer, vals []complex128) {
	for i, v := range vals {
		if i > 0 {
			w.WriteByte(' ')
		}
		w.WriteString(ftoa(real(v)))
		w.WriteByte(' ')
		w.WriteString(ftoa(imag(v)))
	}
	w.WriteByte('\n')
}

func writeSections(w *bufio.Writer, raw *Raw) {
	for i := 0; i < 3; i++ {
		writeFloatLine(w, raw.LatVecs[i][:])
	}
	for i, fc := range raw.FracCoords {
		fmt.Fprintf(w, "%s %s %s %d\n", ftoa(fc[0]), ftoa(fc[1]), ftoa(fc[2]), raw.Species[i])
	}
	for i, rot := range raw.Symrel {
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				fmt.Fprintf(w, "%d ", rot[r][c])
			}
		}
		fmt.Fprintf(w, "%d\n", raw.Symafm[i])
	}
	for i, k := range raw.IBZ {
		fmt.Fprintf(w, "%s %s %s %s\n", ftoa(k[0]), ftoa(k[1]), ftoa(k[2]), ftoa(raw.Wtk[i]))
	}
	for _, k := range raw.Kptgw {
		writeFloatLine(w, k[:])
	}
	for spin := 0; spin < raw.NSppol; spin++ {
		for ik := 0; ik < raw.Nkptgw; ik++ {
			fmt.Fprintf(w, "%d %d\n", raw.Gwbstart[spin][ik], raw.Gwbstop[spin][ik])
		}
	}
	for spin := 0; spin < raw.NSppol; spin++ {
		for ik := 0; ik < raw.Nkibz; ik++ {
			writeFloatLine(w, raw.E0[spin][ik])
		}
	}
	for spin := 0; spin < raw.NSppol; spin++ {
		for ik := 0; ik < raw.Nkibz; ik++ {
			writeFloatLine(w, raw.Occ[spin][ik])
		}
	}
	for spin := 0; spin < raw.NSppol; spin++ {
		for ik := 0; ik < raw.Nkibz; ik++ {
			writeComplexLine(w, raw.Egw[spin][ik])
		}
	}
	for spin := 0; spin < raw.NSppol; spin++ {
		for ik := 0; ik < raw.Nkibz; ik++ {
			writeFloatLine(w, raw.EnQPDiago[spin][ik])
		}
	}
	for _, arr := range [][][][]complex128{raw.Vxcme, raw.Sigxme, raw.VUme, raw.Sigcmee0, raw.Ze0} {
		for spin := 0; spin < raw.NSppol; spin++ {
			for ik := 0; ik < raw.Nkptgw; ik++ {
				writeComplexLine(w, arr[spin][ik])
			}
		}
	}
	for spin := 0; spin < raw.NSppol; spin++ {
		for ik := 0; ik < raw.Nkptgw; ik++ {
			for _, row := range raw.Hhartree[spin][ik] {
				writeComplexLine(w, row)
			}
		}
	}
	if raw.NomegaR > 0 {
		writeFloatLine(w, raw.OmegaR)
		for _, arr := range [][][][][]complex128{raw.Sigcme, raw.Sigxcme} {
			for spin := 0; spin < raw.NSppol; spin++ {
				for ik := 0; ik < raw.Nkptgw; ik++ {
					for iw := 0; iw < raw.NomegaR; iw++ {
						writeComplexLine(w, arr[spin][ik][iw])
					}
				}
			}
		}
	}
	for spin := 0; spin < raw.NSppol; spin++ {
		for ik := 0; ik < raw.Nkibz; ik++ {
			fmt.Fprintf(w, "%s %s %s\n", ftoa(raw.E0Gap[spin][ik]), ftoa(raw.EgwGap[spin][ik]), ftoa(raw.DegwGap[spin][ik]))
		}
	}
}

//Read side.

//This will cause additional indirections but each call takes enough time
//to make those delays irrelevant. Also, *zstd.Decoder does not implement
//io.ReadCloser.
type stdql struct {
	closeql func()
	*zstd.Decoder
}

func (s stdql) Close() error {
	s.closeql()
	return nil
}

//Open reads the dataset stored in the given file and returns a handle to
//query it. The compression is selected from the last letter of the name,
//as in Write.
func Open(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zreader := func(a io.Reader) (io.ReadCloser, error) {
		r := flate.NewReader(a)
		return r, nil
	}
	zstdreader := func(a io.Reader) (io.ReadCloser, error) {
		r, err := zstd.NewReader(a)
		return &stdql{r.Close, r}, err
	}
	gzreader := func(a io.Reader) (io.ReadCloser, error) { return gzip.NewReader(a) }
	var AnyNewReader func(io.Reader) (io.ReadCloser, error)
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		AnyNewReader = func(a io.Reader) (io.ReadCloser, error) { return lzw.NewReader(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		AnyNewReader = gzreader
	case 'r':
		AnyNewReader = zreader
	default:
		AnyNewReader = zstdreader
	}
	zr, err := AnyNewReader(bufio.NewReader(f))
	if err != nil {
		return nil, Error{"Can't read header " + err.Error(), name, []string{"Open"}, true}
	}
	defer zr.Close()
	l := &lineReader{h: bufio.NewReader(zr), filename: name}
	raw := new(Raw)
	m := make(map[string]string)
	for {
		str, err := l.h.ReadString('\n')
		if err != nil {
			return nil, Error{"Can't read header " + err.Error(), name, []string{"Open"}, true}
		}
		str = strings.TrimSpace(str)
		if strings.Contains(str, "**") {
			dims := strings.Fields(str)
			if len(dims) != 5 {
				return nil, Error{fmt.Sprintf("Can't read dimensions from '%s'", str), name, []string{"Open"}, true}
			}
			ints := make([]int, 4)
			for i, v := range dims[1:] {
				ints[i], err = strconv.Atoi(v)
				if err != nil {
					return nil, Error{fmt.Sprintf("Can't read dimensions from '%s': %s", str, err.Error()), name, []string{"Open"}, true}
				}
			}
			raw.NSppol, raw.Nkibz, raw.Nkptgw, raw.Nbnds = ints[0], ints[1], ints[2], ints[3]
			break
		}
		kv := strings.Split(str, "=")
		if len(kv) != 2 {
			return nil, Error{"Malformed header line '" + str + "'", name, []string{"Open"}, true}
		}
		m[kv[0]] = kv[1]
	}
	natom, nsym, err := headerInto(raw, m, name)
	if err != nil {
		return nil, err
	}
	if err := readSections(l, raw, natom, nsym); err != nil {
		return nil, errDecorate(err, "Open")
	}
	return New(raw, name)
}

//headerInto fills the scalar fields of raw from the header entries and
//collects the unknown ones, the convergence parameters, into raw.Params.
//It returns the number of atoms and of symmetry operations, which size
//the structural sections.
func headerInto(raw *Raw, m map[string]string, name string) (int, int, error) {
	badentry := func(k, v string, err error) error {
		return Error{fmt.Sprintf("Can't parse header entry %s=%s: %s", k, v, err.Error()), name, []string{"Open"}, true}
	}
	getInt := func(k string) (int, error) {
		v, ok := m[k]
		if !ok {
			return 0, Error{"header is missing the " + k + " entry", name, []string{"Open"}, true}
		}
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, badentry(k, v, err)
		}
		return i, nil
	}
	getFloat := func(k string) (float64, error) {
		v, ok := m[k]
		if !ok {
			return 0, Error{"header is missing the " + k + " entry", name, []string{"Open"}, true}
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, badentry(k, v, err)
		}
		return f, nil
	}
	if v, ok := m["version"]; ok {
		ver, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, 0, badentry("version", v, err)
		}
		if ver != formatVersion {
			return 0, 0, Error{fmt.Sprintf("unsupported format version %d", ver), name, []string{"Open"}, true}
		}
	}
	var err error
	if raw.Fermie, err = getFloat("fermie"); err != nil {
		return 0, 0, err
	}
	if raw.Nelect, err = getFloat("nelect"); err != nil {
		return 0, 0, err
	}
	if raw.Gwcalctyp, err = getInt("gwcalctyp"); err != nil {
		return 0, 0, err
	}
	if raw.Usepawu, err = getInt("usepawu"); err != nil {
		return 0, 0, err
	}
	if raw.Kptopt, err = getInt("kptopt"); err != nil {
		return 0, 0, err
	}
	if raw.ScissorEne, err = getFloat("scissor_ene"); err != nil {
		return 0, 0, err
	}
	natom, err := getInt("natom")
	if err != nil {
		return 0, 0, err
	}
	nsym, err := getInt("nsym")
	if err != nil {
		return 0, 0, err
	}
	if raw.NomegaR, err = getInt("nomega_r"); err != nil {
		return 0, 0, err
	}
	for k, v := range m {
		if fixedHeaderKeys[k] {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, 0, badentry(k, v, err)
		}
		if raw.Params == nil {
			raw.Params = make(map[string]float64)
		}
		raw.Params[k] = f
	}
	return natom, nsym, nil
}

type lineReader struct {
	h        *bufio.Reader
	filename string
}

func (l *lineReader) next() (string, error) {
	str, err := l.h.ReadString('\n')
	if err != nil && (err != io.EOF || strings.TrimSpace(str) == "") {
		return "", Error{"Can't read data line: " + err.Error(), l.filename, []string{"next"}, true}
	}
	return strings.TrimSpace(str), nil
}

func (l *lineReader) fields(want int) ([]string, error) {
	str, err := l.next()
	if err != nil {
		return nil, err
	}
	fs := strings.Fields(str)
	if len(fs) != want {
		return nil, Error{fmt.Sprintf("expected %d values per line, got %d in '%s'", want, len(fs), str),
			l.filename, []string{"fields"}, true}
	}
	return fs, nil
}

func (l *lineReader) floats(want int) ([]float64, error) {
	fs, err := l.fields(want)
	if err != nil {
		return nil, err
	}
	ret := make([]float64, len(fs))
	for i, v := range fs {
		ret[i], err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, Error{fmt.Sprintf("Can't parse value '%s': %s", v, err.Error()), l.filename, []string{"floats"}, true}
		}
	}
	return ret, nil
}

func (l *lineReader) complexes(want int) ([]complex128, error) {
	vals, err := l.floats(2 * want)
	if err != nil {
		return nil, err
	}
	ret := make([]complex128, want)
	for i := range ret {
		ret[i] = complex(vals[2*i], vals[2*i+1])
	}
	return ret, nil
}

func (l *lineReader) ints(want int) ([]int, error) {
	fs, err := l.fields(want)
	if err != nil {
		return nil, err
	}
	ret := make([]int, len(fs))
	for i, v := range fs {
		ret[i], err = strconv.Atoi(v)
		if err != nil {
			return nil, Error{fmt.Sprintf("Can't parse value '%s': %s", v, err.Error()), l.filename, []string{"ints"}, true}
		}
	}
	return ret, nil
}

func readSections(l *lineReader, raw *Raw, natom, nsym int) error {
	for i := 0; i < 3; i++ {
		row, err := l.floats(3)
		if err != nil {
			return err
		}
		raw.LatVecs[i] = [3]float64{row[0], row[1], row[2]}
	}
	raw.FracCoords = make([][3]float64, natom)
	raw.Species = make([]int, natom)
	for i := 0; i < natom; i++ {
		fs, err := l.fields(4)
		if err != nil {
			return err
		}
		for j := 0; j < 3; j++ {
			raw.FracCoords[i][j], err = strconv.ParseFloat(fs[j], 64)
			if err != nil {
				return Error{fmt.Sprintf("Can't parse coordinate '%s': %s", fs[j], err.Error()), l.filename, []string{"readSections"}, true}
			}
		}
		raw.Species[i], err = strconv.Atoi(fs[3])
		if err != nil {
			return Error{fmt.Sprintf("Can't parse species '%s': %s", fs[3], err.Error()), l.filename, []string{"readSections"}, true}
		}
	}
	raw.Symrel = make([][3][3]int, nsym)
	raw.Symafm = make([]int, nsym)
	for i := 0; i < nsym; i++ {
		vals, err := l.ints(10)
		if err != nil {
			return err
		}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				raw.Symrel[i][r][c] = vals[3*r+c]
			}
		}
		raw.Symafm[i] = vals[9]
	}
	raw.IBZ = make([][3]float64, raw.Nkibz)
	raw.Wtk = make([]float64, raw.Nkibz)
	for i := 0; i < raw.Nkibz; i++ {
		vals, err := l.floats(4)
		if err != nil {
			return err
		}
		raw.IBZ[i] = [3]float64{vals[0], vals[1], vals[2]}
		raw.Wtk[i] = vals[3]
	}
	raw.Kptgw = make([][3]float64, raw.Nkptgw)
	for i := 0; i < raw.Nkptgw; i++ {
		vals, err := l.floats(3)
		if err != nil {
			return err
		}
		raw.Kptgw[i] = [3]float64{vals[0], vals[1], vals[2]}
	}
	raw.Gwbstart = make([][]int, raw.NSppol)
	raw.Gwbstop = make([][]int, raw.NSppol)
	for spin := 0; spin < raw.NSppol; spin++ {
		raw.Gwbstart[spin] = make([]int, raw.Nkptgw)
		raw.Gwbstop[spin] = make([]int, raw.Nkptgw)
		for ik := 0; ik < raw.Nkptgw; ik++ {
			vals, err := l.ints(2)
			if err != nil {
				return err
			}
			raw.Gwbstart[spin][ik] = vals[0]
			raw.Gwbstop[spin][ik] = vals[1]
		}
	}
	var err error
	if raw.E0, err = readFullReal(l, raw); err != nil {
		return err
	}
	if raw.Occ, err = readFullReal(l, raw); err != nil {
		return err
	}
	raw.Egw = make([][][]complex128, raw.NSppol)
	for spin := 0; spin < raw.NSppol; spin++ {
		raw.Egw[spin] = make([][]complex128, raw.Nkibz)
		for ik := 0; ik < raw.Nkibz; ik++ {
			if raw.Egw[spin][ik], err = l.complexes(raw.Nbnds); err != nil {
				return err
			}
		}
	}
	if raw.EnQPDiago, err = readFullReal(l, raw); err != nil {
		return err
	}
	for _, dst := range []*[][][]complex128{&raw.Vxcme, &raw.Sigxme, &raw.VUme, &raw.Sigcmee0, &raw.Ze0} {
		if *dst, err = readWindowed(l, raw); err != nil {
			return err
		}
	}
	raw.Hhartree = make([][][][]complex128, raw.NSppol)
	for spin := 0; spin < raw.NSppol; spin++ {
		raw.Hhartree[spin] = make([][][]complex128, raw.Nkptgw)
		for ik := 0; ik < raw.Nkptgw; ik++ {
			nwin := raw.NWin(spin, ik)
			raw.Hhartree[spin][ik] = make([][]complex128, nwin)
			for i := 0; i < nwin; i++ {
				if raw.Hhartree[spin][ik][i], err = l.complexes(nwin); err != nil {
					return err
				}
			}
		}
	}
	if raw.NomegaR > 0 {
		if raw.OmegaR, err = l.floats(raw.NomegaR); err != nil {
			return err
		}
		for _, dst := range []*[][][][]complex128{&raw.Sigcme, &raw.Sigxcme} {
			arr := make([][][][]complex128, raw.NSppol)
			for spin := 0; spin < raw.NSppol; spin++ {
				arr[spin] = make([][][]complex128, raw.Nkptgw)
				for ik := 0; ik < raw.Nkptgw; ik++ {
					arr[spin][ik] = make([][]complex128, raw.NomegaR)
					for iw := 0; iw < raw.NomegaR; iw++ {
						if arr[spin][ik][iw], err = l.complexes(raw.NWin(spin, ik)); err != nil {
							return err
						}
					}
				}
			}
			*dst = arr
		}
	}
	raw.E0Gap = make([][]float64, raw.NSppol)
	raw.EgwGap = make([][]float64, raw.NSppol)
	raw.DegwGap = make([][]float64, raw.NSppol)
	for spin := 0; spin < raw.NSppol; spin++ {
		raw.E0Gap[spin] = make([]float64, raw.Nkibz)
		raw.EgwGap[spin] = make([]float64, raw.Nkibz)
		raw.DegwGap[spin] = make([]float64, raw.Nkibz)
		for ik := 0; ik < raw.Nkibz; ik++ {
			vals, err := l.floats(3)
			if err != nil {
				return err
			}
			raw.E0Gap[spin][ik] = vals[0]
			raw.EgwGap[spin][ik] = vals[1]
			raw.DegwGap[spin][ik] = vals[2]
		}
	}
	return nil
}

func readFullReal(l *lineReader, raw *Raw) ([][][]float64, error) {
	ret := make([][][]float64, raw.NSppol)
	var err error
	for spin := 0; spin < raw.NSppol; spin++ {
		ret[spin] = make([][]float64, raw.Nkibz)
		for ik := 0; ik < raw.Nkibz; ik++ {
			if ret[spin][ik], err = l.floats(raw.Nbnds); err != nil {
				return nil, err
			}
		}
	}
	return ret, nil
}

func readWindowed(l *lineReader, raw *Raw) ([][][]complex128, error) {
	ret := make([][][]complex128, raw.NSppol)
	var err error
	for spin := 0; spin < raw.NSppol; spin++ {
		ret[spin] = make([][]complex128, raw.Nkptgw)
		for ik := 0; ik < raw.Nkptgw; ik++ {
			if ret[spin][ik], err = l.complexes(raw.NWin(spin, ik)); err != nil {
				return nil, err
			}
		}
	}
	return ret, nil
}
