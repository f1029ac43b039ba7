/*
 * gwplot.go, part of abipy.
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

//Package gwplot draws diagnostic plots for GW quasiparticle results: the
//scissor operator and its fit, quasiparticle quantities against the KS
//energies, band structures along a k-path, the convergence of the gaps
//across a batch of calculations and the frequency dependence of the
//self-energy. Every plot function writes a png file whose name is built
//by appending the extension to plotname, and returns an error.
package gwplot

import (
	"fmt"
	"image/color"
	"math"

	gw "github.com/GingrasO/abipy"
	"github.com/GingrasO/abipy/kpts"
	"github.com/GingrasO/abipy/sigres"
	"github.com/GingrasO/abipy/xtal"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

//basicPlot builds a plot with the grid, title and axis labels shared by
//all the plots of the package.
func basicPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

//Scissors plots the quasiparticle corrections in qps against the initial
//KS energies, together with the curve the scissor operator sc evaluates
//on each of its energy domains. The residues of a bad fit show up
//immediately as data points far from their domain curve.
func Scissors(qps *gw.QPList, sc *gw.Scissors, title, plotname string) error {
	if qps == nil || sc == nil {
		panic("Given nil data")
	}
	p := basicPlot(title, "e0 (eV)", "e_qp - e0 (eV)")
	pts := make(plotter.XYs, qps.Len())
	for i := 0; i < qps.Len(); i++ {
		s := qps.At(i)
		pts[i].X = s.E0
		pts[i].Y = real(s.QPEme0())
	}
	data, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	data.GlyphStyle.Shape = draw.CircleGlyph{}
	data.GlyphStyle.Color = color.RGBA{A: 255}
	p.Add(data)
	p.Legend.Add("corrections", data)
	domains := sc.Domains()
	for i, dom := range domains {
		const nsample = 100
		step := (dom.Stop - dom.Start) / (nsample - 1)
		fit := make(plotter.XYs, nsample)
		for j := range fit {
			e := dom.Start + float64(j)*step
			qpe, err := sc.Apply(e)
			if err != nil {
				return err
			}
			fit[j].X = e
			fit[j].Y = qpe - e
		}
		l, err := plotter.NewLine(fit)
		if err != nil {
			return err
		}
		l.LineStyle.Color = seriesColor(i, len(domains))
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("fit %v", dom), l)
	}
	p.Legend.Top = true
	filename := fmt.Sprintf("%s.png", plotname)
	return p.Save(5*vg.Inch, 5*vg.Inch, filename)
}

//QPsVsE0 plots one quasiparticle field against the initial KS energies,
//with one scatter per spin channel. Complex fields are plotted through
//their real part. Fields that are not scalar quantities are rejected.
func QPsVsE0(qps *gw.QPList, field gw.Field, title, plotname string) error {
	if qps == nil {
		panic("Given nil data")
	}
	vals, err := qps.Field(field)
	if err != nil {
		return err
	}
	p := basicPlot(title, "e0 (eV)", fmt.Sprintf("%v (eV)", field))
	byspin := make(map[int]plotter.XYs)
	for i := 0; i < qps.Len(); i++ {
		s := qps.At(i)
		byspin[s.Spin] = append(byspin[s.Spin], plotter.XY{X: s.E0, Y: real(vals[i])})
	}
	for spin := 0; spin < 2; spin++ {
		spts, ok := byspin[spin]
		if !ok {
			continue
		}
		s, err := plotter.NewScatter(spts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = seriesColor(spin, 2)
		if shape, err := getShape(spin); err == nil {
			s.GlyphStyle.Shape = shape
		}
		p.Add(s)
		if len(byspin) > 1 {
			p.Legend.Add(fmt.Sprintf("spin %d", spin), s)
			p.Legend.Top = true
		}
	}
	filename := fmt.Sprintf("%s.png", plotname)
	return p.Save(5*vg.Inch, 5*vg.Inch, filename)
}

//Bands draws band structures along a k-path. The bands in qp are drawn
//with solid lines and the optional reference bands in ks, which must be
//defined on the same path, with dashed gray lines; pass a nil ks to skip
//them. The Fermi energy of qp becomes a dotted horizontal line and the
//named k-points of the path become axis ticks.
func Bands(qp, ks *gw.ElectronBands, title, plotname string) error {
	if qp == nil {
		panic("Given nil data")
	}
	if ks != nil && !qp.Kpoints().Equal(ks.Kpoints(), kpts.DefaultAtol) {
		return fmt.Errorf("Bands: the two band structures are defined on different k-points")
	}
	rec, err := qp.Structure().Lattice().Reciprocal()
	if err != nil {
		return err
	}
	xs := pathCoords(rec, qp.Kpoints())
	p := basicPlot(title, "", "energy (eV)")
	if ticks := pathTicks(xs, qp.Kpoints()); len(ticks) > 0 {
		p.X.Tick.Marker = plot.ConstantTicks(ticks)
	}
	if ks != nil {
		gray := color.RGBA{R: 130, G: 130, B: 130, A: 255}
		for spin := 0; spin < ks.NSppol(); spin++ {
			for band := 0; band < ks.NBand(); band++ {
				l, err := bandLine(xs, ks, spin, band)
				if err != nil {
					return err
				}
				l.LineStyle.Color = gray
				l.LineStyle.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
				p.Add(l)
				if spin == 0 && band == 0 {
					p.Legend.Add("KS", l)
				}
			}
		}
	}
	for spin := 0; spin < qp.NSppol(); spin++ {
		col := seriesColor(spin, qp.NSppol())
		label := "QP"
		if qp.NSppol() > 1 {
			label = fmt.Sprintf("QP spin %d", spin)
		}
		for band := 0; band < qp.NBand(); band++ {
			l, err := bandLine(xs, qp, spin, band)
			if err != nil {
				return err
			}
			l.LineStyle.Color = col
			l.LineStyle.Width = vg.Points(1)
			p.Add(l)
			if band == 0 {
				p.Legend.Add(label, l)
			}
		}
	}
	fl, err := plotter.NewLine(plotter.XYs{
		{X: xs[0], Y: qp.Fermie()},
		{X: xs[len(xs)-1], Y: qp.Fermie()},
	})
	if err != nil {
		return err
	}
	fl.LineStyle.Color = color.RGBA{A: 255}
	fl.LineStyle.Dashes = []vg.Length{vg.Points(1), vg.Points(3)}
	p.Add(fl)
	p.Legend.Top = true
	filename := fmt.Sprintf("%s.png", plotname)
	return p.Save(7*vg.Inch, 5*vg.Inch, filename)
}

//bandLine builds the line of one band along the path.
func bandLine(xs []float64, bands *gw.ElectronBands, spin, band int) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(xs))
	for ik := range xs {
		pts[ik].X = xs[ik]
		pts[ik].Y = bands.Eigen(spin, ik, band)
	}
	return plotter.NewLine(pts)
}

//pathCoords returns the cumulative distance along the path in reciprocal
//space, the abscissa of a band plot.
func pathCoords(rec *xtal.Lattice, path *kpts.KpointList) []float64 {
	xs := make([]float64, path.Len())
	for i := 1; i < path.Len(); i++ {
		a := path.At(i - 1).FracCoords()
		b := path.At(i).FracCoords()
		d := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		xs[i] = xs[i-1] + math.Sqrt(rec.Norm2(d))
	}
	return xs
}

//pathTicks places one labeled tick at every named k-point of the path.
func pathTicks(xs []float64, path *kpts.KpointList) []plot.Tick {
	var ticks []plot.Tick
	for i, name := range path.Names() {
		if name == "" {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: xs[i], Label: name})
	}
	return ticks
}

//GapsConvergence plots the direct quasiparticle gap at one k-point of the
//IBZ against the convergence parameter detected across the files of the
//batch. When no single parameter differs between the files they are
//placed on a nominal axis labeled by their paths instead.
func GapsConvergence(batch *sigres.Batch, spin int, kpoint *kpts.Kpoint, title, plotname string) error {
	if batch == nil {
		panic("Given nil data")
	}
	//DetectParam sorts the files, so it must run before the gaps and the
	//abscissas are extracted.
	name, ok := batch.DetectParam()
	gaps, err := batch.QPGaps(spin, kpoint)
	if err != nil {
		return err
	}
	xlabel := name
	if !ok {
		xlabel = "file"
	}
	p := basicPlot(title, xlabel, "QP direct gap (eV)")
	xs := batch.XValues()
	pts := make(plotter.XYs, len(gaps))
	for i := range gaps {
		pts[i].X = xs[i]
		pts[i].Y = gaps[i]
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	col := seriesColor(0, 1)
	l.LineStyle.Color = col
	s.GlyphStyle.Color = col
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(l, s)
	if !ok {
		p.NominalX(batch.Labels()...)
	}
	filename := fmt.Sprintf("%s.png", plotname)
	return p.Save(5*vg.Inch, 5*vg.Inch, filename)
}

//SpectralFunction plots the frequency dependence of the self-energy of
//one state: the spectral function A(w) and the real and imaginary parts
//of Sigma_xc(w) on the same frequency mesh.
func SpectralFunction(sw *gw.Sigmaw, title, plotname string) error {
	if sw == nil {
		panic("Given nil data")
	}
	wmesh := sw.Wmesh()
	xc := sw.SigmaXC()
	curves := []struct {
		label string
		ys    []float64
	}{
		{"A(w)", sw.SpectralFunction()},
		{"Re sigma_xc", realParts(xc)},
		{"Im sigma_xc", imagParts(xc)},
	}
	p := basicPlot(title, "w (eV)", "")
	for i, c := range curves {
		pts := make(plotter.XYs, len(wmesh))
		for j := range wmesh {
			pts[j].X = wmesh[j]
			pts[j].Y = c.ys[j]
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		l.LineStyle.Color = seriesColor(i, len(curves))
		l.LineStyle.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add(c.label, l)
	}
	p.Legend.Top = true
	filename := fmt.Sprintf("%s.png", plotname)
	return p.Save(5*vg.Inch, 5*vg.Inch, filename)
}

func realParts(v []complex128) []float64 {
	ret := make([]float64, len(v))
	for i, c := range v {
		ret[i] = real(c)
	}
	return ret
}

func imagParts(v []complex128) []float64 {
	ret := make([]float64, len(v))
	for i, c := range v {
		ret[i] = imag(c)
	}
	return ret
}

//seriesColor returns the color of series i out of n, spreading the hues
//from red to magenta and jumping over the yellows, which read poorly on
//a white background.
func seriesColor(i, n int) color.RGBA {
	if n < 1 {
		n = 1
	}
	h := 300 * float64(i) / float64(n)
	if h > 40 {
		h += 40
	}
	return hueColor(h)
}

//hueColor maps a hue angle in degrees to the fully saturated color on
//that part of the circle.
func hueColor(h float64) color.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	sector := int(h / 60)
	frac := h/60 - float64(sector)
	up := uint8(math.Round(255 * frac))
	down := uint8(math.Round(255 * (1 - frac)))
	c := color.RGBA{A: 255}
	switch sector {
	case 0:
		c.R, c.G = 255, up
	case 1:
		c.R, c.G = down, 255
	case 2:
		c.G, c.B = 255, up
	case 3:
		c.G, c.B = down, 255
	case 4:
		c.R, c.B = up, 255
	default:
		c.R, c.B = 255, down
	}
	return c
}

func getShape(tagged int) (draw.GlyphDrawer, error) {
	switch tagged {
	case 0:
		return draw.PyramidGlyph{}, nil
	case 1:
		return draw.CircleGlyph{}, nil
	case 2:
		return draw.SquareGlyph{}, nil
	case 3:
		return draw.CrossGlyph{}, nil
	default:
		return draw.RingGlyph{}, fmt.Errorf("only 4 distinct glyph shapes are available") //the ring glyph is still usable if the error is ignored
	}
}
