// Copyright (C) 2016, Heiko Koehler

package chart

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// XY is a point in chart pixels.
type XY struct {
	X, Y float64
}

type op byte

const (
	opMove  op = 'M'
	opLine  op = 'L'
	opCubic op = 'C'
	opClose op = 'Z'
)

type cmd struct {
	op  op
	pts [3]XY
}

// Path is SVG path geometry built from move, line, cubic and close commands.
type Path struct {
	cmds []cmd
}

func (p *Path) MoveTo(x, y float64) {
	p.cmds = append(p.cmds, cmd{op: opMove, pts: [3]XY{{x, y}}})
}

func (p *Path) LineTo(x, y float64) {
	p.cmds = append(p.cmds, cmd{op: opLine, pts: [3]XY{{x, y}}})
}

func (p *Path) CubicTo(x1, y1, x2, y2, x, y float64) {
	p.cmds = append(p.cmds, cmd{op: opCubic, pts: [3]XY{{x1, y1}, {x2, y2}, {x, y}}})
}

func (p *Path) Close() {
	p.cmds = append(p.cmds, cmd{op: opClose})
}

func (p Path) Empty() bool {
	return len(p.cmds) == 0
}

// String renders the path in SVG "d" syntax.
func (p Path) String() string {
	var sb strings.Builder
	for _, c := range p.cmds {
		sb.WriteByte(byte(c.op))
		n := 0
		switch c.op {
		case opMove, opLine:
			n = 1
		case opCubic:
			n = 3
		}
		for i := 0; i < n; i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(num(c.pts[i].X))
			sb.WriteByte(',')
			sb.WriteString(num(c.pts[i].Y))
		}
	}
	return sb.String()
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// Polyline is a flattened path with cumulative arc length. Pen moves
// between subpaths add no length.
type Polyline struct {
	pts []XY
	cum []float64
}

// Flatten approximates every cubic with steps line segments.
func (p Path) Flatten(steps int) Polyline {
	if steps < 1 {
		steps = 1
	}
	var pl Polyline
	var cur, start XY
	add := func(pt XY, draw bool) {
		length := 0.0
		if n := len(pl.pts); n > 0 {
			length = pl.cum[n-1]
			if draw {
				length += math.Hypot(pt.X-pl.pts[n-1].X, pt.Y-pl.pts[n-1].Y)
			}
		}
		pl.pts = append(pl.pts, pt)
		pl.cum = append(pl.cum, length)
	}
	for _, c := range p.cmds {
		switch c.op {
		case opMove:
			cur, start = c.pts[0], c.pts[0]
			add(cur, false)
		case opLine:
			cur = c.pts[0]
			add(cur, true)
		case opCubic:
			p0 := cur
			for i := 1; i <= steps; i++ {
				add(cubicAt(p0, c.pts[0], c.pts[1], c.pts[2], float64(i)/float64(steps)), true)
			}
			cur = c.pts[2]
		case opClose:
			cur = start
			add(cur, true)
		}
	}
	return pl
}

func cubicAt(p0, p1, p2, p3 XY, t float64) XY {
	u := 1 - t
	a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	return XY{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

// Length is the total arc length.
func (pl Polyline) Length() float64 {
	if len(pl.cum) == 0 {
		return 0
	}
	return pl.cum[len(pl.cum)-1]
}

// PointAt returns the point at arc length l, clamped to the ends.
func (pl Polyline) PointAt(l float64) XY {
	n := len(pl.pts)
	if n == 0 {
		return XY{math.NaN(), math.NaN()}
	}
	if l <= 0 {
		return pl.pts[0]
	}
	if l >= pl.Length() {
		return pl.pts[n-1]
	}
	i := sort.SearchFloat64s(pl.cum, l)
	seg := pl.cum[i] - pl.cum[i-1]
	if seg == 0 {
		return pl.pts[i]
	}
	f := (l - pl.cum[i-1]) / seg
	a, b := pl.pts[i-1], pl.pts[i]
	return XY{a.X + (b.X-a.X)*f, a.Y + (b.Y-a.Y)*f}
}

// basis draws a uniform cubic B-spline through pts, starting at the
// first and ending at the last point.
type basis struct {
	p              *Path
	n              int
	x0, y0, x1, y1 float64
}

func (b *basis) point(x, y float64) {
	switch b.n {
	case 0:
		b.n = 1
		b.p.MoveTo(x, y)
	case 1:
		b.n = 2
	case 2:
		b.n = 3
		b.p.LineTo((5*b.x0+b.x1)/6, (5*b.y0+b.y1)/6)
		b.bezier(x, y)
	default:
		b.bezier(x, y)
	}
	b.x0, b.x1 = b.x1, x
	b.y0, b.y1 = b.y1, y
}

func (b *basis) bezier(x, y float64) {
	b.p.CubicTo(
		(2*b.x0+b.x1)/3, (2*b.y0+b.y1)/3,
		(b.x0+2*b.x1)/3, (b.y0+2*b.y1)/3,
		(b.x0+4*b.x1+x)/6, (b.y0+4*b.y1+y)/6)
}

func (b *basis) end() {
	switch b.n {
	case 3:
		b.bezier(b.x1, b.y1)
		b.p.LineTo(b.x1, b.y1)
	case 2:
		b.p.LineTo(b.x1, b.y1)
	case 1:
		b.p.Close()
	}
	b.n = 0
}

// BasisLine draws each run of defined points as its own smoothed subpath.
func BasisLine(pts []XY, defined []bool) Path {
	var p Path
	b := basis{p: &p}
	for i, pt := range pts {
		if !defined[i] {
			b.end()
			continue
		}
		b.point(pt.X, pt.Y)
	}
	b.end()
	return p
}

// BandArea fills between top and bottom for every run of defined points,
// each run closed on its own.
func BandArea(xs []float64, defined []bool, top, bottom float64) Path {
	var p Path
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		p.MoveTo(xs[start], top)
		for i := start + 1; i < end; i++ {
			p.LineTo(xs[i], top)
		}
		for i := end - 1; i >= start; i-- {
			p.LineTo(xs[i], bottom)
		}
		p.Close()
		start = -1
	}
	for i := range xs {
		if defined[i] {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(xs))
	return p
}
