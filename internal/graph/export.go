package graph

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"
)

// ─── Export ───

// ExportJSON returns the graph as pretty-printed JSON.
func (g *Graph) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// ExportDOT returns the graph in Graphviz DOT format with pinned positions, so
// `neato -n2` reproduces the layout. Y is flipped because DOT grows upwards.
func (g *Graph) ExportDOT() string {
	var b strings.Builder
	b.WriteString("graph orbit {\n")
	b.WriteString("  node [shape=circle, fixedsize=true, width=0.3, fontsize=10];\n\n")

	for _, n := range g.Nodes {
		b.WriteString(fmt.Sprintf("  %s [label=%s, pos=\"%.2f,%.2f!\"", dotQuote(n.ID), dotQuote(n.Label), n.X, -n.Y))
		if n.Kind == KindRoot {
			b.WriteString(", width=0.5, style=bold")
		}
		b.WriteString("];\n")
	}

	b.WriteString("\n")
	for _, e := range g.Edges {
		style := "solid"
		switch e.Origin {
		case OriginKeyword:
			style = "dashed"
		case OriginRoot:
			style = "dotted"
		}
		b.WriteString(fmt.Sprintf("  %s -- %s [style=%s];\n", dotQuote(e.Source), dotQuote(e.Target), style))
	}

	b.WriteString("}\n")
	return b.String()
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", `\n`)

// dotQuote returns s as a DOT quoted string. Quote and backslash are escaped and line
// breaks become the \n label escape; every other character is written as is.
func dotQuote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

// ─── SVG ───

const svgPadding = 40.0

func nodeRadius(k Kind) float64 {
	switch k {
	case KindRoot:
		return 14
	case KindProject:
		return 9
	default:
		return 7
	}
}

// ExportSVG draws the layout as a standalone SVG document. Edges touching selected
// (which may be empty) are drawn heavier.
func (g *Graph) ExportSVG(selected string) string {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range g.Nodes {
		minX, maxX = math.Min(minX, n.X), math.Max(maxX, n.X)
		minY, maxY = math.Min(minY, n.Y), math.Max(maxY, n.Y)
	}
	if len(g.Nodes) == 0 {
		minX, minY, maxX, maxY = 0, 0, 0, 0
	}
	x0, y0 := minX-svgPadding, minY-svgPadding
	w, h := maxX-minX+2*svgPadding, maxY-minY+2*svgPadding

	pos := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		pos[n.ID] = n
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.2f %.2f %.2f %.2f" width="%.0f" height="%.0f">`+"\n",
		x0, y0, w, h, w, h))
	b.WriteString(fmt.Sprintf(`<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="#0a0e17"/>`+"\n", x0, y0, w, h))

	for _, e := range g.Edges {
		a, okA := pos[e.Source]
		c, okC := pos[e.Target]
		if !okA || !okC {
			continue
		}
		stroke, width := "rgba(255,255,255,0.15)", 1.0
		if selected != "" && e.Touches(selected) {
			stroke, width = "#2DB682", 2.5
		}
		dash := ""
		if e.Origin == OriginKeyword {
			dash = ` stroke-dasharray="4 3"`
		}
		b.WriteString(fmt.Sprintf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%.1f"%s/>`+"\n",
			a.X, a.Y, c.X, c.Y, stroke, width, dash))
	}

	for _, n := range g.Nodes {
		fill := "#0171E3"
		switch {
		case n.ID == selected:
			fill = "#2DB682"
		case n.Kind == KindRoot:
			fill = "#E07C3A"
		}
		r := nodeRadius(n.Kind)
		b.WriteString(fmt.Sprintf(`<circle cx="%.2f" cy="%.2f" r="%.0f" fill="%s"/>`+"\n", n.X, n.Y, r, fill))
		b.WriteString(fmt.Sprintf(`<text x="%.2f" y="%.2f" fill="#bbbbbb" font-size="11" text-anchor="middle" font-family="sans-serif">%s</text>`+"\n",
			n.X, n.Y+r+13, html.EscapeString(n.Label)))
	}

	b.WriteString("</svg>\n")
	return b.String()
}

// ─── Terminal ───

// RenderShow produces a terminal tree view of a node and its neighbors.
func RenderShow(g *Graph, id string, brandFn, subtleFn, infoFn func(string) string) (string, error) {
	n, ok := g.Node(id)
	if !ok {
		return "", fmt.Errorf("node not found: %s", id)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("  ● %s\n", brandFn(n.Label)))
	b.WriteString(fmt.Sprintf("  │  %s\n", subtleFn(fmt.Sprintf("%s, degree %d, at (%.1f, %.1f)", n.Kind, g.Degree(id), n.X, n.Y))))

	var incident []Edge
	for _, e := range g.Edges {
		if e.Touches(id) {
			incident = append(incident, e)
		}
	}
	if len(incident) > 0 {
		b.WriteString("  │\n")
	}
	for i, e := range incident {
		prefix := "  ├── "
		if i == len(incident)-1 {
			prefix = "  └── "
		}
		label := e.Other(id)
		if other, ok := g.Node(label); ok {
			label = other.Label
		}
		b.WriteString(fmt.Sprintf("%s%s %s %s\n", prefix, subtleFn(string(e.Origin)), subtleFn("──"), infoFn(label)))
	}
	return b.String(), nil
}
