package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Brand colors
var (
	Brand  = color.New(color.FgHiGreen, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Info   = color.New(color.FgCyan)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

const Orbit = "\u25CE" // ◎

// Banner prints the orbit banner.
func Banner(subtitle string) {
	fmt.Printf("%s %s %s %s\n\n", Orbit, Brand.Sprint("orbit"), Subtle.Sprint("·"), subtitle)
}

// Heading prints a section title in the info color.
func Heading(title string) {
	Info.Printf("  %s\n", title)
}

// Table prints rows under a header, padding columns to their widest cell. Widths
// count runes so ids and labels with accents or arrows stay aligned.
func Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}

	Subtle.Println(tableLine(headers, widths))
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("\u2500", w)
	}
	Subtle.Println(tableLine(sep, widths))
	for _, row := range rows {
		fmt.Println(tableLine(row, widths))
	}
}

func tableLine(cells []string, widths []int) string {
	var b strings.Builder
	b.WriteString("  ")
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		b.WriteString(cell)
		b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)+2))
	}
	return strings.TrimRight(b.String(), " ")
}

// StatusIcon returns a check mark for ok and a cross otherwise.
func StatusIcon(ok bool) string {
	if ok {
		return Good.Sprint("\u2713")
	}
	return Bad.Sprint("\u2717")
}

// WarnIcon returns a warning icon.
func WarnIcon() string {
	return Warn.Sprint("\u26A0")
}
