package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  ___ _ __ ___  ___ ___  ___ __ _| | |", "#818cf8"},
	{" / __| '__/ _ \\/ __/ __|/ __/ _` | | |", "#a78bfa"},
	{"| (__| | | (_) \\__ \\__ \\ (_| (_| | | |", "#e879f9"},
	{" \\___|_|  \\___/|___/___/\\___\\__,_|_|_|", "#fb7185"},
}

// PrintBanner writes the crosscall banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  version "+version).Faint())
	fmt.Fprintln(w)
}
