package display

import (
	"fmt"
	"io"

	"github.com/backmassage/scorebatch/internal/term"
)

// PrintBanner writes the ASCII art banner to w; magenta when colors are enabled.
func PrintBanner(w io.Writer) {
	if term.Enabled() {
		fmt.Fprint(w, term.Magenta)
	}
	fmt.Fprint(w, `                         _           _       _
 ___  ___ ___  _ __ ___| |__   __ _| |_ ___| |__
/ __|/ __/ _ \| '__/ _ \ '_ \ / _`+"`"+` | __/ __| '_ \
\__ \ (_| (_) | | |  __/ |_) | (_| | || (__| | | |
|___/\___\___/|_|  \___|_.__/ \__,_|\__\___|_| |_|
`)
	if term.Enabled() {
		fmt.Fprintln(w, term.NC)
	}
}
