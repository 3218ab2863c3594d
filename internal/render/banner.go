package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

var bannerArt = []string{
	`        _  __      `,
	`  __ _ (_)/ _|_ __ `,
	` / _' || | |_| '__|`,
	`| (_| || |  _| |   `,
	` \__,_||_|_| |_|   `,
}

// Banner returns the gradient wordmark with the version line appended.
// Only shown for --version on a TTY.
func Banner(version string) string {
	from, errFrom := colorful.Hex(string(bannerFrom))
	to, errTo := colorful.Hex(string(bannerTo))

	var sb strings.Builder
	for _, line := range bannerArt {
		runes := []rune(line)
		for i, r := range runes {
			if errFrom != nil || errTo != nil {
				sb.WriteRune(r)
				continue
			}
			t := 0.0
			if len(runes) > 1 {
				t = float64(i) / float64(len(runes)-1)
			}
			c := from.BlendLuv(to, t)
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render(string(r)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("aifr " + version + "\n")
	return sb.String()
}
