package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/lucasb-eyer/go-colorful"
)

// PollPalette mixes three base colours (neutral, upvote, downvote) by
// a poll's current vote ratios into the embed's accent colour. The
// mix happens in CIE-Lab space via go-colorful's perceptual blend,
// standing in for the opponent-colour pigment model the protocol was
// originally specified against (see DESIGN.md for why a literal port
// of that model wasn't available).
type PollPalette struct {
	Base, Upvote, Downvote colorful.Color
}

// DefaultPollPalette is the palette used for every poll embed: a
// neutral grey base mixing toward green on upvotes and red on
// downvotes.
func DefaultPollPalette() PollPalette {
	return PollPalette{
		Base:     colorful.Color{R: 0.55, G: 0.55, B: 0.58},
		Upvote:   colorful.Color{R: 0.13, G: 0.75, B: 0.27},
		Downvote: colorful.Color{R: 0.86, G: 0.16, B: 0.16},
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Mix blends the palette by the given up/down vote ratios (each in
// [0,1], as produced by VoteTally.Ratios) and returns the resulting
// colour as a packed 0xRRGGBB integer, the form a chat-service embed
// colour field expects.
func (p PollPalette) Mix(upRatio, downRatio float64) int {
	mixed := p.Base.BlendLab(p.Upvote, clamp01(upRatio))
	mixed = mixed.BlendLab(p.Downvote, clamp01(downRatio))
	r, g, b := mixed.Clamped().RGB255()
	return int(r)<<16 | int(g)<<8 | int(b)
}

// Bar renders the three-character proportional vote-ratio bar shown
// in the poll embed description: one run of '+' per upvote share, '-'
// per downvote share, and '·' for the undecided remainder, totalling
// three characters.
func Bar(upRatio, downRatio float64) string {
	const width = 3
	up := int(upRatio*width + 0.5)
	down := int(downRatio*width + 0.5)
	if up > width {
		up = width
	}
	if down > width-up {
		down = width - up
	}
	undecided := width - up - down

	var bar strings.Builder
	bar.Grow(width * utf8.UTFMax)
	for i := 0; i < up; i++ {
		bar.WriteByte('+')
	}
	for i := 0; i < down; i++ {
		bar.WriteByte('-')
	}
	for i := 0; i < undecided; i++ {
		bar.WriteRune('·')
	}
	return bar.String()
}
