package domain

import "fmt"

// RepeatMode controls how the queue's Advance chooses the next
// current item.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatTrack
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatTrack:
		return "track"
	default:
		return fmt.Sprintf("RepeatMode(%d)", int(m))
	}
}

// ParseRepeatMode parses the three user-facing spellings.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch s {
	case "off":
		return RepeatOff, nil
	case "all":
		return RepeatAll, nil
	case "track":
		return RepeatTrack, nil
	default:
		return 0, fmt.Errorf("unrecognised repeat mode %q", s)
	}
}
