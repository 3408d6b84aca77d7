package source

import (
	"fmt"

	"github.com/anisan-cli/seriesdl/util"
)

// Naming is the scheme used to name episode files on disk.
type Naming string

const (
	// NamingPadded produces ep_001.mp4.
	NamingPadded Naming = "ep_001"
	// NamingPlain produces episode_1.mp4.
	NamingPlain Naming = "episode_1"
	// NamingTitled produces <title>_EP1.mp4.
	NamingTitled Naming = "title_ep1"
)

// AvailableNamings lists the recognized schemes.
func AvailableNamings() []Naming {
	return []Naming{NamingPadded, NamingPlain, NamingTitled}
}

// Normalize maps unknown values to NamingPadded.
func (n Naming) Normalize() Naming {
	switch n {
	case NamingPadded, NamingPlain, NamingTitled:
		return n
	default:
		return NamingPadded
	}
}

// FileName returns the file name for one episode of the series titled title.
func (n Naming) FileName(title string, episode int) string {
	switch n.Normalize() {
	case NamingPlain:
		return fmt.Sprintf("episode_%d.mp4", episode)
	case NamingTitled:
		if safe := util.SanitizeFilename(title); safe != "" {
			return fmt.Sprintf("%s_EP%d.mp4", safe, episode)
		}
		return fmt.Sprintf("EP%d.mp4", episode)
	default:
		return fmt.Sprintf("ep_%03d.mp4", episode)
	}
}

// MergedName returns the file name of the merged output for a series title.
func MergedName(title string) string {
	if safe := util.SanitizeFilename(title); safe != "" {
		return safe + ".mp4"
	}
	return "merged.mp4"
}
