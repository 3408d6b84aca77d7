// Package icon renders the symbols used in command output and the dashboard.
//
// Each icon has an emoji, nerd-font, plain ASCII, kaomoji and Unicode square form;
// icons.variant selects one.
package icon

import (
	"github.com/anisan-cli/seriesdl/key"
	"github.com/spf13/viper"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants lists the accepted icons.variant values.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

// render returns the form for variant, or "" for an unknown variant.
func (d *iconDef) render(variant string) string {
	return map[string]string{
		emoji:   d.emoji,
		nerd:    d.nerd,
		plain:   d.plain,
		kaomoji: d.kaomoji,
		squares: d.squares,
	}[variant]
}

// Get renders i in the configured variant. Unknown icons render empty.
func Get(i Icon) string {
	d, ok := icons[i]
	if !ok {
		return ""
	}
	return d.render(viper.GetString(key.IconsVariant))
}
