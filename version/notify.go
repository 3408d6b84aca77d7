package version

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/anisan-cli/seriesdl/color"
	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/icon"
	"github.com/anisan-cli/seriesdl/key"
	"github.com/anisan-cli/seriesdl/log"
	"github.com/anisan-cli/seriesdl/style"
	"github.com/anisan-cli/seriesdl/util"
	"github.com/spf13/viper"
)

// Notify prints a notice to out when a newer release is available.
func Notify(out io.Writer) {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	erase := util.PrintErasable(fmt.Sprintf("%s Checking if new version is available...", icon.Get(icon.Progress)))
	latest, err := Latest(ctx)
	erase()

	if err != nil {
		log.Debugf("version check: %s", err)
		return
	}

	if newer, err := Compare(latest, constant.Version); err != nil || newer <= 0 {
		return
	}

	fmt.Fprintf(out, `
%s New version is available %s %s
%s

`,
		style.Fg(color.Green)("▇▇▇"),
		style.Bold(latest),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint("https://github.com/anisan-cli/seriesdl/releases/tag/v"+latest),
	)
}
