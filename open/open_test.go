package open

import (
	"testing"

	"github.com/anisan-cli/seriesdl/constant"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCommand(t *testing.T) {
	Convey("command should pick the platform opener", t, func() {
		cmd, ok := command(constant.Linux, "/downloads/show")
		So(ok, ShouldBeTrue)
		So(cmd.Args, ShouldResemble, []string{"xdg-open", "/downloads/show"})

		cmd, ok = command(constant.Darwin, "/downloads/show")
		So(ok, ShouldBeTrue)
		So(cmd.Args[0], ShouldEqual, "open")

		_, ok = command("plan9", "/downloads/show")
		So(ok, ShouldBeFalse)
	})

	Convey("reveal should select the file where supported", t, func() {
		cmd, ok := reveal(constant.Darwin, "/downloads/show/Show.mp4")
		So(ok, ShouldBeTrue)
		So(cmd.Args, ShouldResemble, []string{"open", "-R", "/downloads/show/Show.mp4"})

		cmd, ok = reveal(constant.Windows, `C:\show\Show.mp4`)
		So(ok, ShouldBeTrue)
		So(cmd.Args[1], ShouldEqual, `/select,C:\show\Show.mp4`)

		_, ok = reveal(constant.Linux, "/downloads/show/Show.mp4")
		So(ok, ShouldBeFalse)
	})
}
