package icon

import (
	"testing"

	"github.com/anisan-cli/seriesdl/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestGet(t *testing.T) {
	Convey("Given a registered icon", t, func() {
		target := Download

		Convey("It renders correctly for each variant", func() {
			for _, variant := range AvailableVariants() {
				Convey("variant="+variant, func() {
					viper.Set(key.IconsVariant, variant)
					result := Get(target)
					So(result, ShouldNotBeEmpty)
				})
			}
		})

		Convey("Every icon renders for the plain variant", func() {
			viper.Set(key.IconsVariant, "plain")
			for i := range icons {
				So(Get(i), ShouldNotBeEmpty)
			}
			So(Get(Icon(-1)), ShouldBeEmpty)
		})

		Convey("It returns empty for an unknown variant", func() {
			viper.Set(key.IconsVariant, "")
			result := Get(target)
			So(result, ShouldBeEmpty)
		})
	})
}
