package version

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// parse reads "v1.2.3" or "1.2.3-rc.1" into its numeric parts. Pre-release and
// build suffixes are ignored.
func parse(s string) ([]int, error) {
	core, _, _ := strings.Cut(strings.TrimPrefix(strings.TrimSpace(s), "v"), "-")
	core, _, _ = strings.Cut(core, "+")

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid version %q", s)
	}

	numbers := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid version %q", s)
		}
		numbers[i] = n
	}
	return numbers, nil
}

// Compare returns 1 if a is newer than b, -1 if it is older and 0 if they are equal.
func Compare(a, b string) (int, error) {
	av, err := parse(a)
	if err != nil {
		return 0, err
	}

	bv, err := parse(b)
	if err != nil {
		return 0, err
	}

	return slices.Compare(av, bv), nil
}
