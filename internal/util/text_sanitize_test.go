package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeText(t *testing.T) {
	cases := map[string]string{
		"ab\x00cd\x01\x02\n\txy":        "abcd\n xy",
		"  trigeminal \t\t neuralgia  ": "trigeminal neuralgia",
		"myco\u00adbacterium":          "mycobacterium",
		"bad\xffbyte":                   "badbyte",
		"":                              "",
	}
	for in, want := range cases {
		require.Equal(t, want, SanitizeText(in), "%q", in)
	}
}
