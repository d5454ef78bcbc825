package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequencesConsumeFullPool(t *testing.T) {
	for _, f := range []Format{BO1, BO3, BO5} {
		t.Run(string(f), func(t *testing.T) {
			seq := Sequence(f)
			require.Len(t, seq, len(FullPool()), "sequence must consume the whole pool")
			for i, step := range seq {
				require.Contains(t, []Kind{KindBan, KindPick}, step.Kind, "step %d", i)
				require.Contains(t, []int{1, 2}, step.Slot, "step %d", i)
				if step.Side {
					require.Equal(t, KindPick, step.Kind, "only picks carry a side choice")
				}
			}
		})
	}
}

func TestSequenceReturnsCopy(t *testing.T) {
	a := Sequence(BO3)
	a[0].Kind = KindPick
	require.Equal(t, KindBan, Sequence(BO3)[0].Kind)
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"bo1", BO1, true},
		{"bo3", BO3, true},
		{"bo5", BO5, true},
		{"bo2", "", false},
		{"", "", false},
		{"BO1", "", false},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.in)
		require.Equal(t, tc.ok, ok, "Parse(%q)", tc.in)
		require.Equal(t, tc.want, got, "Parse(%q)", tc.in)
	}
}

func TestValidSide(t *testing.T) {
	require.True(t, ValidSide(SideCT))
	require.True(t, ValidSide(SideT))
	require.False(t, ValidSide(""))
	require.False(t, ValidSide("ct"))
}
