package background

import (
	"testing"

	"gel-analyzer/internal/image"
	"gel-analyzer/internal/lane"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaps(t *testing.T) {
	lanes := []lane.Lane{{Begin: 5, End: 10}, {Begin: 10, End: 20}}

	gaps := Gaps(30, lanes)

	assert.Equal(t, []lane.Lane{{Begin: 0, End: 5}, {Begin: 10, End: 10}, {Begin: 20, End: 30}}, gaps)
	assert.Nil(t, Gaps(30, nil))
}

func TestMeanGapLevelsFloorsEachHalf(t *testing.T) {
	// Left gap mean 7, right gap mean 9: floor(7/2) = 3, floor(3 + 4.5) = 7.
	g, err := image.GridFromRows([][]uint8{
		{7, 7, 100, 100, 9, 9},
	})
	require.NoError(t, err)

	levels := MeanGapLevels(g, []lane.Lane{{Begin: 2, End: 4}})

	require.Len(t, levels, 1)
	assert.Equal(t, []int{7}, levels[0])
}

func TestMeanGapLevelsSkipsEmptyGap(t *testing.T) {
	g, err := image.GridFromRows([][]uint8{
		{100, 100, 40, 40},
	})
	require.NoError(t, err)

	levels := MeanGapLevels(g, []lane.Lane{{Begin: 0, End: 2}})

	assert.Equal(t, []int{20}, levels[0])
}

func TestMidGapLevels(t *testing.T) {
	g, err := image.GridFromRows([][]uint8{
		{11, 21, 200, 200, 31, 41, 200, 200, 51, 61},
	})
	require.NoError(t, err)
	lanes := []lane.Lane{{Begin: 2, End: 4}, {Begin: 6, End: 8}}

	levels := MidGapLevels(g, lanes)

	// Midpoints are columns 1, 5 and 9.
	assert.Equal(t, []int{21/2 + 41/2}, levels[0])
	assert.Equal(t, []int{41/2 + 61/2}, levels[1])
}

func TestSubtractBounds(t *testing.T) {
	g := image.NewGrid(12, 4)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			g.Set(y, x, uint8(10+5*x+y))
		}
	}
	lanes := []lane.Lane{{Begin: 2, End: 5}, {Begin: 7, End: 10}}

	for _, fn := range []LevelsFunc{MeanGapLevels, MidGapLevels} {
		out := Subtract(g, lanes, fn)
		require.Equal(t, g.Width, out.Width)
		require.Equal(t, g.Height, out.Height)

		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				assert.LessOrEqual(t, out.At(y, x), g.At(y, x))
				inLane := (x >= 2 && x < 5) || (x >= 7 && x < 10)
				if !inLane {
					assert.Zero(t, out.At(y, x), "gap column %d must be cleared", x)
				}
			}
		}
	}
}

func TestSubtractUsesEachLanesOwnLevel(t *testing.T) {
	// Background rises to the right, so the second lane has a higher level.
	g, err := image.GridFromRows([][]uint8{
		{10, 10, 100, 100, 30, 30, 100, 100, 50, 50},
	})
	require.NoError(t, err)
	lanes := []lane.Lane{{Begin: 2, End: 4}, {Begin: 6, End: 8}}

	out := Subtract(g, lanes, MeanGapLevels)

	assert.Equal(t, []uint8{0, 0, 80, 80, 0, 0, 60, 60, 0, 0}, out.Row(0))
}

func TestSubtractClampsAtZero(t *testing.T) {
	g, err := image.GridFromRows([][]uint8{
		{90, 90, 40, 40, 90, 90},
	})
	require.NoError(t, err)

	out := Subtract(g, []lane.Lane{{Begin: 2, End: 4}}, nil)

	assert.Equal(t, []uint8{0, 0, 0, 0, 0, 0}, out.Row(0))
}

func TestSubtractLeavesInputUntouched(t *testing.T) {
	g, err := image.GridFromRows([][]uint8{{5, 50, 5}})
	require.NoError(t, err)
	before := g.Clone()

	Subtract(g, []lane.Lane{{Begin: 1, End: 2}}, MeanGapLevels)

	assert.Equal(t, before.Pix, g.Pix)
}
