package dataset

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio/npz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXOR(t *testing.T) {
	d := XOR()
	require.NoError(t, d.Validate())
	assert.Equal(t, 4, d.Len())
	assert.Equal(t, 2, d.Features())

	for i := 0; i < d.Len(); i++ {
		in, label := d.Example(i)
		want := 0
		if (in[0] == 1) != (in[1] == 1) {
			want = 1
		}
		assert.Equal(t, want, label, "example %v", in)
	}
}

func TestCategorize(t *testing.T) {
	testCases := []struct {
		code int
		want Category
	}{
		{' ', Whitespace},
		{'!', Symbol},
		{'/', Symbol},
		{'0', Digit},
		{'9', Digit},
		{':', Symbol},
		{'@', Symbol},
		{'A', Letter},
		{'Z', Letter},
		{'[', Symbol},
		{'`', Symbol},
		{'a', Letter},
		{'z', Letter},
		{'{', Symbol},
		{'~', Symbol},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, Categorize(tc.code), "code %q", rune(tc.code))
	}
}

func TestCharacterCodes(t *testing.T) {
	d := CharacterCodes()
	require.NoError(t, d.Validate())
	assert.Equal(t, 95, d.Len())
	assert.Equal(t, CharacterBits, d.Features())
	assert.Equal(t, CategoryCount, d.Classes)

	counts := map[Category]int{}
	for i := 0; i < d.Len(); i++ {
		counts[Category(d.Labels[i])]++
	}
	assert.Equal(t, map[Category]int{Whitespace: 1, Digit: 10, Letter: 52, Symbol: 32}, counts)

	// 'A' is 1000001 in binary.
	in, label := d.Example('A' - ' ')
	assert.Equal(t, []float32{1, 0, 0, 0, 0, 0, 1}, in)
	assert.Equal(t, int(Letter), label)
}

func TestSampleStaysInRange(t *testing.T) {
	d := CharacterCodes()
	r := rand.New(rand.NewSource(1))
	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		idx := d.Sample(r)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, d.Len())
		seen[idx] = true
	}
	assert.Len(t, seen, d.Len())
}

func TestShuffleKeepsPairs(t *testing.T) {
	d := CharacterCodes()
	d.Shuffle(rand.New(rand.NewSource(7)))
	require.NoError(t, d.Validate())
	for i := 0; i < d.Len(); i++ {
		in, label := d.Example(i)
		code := 0
		for b, v := range in {
			if v == 1 {
				code |= 1 << b
			}
		}
		assert.Equal(t, int(Categorize(code)), label)
	}
}

func TestValidateRejectsMismatches(t *testing.T) {
	d := &Dataset{Inputs: [][]float32{{0}, {1}}, Labels: []int{0}, Classes: 2}
	assert.Error(t, d.Validate())

	d = &Dataset{Inputs: [][]float32{{0}, {1, 1}}, Labels: []int{0, 1}, Classes: 2}
	assert.Error(t, d.Validate())

	d = &Dataset{Inputs: [][]float32{{0}}, Labels: []int{2}, Classes: 2}
	assert.Error(t, d.Validate())
}

func TestFromRaw(t *testing.T) {
	pixels := []uint8{0, 255, 51, 102, 255, 0, 0, 0}
	d, err := FromRaw(pixels, []int{2, 2, 2}, []uint8{3, 1})
	require.NoError(t, err)
	require.NoError(t, d.Validate())

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 4, d.Features())
	assert.Equal(t, 4, d.Classes)
	assert.InDeltaSlice(t, []float32{0, 1, 0.2, 0.4}, d.Inputs[0], 1e-6)
	assert.InDeltaSlice(t, []float32{1, 0, 0, 0}, d.Inputs[1], 1e-6)
	assert.Equal(t, []int{3, 1}, d.Labels)

	// Appending to one example must not clobber the next.
	_ = append(d.Inputs[0], 9)
	assert.Equal(t, float32(1), d.Inputs[1][0])
}

func TestFromRawRejectsBadShapes(t *testing.T) {
	_, err := FromRaw([]uint8{1, 2, 3}, []int{2, 2}, []uint8{0, 1})
	assert.Error(t, err)

	_, err = FromRaw([]uint8{1, 2, 3, 4}, []int{2, 2}, []uint8{0})
	assert.Error(t, err)

	_, err = FromRaw(nil, nil, nil)
	assert.Error(t, err)
}

func TestLoadNPZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digits.npz")
	require.NoError(t, npz.Write(path, map[string]interface{}{
		"x_train.npy": []uint8{0, 51, 255},
		"y_train.npy": []uint8{2, 0, 1},
		"x_test.npy":  []uint8{255},
		"y_test.npy":  []uint8{4},
	}))

	sets, err := LoadNPZ(path, MNISTTrain, MNISTTest)
	require.NoError(t, err)
	require.Len(t, sets, 2)

	train, test := sets[0], sets[1]
	assert.Equal(t, 3, train.Len())
	assert.Equal(t, 1, train.Features())
	assert.InDelta(t, 0.2, train.Inputs[1][0], 1e-6)
	assert.Equal(t, []int{2, 0, 1}, train.Labels)
	assert.Equal(t, []int{4}, test.Labels)
	// Classes are shared by every split loaded together.
	assert.Equal(t, 5, train.Classes)
	assert.Equal(t, 5, test.Classes)

	_, err = LoadNPZ(path, Split{Images: "x_val.npy", Labels: "y_val.npy"})
	assert.ErrorContains(t, err, "x_val.npy")
}

func TestLoadNPZMissingFile(t *testing.T) {
	_, err := LoadNPZ(t.TempDir()+"/missing.npz", MNISTTrain)
	assert.Error(t, err)
}

func TestWindow(t *testing.T) {
	w := NewWindow(4)
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, float32(0), w.Accuracy())

	w.Add(true)
	w.Add(false)
	assert.Equal(t, 2, w.Len())
	assert.False(t, w.Full())
	assert.Equal(t, float32(0.5), w.Accuracy())

	w.Add(true)
	w.Add(true)
	assert.True(t, w.Full())
	assert.Equal(t, float32(0.75), w.Accuracy())

	// Evicts the first true.
	w.Add(false)
	assert.Equal(t, 4, w.Len())
	assert.Equal(t, float32(0.5), w.Accuracy())

	// Evicts the false.
	w.Add(true)
	assert.Equal(t, float32(0.75), w.Accuracy())

	w.Reset()
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, float32(0), w.Accuracy())
	w.Add(true)
	assert.Equal(t, float32(1), w.Accuracy())
}

func TestNewWindowPanicsOnBadSize(t *testing.T) {
	assert.Panics(t, func() { NewWindow(0) })
}
