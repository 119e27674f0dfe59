package dataset

// XOR returns the four cases of exclusive or, labelled 0 or 1.
func XOR() *Dataset {
	return &Dataset{
		Inputs: [][]float32{
			{0, 0},
			{0, 1},
			{1, 0},
			{1, 1},
		},
		Labels:  []int{0, 1, 1, 0},
		Classes: 2,
	}
}

type Category int

const (
	Whitespace Category = iota
	Symbol
	Letter
	Digit

	CategoryCount = 4
)

func (c Category) String() string {
	switch c {
	case Whitespace:
		return "whitespace"
	case Symbol:
		return "symbol"
	case Letter:
		return "letter"
	case Digit:
		return "digit"
	default:
		return "none"
	}
}

// CharacterBits is the number of low bits of a character code fed to the
// network.
const CharacterBits = 7

const (
	firstPrintable = int(' ')
	lastPrintable  = int('~')
)

// Categorize sorts a printable ASCII code into its category.
func Categorize(code int) Category {
	switch {
	case code == ' ':
		return Whitespace
	case code >= '0' && code <= '9':
		return Digit
	case code >= 'A' && code <= 'Z', code >= 'a' && code <= 'z':
		return Letter
	default:
		return Symbol
	}
}

// EncodeCharacter writes the low CharacterBits bits of code into dst, least
// significant bit first, as 0 or 1.
func EncodeCharacter(code int, dst []float32) {
	for i := 0; i < CharacterBits; i++ {
		dst[i] = float32(code >> i & 1)
	}
}

// CharacterCodes returns one example per printable ASCII character, space to
// tilde, labelled by Categorize.
func CharacterCodes() *Dataset {
	d := &Dataset{Classes: CategoryCount}
	for code := firstPrintable; code <= lastPrintable; code++ {
		in := make([]float32, CharacterBits)
		EncodeCharacter(code, in)
		d.Inputs = append(d.Inputs, in)
		d.Labels = append(d.Labels, int(Categorize(code)))
	}
	return d
}
