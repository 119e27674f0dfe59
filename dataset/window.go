package dataset

// Window tracks whether each of the most recent predictions was correct.
type Window struct {
	results []bool
	next    int
	full    bool
	correct int
}

// NewWindow remembers the last size outcomes.
func NewWindow(size int) *Window {
	if size <= 0 {
		panic("window size must be positive")
	}
	return &Window{results: make([]bool, size)}
}

func (w *Window) Add(correct bool) {
	if w.full && w.results[w.next] {
		w.correct--
	}
	w.results[w.next] = correct
	if correct {
		w.correct++
	}
	w.next++
	if w.next == len(w.results) {
		w.next = 0
		w.full = true
	}
}

// Len is the number of outcomes currently remembered.
func (w *Window) Len() int {
	if w.full {
		return len(w.results)
	}
	return w.next
}

// Full reports whether the window has seen at least its size in outcomes.
func (w *Window) Full() bool {
	return w.full
}

// Accuracy is the fraction of remembered outcomes that were correct, or 0
// when nothing has been recorded.
func (w *Window) Accuracy() float32 {
	if w.Len() == 0 {
		return 0
	}
	return float32(w.correct) / float32(w.Len())
}

func (w *Window) Reset() {
	w.next = 0
	w.full = false
	w.correct = 0
}
