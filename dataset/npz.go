package dataset

import (
	"fmt"

	"github.com/sbinet/npyio/npz"
)

// Split names the image and label arrays of one part of an npz archive.
type Split struct {
	Images string
	Labels string
}

var (
	MNISTTrain = Split{Images: "x_train.npy", Labels: "y_train.npy"}
	MNISTTest  = Split{Images: "x_test.npy", Labels: "y_test.npy"}
)

// LoadNPZ reads the arrays named by each split from the npz archive at path.
// Images are uint8 arrays of shape (examples, ...), flattened per example and
// scaled to [0, 1].  Labels are uint8 arrays of shape (examples).  The class
// count is one more than the largest label seen across all splits.
func LoadNPZ(path string, splits ...Split) ([]*Dataset, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening data file: %w", err)
	}
	defer r.Close()

	// numpy always writes C-order arrays, so each example's pixels are
	// contiguous.

	datasets := make([]*Dataset, len(splits))
	classes := 0
	for i, s := range splits {
		d, err := loadSplit(r, s)
		if err != nil {
			return nil, err
		}
		classes = max(classes, d.Classes)
		datasets[i] = d
	}
	for _, d := range datasets {
		d.Classes = classes
	}
	return datasets, nil
}

func loadSplit(r *npz.Reader, s Split) (*Dataset, error) {
	imageHeader := r.Header(s.Images)
	if imageHeader == nil {
		return nil, fmt.Errorf("no array %s in data file", s.Images)
	}
	var rawImages []uint8
	if err := r.Read(s.Images, &rawImages); err != nil {
		return nil, fmt.Errorf("while reading %s: %w", s.Images, err)
	}

	labelHeader := r.Header(s.Labels)
	if labelHeader == nil {
		return nil, fmt.Errorf("no array %s in data file", s.Labels)
	}
	var rawLabels []uint8
	if err := r.Read(s.Labels, &rawLabels); err != nil {
		return nil, fmt.Errorf("while reading %s: %w", s.Labels, err)
	}

	d, err := FromRaw(rawImages, imageHeader.Descr.Shape, rawLabels)
	if err != nil {
		return nil, fmt.Errorf("while loading %s and %s: %w", s.Images, s.Labels, err)
	}
	return d, nil
}

// FromRaw builds a dataset from uint8 pixels laid out in C order with the
// given shape, and one uint8 label per example.
func FromRaw(pixels []uint8, shape []int, labels []uint8) (*Dataset, error) {
	if len(shape) < 1 {
		return nil, fmt.Errorf("image array has no dimensions")
	}
	examples := shape[0]
	features := 1
	for _, s := range shape[1:] {
		features *= s
	}
	if examples*features != len(pixels) {
		return nil, fmt.Errorf("image array of shape %v holds %d values", shape, len(pixels))
	}
	if len(labels) != examples {
		return nil, fmt.Errorf("%d labels for %d images", len(labels), examples)
	}

	d := &Dataset{
		Inputs: make([][]float32, examples),
		Labels: make([]int, examples),
	}
	values := make([]float32, len(pixels))
	for i, p := range pixels {
		values[i] = float32(p) / float32(255)
	}
	for e := 0; e < examples; e++ {
		d.Inputs[e] = values[e*features : (e+1)*features : (e+1)*features]
		d.Labels[e] = int(labels[e])
		d.Classes = max(d.Classes, d.Labels[e]+1)
	}
	return d, nil
}
