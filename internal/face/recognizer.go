package face

import (
	"fmt"
	"math"

	goface "github.com/Kagami/go-face"
)

// Descriptor is a fixed-length embedding of a detected face.
type Descriptor [128]float32

// Recognizer extracts comparable descriptors from images. It is the pluggable
// seam that keeps the verification flow independent of the underlying model.
type Recognizer interface {
	// ExtractDescriptor returns the descriptor for the single face in the
	// image. ok is false when zero or multiple faces are detected.
	ExtractDescriptor(image []byte) (desc Descriptor, ok bool, err error)
	// Distance returns the euclidean distance between two descriptors.
	Distance(a, b Descriptor) float64
	Close()
}

// dlibRecognizer backs the Recognizer interface with dlib's detection and
// embedding models via go-face. Only JPEG input is supported by the library.
type dlibRecognizer struct {
	rec *goface.Recognizer
}

// NewDlibRecognizer loads the dlib models from modelsDir.
func NewDlibRecognizer(modelsDir string) (Recognizer, error) {
	rec, err := goface.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load face models from %s: %w", modelsDir, err)
	}
	return &dlibRecognizer{rec: rec}, nil
}

func (d *dlibRecognizer) ExtractDescriptor(image []byte) (Descriptor, bool, error) {
	f, err := d.rec.RecognizeSingle(image)
	if err != nil {
		return Descriptor{}, false, fmt.Errorf("face recognition failed: %w", err)
	}
	if f == nil {
		// Zero faces, or more than one: no unambiguous subject.
		return Descriptor{}, false, nil
	}
	return Descriptor(f.Descriptor), true, nil
}

func (d *dlibRecognizer) Distance(a, b Descriptor) float64 {
	return math.Sqrt(goface.SquaredEuclideanDistance(goface.Descriptor(a), goface.Descriptor(b)))
}

func (d *dlibRecognizer) Close() {
	d.rec.Close()
}
