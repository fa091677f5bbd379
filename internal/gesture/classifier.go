// Package gesture recognizes shake gestures from acceleration spectra with a
// support vector classifier trained once at startup.
package gesture

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/irplan/internal/spectral"
)

// Category is a motion class label.
type Category string

const (
	// Steady is the label for ordinary pointing motion.
	Steady Category = "steady"
	// Shake is the label for a deliberate shake of the remote.
	Shake Category = "shake"
)

// Categories lists the trained categories in training order.
var Categories = []Category{Steady, Shake}

// Classifier errors.
var (
	ErrNotTrained      = errors.New("classifier not trained")
	ErrAlreadyTrained  = errors.New("classifier already trained")
	ErrEmptySpectrum   = errors.New("empty spectrum")
	ErrUnknownCategory = errors.New("unknown category")
)

// ParseCategory returns the trained category named s.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownCategory, s)
}

type observer struct {
	id string
	fn func()
}

// Classifier turns acceleration samples into motion categories and notifies
// subscribers when a shake is detected.
//
// Push serializes access to the sample buffers, but samples are expected to
// arrive from a single device link; interleaving two streams into one
// Classifier mixes their windows.
type Classifier struct {
	mu        sync.Mutex
	extractor *spectral.Extractor
	model     *SVC
	perClass  int
	observers []observer
}

// New creates an untrained Classifier.
func New() *Classifier {
	return &Classifier{
		extractor: spectral.NewExtractor(),
	}
}

// NewTrained loads the corpus from src and returns a trained Classifier.
// Any load or fit failure is returned; the classifier cannot run without it.
func NewTrained(src CorpusSource) (*Classifier, error) {
	corpus, err := LoadCorpus(src)
	if err != nil {
		return nil, err
	}

	c := New()
	if err := c.Train(corpus); err != nil {
		return nil, err
	}
	return c, nil
}

// Train balances the corpus and fits the model. A Classifier can only be
// trained once.
func (c *Classifier) Train(corpus Corpus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model != nil {
		return ErrAlreadyTrained
	}

	values, labels, perClass, err := Balance(corpus)
	if err != nil {
		return fmt.Errorf("balance corpus: %w", err)
	}

	model := NewSVC()
	if err := model.Fit(values, labels); err != nil {
		return fmt.Errorf("fit model: %w", err)
	}

	c.model = model
	c.perClass = perClass
	log.Printf("gesture: trained on %d samples per category (%d support vectors)", perClass, model.SupportVectors())
	return nil
}

// Trained reports whether the model has been fitted.
func (c *Classifier) Trained() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model != nil
}

// Samples returns the number of training samples used per category.
func (c *Classifier) Samples() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perClass
}

// Model returns the fitted model, or nil before training.
func (c *Classifier) Model() *SVC {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Subscribe registers fn to be called, with no arguments, every time a shake
// is detected. Callbacks run synchronously in registration order on the
// goroutine that called Push. The returned id can be passed to Unsubscribe.
func (c *Classifier) Subscribe(fn func()) string {
	id := uuid.NewString()

	c.mu.Lock()
	c.observers = append(c.observers, observer{id: id, fn: fn})
	c.mu.Unlock()

	return id
}

// Unsubscribe removes a callback registered with Subscribe.
// It returns false if id is unknown.
func (c *Classifier) Unsubscribe(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, o := range c.observers {
		if o.id == id {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Classify predicts a category for every bin of the spectrum and returns the
// majority. Ties go to the label that sorts first.
func (c *Classifier) Classify(s spectral.Spectrum) (Category, error) {
	model := c.Model()
	if model == nil {
		return "", ErrNotTrained
	}
	if len(s) == 0 {
		return "", ErrEmptySpectrum
	}

	counts := make(map[Category]int)
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("bin %d: non-finite magnitude %v", i, v)
		}
		p, err := model.Predict(v)
		if err != nil {
			return "", fmt.Errorf("bin %d: %w", i, err)
		}
		counts[p]++
	}

	return majority(counts), nil
}

// majority returns the label with the highest count, preferring the label
// that sorts first on ties.
func majority(counts map[Category]int) Category {
	labels := make([]Category, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	var best Category
	bestCount := -1
	for _, l := range labels {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best
}

// Push adds one acceleration sample, classifies the resulting spectrum and,
// on a shake, notifies every subscriber.
//
// Push never fails: prediction errors and panics are logged and reported as
// ok == false, and no subscriber is called for that sample.
func (c *Classifier) Push(x, y, z float64) (category Category, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("gesture: classification panic: %v", r)
			category, ok = "", false
		}
	}()

	spectrum := c.extract(x, y, z)

	category, err := c.Classify(spectrum)
	if err != nil {
		log.Printf("gesture: classification failed: %v", err)
		return "", false
	}

	if category == Shake {
		c.notify()
	}
	return category, true
}

func (c *Classifier) extract(x, y, z float64) spectral.Spectrum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extractor.Push(x, y, z)
}

func (c *Classifier) notify() {
	c.mu.Lock()
	observers := make([]observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, o := range observers {
		call(o)
	}
}

// call runs one observer. A panic is logged and does not stop the
// observers registered after it.
func call(o observer) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("gesture: observer %s panicked: %v", o.id, r)
		}
	}()
	o.fn()
}
