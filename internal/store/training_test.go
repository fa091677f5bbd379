package store

import (
	"strings"
	"testing"

	"github.com/ayusman/irplan/internal/gesture"
)

func TestTrainingRepository_AppendPreservesOrder(t *testing.T) {
	repo := newTestStore(t).Training()

	if err := repo.Append("shake", []float64{3, 1}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := repo.Append("shake", []float64{2}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := repo.Values("shake")
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}

	want := []float64{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestTrainingRepository_CountAndDelete(t *testing.T) {
	repo := newTestStore(t).Training()

	repo.Append("steady", []float64{0.1, 0.2, 0.3})
	repo.Append("shake", []float64{4})

	if n, _ := repo.Count("steady"); n != 3 {
		t.Errorf("Count(steady) = %d, want 3", n)
	}

	cats, err := repo.Categories()
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(cats) != 2 || cats[0] != "shake" || cats[1] != "steady" {
		t.Errorf("Categories() = %v, want [shake steady]", cats)
	}

	if err := repo.Delete("steady"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n, _ := repo.Count("steady"); n != 0 {
		t.Errorf("Count(steady) after delete = %d, want 0", n)
	}
	if n, _ := repo.Count("shake"); n != 1 {
		t.Errorf("Count(shake) after deleting steady = %d, want 1", n)
	}
}

func TestTrainingRepository_AppendRequiresCategory(t *testing.T) {
	repo := newTestStore(t).Training()
	if err := repo.Append("", []float64{1}); err == nil {
		t.Error("expected error for empty category")
	}
}

func TestTrainingRepository_ImportCSV(t *testing.T) {
	repo := newTestStore(t).Training()

	n, err := repo.ImportCSV("steady", strings.NewReader("magnitude\n0.01\n\n0.02\n0.03\n"))
	if err != nil {
		t.Fatalf("ImportCSV() error = %v", err)
	}
	if n != 3 {
		t.Errorf("ImportCSV() = %d, want 3", n)
	}

	if _, err := repo.ImportCSV("steady", strings.NewReader("magnitude\nnope\n")); err == nil {
		t.Error("expected error for malformed file")
	}
	if c, _ := repo.Count("steady"); c != 3 {
		t.Errorf("failed import should not store values, count = %d", c)
	}
}

func TestTrainingRepository_TrainsClassifier(t *testing.T) {
	repo := newTestStore(t).Training()

	steady := make([]float64, 50)
	shake := make([]float64, 20)
	for i := range steady {
		steady[i] = 0.001 * float64(i)
	}
	for i := range shake {
		shake[i] = 2 + 0.2*float64(i)
	}
	repo.Append(string(gesture.Steady), steady)
	repo.Append(string(gesture.Shake), shake)

	c, err := gesture.NewTrained(repo)
	if err != nil {
		t.Fatalf("NewTrained() error = %v", err)
	}
	if c.Samples() != 20 {
		t.Errorf("Samples() = %d, want 20", c.Samples())
	}
}
