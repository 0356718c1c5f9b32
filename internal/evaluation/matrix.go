// Package evaluation scores classifiers against labelled readings.
package evaluation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
)

// ConfusionMatrix counts (truth, predicted) label pairs. Rows are true
// labels and columns predicted labels, both in Labels order.
type ConfusionMatrix struct {
	Labels []int   `json:"labels"`
	Counts [][]int `json:"counts"`
	index  map[int]int
}

// NewConfusionMatrix creates an empty K×K matrix over labels.
func NewConfusionMatrix(labels []int) *ConfusionMatrix {
	labels = slices.Clone(labels)
	slices.Sort(labels)
	labels = slices.Compact(labels)

	index := make(map[int]int, len(labels))
	counts := make([][]int, len(labels))
	for i, l := range labels {
		index[l] = i
		counts[i] = make([]int, len(labels))
	}
	return &ConfusionMatrix{Labels: labels, Counts: counts, index: index}
}

// Add records one observation.
func (m *ConfusionMatrix) Add(truth, predicted int) error {
	i, ok := m.index[truth]
	if !ok {
		return &domain.InvalidLabelError{Label: truth}
	}
	j, ok := m.index[predicted]
	if !ok {
		return &domain.InvalidLabelError{Label: predicted}
	}
	m.Counts[i][j]++
	return nil
}

// Total returns the number of recorded observations.
func (m *ConfusionMatrix) Total() int {
	n := 0
	for _, row := range m.Counts {
		for _, c := range row {
			n += c
		}
	}
	return n
}

// Accuracy is the fraction of observations on the diagonal.
func (m *ConfusionMatrix) Accuracy() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	correct := 0
	for i := range m.Counts {
		correct += m.Counts[i][i]
	}
	return float64(correct) / float64(total)
}

// classStats returns per-class precision and recall for every label that
// occurs as a truth or a prediction. Undefined ratios count as zero.
func (m *ConfusionMatrix) classStats() (precision, recall []float64) {
	for k := range m.Labels {
		tp := m.Counts[k][k]
		support, predicted := 0, 0
		for i := range m.Labels {
			support += m.Counts[k][i]
			predicted += m.Counts[i][k]
		}
		if support == 0 && predicted == 0 {
			continue
		}
		precision = append(precision, ratio(tp, predicted))
		recall = append(recall, ratio(tp, support))
	}
	return precision, recall
}

// RecallMacro is the unweighted mean of per-class recall.
func (m *ConfusionMatrix) RecallMacro() float64 {
	_, recall := m.classStats()
	return mean(recall)
}

// F1Macro is the unweighted mean of per-class F1.
func (m *ConfusionMatrix) F1Macro() float64 {
	precision, recall := m.classStats()
	f1 := make([]float64, len(precision))
	for i := range precision {
		if p, r := precision[i], recall[i]; p+r > 0 {
			f1[i] = 2 * p * r / (p + r)
		}
	}
	return mean(f1)
}

// Metrics summarizes the matrix in the catalog's metrics format.
func (m *ConfusionMatrix) Metrics() domain.ModelMetrics {
	return domain.ModelMetrics{
		Accuracy:    m.Accuracy(),
		F1Macro:     m.F1Macro(),
		RecallMacro: m.RecallMacro(),
	}
}

// String renders the matrix as aligned rows, truth down and predicted across.
func (m *ConfusionMatrix) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%8s", "")
	for _, l := range m.Labels {
		fmt.Fprintf(&b, "%8d", l)
	}
	b.WriteByte('\n')
	for i, l := range m.Labels {
		fmt.Fprintf(&b, "%8d", l)
		for _, c := range m.Counts[i] {
			fmt.Fprintf(&b, "%8d", c)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
