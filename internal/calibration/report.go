package calibration

import "github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"

// Summary holds classification metrics at a single curve point. It is used for
// reporting only; threshold selection never looks at it.
type Summary struct {
	Threshold         float64 `json:"threshold"`
	Precision         float64 `json:"precision"`
	Recall            float64 `json:"recall"`
	F1                float64 `json:"f1"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
}

// Summarize derives precision, recall, F1 and FPR from a curve point.
// A metric whose denominator is zero is reported as 0.
func Summarize(pt domain.CurvePoint) Summary {
	s := Summary{Threshold: pt.Threshold}
	s.Precision = ratio(pt.TruePositives, pt.TruePositives+pt.FalsePositives)
	s.Recall = ratio(pt.TruePositives, pt.TruePositives+pt.FalseNegatives)
	s.FalsePositiveRate = ratio(pt.FalsePositives, pt.FalsePositives+pt.TrueNegatives)
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
