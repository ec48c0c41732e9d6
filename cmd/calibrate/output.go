package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/calibration"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

func writeCurveCSV(w io.Writer, curve []domain.CurvePoint) error {
	cw := csv.NewWriter(w)

	header := []string{"threshold", "true_positives", "false_positives", "true_negatives", "false_negatives", "cost"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "calibrate: write CSV header")
	}

	for _, pt := range curve {
		row := []string{
			strconv.FormatFloat(pt.Threshold, 'f', -1, 64),
			strconv.Itoa(pt.TruePositives),
			strconv.Itoa(pt.FalsePositives),
			strconv.Itoa(pt.TrueNegatives),
			strconv.Itoa(pt.FalseNegatives),
			strconv.FormatFloat(pt.Cost, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "calibrate: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "calibrate: flush CSV")
}

func writeCurveFile(path string, curve []domain.CurvePoint) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "calibrate: create %s", path)
	}
	if err := writeCurveCSV(f, curve); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "calibrate: close %s", path)
}

func writeCurveTable(w io.Writer, res domain.CalibrationResult) error {
	header := fmt.Sprintf("%-10s %8s %8s %8s %8s %14s\n",
		"Threshold", "TP", "FP", "TN", "FN", "Cost")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "calibrate: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 61)); err != nil {
		return eris.Wrap(err, "calibrate: write table separator")
	}

	for i, pt := range res.Curve {
		marker := ""
		if i == res.BestIndex {
			marker = "  <- best"
		}
		line := fmt.Sprintf("%-10.4g %8d %8d %8d %8d %14.2f%s\n",
			pt.Threshold, pt.TruePositives, pt.FalsePositives, pt.TrueNegatives, pt.FalseNegatives, pt.Cost, marker)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "calibrate: write table row")
		}
	}

	s := calibration.Summarize(res.Best())
	_, err := fmt.Fprintf(w,
		"\nbest threshold %.4g  total cost %.2f  samples %d  positives %d\nprecision %.4f  recall %.4f  f1 %.4f  fpr %.4f\n",
		res.Threshold, res.TotalCost, res.Samples, res.Positives,
		s.Precision, s.Recall, s.F1, s.FalsePositiveRate)
	return eris.Wrap(err, "calibrate: write summary")
}
