package calibration

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
)

// Dataset is a labelled validation set, matched pairwise by index.
type Dataset struct {
	Probabilities []float64
	Labels        []int
}

// ReadCSV reads a validation set with a "probability,label" header.
// Column order is taken from the header; extra columns are ignored.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "calibration: read csv header")
	}
	probCol, labelCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "probability":
			probCol = i
		case "label":
			labelCol = i
		}
	}
	if probCol < 0 || labelCol < 0 {
		return nil, eris.Wrapf(domain.ErrInvalidInput,
			"calibration: csv header must contain probability and label columns (got %v)", header)
	}

	ds := &Dataset{}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "calibration: read csv line %d", line)
		}

		p, err := strconv.ParseFloat(strings.TrimSpace(rec[probCol]), 64)
		if err != nil {
			return nil, eris.Wrapf(domain.ErrInvalidInput, "calibration: line %d: bad probability %q", line, rec[probCol])
		}
		l, err := strconv.Atoi(strings.TrimSpace(rec[labelCol]))
		if err != nil {
			return nil, eris.Wrapf(domain.ErrInvalidInput, "calibration: line %d: bad label %q", line, rec[labelCol])
		}
		ds.Probabilities = append(ds.Probabilities, p)
		ds.Labels = append(ds.Labels, l)
	}
	return ds, nil
}

// WriteCSV writes the dataset with a "probability,label" header.
func WriteCSV(w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"probability", "label"}); err != nil {
		return eris.Wrap(err, "calibration: write csv header")
	}
	for i, p := range ds.Probabilities {
		row := []string{
			strconv.FormatFloat(p, 'f', -1, 64),
			strconv.Itoa(ds.Labels[i]),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "calibration: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "calibration: flush csv")
}
