// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package diffexp

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pdiddy/expression-engine/pkg/types"
)

var csvHeader = []string{"gene", "log2_fc", "t_stat", "p_value", "adj_p", "cohen_d", "mean_a", "mean_b"}

// WriteCSV writes differential-expression results in rank order.
func WriteCSV(results []types.DEResult, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	record := make([]string, len(csvHeader))
	for _, r := range results {
		record[0] = r.Gene
		for k, v := range []float64{r.Log2FC, r.TStat, r.PValue, r.AdjP, r.CohenD, r.MeanA, r.MeanB} {
			record[k+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row for %s: %w", r.Gene, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSVFile loads a results CSV written by WriteCSV.
func ReadCSVFile(path string) ([]types.DEResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", path, err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("%s: unexpected header with %d fields", path, len(header))
	}

	var results []types.DEResult
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: %w", path, line, err)
		}
		vals := make([]float64, len(csvHeader)-1)
		for k := range vals {
			vals[k], err = strconv.ParseFloat(record[k+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: parsing %q: %w", path, line, record[k+1], err)
			}
		}
		results = append(results, types.DEResult{
			Gene: record[0], Log2FC: vals[0], TStat: vals[1], PValue: vals[2],
			AdjP: vals[3], CohenD: vals[4], MeanA: vals[5], MeanB: vals[6],
		})
	}
	return results, nil
}
