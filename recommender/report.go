package recommender

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteRecommendationsCSV writes rank, name, score and token columns. The placeholder
// row is written as-is so an empty result is still visible to the reader.
func WriteRecommendationsCSV(w io.Writer, recs []Recommendation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "name", "score", "token_id"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range recs {
		token := ""
		if !r.Placeholder {
			token = strconv.Itoa(r.TokenID)
		}
		record := []string{
			strconv.Itoa(i + 1),
			r.Name,
			strconv.FormatFloat(r.Score, 'f', 4, 64),
			token,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
