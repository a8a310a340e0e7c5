package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// ErrMissingColumn is returned when the owners file lacks the valuation column.
var ErrMissingColumn = errors.New("required column missing")

var (
	valuationColumns = []string{"lvnumber", "valuationnumber", "valnumber", "lvno"}
	nameColumns      = []string{"ownername", "name", "owner", "owners"}
	landValueColumns = []string{"landvalue", "value", "assessedvalue"}
)

// normalizeHeader lower-cases a header and drops everything but letters and digits.
func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func findColumn(header []string, names []string) int {
	for _, want := range names {
		for i, h := range header {
			if normalizeHeader(h) == want {
				return i
			}
		}
	}
	return -1
}

// ParseOwners reads the owner/valuation CSV. The first row is a header; the
// valuation number column is required, name and land value are optional.
func ParseOwners(r io.Reader) ([]models.Owner, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []models.Owner{}, nil
		}
		return nil, fmt.Errorf("failed to read owners header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	keyCol := findColumn(header, valuationColumns)
	if keyCol < 0 {
		return nil, fmt.Errorf("%w: valuation number", ErrMissingColumn)
	}
	nameCol := findColumn(header, nameColumns)
	valueCol := findColumn(header, landValueColumns)

	owners := []models.Owner{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read owners line %d: %w", line, err)
		}

		o := models.Owner{ValuationNumber: field(rec, keyCol)}
		if o.ValuationNumber == "" {
			continue
		}
		o.Name = field(rec, nameCol)
		if v, ok := parseMoney(field(rec, valueCol)); ok {
			o.LandValue = &v
		}
		owners = append(owners, o)
	}
	return owners, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// parseMoney accepts values such as "1,250,000" or "$80000.50".
func parseMoney(s string) (float64, bool) {
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}
