package filtertest

import (
	"fmt"
	"strings"
)

// Verify checks every record against the chain that produced it.
//
// A field complies when the filter value is a case-insensitive substring of
// it. This accepts display variants such as codes embedded in labels, and it
// also lets a short value like "North" match any field containing it.
func Verify(records []Record, chain Chain) VerificationReport {
	report := VerificationReport{
		TotalRecords:     len(records),
		InvalidRecords:   []InvalidRecord{},
		FilterCompliance: make(map[Dimension]Compliance, NumDimensions),
	}

	var compliant [NumDimensions]int

	for _, record := range records {
		var issues []string
		for _, d := range Dimensions {
			expected := chain.Get(d)
			actual := strings.TrimSpace(record.Field(d))
			if matches(actual, expected) {
				compliant[d]++
				continue
			}
			issues = append(issues, fmt.Sprintf("%s: expected '%s', got '%s'", d, expected, actual))
		}

		if len(issues) == 0 {
			report.ValidRecords++
			continue
		}
		report.InvalidRecords = append(report.InvalidRecords, InvalidRecord{
			Record: record,
			Issues: issues,
		})
	}

	total := len(records)
	for _, d := range Dimensions {
		c := Compliance{Compliant: compliant[d], Total: total}
		if total > 0 {
			c.Percentage = float64(compliant[d]) / float64(total) * 100
		}
		report.FilterCompliance[d] = c
	}

	return report
}

func matches(field, value string) bool {
	return strings.Contains(strings.ToLower(field), strings.ToLower(value))
}
