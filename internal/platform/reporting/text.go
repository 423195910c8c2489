package reporting

import (
	"fmt"
	"io"
	"strings"
)

var (
	heavyRule = strings.Repeat("=", 60)
	lightRule = strings.Repeat("-", 40)
)

// WriteText renders r as the plain-text export document.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder

	b.WriteString("AFYALINK E-REFERRAL SYSTEM\n")
	fmt.Fprintf(&b, "%s REPORT\n", strings.ToUpper(r.Type))
	fmt.Fprintf(&b, "Generated: %s\n", FormatTime(r.GeneratedAt))
	fmt.Fprintf(&b, "Period: %s to %s\n", r.Query.Start.Format(dateLayout), r.Query.End.Format(dateLayout))
	status := r.Query.Status
	if status == "" {
		status = StatusAll
	}
	fmt.Fprintf(&b, "Status Filter: %s\n", status)
	fmt.Fprintf(&b, "\n%s\n\n", heavyRule)

	b.WriteString("SUMMARY\n")
	fmt.Fprintf(&b, "Total Records: %d\n\n", len(r.Records))

	if len(r.Records) > 0 {
		b.WriteString("DETAILED RECORDS\n")
		fmt.Fprintf(&b, "%s\n\n", heavyRule)

		for i, rec := range r.Records {
			fmt.Fprintf(&b, "Record %d\n", i+1)
			for j, col := range r.Columns {
				var v string
				if j < len(rec) {
					v = rec[j]
				}
				fmt.Fprintf(&b, "%s: %s\n", col, v)
			}
			fmt.Fprintf(&b, "\n%s\n\n", lightRule)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
