package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wyfcoding/pmergeme/harness"
)

// formatPreview 输出 label 加空格分隔的元素，超过 limit 个时截断并追加 " [...]"。limit <= 0 不截断。
func formatPreview(label string, values []uint32, limit int) string {
	var sb strings.Builder
	sb.WriteString(label)
	for i, v := range values {
		if limit > 0 && i == limit {
			sb.WriteString(" [...]")
			break
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	}
	return sb.String()
}

func printTimings(w io.Writer, report *harness.Report) {
	for _, v := range report.Variants {
		us := float64(v.Duration.Nanoseconds()) / 1e3
		fmt.Fprintf(w, "Time to process a range of %d elements with %-5s : %.5f us\n", report.Size, v.Backing, us)
	}
}

func printComparisons(w io.Writer, report *harness.Report) {
	fmt.Fprintf(w, "Size of Container: %d\n", report.Size)
	fmt.Fprintf(w, "Maximum Comparison: %d\n", report.MaxComparisons)
	fmt.Fprintf(w, "Information Bound: %d\n", report.InformationBound)
	fmt.Fprintf(w, "Inversions: %d\n", report.Inversions)
	for _, v := range report.Variants {
		fmt.Fprintf(w, "Comparisons with %-5s : %d\n", v.Backing, v.Comparisons)
	}
	if report.RunID != "" {
		fmt.Fprintf(w, "Run ID: %s\n", report.RunID)
	}
}
