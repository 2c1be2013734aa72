package fdtmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAccumulate(t *testing.T) {
	before := testutil.ToFloat64(NodesParsed)
	NodesParsed.Add(3)
	if got := testutil.ToFloat64(NodesParsed); got != before+3 {
		t.Fatalf("NodesParsed = %v, want %v", got, before+3)
	}
}

func TestParseErrorsLabeled(t *testing.T) {
	ParseErrors.WithLabelValues("format-invalid").Inc()
	if got := testutil.ToFloat64(ParseErrors.WithLabelValues("format-invalid")); got < 1 {
		t.Fatalf("ParseErrors{kind=format-invalid} = %v, want >= 1", got)
	}
}
