package metrics

import "testing"

func TestNoOpCollectorIsSafe(t *testing.T) {
	var c Collector = NoOpCollector{}
	c.RecordLookup("hit")
	c.RecordAdmission(false, "no-store")
	c.RecordWriter("abort", 42)
}
