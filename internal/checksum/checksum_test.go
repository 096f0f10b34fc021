package checksum

import "testing"

func TestSum(t *testing.T) {
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(""); got != empty {
		t.Errorf("Sum(\"\") = %s", got)
	}
	if Sum("a") == Sum("b") {
		t.Error("different blobs share a digest")
	}
}

func TestTracker(t *testing.T) {
	var tr Tracker
	if !tr.Changed("[]") {
		t.Error("fresh tracker should report a change")
	}
	tr.Remember("[]")
	if tr.Changed("[]") {
		t.Error("same blob reported as changed")
	}
	if !tr.Changed(`[{"id":"1"}]`) {
		t.Error("different blob not reported")
	}
}
