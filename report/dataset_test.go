package report

import (
	"errors"
	"reflect"
	"testing"
)

func TestDegraded(t *testing.T) {
	d := Degraded("123", errors.New("quota exceeded"))

	if !d.IsDegraded() {
		t.Fatal("expected degraded dataset")
	}
	if d.PropertyRef != "123" {
		t.Errorf("PropertyRef = %q, want 123", d.PropertyRef)
	}
	if d.Error != "quota exceeded" {
		t.Errorf("Error = %q", d.Error)
	}
	if len(d.Rows) != 0 || d.RowCount != 0 || len(d.Totals) != 0 || len(d.MetricHeaders) != 0 {
		t.Errorf("degraded dataset should be empty: %+v", d)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestDatasetValidate(t *testing.T) {
	tests := []struct {
		name    string
		dataset *Dataset
		wantErr bool
	}{
		{"nil", nil, true},
		{"count mismatch", &Dataset{Rows: []Row{{}}, RowCount: 2}, true},
		{"degraded with rows", &Dataset{Rows: []Row{{}}, RowCount: 1, Error: "boom"}, true},
		{"ok", &Dataset{Rows: []Row{{"a": 1}}, RowCount: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.dataset.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatasetAccessors(t *testing.T) {
	d := &Dataset{
		MetricHeaders: []MetricHeader{{Name: "sessions", Kind: KindInteger}, {Name: "activeUsers", Kind: KindInteger}},
		Rows:          []Row{{"a": 1}, {"a": 2}, {"a": 3}},
		RowCount:      3,
		Totals:        map[string]any{"sessions": 1, "activeUsers": 2},
	}

	if got := d.MetricNames(); !reflect.DeepEqual(got, []string{"sessions", "activeUsers"}) {
		t.Errorf("MetricNames() = %v", got)
	}
	if got := d.TotalNames(); !reflect.DeepEqual(got, []string{"activeUsers", "sessions"}) {
		t.Errorf("TotalNames() = %v", got)
	}
	if got := d.Head(2); len(got) != 2 {
		t.Errorf("Head(2) len = %d", len(got))
	}
	if got := d.Head(10); len(got) != 3 {
		t.Errorf("Head(10) len = %d", len(got))
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{int64(120), "120"},
		{120.0, "120"},
		{12.345, "12.35"},
		{"direct", "direct"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSectionHelpers(t *testing.T) {
	sections := []*Section{
		{Name: "Executive Summary"},
		{Name: "Traffic", RequiresResearch: true, Content: "done"},
		{Name: "Behavior", RequiresResearch: true},
	}

	if got := Pending(sections, true); len(got) != 1 || got[0].Name != "Behavior" {
		t.Errorf("Pending(research) = %v", got)
	}
	if got := Pending(sections, false); len(got) != 1 || got[0].Name != "Executive Summary" {
		t.Errorf("Pending(derived) = %v", got)
	}
	if got := Completed(sections); len(got) != 1 || got[0].Name != "Traffic" {
		t.Errorf("Completed() = %v", got)
	}
	if !AnyResearch(sections) {
		t.Error("AnyResearch() = false")
	}

	clone := CloneSections(sections)
	clone[0].Content = "changed"
	if sections[0].Content != "" {
		t.Error("CloneSections shares section pointers")
	}
}
