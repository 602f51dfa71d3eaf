package chartz

import "testing"

func sampleData() ChartData {
	return ChartData{
		Labels: []string{"a", "b", "c", "d"},
		Datasets: []Dataset{
			{Label: "first", Data: []float64{10, 20, 30, 40}},
			{Label: "second", Data: []float64{1, 2}, BackgroundColor: []string{"red"}},
		},
	}
}

func TestChartData_CloneIsDeep(t *testing.T) {
	orig := sampleData()
	cp := orig.Clone()

	cp.Labels[0] = "changed"
	cp.Datasets[0].Data[0] = 99
	cp.Datasets[1].BackgroundColor[0] = "blue"

	if orig.Labels[0] != "a" {
		t.Error("labels shared with clone")
	}
	if orig.Datasets[0].Data[0] != 10 {
		t.Error("data shared with clone")
	}
	if orig.Datasets[1].BackgroundColor[0] != "red" {
		t.Error("colors shared with clone")
	}
}

func TestChartData_Equal(t *testing.T) {
	a := sampleData()
	b := sampleData()
	if !a.Equal(b) {
		t.Error("expected identical data to be equal")
	}

	b.Datasets[0].Data[3] = 41
	if a.Equal(b) {
		t.Error("expected differing values to be unequal")
	}

	c := sampleData()
	c.Datasets[1].BorderColor = []string{"black"}
	if a.Equal(c) {
		t.Error("expected differing colors to be unequal")
	}
}

func TestDataset_Total(t *testing.T) {
	ds := Dataset{Data: []float64{10, 20, 30, 40}}
	if got := ds.Total(); got != 100 {
		t.Errorf("expected 100, got %v", got)
	}
	if got := (Dataset{}).Total(); got != 0 {
		t.Errorf("expected 0 for empty dataset, got %v", got)
	}
}

func TestChartData_Categories(t *testing.T) {
	d := ChartData{
		Labels:   []string{"a"},
		Datasets: []Dataset{{Data: []float64{1, 2, 3}}},
	}
	if got := d.Categories(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if d.Label(2) != "" || d.Label(0) != "a" {
		t.Error("unexpected label lookup")
	}
}
