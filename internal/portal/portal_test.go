package portal

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const sampleCSV = `Tissue Sample ID,Tissue,Sex,Pathology Notes
GTEX-AAAA-0526,Breast - Mammary Tissue,female,clean
GTEX-BBBB-0326,Breast - Mammary Tissue,male,clean
GTEX-CCCC-1126,Liver,female,steatosis
GTEX-DDDD-0726,breast - mammary tissue,F,minor
GTEX-AAAA-0526,Breast - Mammary Tissue,female,duplicate row
GTEX-EEEE-0926,Breast - Mammary Tissue,Female,clean
`

func TestPrepareFiltersTissueAndSex(t *testing.T) {
	p, err := Prepare(strings.NewReader(sampleCSV), Options{Sex: "female"})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	want := []string{"GTEX-AAAA-0526", "GTEX-DDDD-0726", "GTEX-EEEE-0926"}
	if len(p.IDs) != len(want) {
		t.Fatalf("IDs = %v, want %v", p.IDs, want)
	}
	for i, id := range want {
		if p.IDs[i] != id {
			t.Errorf("IDs[%d] = %s, want %s", i, p.IDs[i], id)
		}
	}

	for i, u := range p.URLs {
		if u != DefaultBaseURL+p.IDs[i] {
			t.Errorf("URL %d = %s", i, u)
		}
	}
}

func TestPrepareWithoutSexFilter(t *testing.T) {
	p, err := Prepare(strings.NewReader(sampleCSV), Options{})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Male row kept, liver row still excluded.
	if len(p.IDs) != 4 {
		t.Errorf("IDs = %v, want 4 specimens", p.IDs)
	}
}

func TestPrepareMaxCap(t *testing.T) {
	p, err := Prepare(strings.NewReader(sampleCSV), Options{Sex: "female", Max: 2})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(p.IDs) != 2 || len(p.URLs) != 2 {
		t.Errorf("got %d IDs, want 2", len(p.IDs))
	}
}

func TestPrepareCustomBaseURL(t *testing.T) {
	p, err := Prepare(strings.NewReader(sampleCSV), Options{
		Sex:     "female",
		BaseURL: "https://mirror.example.org/wsi/",
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !strings.HasPrefix(p.URLs[0], "https://mirror.example.org/wsi/GTEX-") {
		t.Errorf("URL = %s", p.URLs[0])
	}
}

func TestPrepareDetectsAlternateColumnNames(t *testing.T) {
	csv := `tissue_type,Gender,Specimen ID
Breast - Mammary Tissue,F,GTEX-ZZZZ-0126
Liver,F,GTEX-YYYY-0226
`
	p, err := Prepare(strings.NewReader(csv), Options{Sex: "female"})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(p.IDs) != 1 || p.IDs[0] != "GTEX-ZZZZ-0126" {
		t.Errorf("IDs = %v", p.IDs)
	}
}

func TestPrepareSniffsIDColumn(t *testing.T) {
	csv := `Tissue,Sex,Code
Breast - Mammary Tissue,female,GTEX-QQQQ-0126
`
	p, err := Prepare(strings.NewReader(csv), Options{Sex: "female"})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(p.IDs) != 1 || p.IDs[0] != "GTEX-QQQQ-0126" {
		t.Errorf("IDs = %v", p.IDs)
	}
}

func TestPrepareErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		opts Options
		want error
	}{
		{
			name: "no tissue column",
			csv:  "Sex,ID\nfemale,GTEX-AAAA-0526\n",
			want: ErrNoTissueColumn,
		},
		{
			name: "no matching tissue",
			csv:  "Tissue,Sex\nLiver,female\n",
			want: ErrNoRows,
		},
		{
			name: "no sex column",
			csv:  "Tissue,ID\nBreast - Mammary Tissue,GTEX-AAAA-0526\n",
			opts: Options{Sex: "female"},
			want: ErrNoSexColumn,
		},
		{
			name: "no matching sex",
			csv:  "Tissue,Sex\nBreast - Mammary Tissue,male\n",
			opts: Options{Sex: "female"},
			want: ErrNoRows,
		},
		{
			name: "no id column",
			csv:  "Tissue,Sex,Notes\nBreast - Mammary Tissue,female,clean\n",
			opts: Options{Sex: "female"},
			want: ErrNoIDColumn,
		},
		{
			name: "header only",
			csv:  "Tissue,Sex,ID\n",
			want: ErrNoRows,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(strings.NewReader(tt.csv), tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("Prepare error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWriteOutputs(t *testing.T) {
	p, err := Prepare(strings.NewReader(sampleCSV), Options{Sex: "female"})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	var urls bytes.Buffer
	if err := p.WriteURLList(&urls); err != nil {
		t.Fatalf("WriteURLList: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(urls.String()), "\n")
	if len(lines) != len(p.URLs) {
		t.Errorf("url list has %d lines, want %d", len(lines), len(p.URLs))
	}

	var meta bytes.Buffer
	if err := p.WriteMetadata(&meta); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	out := meta.String()
	if !strings.HasPrefix(out, "Tissue Sample ID,Tissue,Sex,Pathology Notes\n") {
		t.Errorf("metadata missing header:\n%s", out)
	}
	if strings.Contains(out, "Liver") {
		t.Error("metadata still contains filtered-out rows")
	}
}
