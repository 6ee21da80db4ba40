package pivot

import (
	"strings"
	"sync"
	"testing"
)

func TestFilterVerifier_Verify(t *testing.T) {
	v := NewFilterVerifier("", "")

	tests := []struct {
		name       string
		rows       [][]string
		wantOK     bool
		wantStatus FilterStatus
		wantInMsg  string
	}{
		{
			name:       "blank sentinel passes",
			rows:       [][]string{{"Escludi", "(blank)"}, {}, {"Row Labels", "Sum of Importo"}},
			wantOK:     true,
			wantStatus: FilterPass,
		},
		{
			name:       "sentinel compared case-insensitively",
			rows:       [][]string{{"ESCLUDI", "(Blank)"}},
			wantOK:     true,
			wantStatus: FilterPass,
		},
		{
			name:       "other value fails and is named",
			rows:       [][]string{{"Escludi", "TipoX"}},
			wantOK:     false,
			wantStatus: FilterFail,
			wantInMsg:  "TipoX",
		},
		{
			name:       "marker in a later column",
			rows:       [][]string{{"", "", "Escludi", "(Multiple Items)"}},
			wantOK:     false,
			wantStatus: FilterFail,
			wantInMsg:  "(Multiple Items)",
		},
		{
			name:       "missing adjacent cell",
			rows:       [][]string{{"Escludi"}},
			wantOK:     false,
			wantStatus: FilterFail,
			wantInMsg:  "filter value not found",
		},
		{
			name:       "empty adjacent cell",
			rows:       [][]string{{"Escludi", "  "}},
			wantOK:     false,
			wantStatus: FilterFail,
			wantInMsg:  "filter value not found",
		},
		{
			name:       "no marker is an advisory",
			rows:       [][]string{{"Row Labels", "Sum of Importo"}, {"Casa", "-800"}},
			wantOK:     true,
			wantStatus: FilterWarn,
			wantInMsg:  "no \"esclud\" filter found",
		},
		{
			name: "marker below the scan window is ignored",
			rows: [][]string{
				{"a"}, {"b"}, {"c"}, {"d"}, {"e"},
				{"Escludi", "TipoX"},
			},
			wantOK:     true,
			wantStatus: FilterWarn,
		},
		{
			name:       "empty sheet",
			rows:       nil,
			wantOK:     true,
			wantStatus: FilterWarn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Verify(tt.rows)
			if got.OK != tt.wantOK || got.Status != tt.wantStatus {
				t.Fatalf("got ok=%v status=%s msg=%q, want ok=%v status=%s", got.OK, got.Status, got.Message, tt.wantOK, tt.wantStatus)
			}
			if tt.wantInMsg != "" && !strings.Contains(got.Message, tt.wantInMsg) {
				t.Fatalf("message %q does not contain %q", got.Message, tt.wantInMsg)
			}
			if got.Status == FilterPass && got.Message != "" {
				t.Fatalf("pass should carry no message, got %q", got.Message)
			}
		})
	}
}

func TestFoldLabel_Concurrent(t *testing.T) {
	inputs := []string{"  Escludì ", "GRAND TOTAL", "Città", "Totale complessivo"}
	want := make([]string, len(inputs))
	for i, in := range inputs {
		want[i] = foldLabel(in)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 8*len(inputs))
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				i := n % len(inputs)
				if got := foldLabel(inputs[i]); got != want[i] {
					errs <- got
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Fatalf("concurrent foldLabel returned %q", got)
	}
}

func TestFoldLabel(t *testing.T) {
	cases := map[string]string{
		"  Escludì ": "escludi",
		"GRAND TOTAL": "grand total",
		"Città":       "citta",
		"":            "",
	}
	for in, want := range cases {
		if got := foldLabel(in); got != want {
			t.Fatalf("foldLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
