package workflow

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		assumeYes bool
		want      bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "yes word any case", input: "YES\n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "empty defaults to no", input: "\n", want: false},
		{name: "eof declines", input: "", want: false},
		{name: "assume yes skips prompt", input: "", assumeYes: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out, tt.assumeYes)
			if got := p.Confirm("Proceed?"); got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if tt.assumeYes {
				if out.Len() != 0 {
					t.Errorf("assumeYes wrote a prompt: %q", out.String())
				}
				return
			}
			if !strings.Contains(out.String(), "Proceed? (y/N): ") {
				t.Errorf("prompt = %q, want it to contain the y/N question", out.String())
			}
		})
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIdx int
		wantOK  bool
		wantMsg string
	}{
		{name: "first option", input: "1\n", wantIdx: 0, wantOK: true},
		{name: "last option", input: "3\n", wantIdx: 2, wantOK: true},
		{name: "quit", input: "q\n", wantOK: false},
		{name: "quit uppercase", input: "Q\n", wantOK: false},
		{name: "eof quits", input: "", wantOK: false},
		{
			name:    "invalid then valid",
			input:   "abc\n2\n",
			wantIdx: 1,
			wantOK:  true,
			wantMsg: "Invalid input. Please enter a number or 'q' to quit.",
		},
		{
			name:    "out of range then valid",
			input:   "9\n1\n",
			wantIdx: 0,
			wantOK:  true,
			wantMsg: "Please enter a number between 1 and 3",
		},
		{
			name:    "zero is out of range",
			input:   "0\nq\n",
			wantOK:  false,
			wantMsg: "Please enter a number between 1 and 3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out, false)
			idx, ok := p.Select("Select baseline", 3)
			if ok != tt.wantOK {
				t.Fatalf("Select() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && idx != tt.wantIdx {
				t.Errorf("Select() idx = %d, want %d", idx, tt.wantIdx)
			}
			if !strings.Contains(out.String(), "Select baseline (1-3), or 'q' to quit: ") {
				t.Errorf("prompt = %q, want the numbered question", out.String())
			}
			if tt.wantMsg != "" && !strings.Contains(out.String(), tt.wantMsg) {
				t.Errorf("output %q missing %q", out.String(), tt.wantMsg)
			}
		})
	}
}

// Selection is a real choice, so assumeYes must not auto-pick an option.
func TestSelectIgnoresAssumeYes(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("2\n"), &out, true)
	idx, ok := p.Select("Select baseline", 3)
	if !ok || idx != 1 {
		t.Errorf("Select() = (%d, %v), want (1, true)", idx, ok)
	}
	if !strings.Contains(out.String(), "Select baseline (1-3)") {
		t.Errorf("assumeYes suppressed the selection prompt: %q", out.String())
	}
}
