package main

import (
	"testing"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantInputs []string
		check      func(t *testing.T, f *cliFlags)
	}{
		{
			name:       "defaults",
			args:       []string{"office2pdf", "a.docx"},
			wantInputs: []string{"a.docx"},
			check: func(t *testing.T, f *cliFlags) {
				if f.workers != 0 || f.output != "" || f.verbose || f.quiet {
					t.Errorf("unexpected non-default flags: %+v", f)
				}
			},
		},
		{
			name:       "short flags",
			args:       []string{"office2pdf", "-o", "out", "-w", "3", "-v", "a.docx", "b.xlsx"},
			wantInputs: []string{"a.docx", "b.xlsx"},
			check: func(t *testing.T, f *cliFlags) {
				if f.output != "out" {
					t.Errorf("output = %q, want out", f.output)
				}
				if f.workers != 3 {
					t.Errorf("workers = %d, want 3", f.workers)
				}
				if !f.verbose {
					t.Error("verbose = false")
				}
			},
		},
		{
			name:       "long flags",
			args:       []string{"office2pdf", "--cache-dir", "/tmp/cc", "--soffice-bin", "/opt/soffice", "--timeout", "90s", "a.md"},
			wantInputs: []string{"a.md"},
			check: func(t *testing.T, f *cliFlags) {
				if f.cacheDir != "/tmp/cc" {
					t.Errorf("cacheDir = %q", f.cacheDir)
				}
				if f.sofficeBin != "/opt/soffice" {
					t.Errorf("sofficeBin = %q", f.sofficeBin)
				}
				if f.timeout != "90s" {
					t.Errorf("timeout = %q", f.timeout)
				}
			},
		},
		{
			name:       "version without inputs",
			args:       []string{"office2pdf", "--version"},
			wantInputs: []string{},
			check: func(t *testing.T, f *cliFlags) {
				if !f.version {
					t.Error("version = false")
				}
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, inputs, err := parseFlags(tt.args)
			if err != nil {
				t.Fatalf("parseFlags() error = %v", err)
			}
			if len(inputs) != len(tt.wantInputs) {
				t.Fatalf("inputs = %v, want %v", inputs, tt.wantInputs)
			}
			for i := range inputs {
				if inputs[i] != tt.wantInputs[i] {
					t.Fatalf("inputs = %v, want %v", inputs, tt.wantInputs)
				}
			}
			tt.check(t, f)
		})
	}
}

func TestParseFlags_UnknownFlag(t *testing.T) {
	t.Parallel()

	if _, _, err := parseFlags([]string{"office2pdf", "--no-such-flag"}); err == nil {
		t.Error("parseFlags() with unknown flag: want error, got nil")
	}
}
