package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"853400000V", "853400000V"},
		{"  853400000V  ", "853400000V"},
		{`="853400000V"`, "853400000V"},
		{"=853400000V", "853400000V"},
		{`"853400000V"`, "853400000V"},
		{"'199023400001", "199023400001"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.in); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Name", " NIC ", "nic", "City"})

	if idx["nic"] != 1 {
		t.Errorf("nic index = %d, want 1 (first occurrence)", idx["nic"])
	}
	if idx["name"] != 0 {
		t.Errorf("name index = %d, want 0", idx["name"])
	}
	if _, ok := idx["City"]; ok {
		t.Error("keys should be lowercased")
	}
}

type scannedRow struct {
	line int
	id   string
}

func scanAll(t *testing.T, input string) ([]scannedRow, error) {
	t.Helper()
	var rows []scannedRow
	err := scanIdentifiers(context.Background(), strings.NewReader(input), func(line int, id string) {
		rows = append(rows, scannedRow{line, id})
	})
	return rows, err
}

func TestScanIdentifiers(t *testing.T) {
	rows, err := scanAll(t, "name,NIC\nA,853400000V\n\nB,=\"199023400001\"\nC\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []scannedRow{
		{2, "853400000V"},
		{4, "199023400001"},
		{5, ""}, // short row
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(rows), len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestScanIdentifiers_HeaderAliases(t *testing.T) {
	for _, header := range []string{"nic", "NIC_Number", "NIC Number", "nic no"} {
		rows, err := scanAll(t, header+"\n853400000V\n")
		if err != nil {
			t.Errorf("header %q: unexpected error: %v", header, err)
			continue
		}
		if len(rows) != 1 {
			t.Errorf("header %q: got %d rows, want 1", header, len(rows))
		}
	}
}

func TestScanIdentifiers_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty file", input: "", wantErr: ErrEmptyFile},
		{name: "missing column", input: "name,city\nA,B\n", wantErr: ErrMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scanAll(t, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestScanIdentifiers_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := scanIdentifiers(ctx, strings.NewReader("nic\n853400000V\n"), func(int, string) { called = true })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Error("callback ran after cancellation")
	}
}
