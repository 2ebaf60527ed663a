package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestReadLines(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"read all (0)", 0, expectedAll},
		{"read all (negative)", -1, expectedAll},
		{"read partial (5)", 5, expectedAll[5:]},
		{"read exactly all (10)", 10, expectedAll},
		{"read more than exists (20)", 20, expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readLines(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("readLines() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("readLines() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "missing.log"), 10)
	if err != nil || entries != nil {
		t.Fatalf("Read = %v, %v, want nil, nil", entries, err)
	}
}

func TestRead_ParsesTail(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "easel.log")
	content := strings.Join([]string{
		`{"level":"info","component":"session","time":"2026-10-19T12:00:00Z","message":"first"}`,
		``,
		`{"level":"warn","component":"poller","key":"job-1","time":"2026-10-19T12:00:01Z","message":"status poll failed"}`,
		`{"level":"info","component":"session","job":"job-1","hash":"abc","time":"2026-10-19T12:00:02Z","message":"job submitted"}`,
	}, "\n") + "\n"
	if err := os.WriteFile(logPath, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := Read(logPath, 3)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (blank line skipped)", len(entries))
	}
	last := entries[1]
	if last.Level != "info" || last.Message != "job submitted" {
		t.Fatalf("last = %#v", last)
	}
	if !last.Time.Equal(time.Date(2026, 10, 19, 12, 0, 2, 0, time.UTC)) {
		t.Fatalf("Time = %v", last.Time)
	}
	if got := last.FieldString(); got != "component=session hash=abc job=job-1" {
		t.Fatalf("FieldString = %q", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Entry
	}{
		{
			name: "plain text",
			line: "panic: something broke",
			want: Entry{Message: "panic: something broke", Raw: "panic: something broke"},
		},
		{
			name: "numeric field",
			line: `{"level":"debug","failures":3,"message":"health ping failed"}`,
			want: Entry{
				Level:   "debug",
				Message: "health ping failed",
				Fields:  map[string]string{"failures": "3"},
				Raw:     `{"level":"debug","failures":3,"message":"health ping failed"}`,
			},
		},
		{
			name: "unparseable time kept as field",
			line: `{"time":"yesterday","message":"x"}`,
			want: Entry{
				Message: "x",
				Fields:  map[string]string{"time": "yesterday"},
				Raw:     `{"time":"yesterday","message":"x"}`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
