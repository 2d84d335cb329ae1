package auditlog

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
)

func TestLastStatusMissingFile(t *testing.T) {
	log := New(t.TempDir())
	if got := log.LastStatus("spotify"); got != StatusNoLogs {
		t.Fatalf("expected %q for missing file, got %q", StatusNoLogs, got)
	}
}

func TestLastStatusEmptyFile(t *testing.T) {
	log := New(t.TempDir())
	if err := os.WriteFile(log.Path("spotify"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := log.LastStatus("spotify"); got != StatusEmpty {
		t.Fatalf("expected %q for empty file, got %q", StatusEmpty, got)
	}
}

func TestLastStatusMalformedLine(t *testing.T) {
	log := New(t.TempDir())
	if err := os.WriteFile(log.Path("spotify"), []byte("{broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := log.LastStatus("spotify"); got != StatusParseError {
		t.Fatalf("expected %q for malformed line, got %q", StatusParseError, got)
	}
}

func TestLastStatusReadsFinalLine(t *testing.T) {
	log := New(t.TempDir())
	if err := os.WriteFile(log.Path("spotify"), []byte(`{"status":"ok"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := log.LastStatus("spotify"); got != "ok" {
		t.Fatalf("expected ok, got %q", got)
	}
}

func TestAppendIsAppendOnly(t *testing.T) {
	log := New(t.TempDir())

	first := Record{Platform: "audiomack", AssetID: "ep1", AccountID: 1, Status: "success"}
	second := Record{Platform: "audiomack", AssetID: "ep2", AccountID: 1, Status: "error", Error: "timeout"}
	if err := log.Append("audiomack", first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append("audiomack", second); err != nil {
		t.Fatalf("append: %v", err)
	}

	file, err := os.Open(log.Path("audiomack"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record Record
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("each line must be a standalone JSON object: %v", err)
		}
		records = append(records, record)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(records))
	}
	if records[0].AssetID != "ep1" || records[1].AssetID != "ep2" {
		t.Fatalf("append order violated: %+v", records)
	}
	if records[1].Timestamp == "" {
		t.Fatal("expected timestamp to be stamped on append")
	}

	if got := log.LastStatus("audiomack"); got != "error" {
		t.Fatalf("last line should win, got %q", got)
	}
}

func TestLastStatusSkipsTrailingBlankLines(t *testing.T) {
	log := New(t.TempDir())
	content := `{"status":"success"}` + "\n\n\n"
	if err := os.WriteFile(log.Path("apple"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := log.LastStatus("apple"); got != "success" {
		t.Fatalf("expected success, got %q", got)
	}
}

func TestLastStatusMissingStatusField(t *testing.T) {
	log := New(t.TempDir())
	if err := os.WriteFile(log.Path("apple"), []byte(`{"platform":"apple"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := log.LastStatus("apple"); got != StatusUnknown {
		t.Fatalf("expected %q, got %q", StatusUnknown, got)
	}
}
