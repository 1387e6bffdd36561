package cmd

import (
	"strings"
	"testing"

	"github.com/muammer-kilic/zabbix/internal/diag"
)

func TestParseDiagArgs_SectionsOnly(t *testing.T) {
	req, err := parseDiagArgs([]string{"historycache", "runtime"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(req.Sections))
	}
	// Bare section names request the default field set.
	if req.Sections["historycache"] != nil {
		t.Errorf("expected nil request for bare section name")
	}
}

func TestParseDiagArgs_WithFields(t *testing.T) {
	req, err := parseDiagArgs([]string{"historycache=items, values"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	section := req.Sections["historycache"]
	if section == nil {
		t.Fatal("expected explicit section request")
	}
	if len(section.Stats) != 2 || section.Stats[0] != "items" || section.Stats[1] != "values" {
		t.Errorf("unexpected stats: %v", section.Stats)
	}
}

func TestParseDiagArgs_StatsFlagAppliesToBareSections(t *testing.T) {
	diagStats = []string{"items"}
	defer func() { diagStats = nil }()

	req, err := parseDiagArgs([]string{"historycache", "valuecache=hits"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := req.Sections["historycache"]; got == nil || len(got.Stats) != 1 || got.Stats[0] != "items" {
		t.Errorf("expected --stats fields for bare section, got %+v", got)
	}
	// An explicit field list wins over --stats.
	if got := req.Sections["valuecache"]; got == nil || len(got.Stats) != 1 || got.Stats[0] != "hits" {
		t.Errorf("expected explicit fields to win, got %+v", got)
	}
}

func TestParseDiagArgs_EmptySectionName(t *testing.T) {
	if _, err := parseDiagArgs([]string{"=items"}); err == nil {
		t.Error("expected error for empty section name")
	}
}

func TestRunDiag_CollectsLocalSections(t *testing.T) {
	collector := newLocalCollector()
	doc, err := collector.CollectAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Len() != 4 {
		t.Fatalf("expected 4 sections, got %d", doc.Len())
	}
	// Runtime stats come from the live process.
	section, ok := doc.Section(diag.SectionRuntime)
	if !ok {
		t.Fatal("runtime section missing")
	}
	for _, stat := range section.Fields {
		if stat.Name == "goroutines" && stat.Value == 0 {
			t.Error("goroutine count should never be zero")
		}
	}
}

func TestDiagErrorWithHint_Section(t *testing.T) {
	collector := newLocalCollector()
	_, err := collector.Collect(diag.Request{Sections: map[string]*diag.SectionRequest{
		"historycach": nil,
	}})
	if err == nil {
		t.Fatal("expected error for misspelled section")
	}

	hinted := diagErrorWithHint(err)
	if !strings.Contains(hinted.Error(), `did you mean "historycache"`) {
		t.Errorf("expected suggestion in %q", hinted.Error())
	}
}

func TestDiagErrorWithHint_Field(t *testing.T) {
	collector := newLocalCollector()
	_, err := collector.Collect(diag.Request{Sections: map[string]*diag.SectionRequest{
		"historycache": {Stats: []string{"valus"}},
	}})
	if err == nil {
		t.Fatal("expected error for misspelled field")
	}

	hinted := diagErrorWithHint(err)
	if !strings.Contains(hinted.Error(), `did you mean "values"`) {
		t.Errorf("expected suggestion in %q", hinted.Error())
	}
}

func TestDiagErrorWithHint_PassthroughPlainErrors(t *testing.T) {
	err := errTest("boom")
	if got := diagErrorWithHint(err); got != err {
		t.Errorf("plain errors must pass through unchanged")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestRootCmd_Structure(t *testing.T) {
	if rootCmd.Use != "zabbix" {
		t.Errorf("expected 'zabbix', got '%s'", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected non-empty short description")
	}

	names := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "diag", "version"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}
