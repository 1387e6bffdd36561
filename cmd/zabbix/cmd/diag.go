package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/muammer-kilic/zabbix/internal/core"
	"github.com/muammer-kilic/zabbix/internal/diag"
	"github.com/muammer-kilic/zabbix/internal/fsutil"
	"github.com/muammer-kilic/zabbix/internal/historycache"
	"github.com/muammer-kilic/zabbix/internal/logging"
	"github.com/muammer-kilic/zabbix/internal/selfmon"
	"github.com/muammer-kilic/zabbix/internal/valuecache"
)

var diagCmd = &cobra.Command{
	Use:   "diag [section[=field,field...]]...",
	Short: "Collect diagnostics once and print the document",
	Long: `Collect diagnostic information from the local subsystems and print
the assembled JSON document.

Sections are named positionally; an optional =field,field suffix selects
specific fields. Without arguments every section is collected with its
default field set.

Examples:
  # All sections, default fields
  zabbix diag

  # One section, specific fields
  zabbix diag historycache=items,values
  zabbix diag historycache --stats items,values

  # Everything, every field
  zabbix diag --all

  # Write atomically to a file
  zabbix diag --all --output diag.json`,
	RunE: runDiag,
}

var (
	diagAll    bool
	diagStats  []string
	diagOutput string
	diagPretty bool
)

func init() {
	rootCmd.AddCommand(diagCmd)

	diagCmd.Flags().BoolVar(&diagAll, "all", false,
		"Collect every field of every requested section")
	diagCmd.Flags().StringSliceVar(&diagStats, "stats", nil,
		"Fields to collect for sections named without an explicit field list")
	diagCmd.Flags().StringVarP(&diagOutput, "output", "o", "",
		"Write the document to a file instead of stdout")
	diagCmd.Flags().BoolVar(&diagPretty, "pretty", true,
		"Indent the JSON output")
}

func runDiag(_ *cobra.Command, args []string) error {
	req, err := parseDiagArgs(args)
	if err != nil {
		return err
	}

	collector := newLocalCollector()

	var doc *diag.Document
	if len(req.Sections) == 0 {
		if diagAll {
			doc, err = collector.CollectAll()
		} else {
			// Default field set for every registered section.
			all := diag.Request{Sections: map[string]*diag.SectionRequest{}}
			for _, name := range diag.SectionNames() {
				all.Sections[name] = nil
			}
			doc, err = collector.Collect(all)
		}
	} else {
		doc, err = collector.Collect(req)
	}
	if err != nil {
		return diagErrorWithHint(err)
	}

	var data []byte
	if diagPretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	if diagOutput != "" {
		if err := fsutil.AtomicWriteFile(diagOutput, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", diagOutput, err)
		}
		return nil
	}

	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

// parseDiagArgs turns "section=field,field" arguments into a request.
func parseDiagArgs(args []string) (diag.Request, error) {
	req := diag.Request{Sections: map[string]*diag.SectionRequest{}}
	for _, arg := range args {
		name, fieldList, hasFields := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return req, fmt.Errorf("empty section name in %q", arg)
		}

		switch {
		case diagAll:
			req.Sections[name] = &diag.SectionRequest{Stats: []string{"all"}}
		case hasFields:
			var stats []string
			for _, f := range strings.Split(fieldList, ",") {
				if f = strings.TrimSpace(f); f != "" {
					stats = append(stats, f)
				}
			}
			req.Sections[name] = &diag.SectionRequest{Stats: stats}
		case len(diagStats) > 0:
			req.Sections[name] = &diag.SectionRequest{Stats: diagStats}
		default:
			req.Sections[name] = nil
		}
	}
	return req, nil
}

// newLocalCollector wires the in-process subsystems for a one-shot run.
// Cache sections report empty counters; runtime and system sections carry
// live values.
func newLocalCollector() *diag.Collector {
	nop := logging.NewNop()

	collector := diag.NewCollector()
	_ = collector.Register(diag.SectionHistoryCache, historycache.New(historycache.DefaultConfig(), nop.Logger))
	_ = collector.Register(diag.SectionValueCache, valuecache.New(valuecache.DefaultConfig()))
	_ = collector.Register(diag.SectionRuntime, selfmon.NewRuntimeProvider())
	_ = collector.Register(diag.SectionSystem, selfmon.NewSystemProvider())
	return collector
}

// diagErrorWithHint appends a "did you mean" suggestion to unknown
// section or field errors.
func diagErrorWithHint(err error) error {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return err
	}

	switch domErr.Code {
	case core.CodeUnknownSection:
		name, _ := domErr.Details["section"].(string)
		if hint := suggest(name, diag.SectionNames()); hint != "" {
			return fmt.Errorf("%w (did you mean %q?)", err, hint)
		}
	case core.CodeUnknownField:
		sectionName, _ := domErr.Details["section"].(string)
		fieldName, _ := domErr.Details["field"].(string)
		if hint := suggest(fieldName, statNames(sectionName)); hint != "" {
			return fmt.Errorf("%w (did you mean %q?)", err, hint)
		}
	}
	return err
}

// statNames returns every name accepted in a section's stats list:
// fields plus composite aliases.
func statNames(sectionName string) []string {
	for _, info := range diag.Sections() {
		if info.Name != sectionName {
			continue
		}
		names := make([]string, 0, len(info.Fields)+len(info.Composites))
		names = append(names, info.Fields...)
		for composite := range info.Composites {
			names = append(names, composite)
		}
		sort.Strings(names)
		return names
	}
	return nil
}

func suggest(input string, candidates []string) string {
	if input == "" || len(candidates) == 0 {
		return ""
	}
	matches := fuzzy.Find(strings.ToLower(input), candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
