package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/rci/internal/catalog"
	"github.com/standardbeagle/rci/internal/debug"
	"github.com/standardbeagle/rci/internal/mcp"
	"github.com/standardbeagle/rci/internal/selector"
	"github.com/standardbeagle/rci/internal/units"
	"github.com/standardbeagle/rci/internal/version"
	"github.com/standardbeagle/rci/internal/watch"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func queryCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("query requires at least one identifier", 2)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sel, err := loadSelector(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	rules := sel.Candidates(c.Args().Slice())
	debug.LogQuery("query returned %d rules in %v\n", len(rules), time.Since(start))

	w := c.App.Writer
	if c.Bool("json") {
		return writeJSON(w, rules)
	}
	for _, r := range rules {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Severity, r.Description)
	}
	return nil
}

func scanCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("scan requires exactly one manifest path", 2)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sel, err := loadSelector(cfg)
	if err != nil {
		return err
	}
	all, err := units.LoadManifest(c.Args().First())
	if err != nil {
		return err
	}
	filter := units.Filter{Include: cfg.Units.Include, Exclude: cfg.Units.Exclude}
	selected := filter.Apply(all)

	workers := c.Int("workers")
	if workers <= 0 {
		workers = cfg.Performance.Workers
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	results, err := units.Scan(ctx, sel, selected, workers)
	if err != nil {
		return err
	}
	summary := units.Summarize(results)

	w := c.App.Writer
	if c.Bool("json") {
		return writeJSON(w, struct {
			Results []units.Result `json:"results"`
			Summary units.Summary  `json:"summary"`
		}{results, summary})
	}

	for _, r := range results {
		if len(r.Candidates) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", r.Unit, strings.Join(r.Candidates, ", "))
	}
	fmt.Fprintf(w, "\n%d/%d units have candidate rules", summary.UnitsWithRules, summary.Units)
	if skipped := len(all) - len(selected); skipped > 0 {
		fmt.Fprintf(w, " (%d filtered out)", skipped)
	}
	fmt.Fprintln(w)
	return nil
}

func explainCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("explain requires exactly one rule name", 2)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sel, err := loadSelector(cfg)
	if err != nil {
		return err
	}

	name := c.Args().First()
	cat := sel.Catalog()
	rule, ok := cat.Lookup(name)
	if !ok {
		msg := fmt.Sprintf("unknown rule %q", name)
		if suggestions := cat.Suggest(name, 5); len(suggestions) > 0 {
			msg += "; did you mean " + strings.Join(suggestions, ", ") + "?"
		}
		return cli.Exit(msg, 1)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Rule:     %s\n", rule.Name)
	fmt.Fprintf(w, "Severity: %s\n", rule.Severity)
	if rule.Description != "" {
		fmt.Fprintf(w, "About:    %s\n", rule.Description)
	}
	if len(rule.Tags) > 0 {
		fmt.Fprintf(w, "Tags:     %s\n", strings.Join(rule.Tags, ", "))
	}
	if rule.Source != "" {
		fmt.Fprintf(w, "Source:   %s\n", rule.Source)
	}
	fmt.Fprintln(w, "Candidate when a unit contains any of:")
	for _, combo := range rule.Combinations() {
		fmt.Fprintf(w, "  %s\n", combo)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sel, err := loadSelector(cfg)
	if err != nil {
		return err
	}

	stats := sel.Stats()
	w := c.App.Writer
	fmt.Fprintf(w, "Version:      %s\n", version.FullInfo())
	fmt.Fprintf(w, "Build ID:     %s\n", version.BuildID())
	fmt.Fprintf(w, "Rules:        %d\n", stats.Rules)
	fmt.Fprintf(w, "Fingerprint:  %016x\n", stats.Fingerprint)
	fmt.Fprintf(w, "Combinations: %d\n", stats.Index.Combinations)
	fmt.Fprintf(w, "Entries:      %d\n", stats.Index.Entries)
	fmt.Fprintf(w, "Trie nodes:   %d\n", stats.Index.Nodes)
	fmt.Fprintf(w, "Max depth:    %d\n", stats.Index.MaxDepth)

	bySeverity := make(map[catalog.Severity]int)
	for _, r := range sel.Catalog().Rules() {
		bySeverity[r.Severity]++
	}
	severities := make([]string, 0, len(bySeverity))
	for s := range bySeverity {
		severities = append(severities, string(s))
	}
	sort.Strings(severities)
	for _, s := range severities {
		fmt.Fprintf(w, "  %-8s %d\n", s, bySeverity[catalog.Severity(s)])
	}
	return nil
}

func checkCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	files, err := catalog.FindFiles(cfg.Project.Root, cfg.Catalog.Include)
	if err != nil {
		return err
	}
	sel, err := loadSelector(cfg)
	if err != nil {
		return err
	}
	if sel.Catalog().Len() == 0 {
		return fmt.Errorf("%w after disabling %d rules", catalog.ErrNoRules, len(cfg.Catalog.Disable))
	}

	fmt.Fprintf(c.App.Writer, "OK: %d rules from %d catalog files (fingerprint %016x)\n",
		sel.Catalog().Len(), len(files), sel.Catalog().Fingerprint())
	return nil
}

// openDebugLog routes debug output to a temp file and reports its path on w
func openDebugLog(w io.Writer) (func(), error) {
	path, err := debug.InitDebugLogFile()
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "debug log: %s\n", path)
	return func() {
		if err := debug.CloseDebugLog(); err != nil {
			fmt.Fprintf(w, "failed to close debug log: %v\n", err)
		}
	}, nil
}

func mcpCommand(c *cli.Context) error {
	// stdio carries the protocol; debug output can only go to a file
	debug.SetMCPMode(true)
	if c.Bool("debug") {
		closeLog, err := openDebugLog(c.App.ErrWriter)
		if err != nil {
			return err
		}
		defer closeLog()
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return debug.Fatal("failed to load config: %v\n", err)
	}
	sel, err := loadSelector(cfg)
	if err != nil {
		return debug.Fatal("failed to load catalog: %v\n", err)
	}

	var source mcp.SelectorSource = mcp.Static(sel)
	if cfg.Watch.Enabled {
		reloader := watch.NewReloader(sel, func() (*selector.Selector, error) {
			return loadSelector(cfg)
		}, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond)
		if err := reloader.Start(watch.WatchRoots(cfg.Project.Root, cfg.Catalog.Include)); err != nil {
			return debug.Fatal("failed to watch catalog: %v\n", err)
		}
		defer func() {
			if err := reloader.Stop(); err != nil {
				debug.LogWatch("watcher shutdown: %v\n", err)
			}
		}()
		source = reloader
	}

	server, err := mcp.NewServer(source)
	if err != nil {
		return debug.Fatal("failed to create MCP server: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return debug.Fatal("MCP server error: %v\n", err)
	}
	return nil
}
