package app

import (
	"fmt"
	"strings"
	"time"
)

type StartupSummary struct {
	Env          string
	HTTPAddr     string
	StoreDriver  string
	Breaker      bool
	JournalPath  string
	Preheated    int
	TickInterval time.Duration
	Commission   float64
	Timezone     string
	Symbols      []string
	Metrics      bool
}

func (s *StartupSummary) Print() {
	fmt.Print(s.String())
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 80)
	title := "STARTUP SUMMARY"
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(&b, line)

	fmt.Fprintln(&b, "[SERVICE]")
	fmt.Fprintf(&b, "  env:          %s\n", orDash(s.Env))
	fmt.Fprintf(&b, "  http:         %s\n", orDash(s.HTTPAddr))
	fmt.Fprintf(&b, "  metrics:      %s\n", onOff(s.Metrics))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[SIMULATION]")
	fmt.Fprintf(&b, "  tick:         %s\n", s.TickInterval)
	fmt.Fprintf(&b, "  commission:   %.4f%%\n", s.Commission*100)
	fmt.Fprintf(&b, "  timezone:     %s\n", orDash(s.Timezone))
	fmt.Fprintf(&b, "  instruments:  %d (%s)\n", len(s.Symbols), formatList(s.Symbols))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[PERSISTENCE]")
	fmt.Fprintf(&b, "  store:        %s (breaker %s)\n", orDash(s.StoreDriver), onOff(s.Breaker))
	if s.JournalPath == "" {
		fmt.Fprintln(&b, "  journal:      off")
	} else {
		fmt.Fprintf(&b, "  journal:      %s (preheated %d/%d)\n", s.JournalPath, s.Preheated, len(s.Symbols))
	}
	fmt.Fprintln(&b, line)
	return b.String()
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
