package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	tradeMu  sync.Mutex
	tradeLog *log.Logger
)

// SetTradeWriter routes the trade journal (one line per executed trade) to w.
// A nil writer disables it.
func SetTradeWriter(w io.Writer) {
	tradeMu.Lock()
	defer tradeMu.Unlock()
	if w == nil {
		tradeLog = nil
		return
	}
	tradeLog = log.New(w, "", log.LstdFlags)
}

// Trade writes a single "[TRADE][user][origin] fields..." line.
func Trade(user, origin string, fields ...string) {
	tradeMu.Lock()
	l := tradeLog
	tradeMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[TRADE]")
	for _, tag := range []string{user, origin} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		b.WriteString(" ")
		b.WriteString(f)
	}
	l.Print(b.String())
}
