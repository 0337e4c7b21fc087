package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

// replyPrinter writes assistant content to w as it streams in. Only the
// newest turn is followed; each turn is printed once and ended with a
// newline when it reaches a terminal status.
type replyPrinter struct {
	w        io.Writer
	mu       sync.Mutex
	printed  map[string]int
	finished map[string]bool
}

func newReplyPrinter(w io.Writer) *replyPrinter {
	return &replyPrinter{
		w:        w,
		printed:  make(map[string]int),
		finished: make(map[string]bool),
	}
}

func (p *replyPrinter) OnTurnsChanged(turns []protocol.Turn) {
	if len(turns) == 0 {
		return
	}
	last := turns[len(turns)-1]
	if last.Role != protocol.RoleAssistant {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished[last.ID] {
		return
	}
	if n := p.printed[last.ID]; len(last.Content) > n {
		fmt.Fprint(p.w, last.Content[n:])
		p.printed[last.ID] = len(last.Content)
	}
	if last.Status.Terminal() {
		fmt.Fprintln(p.w)
		p.finished[last.ID] = true
	}
}
