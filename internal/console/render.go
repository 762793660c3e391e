package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/shopdesk/shopdesk/internal/chat"
	"github.com/shopdesk/shopdesk/internal/domain"
)

// renderer prints each message of the open conversation once. A new
// selection starts over with the full list.
type renderer struct {
	out       io.Writer
	selfID    string
	now       func() time.Time
	selection uint64
	seen      map[string]bool
	lastErr   error
}

func newRenderer(out io.Writer, selfID string) *renderer {
	return &renderer{out: out, selfID: selfID, now: time.Now, seen: map[string]bool{}}
}

func (r *renderer) loop(ctx context.Context, store *chat.Store, watch <-chan struct{}) {
	r.render(store.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return
		case <-watch:
			r.render(store.Snapshot())
		}
	}
}

func (r *renderer) render(snap chat.Snapshot) {
	if snap.Selection != r.selection {
		r.selection = snap.Selection
		r.seen = map[string]bool{}
		r.lastErr = nil
	}

	if snap.LastError != nil && snap.LastError != r.lastErr {
		fmt.Fprintf(r.out, "! could not load messages: %v\n", snap.LastError)
	}
	r.lastErr = snap.LastError

	for _, m := range snap.Messages {
		if r.seen[m.ID] {
			continue
		}
		r.seen[m.ID] = true
		fmt.Fprintln(r.out, r.line(m))
	}
}

func (r *renderer) line(m domain.Message) string {
	who := m.Sender.Name
	if m.Sender.ID == r.selfID {
		who = "you"
	} else if who == "" {
		who = m.Sender.ID
	}

	var b strings.Builder
	if !m.CreatedAt.IsZero() {
		b.WriteString("[")
		b.WriteString(humanize.RelTime(m.CreatedAt, r.now(), "ago", "from now"))
		b.WriteString("] ")
	}
	b.WriteString(who)
	b.WriteString(": ")
	b.WriteString(m.Body)
	return b.String()
}
