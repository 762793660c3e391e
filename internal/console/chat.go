package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shopdesk/shopdesk/internal/chat"
	"github.com/shopdesk/shopdesk/internal/log"
	"github.com/shopdesk/shopdesk/internal/push"
)

const chatHelp = `Commands:
  /users          list people you can chat with
  /open <who>     open a conversation (roster number, id, email or name)
  /refresh        reload the open conversation
  /who            show the open conversation
  /help           show this help
  /quit           leave the chat
Anything else is sent to the open conversation.
`

// lockedWriter serialises writes from the input loop and the renderer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// chatSession wires the chat components for one REPL run.
type chatSession struct {
	out       io.Writer
	selfID    string
	store     *chat.Store
	selector  *chat.Selector
	syncer    *chat.Synchronizer
	submitter *chat.Submitter
}

func newChatCmd(a *App) *cobra.Command {
	var with string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with buyers and sellers in real time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			return a.runChat(ctx, with)
		},
	}
	cmd.Flags().StringVarP(&with, "with", "w", "", "open this conversation on start")
	return cmd
}

func (a *App) runChat(ctx context.Context, with string) error {
	out := &lockedWriter{w: a.out}
	logger := log.Component(a.logger, "chat")

	bridge := push.NewBridge(a.pushConfig(), push.WithTokenSource(a.id), push.WithLogger(logger))
	defer bridge.Close()

	store := chat.NewStore()
	messages := a.client.Messages()
	syncer := chat.NewSynchronizer(store, messages, bridge, a.id,
		chat.WithLogger(logger), chat.WithPageSize(a.cfg.Chat.PageSize))
	cs := &chatSession{
		out:       out,
		selfID:    a.id.UserID(),
		store:     store,
		selector:  chat.NewSelector(store, a.id),
		syncer:    syncer,
		submitter: chat.NewSubmitter(store, messages, bridge, a.id, syncer, chat.WithLogger(logger)),
	}

	if _, err := cs.selector.LoadRoster(ctx, a.client.Users(), a.cfg.Chat.RosterSize); err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}

	if err := syncer.Mount(ctx); err != nil {
		fmt.Fprintf(out, "Live updates unavailable (%v); use /refresh to check for new messages.\n", err)
	}
	defer syncer.Unmount()

	profile, _ := a.id.Profile()
	fmt.Fprintf(out, "Signed in as %s. Type /help for commands.\n", profile.Name)
	if with != "" {
		cs.open(with)
	} else {
		cs.listRoster()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := a.in.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	watch, stop := store.Watch()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return cs.readLoop(gctx, lines)
	})
	g.Go(func() error {
		newRenderer(out, cs.selfID).loop(gctx, store, watch)
		return nil
	})
	return g.Wait()
}

func (cs *chatSession) readLoop(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := cs.handle(ctx, strings.TrimRight(line, "\r\n")); quit {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the user asked to leave.
func (cs *chatSession) handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if !strings.HasPrefix(trimmed, "/") {
		cs.send(ctx, line)
		return false
	}

	name, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit", "/q":
		return true
	case "/help", "/?":
		fmt.Fprint(cs.out, chatHelp)
	case "/users":
		cs.listRoster()
	case "/open":
		if arg == "" {
			fmt.Fprintln(cs.out, "usage: /open <who>")
			return false
		}
		cs.open(arg)
	case "/refresh":
		if err := cs.syncer.Refresh(ctx); err != nil && !errors.Is(err, chat.ErrStaleResponse) {
			fmt.Fprintf(cs.out, "! %v\n", err)
		}
	case "/who":
		if p, ok := cs.store.Active(); ok {
			fmt.Fprintf(cs.out, "Chatting with %s <%s>\n", p.Name, p.Email)
		} else {
			fmt.Fprintln(cs.out, "No conversation open")
		}
	default:
		fmt.Fprintf(cs.out, "unknown command %s, try /help\n", name)
	}
	return false
}

func (cs *chatSession) listRoster() {
	roster := cs.selector.Roster()
	if len(roster) == 0 {
		fmt.Fprintln(cs.out, "Nobody else is here yet")
		return
	}
	t := newTable(cs.out, "#", "NAME", "EMAIL", "ROLE")
	for i, p := range roster {
		t.row(i+1, p.Name, p.Email, p.Role)
	}
	_ = t.flush()
}

func (cs *chatSession) open(key string) {
	p, err := cs.selector.SelectKey(key)
	if err != nil {
		fmt.Fprintf(cs.out, "! %v\n", err)
		return
	}
	fmt.Fprintf(cs.out, "Chatting with %s <%s>\n", p.Name, p.Email)
}

func (cs *chatSession) send(ctx context.Context, text string) {
	cs.submitter.SetDraft(text)
	if _, err := cs.submitter.Submit(ctx); err != nil {
		if errors.Is(err, chat.ErrNoActiveCounterpart) {
			fmt.Fprintln(cs.out, "! open a conversation first, e.g. /open 1")
			return
		}
		fmt.Fprintf(cs.out, "! not sent: %v\n", err)
	}
}
