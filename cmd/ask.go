package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"carechat/chat"
)

var askContinue bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and stream the answer",
	Long: `Ask a question without opening the chat view. The answer is streamed
to standard output and the exchange is saved as a new session, or added
to the current one with --continue. Ctrl+C stops the answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var (
			mu     sync.Mutex
			failed *chat.Notice
		)
		notifier := chat.NotifierFunc(func(n chat.Notice) {
			if n.Level == chat.LevelError {
				mu.Lock()
				failed = &n
				mu.Unlock()
			}
		})

		a, err := openApp(ctx, notifier)
		if err != nil {
			return err
		}
		defer a.Close()

		if !askContinue {
			a.store.StartNewSession()
		}

		printer := &replyPrinter{out: cmd.OutOrStdout(), store: a.store}
		unsubscribe := a.store.Subscribe(printer.update)
		err = a.store.SendMessage(ctx, strings.Join(args, " "))
		unsubscribe()
		printer.update()
		fmt.Fprintln(cmd.OutOrStdout())

		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		if failed != nil {
			return fmt.Errorf("%s: %s", failed.Title, failed.Message)
		}
		return nil
	},
}

// replyPrinter writes the growing assistant reply to out as it streams.
type replyPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	store   *chat.Store
	msgID   string
	printed int
}

func (p *replyPrinter) update() {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess := p.store.CurrentSession()
	if len(sess.Messages) == 0 {
		return
	}
	last := sess.Messages[len(sess.Messages)-1]
	if last.Role != chat.RoleAssistant {
		return
	}
	if last.ID != p.msgID {
		p.msgID = last.ID
		p.printed = 0
	}
	if len(last.Content) > p.printed {
		io.WriteString(p.out, last.Content[p.printed:])
		p.printed = len(last.Content)
	}
}

func init() {
	askCmd.Flags().BoolVarP(&askContinue, "continue", "c", false, "Add to the current session instead of starting a new one")
	rootCmd.AddCommand(askCmd)
}
