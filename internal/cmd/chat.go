package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant",
	Long: `Start an interactive conversation. Each line you type is sent to the
assistant and the reply is printed as it streams in. End with Ctrl-D.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

var (
	styleBot    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	styleFailed = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	stylePrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// streamPrinter writes only the newly arrived part of each assistant
// message, so a streamed reply appears incrementally on one line.
type streamPrinter struct {
	w       io.Writer
	mu      sync.Mutex
	printed map[string]int
}

func (p *streamPrinter) update(m chat.Message) {
	if m.Role != chat.RoleAssistant {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if m.Failed {
		fmt.Fprintln(p.w, styleFailed.Render(m.Content))
		return
	}
	n, seen := p.printed[m.ID]
	if !seen {
		fmt.Fprint(p.w, styleBot.Render("asistente")+" ")
	}
	if len(m.Content) > n {
		fmt.Fprint(p.w, m.Content[n:])
		p.printed[m.ID] = len(m.Content)
	} else {
		p.printed[m.ID] = n
	}
	if !m.Streaming {
		fmt.Fprintln(p.w)
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	client, sess, err := newClient()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := &streamPrinter{w: out, printed: map[string]int{}}
	conv := chat.NewClient(client, sess.ID(), chat.OnUpdate(printer.update), chat.WithLogger(logger.Named("chat")))
	for _, m := range conv.Transcript().Messages() {
		printer.update(m)
	}

	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, stylePrompt.Render("tú › "))
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if err := conv.Send(ctx, line); err != nil {
			if errors.Is(err, ctx.Err()) {
				return nil
			}
			logger.Debug("chat send failed", zap.Error(err))
		}
	}
}
