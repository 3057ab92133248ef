package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// promptConfirmer muestra el plan y pide [y/N] por terminal antes de mutar nada.
type promptConfirmer struct{}

// newPromptConfirmer devuelve false si stdin no es un terminal (cron, systemd, pipes).
func newPromptConfirmer() (promptConfirmer, bool) {
	return promptConfirmer{}, readline.IsTerminal(int(os.Stdin.Fd()))
}

type answer struct {
	line string
	err  error
}

func (promptConfirmer) Confirm(ctx context.Context, summary string) (bool, error) {
	fmt.Printf("\n⚠️  LIVE MODE — the following changes will be sent to the marketplace:\n\n%s\n", summary)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "Apply these changes? [y/N] ",
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return false, fmt.Errorf("confirm: open prompt: %w", err)
	}
	defer rl.Close()

	ch := make(chan answer, 1)
	go func() {
		line, err := rl.Readline()
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if errors.Is(a.err, readline.ErrInterrupt) || errors.Is(a.err, io.EOF) {
			return false, nil
		}
		if a.err != nil {
			return false, fmt.Errorf("confirm: read: %w", a.err)
		}
		return isYes(a.line), nil
	}
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
