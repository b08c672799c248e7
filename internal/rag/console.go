package rag

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

const maxLineSize = 1 << 20

// RunConsole reads queries from in line by line and writes the replies to out
// until exit/quit, end of input or cancellation of ctx.
func (r *RAG) RunConsole(ctx context.Context, in io.Reader, out io.Writer) error {
	you := color.New(color.FgCyan, color.Bold)
	bot := color.New(color.FgGreen, color.Bold)
	if f, ok := out.(*os.File); !ok || f != os.Stdout {
		you.DisableColor()
		bot.DisableColor()
	}

	fmt.Fprintln(out, "✅ Policy chatbot ready. Ask about the policy document (Bangla or English).")
	fmt.Fprint(out, "Type 'exit' or 'quit' to stop.\n\n")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		you.Fprint(out, "You: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nExiting.")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "\nExiting.")
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		query := strings.TrimSpace(line)
		switch strings.ToLower(query) {
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return nil
		case "":
			continue
		}

		response, err := r.Query(ctx, query)
		if err != nil {
			log.Error().Err(err).Msg("Error answering query")
			continue
		}
		fmt.Fprintf(out, "\n%s %s\n\n", bot.Sprint("Bot:"), response.Content)
	}
}
