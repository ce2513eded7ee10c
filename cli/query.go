package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

type answerer interface {
	Answer(ctx context.Context, query, indexName string) (string, error)
	Indexes() []string
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var (
		question  string
		indexName string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Ask one question, or chat on stdin when --question is not given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, nil)
			if err != nil {
				return err
			}
			if indexName == "" {
				indexName = a.Config.Server.DefaultIndex
			}
			h, err := a.Chat(cmd.Context())
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("question") {
				answer, err := h.Answer(cmd.Context(), question, indexName)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), answer)
				return nil
			}
			return chatLoop(cmd.Context(), h, indexName, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to ask")
	cmd.Flags().StringVarP(&indexName, "index", "i", "", "index to query (default server.default_index, else the catalog default)")
	return cmd
}

// chatLoop reads one question per line. "use <index>" switches the index
// and "exit" or "quit" ends the loop.
func chatLoop(ctx context.Context, h answerer, indexName string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Querying %s. Type 'use <index>' to switch, 'exit' to quit.\n", indexName)
	fmt.Fprintf(out, "Indexes: %s\n", strings.Join(h.Indexes(), ", "))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "\n[%s] You: ", indexName)
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch lower := strings.ToLower(input); {
		case lower == "exit" || lower == "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case strings.HasPrefix(lower, "use "):
			name := strings.TrimSpace(input[len("use "):])
			if !slices.Contains(h.Indexes(), name) {
				fmt.Fprintf(out, "Unknown index %q\n", name)
				continue
			}
			indexName = name
			continue
		}

		answer, err := h.Answer(ctx, input, indexName)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "\nAssistant: %s\n", answer)
	}
	return scanner.Err()
}
