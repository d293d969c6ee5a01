package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"showsweep/internal/actions"
	"showsweep/internal/sweep"
)

const maxPromptAttempts = 3

var dispositionLabels = map[actions.Disposition]string{
	actions.Delete:           "Delete the series",
	actions.KeepFirstSeason:  "Keep only the first season",
	actions.KeepFirstEpisode: "Keep only the first episode",
	actions.Keep:             "Keep everything",
}

// promptChooser asks for a disposition per series. Empty input, end of
// input and repeated invalid answers all choose keep.
type promptChooser struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptChooser(in io.Reader, out io.Writer) *promptChooser {
	return &promptChooser{in: bufio.NewReader(in), out: out}
}

func (p *promptChooser) Choose(ctx context.Context, decision sweep.Decision) (actions.Disposition, error) {
	item := decision.Item
	fmt.Fprintf(p.out, "\n%s\n", item.DisplayTitle())
	if item.SizeBytes > 0 {
		fmt.Fprintf(p.out, "  Size: %s\n", humanize.IBytes(uint64(item.SizeBytes)))
	}
	for i, d := range actions.Dispositions {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, dispositionLabels[d])
	}

	for range maxPromptAttempts {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprintf(p.out, "Choice [%d]: ", len(actions.Dispositions))
		line, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		choice, ok := parseChoice(line)
		if ok {
			return choice, nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return actions.Keep, nil
		}
		fmt.Fprintf(p.out, "Invalid choice %q\n", strings.TrimSpace(line))
	}
	fmt.Fprintln(p.out, "Keeping series")
	return actions.Keep, nil
}

func parseChoice(input string) (actions.Disposition, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return actions.Keep, true
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(actions.Dispositions) {
			return "", false
		}
		return actions.Dispositions[n-1], true
	}
	d, err := actions.ParseDisposition(input)
	if err != nil {
		return "", false
	}
	return d, true
}

func isTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
