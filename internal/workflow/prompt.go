package workflow

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter handles the interactive confirmations and selections the phased
// workflow requires. With assumeYes set, every confirmation succeeds without
// reading input so scripted runs never block on a TTY.
type Prompter struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func NewPrompter(in io.Reader, out io.Writer, assumeYes bool) *Prompter {
	return &Prompter{
		in:        bufio.NewReader(in),
		out:       out,
		assumeYes: assumeYes,
	}
}

// Out returns the writer user-facing output goes to
func (p *Prompter) Out() io.Writer {
	return p.out
}

// Confirm asks a yes/no question that defaults to no. Only an explicit
// y/yes answer confirms; EOF and read errors decline.
func (p *Prompter) Confirm(question string) bool {
	if p.assumeYes {
		return true
	}
	fmt.Fprintf(p.out, "%s (y/N): ", question)
	line, err := p.readLine()
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" && err != nil {
		return false
	}
	return line == "y" || line == "yes"
}

// Select asks the user to pick one of n options by number. It returns the
// zero-based choice, or ok=false when the user quits or input runs out.
func (p *Prompter) Select(question string, n int) (int, bool) {
	for {
		fmt.Fprintf(p.out, "%s (1-%d), or 'q' to quit: ", question, n)
		line, err := p.readLine()
		line = strings.TrimSpace(line)

		if strings.EqualFold(line, "q") || (line == "" && err != nil) {
			return 0, false
		}
		if idx, convErr := strconv.Atoi(line); convErr == nil && idx >= 1 && idx <= n {
			return idx - 1, true
		} else if convErr != nil {
			fmt.Fprintln(p.out, "Invalid input. Please enter a number or 'q' to quit.")
		} else {
			fmt.Fprintf(p.out, "Please enter a number between 1 and %d\n", n)
		}
		if err != nil {
			return 0, false
		}
	}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}
