package collector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LineSource asks questions one line at a time. It serves piped stdin and
// terminals huh cannot drive.
type LineSource struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLineSource reads answers from r and writes prompts to w.
func NewLineSource(r io.Reader, w io.Writer) *LineSource {
	return &LineSource{in: bufio.NewReader(r), out: w}
}

func (s *LineSource) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := s.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("collector: input closed: %w", io.ErrUnexpectedEOF)
		}
		return "", fmt.Errorf("collector: read answer: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *LineSource) ask(ctx context.Context, p Prompt, hint string) (string, error) {
	if p.Description != "" {
		fmt.Fprintf(s.out, "%s\n", p.Description)
	}
	if hint != "" {
		fmt.Fprintf(s.out, "%s [%s]: ", p.Title, hint)
	} else {
		fmt.Fprintf(s.out, "%s: ", p.Title)
	}
	return s.readLine(ctx)
}

// Input asks for free text. An empty line yields the default.
func (s *LineSource) Input(ctx context.Context, p Prompt) (string, error) {
	answer, err := s.ask(ctx, p, p.Default)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return p.Default, nil
	}
	return answer, nil
}

// Select lists options by number and accepts either the number or the value.
// Anything else is returned verbatim for the caller to reject.
func (s *LineSource) Select(ctx context.Context, p Prompt, options []Option) (string, error) {
	for i, o := range options {
		fmt.Fprintf(s.out, "  %d) %s\n", i+1, o.Label)
	}
	answer, err := s.ask(ctx, p, fmt.Sprintf("1-%d", len(options)))
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1].Value, nil
	}
	return answer, nil
}

// Confirm asks until it gets a yes or no. An empty line yields the default.
func (s *LineSource) Confirm(ctx context.Context, p Prompt) (bool, error) {
	def, hasDefault := parseYesNo(p.Default)
	hint := "y/n"
	if hasDefault && def {
		hint = "Y/n"
	} else if hasDefault {
		hint = "y/N"
	}
	for {
		answer, err := s.ask(ctx, p, hint)
		if err != nil {
			return false, err
		}
		if strings.TrimSpace(answer) == "" && hasDefault {
			return def, nil
		}
		if v, ok := parseYesNo(answer); ok {
			return v, nil
		}
		fmt.Fprintln(s.out, "Please answer yes or no.")
	}
}
