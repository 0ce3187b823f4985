package collector

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
)

// TerminalSource renders each prompt as a huh form. It needs a TTY on stdin.
type TerminalSource struct {
	// Accessible switches huh to its screen-reader friendly mode.
	Accessible bool
}

func (s *TerminalSource) run(ctx context.Context, field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).
		WithAccessible(s.Accessible).
		RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

// Input asks for free text.
func (s *TerminalSource) Input(ctx context.Context, p Prompt) (string, error) {
	var value string
	field := huh.NewInput().
		Title(p.Title).
		Description(p.Description).
		Placeholder(placeholder(p)).
		Value(&value)
	if err := s.run(ctx, field); err != nil {
		return "", err
	}
	if value == "" {
		return p.Default, nil
	}
	return value, nil
}

// Select asks for one of options.
func (s *TerminalSource) Select(ctx context.Context, p Prompt, options []Option) (string, error) {
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value))
	}
	value := p.Default
	field := huh.NewSelect[string]().
		Title(p.Title).
		Description(p.Description).
		Options(opts...).
		Value(&value)
	if err := s.run(ctx, field); err != nil {
		return "", err
	}
	return value, nil
}

// Confirm asks a yes/no question.
func (s *TerminalSource) Confirm(ctx context.Context, p Prompt) (bool, error) {
	value, _ := parseYesNo(p.Default)
	field := huh.NewConfirm().
		Title(p.Title).
		Description(p.Description).
		Affirmative("Yes").
		Negative("No").
		Value(&value)
	if err := s.run(ctx, field); err != nil {
		return false, err
	}
	return value, nil
}

func placeholder(p Prompt) string {
	if p.Placeholder != "" {
		return p.Placeholder
	}
	return p.Default
}
