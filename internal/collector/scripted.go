package collector

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrNoAnswer is returned when an answers file has nothing left for a prompt.
var ErrNoAnswer = errors.New("hostforge: no scripted answer")

// Answers maps prompt keys to the answers given for them, in order. In YAML a
// key holds either a single scalar or a list of scalars.
type Answers map[string]answerList

type answerList []string

func (l *answerList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = answerList{node.Value}
		return nil
	case yaml.SequenceNode:
		out := make(answerList, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: answers must be scalars", item.Line)
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	}
	return fmt.Errorf("line %d: expected a scalar or a list", node.Line)
}

// ScriptedSource replays answers from an answers file, for unattended runs.
type ScriptedSource struct {
	answers Answers
	used    map[string]int
}

// NewScriptedSource replays answers.
func NewScriptedSource(answers Answers) *ScriptedSource {
	return &ScriptedSource{answers: answers, used: make(map[string]int)}
}

// LoadAnswers reads a YAML answers file.
func LoadAnswers(path string) (*ScriptedSource, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied answers path
	if err != nil {
		return nil, fmt.Errorf("collector: read answers: %w", err)
	}
	var answers Answers
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("collector: parse answers %s: %w", path, err)
	}
	return NewScriptedSource(answers), nil
}

// next returns the following answer for p. A key absent from the file falls
// back to the prompt default when there is one.
func (s *ScriptedSource) next(ctx context.Context, p Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	list, ok := s.answers[p.Key]
	if !ok && p.Default != "" {
		return p.Default, nil
	}
	i := s.used[p.Key]
	if i >= len(list) {
		return "", fmt.Errorf("%w for %q", ErrNoAnswer, p.Key)
	}
	s.used[p.Key] = i + 1
	if list[i] == "" {
		return p.Default, nil
	}
	return list[i], nil
}

// Input returns the next answer for p.
func (s *ScriptedSource) Input(ctx context.Context, p Prompt) (string, error) {
	return s.next(ctx, p)
}

// Select returns the next answer for p. The answer is the option value.
func (s *ScriptedSource) Select(ctx context.Context, p Prompt, _ []Option) (string, error) {
	return s.next(ctx, p)
}

// Confirm returns the next answer for p as a boolean.
func (s *ScriptedSource) Confirm(ctx context.Context, p Prompt) (bool, error) {
	answer, err := s.next(ctx, p)
	if err != nil {
		return false, err
	}
	v, ok := parseYesNo(answer)
	if !ok {
		return false, fmt.Errorf("collector: answer %q for %q is not yes or no", answer, p.Key)
	}
	return v, nil
}
