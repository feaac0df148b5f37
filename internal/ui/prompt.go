package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/manifoldco/promptui"
	"github.com/quantmind-br/gnushark/internal/core"
)

// ErrCancelled is returned when the user aborts a prompt with Ctrl-C
var ErrCancelled = errors.New("operation cancelled by user")

// ConfirmPrompt asks a yes/no confirmation question
func ConfirmPrompt(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	result, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			// "n" or an empty answer
			return false, nil
		}
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, ErrCancelled
		}
		return false, err
	}

	// promptui returns "y" for yes
	return strings.EqualFold(result, "y"), nil
}

// SelectOption is one entry of a detailed selection list
type SelectOption struct {
	Label  string
	Detail string
	Value  string
}

// CapabilityOptions turns catalog entries into selection options
func CapabilityOptions(caps []core.Capability) []SelectOption {
	opts := make([]SelectOption, 0, len(caps))
	for _, c := range caps {
		detail := c.Description
		if detail == "" {
			detail = c.Section
		}
		opts = append(opts, SelectOption{Label: c.Label, Detail: detail, Value: c.ID})
	}
	return opts
}

// MatchOption reports whether input fuzzily matches the option label or value
func MatchOption(input string, opt SelectOption) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}
	return fuzzy.MatchNormalizedFold(input, opt.Label) || fuzzy.MatchNormalizedFold(input, opt.Value)
}

// SelectPromptDetailed presents options with details and type-to-search
func SelectPromptDetailed(label string, options []SelectOption) (int, SelectOption, error) {
	if len(options) == 0 {
		return -1, SelectOption{}, fmt.Errorf("nothing to select")
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .Label | cyan }} ({{ .Detail | faint }})",
		Inactive: "  {{ .Label | faint }} ({{ .Detail | faint }})",
		Selected: "▸ {{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: templates,
		Size:      min(12, len(options)),
		Searcher: func(input string, index int) bool {
			if index < 0 || index >= len(options) {
				return false
			}
			return MatchOption(input, options[index])
		},
	}

	index, _, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
			return -1, SelectOption{}, ErrCancelled
		}
		return -1, SelectOption{}, err
	}

	return index, options[index], nil
}
