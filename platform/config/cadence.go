package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultReminderTemplate = "assignment_reminder"
	DefaultFollowupTemplate = "assignment_followup"
)

// CadenceStep is one time threshold of a reminder or follow-up cadence.
// Key identifies the step in the sent-ledger and must stay stable across deploys.
type CadenceStep struct {
	Key      string
	After    time.Duration
	Template string
}

// CadenceFile is the optional YAML override for cadence steps.
type CadenceFile struct {
	Reminders []CadenceStep
	Followups []CadenceStep
}

type cadenceStepYAML struct {
	Key      string `yaml:"key"`
	After    string `yaml:"after"`
	Template string `yaml:"template"`
}

type cadenceFileYAML struct {
	Reminders []cadenceStepYAML `yaml:"reminders"`
	Followups []cadenceStepYAML `yaml:"followups"`
}

// LoadCadenceFile reads cadence steps from a YAML document of the form
//
//	reminders:
//	  - after: 2h
//	    template: assignment_reminder
//	followups:
//	  - key: followup_day3
//	    after: 72h
func LoadCadenceFile(path string) (CadenceFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CadenceFile{}, fmt.Errorf("read cadence file: %w", err)
	}
	return ParseCadenceFile(raw)
}

// ParseCadenceFile decodes a cadence YAML document.
func ParseCadenceFile(raw []byte) (CadenceFile, error) {
	var doc cadenceFileYAML
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return CadenceFile{}, fmt.Errorf("decode cadence file: %w", err)
	}

	reminders, err := convertSteps("reminder", DefaultReminderTemplate, doc.Reminders)
	if err != nil {
		return CadenceFile{}, err
	}
	followups, err := convertSteps("followup", DefaultFollowupTemplate, doc.Followups)
	if err != nil {
		return CadenceFile{}, err
	}

	return CadenceFile{Reminders: reminders, Followups: followups}, nil
}

func convertSteps(prefix, template string, raw []cadenceStepYAML) ([]CadenceStep, error) {
	steps := make([]CadenceStep, 0, len(raw))
	for _, item := range raw {
		after, err := time.ParseDuration(strings.TrimSpace(item.After))
		if err != nil || after <= 0 {
			return nil, fmt.Errorf("%s step %q: invalid duration", prefix, item.After)
		}
		step := CadenceStep{
			Key:      strings.TrimSpace(item.Key),
			After:    after,
			Template: strings.TrimSpace(item.Template),
		}
		if step.Key == "" {
			step.Key = prefix + "_" + strings.TrimSpace(item.After)
		}
		if step.Template == "" {
			step.Template = template
		}
		steps = append(steps, step)
	}
	return normalizeSteps(prefix, steps)
}

// parseSteps reads a CSV list of durations such as "2h,4h,24h".
func parseSteps(prefix, csv string) ([]CadenceStep, error) {
	template := DefaultReminderTemplate
	if prefix == "followup" {
		template = DefaultFollowupTemplate
	}

	raw := make([]cadenceStepYAML, 0)
	for _, part := range splitCSV(csv) {
		raw = append(raw, cadenceStepYAML{After: part, Template: template})
	}
	return convertSteps(prefix, template, raw)
}

func normalizeSteps(prefix string, steps []CadenceStep) ([]CadenceStep, error) {
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].After < steps[j].After })

	seen := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		if _, ok := seen[step.Key]; ok {
			return nil, fmt.Errorf("%s step key %q is duplicated", prefix, step.Key)
		}
		seen[step.Key] = struct{}{}
	}
	return steps, nil
}
