package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/goliatone/go-formwizard/pkg/metadata"
	"github.com/goliatone/go-formwizard/pkg/session"
	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// promptField dispatches on the widget catalog. The switch is exhaustive;
// WidgetUnknown and anything without a dedicated prompt fall back to a plain
// text input.
func promptField(sess *session.Session, cfg *metadata.FieldConfig) error {
	switch cfg.Widget {
	case metadata.WidgetCheckbox:
		return promptConfirm(sess, cfg)
	case metadata.WidgetNumber:
		return promptNumber(sess, cfg)
	case metadata.WidgetSelect, metadata.WidgetRadio:
		return promptSelect(sess, cfg)
	case metadata.WidgetMultiSelect:
		return promptMultiSelect(sess, cfg)
	case metadata.WidgetPassword:
		return promptPassword(sess, cfg)
	case metadata.WidgetText, metadata.WidgetTextarea, metadata.WidgetDate,
		metadata.WidgetEmail, metadata.WidgetURL, metadata.WidgetFile,
		metadata.WidgetUnknown:
		return promptInput(sess, cfg)
	default:
		return promptInput(sess, cfg)
	}
}

func fieldLabel(cfg *metadata.FieldConfig) string {
	if cfg.Label != "" {
		return cfg.Label
	}
	return cfg.ID
}

func currentText(sess *session.Session, cfg *metadata.FieldConfig) string {
	value, ok := sess.Value(cfg.ID)
	if !ok {
		return ""
	}
	return visibility.Stringify(value)
}

func promptInput(sess *session.Session, cfg *metadata.FieldConfig) error {
	var answer string
	prompt := &survey.Input{
		Message: fieldLabel(cfg),
		Default: currentText(sess, cfg),
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return err
	}
	sess.SetField(cfg.ID, strings.TrimSpace(answer))
	return nil
}

func promptPassword(sess *session.Session, cfg *metadata.FieldConfig) error {
	var answer string
	if err := survey.AskOne(&survey.Password{Message: fieldLabel(cfg)}, &answer); err != nil {
		return err
	}
	sess.SetField(cfg.ID, answer)
	return nil
}

func promptConfirm(sess *session.Session, cfg *metadata.FieldConfig) error {
	var answer bool
	current, _ := sess.Value(cfg.ID)
	prompt := &survey.Confirm{
		Message: fieldLabel(cfg),
		Default: current == true,
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return err
	}
	sess.SetField(cfg.ID, answer)
	return nil
}

func promptNumber(sess *session.Session, cfg *metadata.FieldConfig) error {
	var answer string
	prompt := &survey.Input{
		Message: fieldLabel(cfg),
		Default: currentText(sess, cfg),
	}
	validator := func(ans any) error {
		text, _ := ans.(string)
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return fmt.Errorf("%q is not a number", text)
		}
		return nil
	}
	if err := survey.AskOne(prompt, &answer, survey.WithValidator(validator)); err != nil {
		return err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		sess.SetField(cfg.ID, nil)
		return nil
	}
	parsed, err := strconv.ParseFloat(answer, 64)
	if err != nil {
		return err
	}
	sess.SetField(cfg.ID, parsed)
	return nil
}

func promptSelect(sess *session.Session, cfg *metadata.FieldConfig) error {
	choices := sess.Options(cfg.ID)
	if len(choices) == 0 {
		return promptInput(sess, cfg)
	}
	labels := make([]string, 0, len(choices))
	for _, choice := range choices {
		labels = append(labels, choice.Label)
	}
	var picked string
	prompt := &survey.Select{
		Message: fieldLabel(cfg),
		Options: labels,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return err
	}
	for _, choice := range choices {
		if choice.Label == picked {
			sess.SetField(cfg.ID, choice.Value)
			return nil
		}
	}
	return nil
}

func promptMultiSelect(sess *session.Session, cfg *metadata.FieldConfig) error {
	choices := sess.Options(cfg.ID)
	if len(choices) == 0 {
		return promptInput(sess, cfg)
	}
	labels := make([]string, 0, len(choices))
	for _, choice := range choices {
		labels = append(labels, choice.Label)
	}
	var picked []string
	prompt := &survey.MultiSelect{
		Message: fieldLabel(cfg),
		Options: labels,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return err
	}
	values := make([]any, 0, len(picked))
	for _, label := range picked {
		for _, choice := range choices {
			if choice.Label == label {
				values = append(values, choice.Value)
				break
			}
		}
	}
	sess.SetField(cfg.ID, values)
	return nil
}
