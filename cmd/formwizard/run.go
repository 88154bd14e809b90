package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-formwizard/pkg/session"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func runWizard(ctx context.Context, flags *runFlags) error {
	items, err := loadItems(ctx, flags)
	if err != nil {
		return err
	}
	sess, err := buildSession(ctx, flags, items)
	if err != nil {
		return err
	}
	defer sess.Dispose()

	sess.PrimeOptions(ctx)

	seen := make(map[string]bool)
	for _, issue := range sess.Indices().Errors() {
		if msg := issue.Error(); !seen[msg] {
			seen[msg] = true
			fmt.Printf("! %s\n", msg)
		}
	}

	machine := sess.Wizard()
	total := len(machine.Steps())
	for !machine.Done() {
		step := machine.Current()
		title := step.Section.Title
		if title == "" {
			title = step.Section.ID
		}
		fmt.Printf("\n── %s (step %d of %d) ──\n", title, step.Index+1, total)

		if err := promptStep(sess, step); err != nil {
			return err
		}

		if _, err := sess.Next(); err != nil {
			var invalid *wizard.StepInvalidError
			if errors.As(err, &invalid) {
				for fieldID, msg := range invalid.Result.Errors {
					fmt.Printf("✘ %s: %s\n", fieldID, msg)
				}
				continue
			}
			return err
		}
	}

	out, err := json.MarshalIndent(sess.Values(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Printf("\n%s\n", out)
	return nil
}

func promptStep(sess *session.Session, step *wizard.Step) error {
	ix := sess.Indices()
	for _, fieldID := range step.FieldIDs {
		cfg, ok := ix.Fields[fieldID]
		if !ok || !sess.Visible(fieldID) {
			continue
		}
		if cfg.Calculated() || cfg.Disabled || cfg.ReadOnly {
			if value, ok := sess.Value(fieldID); ok {
				fmt.Printf("  %s: %v\n", fieldLabel(cfg), value)
			}
			continue
		}
		if err := promptField(sess, cfg); err != nil {
			return err
		}
	}
	return nil
}
