// Package wizard models the declaration preparation flow as an explicit
// finite-state machine. Navigation is a transition table, not index
// arithmetic, so reordering steps is a data change.
package wizard

import (
	dErrors "skdm/pkg/domain-errors"
)

// Step is one screen of the declaration wizard.
type Step string

const (
	StepSelectInstallation   Step = "SELECT_INSTALLATION"
	StepReviewGoods          Step = "REVIEW_GOODS"
	StepReviewEmissions      Step = "REVIEW_EMISSIONS"
	StepCertificateSurrender Step = "CERTIFICATE_SURRENDER"
	StepFreeAllocation       Step = "FREE_ALLOCATION"
	StepVerification         Step = "VERIFICATION"
	StepReviewSubmit         Step = "REVIEW_SUBMIT"
)

type transition struct {
	next Step
	prev Step
}

// The table is total over all steps: the initial step has no prev, the
// terminal step no next.
var transitions = map[Step]transition{
	StepSelectInstallation:   {next: StepReviewGoods},
	StepReviewGoods:          {next: StepReviewEmissions, prev: StepSelectInstallation},
	StepReviewEmissions:      {next: StepCertificateSurrender, prev: StepReviewGoods},
	StepCertificateSurrender: {next: StepFreeAllocation, prev: StepReviewEmissions},
	StepFreeAllocation:       {next: StepVerification, prev: StepCertificateSurrender},
	StepVerification:         {next: StepReviewSubmit, prev: StepFreeAllocation},
	StepReviewSubmit:         {prev: StepVerification},
}

// Initial is the wizard's entry step.
func Initial() Step { return StepSelectInstallation }

// Terminal is the wizard's final step.
func Terminal() Step { return StepReviewSubmit }

func ParseStep(s string) (Step, error) {
	step := Step(s)
	if _, ok := transitions[step]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown wizard step: "+s)
	}
	return step, nil
}

func (s Step) String() string { return string(s) }

func (s Step) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// Next returns the following step, or false on the terminal step.
func (s Step) Next() (Step, bool) {
	t, ok := transitions[s]
	if !ok || t.next == "" {
		return "", false
	}
	return t.next, true
}

// Prev returns the preceding step, or false on the initial step.
func (s Step) Prev() (Step, bool) {
	t, ok := transitions[s]
	if !ok || t.prev == "" {
		return "", false
	}
	return t.prev, true
}

// Steps returns all steps in wizard order.
func Steps() []Step {
	out := make([]Step, 0, len(transitions))
	for step, ok := Initial(), true; ok; step, ok = step.Next() {
		out = append(out, step)
	}
	return out
}
