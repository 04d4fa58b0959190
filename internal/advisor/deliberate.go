package advisor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Opinion is one persona's answer during deliberation.
type Opinion struct {
	Persona  Persona
	Decision Decision
}

// Deliberate asks adv for every persona's view of prompt concurrently and
// returns the opinions in persona order. The first failure cancels the rest.
func Deliberate(ctx context.Context, adv Advisor, prompt string, personas []Persona) ([]Opinion, error) {
	opinions := make([]Opinion, len(personas))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range personas {
		g.Go(func() error {
			d, err := adv.Advise(gctx, p.Prompt(prompt))
			if err != nil {
				return fmt.Errorf("persona %s: %w", p.Name, err)
			}
			opinions[i] = Opinion{Persona: p, Decision: d}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return opinions, nil
}

// Synthesize reduces opinions to one decision: the first opinion wins, and an
// empty deliberation or an answer without an action means proceed.
func Synthesize(opinions []Opinion) Decision {
	if len(opinions) == 0 || opinions[0].Decision.Action == "" {
		return Decision{Action: ActionProceed}
	}
	return opinions[0].Decision
}

// Consult asks adv directly when personas is empty, otherwise deliberates and
// synthesizes. Any failure, including an unknown action, is wrapped in
// ErrDeliberationFailed.
func Consult(ctx context.Context, adv Advisor, prompt string, personas []Persona) (Decision, error) {
	var (
		d   Decision
		err error
	)
	if len(personas) == 0 {
		d, err = adv.Advise(ctx, prompt)
	} else {
		var opinions []Opinion
		opinions, err = Deliberate(ctx, adv, prompt, personas)
		d = Synthesize(opinions)
	}
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %w", ErrDeliberationFailed, err)
	}
	if !d.Action.Valid() {
		return Decision{}, fmt.Errorf("%w: unknown action %q", ErrDeliberationFailed, d.Action)
	}
	return d, nil
}
