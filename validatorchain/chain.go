// Package validatorchain runs an ordered sequence of independent
// precondition checks and reports every failure at once, rather than
// stopping at the first. It has no dependency on the block repository; it
// exists so cmd/blockrepo-tool can validate an environment (directory
// writable, schema version compatible, ...) before opening a repository
// against it.
package validatorchain

import (
	"context"
	"errors"
)

// Validator is one independent precondition check.
type Validator func(ctx context.Context) error

// Chain is an ordered list of Validators.
type Chain []Validator

// Run executes every validator in order, regardless of earlier failures,
// and joins every non-nil error into one via errors.Join. It returns nil
// only if every validator passed.
func (c Chain) Run(ctx context.Context) error {
	var errs []error
	for _, v := range c {
		if v == nil {
			continue
		}
		if err := v(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Append returns a new Chain with extra appended, leaving c untouched.
func (c Chain) Append(extra ...Validator) Chain {
	out := make(Chain, 0, len(c)+len(extra))
	out = append(out, c...)
	out = append(out, extra...)
	return out
}
