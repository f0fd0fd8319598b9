// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/staranto/sccachectl/internal/backend"
	"github.com/staranto/sccachectl/internal/github"
	"github.com/staranto/sccachectl/internal/output"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'. urfave/cli allows this and there is no switch to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	if !slices.Contains(output.Formats, value.(string)) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

func BackendValidator(value any) error {
	if !slices.Contains(backend.Types, strings.ToLower(value.(string))) {
		return fmt.Errorf("must be one of %v", backend.Types)
	}
	return nil
}

// RepoValidator accepts owner/name. Empty is allowed here; the commands
// that need a repo fail later with a clearer message.
func RepoValidator(value any) error {
	s := value.(string)
	if s == "" {
		return nil
	}
	_, err := github.ParseRepo(s)
	return err
}

func HoursValidator(value any) error {
	if value.(int) < 0 {
		return errors.New("must not be negative")
	}
	return nil
}
