// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/sccachectl/internal/meta"
)

// DedupeCommandAction deletes the Actions cache entry under the lockfile key
// so the next save can replace it. Only a missing token or lockfile fails.
func DedupeCommandAction(ctx context.Context, cmd *cli.Command) error {
	_, err := NewOperations(cmd).Deduplicate(ctx)
	return err
}

// DedupeCommandBuilder constructs the cli.Command definition for "dedupe".
func DedupeCommandBuilder(meta meta.Meta) *cli.Command {
	src := meta.Config.Source
	return (&CommandBuilder{
		Name:      "dedupe",
		Usage:     "delete the cache entry for the current lockfile",
		UsageText: `sccachectl dedupe --token TOKEN [options]`,
		Flags: append([]cli.Flag{
			NewRepoFlag("dedupe", src),
			NewTokenFlag("dedupe", src),
			NewAPIURLFlag("dedupe", src),
		}, NewCacheFlags("dedupe", src)...),
		Action: DedupeCommandAction,
		Meta:   meta,
	}).Build()
}
