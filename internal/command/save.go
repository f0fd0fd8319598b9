// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/sccachectl/internal/meta"
)

// SaveCommandAction uploads the sccache directory under the lockfile key.
func SaveCommandAction(ctx context.Context, cmd *cli.Command) error {
	return NewOperations(cmd).Save(ctx)
}

// SaveCommandBuilder constructs the cli.Command definition for "save".
func SaveCommandBuilder(meta meta.Meta) *cli.Command {
	src := meta.Config.Source
	return (&CommandBuilder{
		Name:      "save",
		Usage:     "save the sccache directory to the cache store",
		UsageText: `sccachectl save [options]`,
		Flags: append(append([]cli.Flag{
			NewCacheDirFlag("save", src),
			NewRepoFlag("save", src),
			NewTokenFlag("save", src),
			NewAPIURLFlag("save", src),
		}, NewCacheFlags("save", src)...), NewBackendFlags("save", src)...),
		Action: SaveCommandAction,
		Meta:   meta,
	}).Build()
}
