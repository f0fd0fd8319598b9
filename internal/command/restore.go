// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/sccachectl/internal/meta"
)

// RestoreCommandAction restores the sccache directory from the exact key or
// the newest sccache entry. A miss still exits 0.
func RestoreCommandAction(ctx context.Context, cmd *cli.Command) error {
	_, err := NewOperations(cmd).Restore(ctx)
	return err
}

// RestoreCommandBuilder constructs the cli.Command definition for "restore".
func RestoreCommandBuilder(meta meta.Meta) *cli.Command {
	src := meta.Config.Source
	return (&CommandBuilder{
		Name:      "restore",
		Usage:     "restore the sccache directory from the cache store",
		UsageText: `sccachectl restore [options]`,
		Flags: append(append([]cli.Flag{
			NewCacheDirFlag("restore", src),
			NewRepoFlag("restore", src),
			NewTokenFlag("restore", src),
			NewAPIURLFlag("restore", src),
		}, NewCacheFlags("restore", src)...), NewBackendFlags("restore", src)...),
		Action: RestoreCommandAction,
		Meta:   meta,
	}).Build()
}
