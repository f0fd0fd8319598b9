// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/sccachectl/internal/backend"
	"github.com/staranto/sccachectl/internal/lockkey"
	"github.com/staranto/sccachectl/internal/meta"
	"github.com/staranto/sccachectl/internal/output"
	"github.com/staranto/sccachectl/internal/store"
)

// LsCommandAction lists the entries in the store whose key starts with
// --prefix.
func LsCommandAction(ctx context.Context, cmd *cli.Command) error {
	repo, err := repoOf(cmd)
	if err != nil {
		return err
	}

	st, err := backend.New(ctx, backendOptions(cmd, repo))
	if err != nil {
		return err
	}

	lister, ok := st.(store.Lister)
	if !ok {
		return fmt.Errorf("%s cannot list entries", st)
	}

	entries, err := lister.List(ctx, cmd.String("prefix"))
	if err != nil {
		return err
	}
	log.Debugf("entries: %d", len(entries))

	return output.Spit(writer(cmd), entries, output.Options{
		Format: cmd.String("output"),
		Sort:   cmd.String("sort"),
		Filter: cmd.String("filter"),
		Color:  colorOf(cmd),
		Titles: cmd.Bool("titles"),
	})
}

// LsCommandBuilder constructs the cli.Command definition for "ls".
func LsCommandBuilder(meta meta.Meta) *cli.Command {
	src := meta.Config.Source
	return (&CommandBuilder{
		Name:      "ls",
		Usage:     "list cache entries",
		UsageText: `sccachectl ls [options]`,
		Flags: append(append([]cli.Flag{
			NewRepoFlag("ls", src),
			NewTokenFlag("ls", src),
			NewAPIURLFlag("ls", src),
			NameSpacedValueChainFlagFromConfigFile("ls", src, &cli.StringFlag{
				Name:  "prefix",
				Usage: "only list keys starting with this",
				Value: lockkey.Prefix,
			}),
		}, NewBackendFlags("ls", src)...), NewOutputFlags("ls", src)...),
		Action: LsCommandAction,
		Meta:   meta,
	}).Build()
}
