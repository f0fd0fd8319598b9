// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/sccachectl/internal/backend/local"
	"github.com/staranto/sccachectl/internal/meta"
)

const defaultPruneHours = 7 * 24

// PruneCommandAction removes local store archives older than --hours.
func PruneCommandAction(ctx context.Context, cmd *cli.Command) error {
	be, err := local.NewBackendLocal(local.FromDir(cmd.String("local-dir")))
	if err != nil {
		return err
	}

	n, err := be.Purge(cmd.Int("hours"))
	if err != nil {
		return err
	}

	log.WithField("dir", be.Base).Infof("pruned %d cache files", n)
	return nil
}

// PruneCommandBuilder constructs the cli.Command definition for "prune".
func PruneCommandBuilder(meta meta.Meta) *cli.Command {
	src := meta.Config.Source
	return (&CommandBuilder{
		Name:      "prune",
		Usage:     "delete old archives from the local store",
		UsageText: `sccachectl prune [--hours N] [options]`,
		Flags: []cli.Flag{
			NewLocalDirFlag("prune", src),
			&cli.IntFlag{
				Name:  "hours",
				Usage: "age in hours after which archives are removed, 0 disables",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("SCCACHECTL_PRUNE_HOURS"),
					yaml.YAML("prune.hours", altsrc.StringSourcer(src)),
				),
				Value: defaultPruneHours,
				Validator: func(value int) error {
					return FlagValidators(value, HoursValidator)
				},
			},
		},
		Action: PruneCommandAction,
		Meta:   meta,
	}).Build()
}
