// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	"github.com/staranto/sccachectl/internal/meta"
)

type keyDoc struct {
	Key      string `json:"key" yaml:"key"`
	Digest   string `json:"digest" yaml:"digest"`
	Lockfile string `json:"lockfile" yaml:"lockfile"`
}

// KeyCommandAction prints the derived key, which is handy when chasing a
// cache miss.
func KeyCommandAction(ctx context.Context, cmd *cli.Command) error {
	key, err := NewOperations(cmd).Key(ctx)
	if err != nil {
		return err
	}

	doc := keyDoc{Key: key.Value, Digest: key.Digest, Lockfile: key.Lockfile}
	w := writer(cmd)

	switch cmd.String("output") {
	case "json":
		b, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		b, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		_, err = fmt.Fprintln(w, key.Value)
		return err
	}
}

// KeyCommandBuilder constructs the cli.Command definition for "key".
func KeyCommandBuilder(meta meta.Meta) *cli.Command {
	src := meta.Config.Source
	return (&CommandBuilder{
		Name:      "key",
		Usage:     "print the cache key for the current lockfile",
		UsageText: `sccachectl key [options]`,
		Flags: append(NewCacheFlags("key", src),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output format: text, json or yaml",
				Value:   "text",
				Validator: func(value string) error {
					return FlagValidators(value, OutputValidator)
				},
			},
		),
		Action: KeyCommandAction,
		Meta:   meta,
	}).Build()
}
