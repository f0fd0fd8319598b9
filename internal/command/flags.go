// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os/exec"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/sccachectl/internal/backend"
	"github.com/staranto/sccachectl/internal/lockkey"
)

var tldrFlag = &cli.BoolFlag{
	Name:        "tldr",
	Usage:       "show tldr page",
	Hidden:      !pathHas("tldr"),
	HideDefault: true,
}

// NewCacheFlags returns the flags every cache operation shares: where the
// lockfile is and how long the whole operation may take. ns is the command
// name and src the config file.
func NewCacheFlags(ns, src string) []cli.Flag {
	return []cli.Flag{
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:  "root",
			Usage: "directory searched for the lockfile",
			Value: ".",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:  "pattern",
			Usage: "glob selecting the lockfile, first match wins",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SCCACHECTL_PATTERN"),
			),
			Value: lockkey.DefaultPattern,
		}),
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "abort the operation after this long, 0 waits forever",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SCCACHECTL_TIMEOUT"),
				yaml.YAML(ns+".timeout", altsrc.StringSourcer(src)),
				yaml.YAML("timeout", altsrc.StringSourcer(src)),
			),
		},
	}
}

// NewCacheDirFlag constructs the --cache-dir flag. An empty value turns save
// and restore into no-ops.
func NewCacheDirFlag(ns, src string) *cli.StringFlag {
	return NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
		Name:  "cache-dir",
		Usage: "sccache directory to save or restore",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("SCCACHE_CACHE_DIR"),
		),
	})
}

// NewTokenFlag constructs the --token flag. INPUT_TOKEN is what a workflow
// step's "with: token:" becomes.
func NewTokenFlag(ns, src string) *cli.StringFlag {
	return NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
		Name:  "token",
		Usage: "GitHub token with actions:write",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("INPUT_TOKEN"),
			cli.EnvVar("GITHUB_TOKEN"),
		),
	})
}

// NewRepoFlag constructs the --repo flag.
func NewRepoFlag(ns, src string) *cli.StringFlag {
	return NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
		Name:  "repo",
		Usage: "repository as owner/name",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("GITHUB_REPOSITORY"),
		),
		Validator: func(value string) error {
			return FlagValidators(value, JammedFlagValidator, RepoValidator)
		},
	})
}

// NewAPIURLFlag constructs the --api-url flag.
func NewAPIURLFlag(ns, src string) *cli.StringFlag {
	return NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
		Name:   "api-url",
		Usage:  "GitHub REST API base URL",
		Hidden: true,
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("GITHUB_API_URL"),
		),
	})
}

// NewBackendFlags returns the flags selecting and configuring the store.
func NewBackendFlags(ns, src string) []cli.Flag {
	return []cli.Flag{
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "cache store: actions, s3 or local",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SCCACHECTL_BACKEND"),
			),
			Value: backend.TypeActions,
			Validator: func(value string) error {
				return FlagValidators(value, BackendValidator)
			},
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:  "bucket",
			Usage: "S3 bucket (s3 backend)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SCCACHECTL_S3_BUCKET"),
			),
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:  "s3-prefix",
			Usage: "object key prefix (s3 backend)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SCCACHECTL_S3_PREFIX"),
			),
			Value: "sccache",
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:  "region",
			Usage: "AWS region (s3 backend)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("AWS_REGION"),
			),
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:  "profile",
			Usage: "AWS shared config profile (s3 backend)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("AWS_PROFILE"),
			),
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:  "endpoint",
			Usage: "S3 compatible endpoint URL (s3 backend)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SCCACHECTL_S3_ENDPOINT"),
			),
		}),
		NewLocalDirFlag(ns, src),
		&cli.IntFlag{
			Name:  "retries",
			Usage: "retry failed transfers this many times (actions and s3 backends)",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".retries", altsrc.StringSourcer(src)),
				yaml.YAML("retries", altsrc.StringSourcer(src)),
			),
		},
	}
}

// NewLocalDirFlag constructs the --local-dir flag.
func NewLocalDirFlag(ns, src string) *cli.StringFlag {
	return NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
		Name:  "local-dir",
		Usage: "base directory (local backend)",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("SCCACHECTL_LOCAL_DIR"),
		),
	})
}

// NewOutputFlags returns the flags controlling listing output.
func NewOutputFlags(ns, src string) []cli.Flag {
	return []cli.Flag{
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output, default when stdout is a terminal",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".color", altsrc.StringSourcer(src)),
				yaml.YAML("color", altsrc.StringSourcer(src)),
			),
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, json or yaml",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".output", altsrc.StringSourcer(src)),
				yaml.YAML("output", altsrc.StringSourcer(src)),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of columns to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".sort", altsrc.StringSourcer(src)),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+".titles", altsrc.StringSourcer(src)),
				yaml.YAML("titles", altsrc.StringSourcer(src)),
			),
		},
	}
}

// NameSpacedValueChainFlagFromConfigFile appends the namespaced and global
// config file keys to the flag's Sources chain, after any env vars.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	if path == "" {
		return flag
	}

	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}

// pathHas reports whether target is on PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
