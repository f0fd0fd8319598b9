// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package command defines the sccachectl CLI. It wires flags, their env and
// config file sources, and the actions for each subcommand.
package command
