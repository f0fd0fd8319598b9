// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package version holds build-time version information. Version is set with
// -ldflags "-X github.com/staranto/sccachectl/internal/version.Version=...".
package version

var Version = "dev"
