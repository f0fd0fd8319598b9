// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: Apache-2.0

// sccachectl saves, restores and deduplicates an sccache directory in CI,
// keyed by the hash of the project's lockfile. This package wires the CLI and
// delegates to the internal packages.
package main
