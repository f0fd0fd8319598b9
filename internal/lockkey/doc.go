// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package lockkey derives the sccache cache key from the first lockfile found
// beneath a root directory. The key is "sccache-" followed by the lowercase
// hex SHA-256 of the lockfile bytes.
package lockkey
