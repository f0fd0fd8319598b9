// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package output filters, sorts and renders cache entry listings as a
// table, JSON or YAML.
package output
