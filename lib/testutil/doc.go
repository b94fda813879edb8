// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds small helpers shared by Attestry tests:
// timeout-guarded channel operations and fixture file creation. Test
// code only; never import from production packages.
package testutil
