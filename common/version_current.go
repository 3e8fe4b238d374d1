// Copyright 2025-2026
// SPDX-License-Identifier: Apache-2.0

package common

// CurrentVersion represents the current build version.
// This should be the only one.
var CurrentVersion = Version{
	Major:  0,
	Minor:  3,
	Patch:  0,
	Suffix: "",
}
