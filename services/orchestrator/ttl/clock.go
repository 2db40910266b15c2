// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ttl expires idle conversation sessions so thread handles and
// their provider-side history do not accumulate for the process lifetime.
package ttl

import "time"

// Clock abstracts time.Now so sweeper tests can control the cutoff
// without sleeping.
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock backed by the wall clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall-clock Clock.
func SystemClock() Clock { return systemClock{} }
