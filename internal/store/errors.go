// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package store

import "errors"

// ErrNotFound indicates the requested entity does not exist. Backends wrap
// it in coded errors, so both errors.Is and rlerr classification work.
var ErrNotFound = errors.New("not found")
