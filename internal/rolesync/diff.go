// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package rolesync

import "sort"

// Diff returns the role ids present in exactly one of before and after,
// sorted ascending. Duplicates within either input are ignored. The result
// is never nil.
func Diff(before, after []string) []string {
	inBefore := make(map[string]struct{}, len(before))
	for _, id := range before {
		inBefore[id] = struct{}{}
	}
	inAfter := make(map[string]struct{}, len(after))
	for _, id := range after {
		inAfter[id] = struct{}{}
	}

	changed := []string{}
	for id := range inBefore {
		if _, ok := inAfter[id]; !ok {
			changed = append(changed, id)
		}
	}
	for id := range inAfter {
		if _, ok := inBefore[id]; !ok {
			changed = append(changed, id)
		}
	}
	sort.Strings(changed)
	return changed
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
