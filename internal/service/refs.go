package service

import "slices"

// appendUnique adds id unless it is already present.
func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

// without returns ids minus every occurrence of id.
func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// diff splits a reference change into the ids to detach and to attach.
func diff(old, updated []string) (removed, added []string) {
	for _, v := range old {
		if !slices.Contains(updated, v) {
			removed = appendUnique(removed, v)
		}
	}
	for _, v := range updated {
		if !slices.Contains(old, v) {
			added = appendUnique(added, v)
		}
	}
	return removed, added
}
