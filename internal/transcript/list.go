package transcript

// The helpers below never modify their input slice. Each returns a new
// backing array so a snapshot handed to an observer stays stable.

// Index returns the position of the entry with the given id, or -1.
func Index(entries []Entry, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Append returns a copy of entries with e added at the end.
func Append(entries []Entry, e Entry) []Entry {
	out := make([]Entry, len(entries), len(entries)+1)
	copy(out, entries)
	return append(out, e)
}

// Replace returns a copy of entries with position i set to e.
func Replace(entries []Entry, i int, e Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	out[i] = e
	return out
}

// Remove returns a copy of entries without position i.
func Remove(entries []Entry, i int) []Entry {
	out := make([]Entry, 0, len(entries)-1)
	out = append(out, entries[:i]...)
	return append(out, entries[i+1:]...)
}
