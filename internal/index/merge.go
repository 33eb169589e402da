package index

// Merge folds a listing from another source (the backend or the local
// history store) into the index. Known entries keep their local title
// unless it is still the default; activity times only move forward.
// It returns the number of entries added.
func (idx *Index) Merge(convs []Conversation) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	added := 0
	for _, in := range convs {
		if in.ID == "" {
			continue
		}
		cur, ok := idx.Entries[in.ID]
		if !ok {
			if in.Title == "" {
				in.Title = DefaultTitle
			}
			if in.CreatedAt.IsZero() {
				in.CreatedAt = idx.now()
			}
			if in.UpdatedAt.IsZero() {
				in.UpdatedAt = in.CreatedAt
			}
			idx.Entries[in.ID] = in
			added++
			continue
		}

		if cur.Title == DefaultTitle && in.Title != "" {
			cur.Title = in.Title
		}
		if in.UpdatedAt.After(cur.UpdatedAt) {
			cur.UpdatedAt = in.UpdatedAt
		}
		if !in.CreatedAt.IsZero() && (cur.CreatedAt.IsZero() || in.CreatedAt.Before(cur.CreatedAt)) {
			cur.CreatedAt = in.CreatedAt
		}
		idx.Entries[in.ID] = cur
	}
	return added
}
