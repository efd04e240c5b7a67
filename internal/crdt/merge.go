package crdt

// mergeDocuments merges remote into local in place. Collections merge by
// key union: entries present on only one side are kept, entries present on
// both are merged field-by-field via the LWW clock rule. Messages are
// unioned by ID; a tombstone on either side wins (deletions converge
// regardless of which side applied the delete).
func mergeDocuments(local, remote *Document) {
	if remote.LocalCounter > local.LocalCounter {
		local.LocalCounter = remote.LocalCounter
	}

	mergeMeta(&local.Meta, &remote.Meta)

	if local.Channels == nil {
		local.Channels = make(map[string]*Channel)
	}
	for id, rc := range remote.Channels {
		if lc, ok := local.Channels[id]; ok {
			mergeChannel(lc, rc)
		} else {
			cp := *rc
			cp.Messages = append([]Message(nil), rc.Messages...)
			local.Channels[id] = &cp
		}
	}

	if local.Categories == nil {
		local.Categories = make(map[string]*Category)
	}
	for id, rc := range remote.Categories {
		if lc, ok := local.Categories[id]; ok {
			mergeCategory(lc, rc)
		} else {
			cp := *rc
			local.Categories[id] = &cp
		}
	}

	if local.Members == nil {
		local.Members = make(map[string]*Member)
	}
	for id, rm := range remote.Members {
		if lm, ok := local.Members[id]; ok {
			mergeMember(lm, rm)
		} else {
			cp := *rm
			cp.Roles = append([]string(nil), rm.Roles...)
			local.Members[id] = &cp
		}
	}

	// Clear dangling category references left by a category deletion.
	for _, ch := range local.Channels {
		if ch.CategoryID != "" {
			if _, ok := local.Categories[ch.CategoryID]; !ok {
				ch.CategoryID = ""
			}
		}
	}
}

func mergeMeta(local, remote *Meta) {
	if remote.NameClock.After(local.NameClock) {
		local.Name = remote.Name
		local.NameClock = remote.NameClock
	}
	if remote.DescriptionClock.After(local.DescriptionClock) {
		local.Description = remote.Description
		local.DescriptionClock = remote.DescriptionClock
	}
	if remote.CreatedByClock.After(local.CreatedByClock) {
		local.CreatedBy = remote.CreatedBy
		local.CreatedByClock = remote.CreatedByClock
	}
	if local.CreatedAt == 0 || (remote.CreatedAt != 0 && remote.CreatedAt < local.CreatedAt) {
		local.CreatedAt = remote.CreatedAt
	}
}

func mergeChannel(local, remote *Channel) {
	if remote.NameClock.After(local.NameClock) {
		local.Name = remote.Name
		local.NameClock = remote.NameClock
	}
	if remote.TopicClock.After(local.TopicClock) {
		local.Topic = remote.Topic
		local.TopicClock = remote.TopicClock
	}
	if remote.KindClock.After(local.KindClock) {
		local.Kind = remote.Kind
		local.KindClock = remote.KindClock
	}
	if remote.PositionClock.After(local.PositionClock) {
		local.Position = remote.Position
		local.PositionClock = remote.PositionClock
	}
	if remote.CategoryClock.After(local.CategoryClock) {
		local.CategoryID = remote.CategoryID
		local.CategoryClock = remote.CategoryClock
	}
	local.Messages = mergeMessages(local.Messages, remote.Messages)
}

func mergeMessages(local, remote []Message) []Message {
	indexByID := make(map[string]int, len(local))
	for i := range local {
		indexByID[local[i].ID] = i
	}
	for _, rm := range remote {
		if i, ok := indexByID[rm.ID]; ok {
			if rm.Deleted {
				local[i].Deleted = true
			}
			continue
		}
		local = append(local, rm)
		indexByID[rm.ID] = len(local) - 1
	}
	return local
}

func mergeCategory(local, remote *Category) {
	if remote.NameClock.After(local.NameClock) {
		local.Name = remote.Name
		local.NameClock = remote.NameClock
	}
	if remote.PositionClock.After(local.PositionClock) {
		local.Position = remote.Position
		local.PositionClock = remote.PositionClock
	}
}

func mergeMember(local, remote *Member) {
	if remote.DisplayNameClock.After(local.DisplayNameClock) {
		local.DisplayName = remote.DisplayName
		local.DisplayNameClock = remote.DisplayNameClock
	}
	if remote.RolesClock.After(local.RolesClock) {
		local.Roles = append([]string(nil), remote.Roles...)
		local.RolesClock = remote.RolesClock
	}
	if local.JoinedAt == 0 || (remote.JoinedAt != 0 && remote.JoinedAt < local.JoinedAt) {
		local.JoinedAt = remote.JoinedAt
	}
}
