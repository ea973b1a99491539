package data

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"beastmovieflix/internal/store"
	"beastmovieflix/internal/types"
)

const groupNameMin = 2

// CreateGroup creates a discussion group. The creator is always a member,
// whether or not they appear in memberIDs.
func (s *Service) CreateGroup(ctx context.Context, name, description string, memberIDs []string) (*types.Group, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	if len(name) < groupNameMin {
		return nil, fmt.Errorf("%w: group name must be at least %d characters", ErrValidation, groupNameMin)
	}

	members := types.IDList{s.session.UserID}
	for _, id := range memberIDs {
		if !members.Contains(id) {
			members = append(members, id)
		}
	}

	if s.remote {
		res := s.api.Post(ctx, "/groups", map[string]any{
			"name":        name,
			"description": description,
			"memberIds":   members,
		})
		if res.Success {
			var group types.Group
			if err := res.Decode(&group); err != nil {
				return nil, err
			}
			return &group, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, creating group in local store")
	}

	group := types.Group{
		ID:          types.FlexID(s.newID()),
		Name:        name,
		Description: description,
		CreatorID:   types.FlexID(s.session.UserID),
		CreatorName: s.session.Username,
		Members:     members,
		Messages:    []types.GroupMessage{},
		CreatedAt:   s.now().UTC().Format(time.RFC3339),
	}
	groups := readList[types.Group](s.store, store.CollectionGroups)
	groups = append(groups, group)
	if err := s.store.WriteCollection(store.CollectionGroups, groups); err != nil {
		return nil, err
	}
	return &group, nil
}

// Groups lists the groups the current user created or belongs to.
func (s *Service) Groups(ctx context.Context) ([]types.Group, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}

	if s.remote {
		res := s.api.Get(ctx, "/groups")
		if res.Success {
			var groups []types.Group
			if err := res.Decode(&groups); err != nil {
				return nil, err
			}
			return groups, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	mine := []types.Group{}
	for _, g := range readList[types.Group](s.store, store.CollectionGroups) {
		if string(g.CreatorID) == s.session.UserID || g.Members.Contains(s.session.UserID) {
			mine = append(mine, g)
		}
	}
	return mine, nil
}

// Group fetches one group with its message history.
func (s *Service) Group(ctx context.Context, groupID string) (*types.Group, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}

	if s.remote {
		res := s.api.Get(ctx, "/groups/"+groupID)
		if res.Success {
			var group types.Group
			if err := res.Decode(&group); err != nil {
				return nil, err
			}
			return &group, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
	}

	for _, g := range readList[types.Group](s.store, store.CollectionGroups) {
		if string(g.ID) == groupID {
			group := g
			return &group, nil
		}
	}
	return nil, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
}

// JoinGroup adds the current user to the group's members.
func (s *Service) JoinGroup(ctx context.Context, groupID string) error {
	return s.membership(ctx, groupID, "join", s.session.UserID, true)
}

// LeaveGroup removes the current user from the group's members.
func (s *Service) LeaveGroup(ctx context.Context, groupID string) error {
	return s.membership(ctx, groupID, "leave", s.session.UserID, false)
}

// AddMember adds another user to a group.
func (s *Service) AddMember(ctx context.Context, groupID, userID string) error {
	if err := s.requireLogin(); err != nil {
		return err
	}

	if s.remote {
		res := s.api.Post(ctx, "/groups/"+groupID+"/members", map[string]string{"userId": userID})
		if res.Success {
			return nil
		}
		if !res.Retriable() {
			return remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, adding member in local store")
	}

	return s.setMemberLocal(groupID, userID, true, true)
}

func (s *Service) membership(ctx context.Context, groupID, action, userID string, join bool) error {
	if err := s.requireLogin(); err != nil {
		return err
	}

	if s.remote {
		res := s.api.Post(ctx, "/groups/"+groupID+"/"+action, nil)
		if res.Success {
			return nil
		}
		if !res.Retriable() {
			return remoteFailure(res)
		}
		log.Warn().Str("action", action).Msg("backend unavailable, updating membership in local store")
	}

	return s.setMemberLocal(groupID, userID, join, false)
}

func (s *Service) setMemberLocal(groupID, userID string, join, strict bool) error {
	groups := readList[types.Group](s.store, store.CollectionGroups)
	for i := range groups {
		if string(groups[i].ID) != groupID {
			continue
		}
		present := groups[i].Members.Contains(userID)
		switch {
		case join && present:
			if strict {
				return fmt.Errorf("%w: user is already a member", ErrDuplicate)
			}
			return nil
		case join:
			groups[i].Members = append(groups[i].Members, userID)
		case !present:
			return nil
		case string(groups[i].CreatorID) == userID:
			return fmt.Errorf("%w: the creator cannot leave the group", ErrValidation)
		default:
			groups[i].Members = groups[i].Members.Remove(userID)
		}
		return s.store.WriteCollection(store.CollectionGroups, groups)
	}
	return fmt.Errorf("%w: group %s", ErrNotFound, groupID)
}

// DeleteGroup removes a group from the local store. There is no remote
// delete route; in remote mode the group only disappears from this device.
// Only the creator may delete.
func (s *Service) DeleteGroup(groupID string) error {
	if err := s.requireLogin(); err != nil {
		return err
	}

	groups := readList[types.Group](s.store, store.CollectionGroups)
	kept := make([]types.Group, 0, len(groups))
	found := false
	for _, g := range groups {
		if string(g.ID) == groupID {
			if string(g.CreatorID) != s.session.UserID {
				return fmt.Errorf("%w: only the creator can delete a group", ErrUnauthorized)
			}
			found = true
			continue
		}
		kept = append(kept, g)
	}
	if !found {
		return fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}
	return s.store.WriteCollection(store.CollectionGroups, kept)
}

// SendMessage posts a chat message to the group.
func (s *Service) SendMessage(ctx context.Context, groupID, content string) (*types.GroupMessage, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("%w: message cannot be empty", ErrValidation)
	}

	if s.remote {
		res := s.api.Post(ctx, "/groups/"+groupID+"/messages", map[string]string{"content": content})
		if res.Success {
			var msg types.GroupMessage
			if err := res.Decode(&msg); err != nil {
				return nil, err
			}
			return &msg, nil
		}
		if !res.Retriable() {
			return nil, remoteFailure(res)
		}
		log.Warn().Msg("backend unavailable, storing message in local store")
	}

	msg := types.GroupMessage{
		ID:         types.FlexID(s.newID()),
		SenderID:   types.FlexID(s.session.UserID),
		SenderName: s.session.Username,
		Content:    content,
		CreatedAt:  s.now().UTC().Format(time.RFC3339),
	}
	groups := readList[types.Group](s.store, store.CollectionGroups)
	for i := range groups {
		if string(groups[i].ID) != groupID {
			continue
		}
		if !groups[i].Members.Contains(s.session.UserID) && string(groups[i].CreatorID) != s.session.UserID {
			return nil, fmt.Errorf("%w: not a member of this group", ErrUnauthorized)
		}
		groups[i].Messages = append(groups[i].Messages, msg)
		if err := s.store.WriteCollection(store.CollectionGroups, groups); err != nil {
			return nil, err
		}
		return &msg, nil
	}
	return nil, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
}

// WatchGroup polls the group's messages every interval and calls render with
// each fresh snapshot until ctx is cancelled. A response for a different
// group id is dropped rather than rendered, so a stale fetch never paints
// over the watched conversation.
func (s *Service) WatchGroup(ctx context.Context, groupID string, interval time.Duration, render func(*types.Group)) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	fetch := func() {
		g, err := s.Group(ctx, groupID)
		if err != nil {
			log.Debug().Str("group", groupID).Err(err).Msg("group poll failed")
			return
		}
		if g.ID != "" && string(g.ID) != groupID {
			return
		}
		render(g)
	}

	fetch()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fetch()
		}
	}
}
