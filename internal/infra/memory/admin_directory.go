package memory

import "context"

// StaticAdminDirectory answers admin checks from a fixed allow-list of user
// ids, typically loaded from config. Real admin policy lives with the
// external identity provider; the core only consumes this capability.
type StaticAdminDirectory struct {
	admins map[string]struct{}
}

func NewStaticAdminDirectory(userIDs []string) *StaticAdminDirectory {
	admins := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		admins[id] = struct{}{}
	}
	return &StaticAdminDirectory{admins: admins}
}

func (d *StaticAdminDirectory) IsAdmin(_ context.Context, userID string) (bool, error) {
	_, ok := d.admins[userID]
	return ok, nil
}
