package bot

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const ignoredListKey = "ignored"

// IgnoredUsersChecker answers blocked-relationship lookups from the
// operator's ignored-user list, cached briefly so a join burst doesn't turn
// into a request burst.
type IgnoredUsersChecker struct {
	client *Client
	cache  *gocache.Cache
}

func NewIgnoredUsersChecker(client *Client) *IgnoredUsersChecker {
	return &IgnoredUsersChecker{
		client: client,
		cache:  gocache.New(time.Minute, time.Minute*5),
	}
}

// IsBlocked reports whether the operator ignores the given user.
func (c *IgnoredUsersChecker) IsBlocked(_ context.Context, userID string) (bool, error) {
	ignored, err := c.ignoredUsers()
	if err != nil {
		return false, err
	}
	_, blocked := ignored[userID]
	return blocked, nil
}

func (c *IgnoredUsersChecker) ignoredUsers() (map[string]struct{}, error) {
	if cached, ok := c.cache.Get(ignoredListKey); ok {
		return cached.(map[string]struct{}), nil
	}
	mx := c.client.Matrix()
	var resp struct {
		IgnoredUsers map[string]struct{} `json:"ignored_users"`
	}
	url := mx.BuildURL("user", mx.UserID, "account_data", "m.ignored_user_list")
	if err := mx.MakeRequest("GET", url, nil, &resp); err != nil {
		return nil, err
	}
	if resp.IgnoredUsers == nil {
		resp.IgnoredUsers = map[string]struct{}{}
	}
	c.cache.SetDefault(ignoredListKey, resp.IgnoredUsers)
	return resp.IgnoredUsers, nil
}
