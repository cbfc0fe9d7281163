package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"gearshare/models"
)

// Repo reads the records the triggers need with keyed lookups.
type Repo struct {
	store Store
}

func NewRepo(store Store) *Repo {
	return &Repo{store: store}
}

func userPath(userID string) string { return "/users/" + userID }
func tokensPath(userID string) string { return userPath(userID) + "/notificationTokens" }
func equipmentPath(id string) string { return "/equipment/" + id }
func tokenPath(userID, key string) string { return tokensPath(userID) + "/" + key }

// TokenSet loads the user's notification tokens. Children are either
// {token: true} or {pushId: "token"}; the same token stored twice is returned
// once with both keys. A node written as a plain list of tokens reads back
// as an array and is keyed by index.
func (r *Repo) TokenSet(ctx context.Context, userID string) (models.TokenSet, error) {
	var node interface{}
	if err := r.store.Get(ctx, tokensPath(userID), &node); err != nil {
		return nil, fmt.Errorf("TokenSet: user %s: %w", userID, err)
	}

	keys, children := tokenChildren(node)
	index := make(map[string]int, len(keys))
	var set models.TokenSet
	for _, key := range keys {
		var token string
		switch v := children[key].(type) {
		case string:
			token = v
		case bool:
			if v {
				token = key
			}
		}
		if token == "" {
			continue
		}
		if i, seen := index[token]; seen {
			set[i].Keys = append(set[i].Keys, key)
			continue
		}
		index[token] = len(set)
		set = append(set, models.DeviceToken{Token: token, Keys: []string{key}})
	}
	return set, nil
}

// tokenChildren flattens a tokens node into its child keys, in visit order,
// and their values. Sparse arrays leave null holes, which are dropped.
func tokenChildren(node interface{}) ([]string, map[string]interface{}) {
	switch n := node.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys, n
	case []interface{}:
		keys := make([]string, 0, len(n))
		children := make(map[string]interface{}, len(n))
		for i, v := range n {
			if v == nil {
				continue
			}
			key := strconv.Itoa(i)
			keys = append(keys, key)
			children[key] = v
		}
		return keys, children
	}
	return nil, nil
}

// User returns the profile at /users/{userID}, or nil when there is none.
func (r *Repo) User(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	found, err := r.getObject(ctx, userPath(userID), &u)
	if err != nil {
		return nil, fmt.Errorf("User: %w", err)
	}
	if !found {
		return nil, nil
	}
	if u.UserID == "" {
		u.UserID = userID
	}
	return &u, nil
}

// Equipment returns the listing at /equipment/{equipmentID}, or nil when there is none.
func (r *Repo) Equipment(ctx context.Context, equipmentID string) (*models.Equipment, error) {
	var e models.Equipment
	found, err := r.getObject(ctx, equipmentPath(equipmentID), &e)
	if err != nil {
		return nil, fmt.Errorf("Equipment: %w", err)
	}
	if !found {
		return nil, nil
	}
	if e.EquipmentID == "" {
		e.EquipmentID = equipmentID
	}
	return &e, nil
}

// RemoveToken deletes every child the token is stored under.
func (r *Repo) RemoveToken(ctx context.Context, userID string, token models.DeviceToken) error {
	for _, key := range token.Keys {
		if err := r.store.Delete(ctx, tokenPath(userID, key)); err != nil {
			return fmt.Errorf("RemoveToken: user %s: %w", userID, err)
		}
	}
	return nil
}

// getObject decodes a non-empty object node into v. found is false for a
// missing or childless node.
func (r *Repo) getObject(ctx context.Context, path string, v interface{}) (bool, error) {
	var node map[string]interface{}
	if err := r.store.Get(ctx, path, &node); err != nil {
		return false, err
	}
	if len(node) == 0 {
		return false, nil
	}
	data, err := json.Marshal(node)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return true, nil
}
