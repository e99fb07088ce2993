package paramcache

import (
	"context"
	"fmt"
)

// Fetch retrieves a single alias under the default load options, so a
// ParameterCache can stand in wherever a source fetcher with a
// Fetch/Close contract is expected. An alias the remote store never
// resolved is reported as an error rather than an empty string, keeping
// "absent" distinguishable downstream.
func (c *ParameterCache) Fetch(ctx context.Context, alias string) (string, error) {
	v, err := c.Get(ctx, alias, LoadOptions{})
	if err != nil {
		return "", err
	}
	s, ok := v.Get()
	if !ok {
		return "", fmt.Errorf("parameter for alias %q not present in remote store", alias)
	}
	return s, nil
}

// Close satisfies the fetcher contract. The cache holds no resources of its
// own; the store's lifecycle is managed by whoever constructed it.
func (c *ParameterCache) Close() error {
	return nil
}
