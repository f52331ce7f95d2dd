package directory

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TenantCache memoises tenant rows by name and by shard id. Tenants are
// never updated or deleted, so entries need no invalidation.
type TenantCache struct {
	c *lru.Cache[string, Tenant]
}

func NewTenantCache(size int) (*TenantCache, error) {
	c, err := lru.New[string, Tenant](size)
	if err != nil {
		return nil, err
	}
	return &TenantCache{c: c}, nil
}

func nameKey(name string) string { return "n/" + name }

func shardKey(id int64) string { return "k/" + strconv.FormatInt(id, 10) }

func (tc *TenantCache) ByName(name string) (Tenant, bool) {
	return tc.c.Get(nameKey(name))
}

func (tc *TenantCache) ByShard(id int64) (Tenant, bool) {
	return tc.c.Get(shardKey(id))
}

func (tc *TenantCache) Set(t Tenant) {
	tc.c.Add(nameKey(t.Name), t)
	tc.c.Add(shardKey(t.ShardID), t)
}

func (tc *TenantCache) Len() int {
	return tc.c.Len()
}
