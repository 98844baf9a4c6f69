package storage

// DefaultRedisPrefix namespaces every key the redis backend writes.
const DefaultRedisPrefix = "marks"

// redisKeys builds the key layout for one prefix.
type redisKeys struct {
	prefix string
}

// bookmark returns the key holding one bookmark as JSON.
func (k redisKeys) bookmark(id string) string {
	return k.prefix + ":bookmark:" + id
}

// folder returns the key holding one folder as JSON.
func (k redisKeys) folder(id string) string {
	return k.prefix + ":folder:" + id
}

// bookmarkOrder is the list of bookmark ids in store order.
func (k redisKeys) bookmarkOrder() string {
	return k.prefix + ":bookmarks:all"
}

// folderOrder is the list of folder ids in store order.
func (k redisKeys) folderOrder() string {
	return k.prefix + ":folders:all"
}

// lock is the writer lease.
func (k redisKeys) lock() string {
	return k.prefix + ":lock"
}
