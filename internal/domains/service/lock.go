package service

import (
	"hash/fnv"
	"sync"
)

// numDomainShards bounds the lock table. Two domains hashing to the same
// shard serialize; the same domain always does.
const numDomainShards = 128

// domainLocks serializes lifecycle mutations per domain within one process,
// so a double-clicked register cannot write two pending records. It does not
// coordinate across replicas; the pre-flight store check covers that case.
type domainLocks struct {
	shards [numDomainShards]sync.Mutex
}

// lock acquires the shard for domain and returns its release func.
func (l *domainLocks) lock(domain string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(domain))
	m := &l.shards[h.Sum32()%numDomainShards]
	m.Lock()
	return m.Unlock
}
