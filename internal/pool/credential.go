// Package pool owns the on-disk credential pool: the credential model, the
// loader that reconciles password files against used markers, the readiness
// flag, and the directory watcher that invalidates it.
package pool

// Credential is one proxy-access identity, rebuilt from disk on every pool
// load. Records are superseded wholesale on reload, never mutated in place.
type Credential struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	IPAddress string `json:"ip_address"`
	Port      int    `json:"port"`
	// Available is false when a matching used marker exists on disk.
	Available bool `json:"available"`
}
