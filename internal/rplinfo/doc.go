// Package rplinfo defines the two records a replica persists between
// restarts: MasterInfo (how to reach the source and where to resume reading)
// and RelayLogInfo (how far the relay log has been applied).
//
// Both are built from infofile fields. Defaultable fields are bound to a
// shared *Options at construction and read it on every access, so a changed
// option takes effect for every record still in DEFAULT state without
// rewriting any file.
package rplinfo
