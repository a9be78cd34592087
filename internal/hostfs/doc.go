// Package hostfs provides read helpers for files exposed from the host.
//
// The host root defaults to "/" when macallowd runs directly on the host.
// In a container the host filesystem is usually bind-mounted, e.g.:
//
//	/etc/shadow -> /host/etc/shadow
//	/etc/passwd -> /host/etc/passwd
package hostfs
