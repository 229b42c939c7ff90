// Package filecache stores the image bytes of each artwork row on local
// disk and fills missing files from the row's persistent URI.
//
// Files are laid out per provider authority:
//
//	<cacheRoot>/artprovider_<authority>/<id>   rows with a persistent URI
//	<filesRoot>/artprovider_<authority>/<id>   rows without one
//
// Files under the cache root can be fetched again and are therefore
// evictable. Files under the files root were written directly by the
// producer and are kept until their row is deleted.
//
// Concurrent opens of the same row are coordinated by a per-row
// read/write lock so that at most one fetch per row is in flight.
package filecache
