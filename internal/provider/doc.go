// Package provider is the artwork provider engine.
//
// A Provider owns one collection: its row store, file cache and load state.
// Producers publish artwork through AddArtwork and SetArtwork; hosts read
// rows through Query, open images through OpenFile and drive the rest of
// the interaction through Call.
//
// Producer behaviour is customised by hooks: the value passed to New must
// implement LoadRequester and may implement any of the other hook
// interfaces in this package, checked by type assertion.
package provider
