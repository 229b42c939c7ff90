// Package protocol exposes a provider over a Unix socket.
//
// Each connection carries exactly one CBOR request and one CBOR response.
// Requests are maps with an "action" field naming the operation; the
// remaining fields are action specific. Responses are
// {ok, error, request_id, data}.
//
// Actions:
//
//	call         control protocol method (method, arg, extras)
//	query        rows under an address, filtered and ordered
//	insert       one artwork, deduplicated by token
//	update       partial update of rows under an address
//	delete       rows under an address, with their cache files
//	add          many artwork in one batch
//	set          replace the whole collection
//	last_added   newest row
//	content_uri  collection address
//	open         fetch if needed and return the local cache path
//
// The open action hands out a file path rather than bytes: clients are
// expected to run on the same host as the server.
package protocol
