package domain

import "fmt"

// rkeyLen is the fixed length of an AT-URI record key.
const rkeyLen = 13

// ParseRKey extracts the record key from an AT-URI: the final 13
// characters. Shorter URIs return the whole string rather than panicking —
// callers treat an implausibly short rkey as a malformed event and drop it.
func ParseRKey(uri string) string {
	if len(uri) <= rkeyLen {
		return uri
	}
	return uri[len(uri)-rkeyLen:]
}

// PostURI reconstructs the canonical AT-URI for a post, mirroring
// original_source's get_post_uri helper.
func PostURI(did, rkey string) string {
	return fmt.Sprintf("at://%s/app.bsky.feed.post/%s", did, rkey)
}
