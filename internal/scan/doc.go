// Package scan discovers asset requests in template sources.
//
// Templates reference assets through CDN(...) helper calls, for example
//
//	!= CDN('/js/app.js')
//	!= CDN(['/js/a.js', '/js/b.js'], { defer: 'defer' })
//
// The argument list is parsed as a YAML flow sequence, which accepts the
// single-quoted strings and bare keys template authors write. Requests are
// deduplicated by identity in first-seen order.
package scan
