// Package extract pulls the answer out of an HTTP response.
//
// It provides three strategies:
//   - json: a key-path such as choices[0].message.content over a JSON body
//   - html: the first match of a result-URL pattern, prefixed with a host
//   - css: the text or an attribute of the first node matching a selector
//
// A miss is not an error. JSON and CSS return an empty Value; HTML returns
// the raw body. Result.Found tells an empty match apart from a miss.
// Callers add their own strategies through a Registry.
package extract
