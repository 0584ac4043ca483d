// Package stores holds client-side mirrors of server resources.
//
// Each store tracks a loading flag and the last error next to its data so a view can render
// all three states. Stores are safe for concurrent use and never hold their lock across a request.
package stores
