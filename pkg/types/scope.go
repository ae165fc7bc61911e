package types

import "fmt"

// ScopeTag identifies the workspace snapshot a retrieval call is restricted to
type ScopeTag struct {
	Branch    string `json:"branch"`
	Directory string `json:"directory"`
}

// String renders the tag as directory::branch
func (t ScopeTag) String() string {
	return fmt.Sprintf("%s::%s", t.Directory, t.Branch)
}

// RetrievalRequest carries the parameters of one retrieval call. It is
// built once per pipeline run and treated as immutable; WithQuery derives a
// copy keyed on different text.
type RetrievalRequest struct {
	Query           string
	Tags            []ScopeTag
	FilterDirectory string // Optional path prefix
	N               int    // Requested result count
}

// WithQuery returns a copy of the request with a different query text
func (r RetrievalRequest) WithQuery(query string) RetrievalRequest {
	cp := r
	cp.Query = query
	cp.Tags = append([]ScopeTag(nil), r.Tags...)
	return cp
}

// WithLimit returns a copy of the request asking for n results
func (r RetrievalRequest) WithLimit(n int) RetrievalRequest {
	cp := r.WithQuery(r.Query)
	cp.N = n
	return cp
}
