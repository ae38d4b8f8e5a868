package model

// FeedItem is an ephemeral composed view of a post plus its fully
// materialized comments, each annotated with is_liked for the viewer.
// Feed items are assembled per request and never persisted.
type FeedItem struct {
	Post     Post      `json:"post"`
	Comments []Comment `json:"comments"`
}

// FeedResponse is the paginated following-feed response. Page indexing
// is 1-based with a fixed page size; a page past the end of the data is
// an empty items list, not an error.
type FeedResponse struct {
	Items []FeedItem `json:"items"`
	Page  int        `json:"page"`
}
