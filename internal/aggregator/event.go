package aggregator

// Event is a content-interaction domain event. Each event resolves to a
// target content ID; its score weight is engine configuration, not payload.
type Event interface {
	ContentID() int64
}

// CommentAdded signals a new comment on a content item.
type CommentAdded struct{ ID int64 }

// CommentRemoved signals a comment deletion.
type CommentRemoved struct{ ID int64 }

// ReactionToggled signals a reaction switched on (Added) or off.
type ReactionToggled struct {
	ID    int64
	Added bool
}

// Viewed signals a recorded view of a content item.
type Viewed struct{ ID int64 }

func (e CommentAdded) ContentID() int64 { return e.ID }

func (e CommentRemoved) ContentID() int64 { return e.ID }

func (e ReactionToggled) ContentID() int64 { return e.ID }

func (e Viewed) ContentID() int64 { return e.ID }
