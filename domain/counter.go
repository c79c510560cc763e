package domain

// CounterField is a denormalized counter column.
type CounterField string

const (
	LikeCount    CounterField = "like_count"
	CollectCount CounterField = "collect_count"
	CommentCount CounterField = "comment_count"
	ViewCount    CounterField = "view_count"
	ReadCount    CounterField = "read_count"
	ReplyCount   CounterField = "reply_count"
)

// CounterEntity names the table of an entity carrying counters.
type CounterEntity string

const (
	EntityPoetry  CounterEntity = "poetries"
	EntityPost    CounterEntity = "posts"
	EntityComment CounterEntity = "comments"
)

var counterFields = map[CounterEntity][]CounterField{
	EntityPoetry:  {ReadCount, LikeCount, CommentCount, CollectCount},
	EntityPost:    {LikeCount, CommentCount, CollectCount, ViewCount},
	EntityComment: {LikeCount, ReplyCount},
}

// Has reports whether the entity carries the given counter.
func (e CounterEntity) Has(field CounterField) bool {
	for _, f := range counterFields[e] {
		if f == field {
			return true
		}
	}
	return false
}
