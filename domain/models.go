package domain

// Models returns every persisted model, in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Author{},
		&Poetry{},
		&PoetryLike{},
		&PoetryCollection{},
		&Post{},
		&Comment{},
		&Follow{},
		&Message{},
	}
}
