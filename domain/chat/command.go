package chat

// PostMessageCommand carries a sending intent, whatever the entry point
// (HTTP endpoint or an open subscription channel).
type PostMessageCommand struct {
	Content  string
	Username string
}
