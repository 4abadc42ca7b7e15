package workflow

// replayCursor walks an instance's recorded history while the workflow
// definition re-executes. The definition is deterministic: the sequence of
// activity invocations depends only on the order and on prior recorded
// results, so consuming events in order reconstructs the exact position the
// instance had reached before it was interrupted. Activities with a recorded
// completion are decoded from the log and never re-invoked.
type replayCursor struct {
	history []HistoryEvent
	index   int
}

func newReplayCursor(history []HistoryEvent) *replayCursor {
	return &replayCursor{history: history}
}

// next consumes and returns the next recorded event, if any
func (c *replayCursor) next() (HistoryEvent, bool) {
	if c.index < len(c.history) {
		event := c.history[c.index]
		c.index++
		return event, true
	}
	return HistoryEvent{}, false
}

// seq is the sequence number the next live event should carry
func (c *replayCursor) seq() int {
	return c.index + 1
}

// advance moves past a freshly recorded live event
func (c *replayCursor) advance() {
	c.index++
}
