package narration

// Caption holds the two visible lines of narration text.
type Caption struct {
	current  string
	previous string
}

// Shift moves the current line up and shows next.
func (c *Caption) Shift(next string) {
	c.previous = c.current
	c.current = next
}

// Clear blanks both lines.
func (c *Caption) Clear() {
	c.current, c.previous = "", ""
}

// Current returns the line being spoken.
func (c Caption) Current() string { return c.current }

// Previous returns the line spoken before the current one.
func (c Caption) Previous() string { return c.previous }
