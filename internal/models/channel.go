package models

// UncategorizedGroup is the group name used for channels without a group-title
const UncategorizedGroup = "Uncategorized"

// Channel represents a single stream entry parsed from an M3U playlist
type Channel struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Group    string   `json:"group,omitempty"`
	Logo     string   `json:"logo,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// GroupName returns the channel group, falling back to UncategorizedGroup
func (c Channel) GroupName() string {
	if c.Group == "" {
		return UncategorizedGroup
	}
	return c.Group
}
