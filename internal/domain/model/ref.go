package model

// MessageRef points at a message that was already sent.
type MessageRef struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
}

func (r MessageRef) IsZero() bool { return r.Channel == "" || r.Timestamp == "" }

// Key identifies the message in the render registry.
func (r MessageRef) Key() string { return r.Channel + ":" + r.Timestamp }

// ViewRef points at an open modal. Hash guards against stale updates.
type ViewRef struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

func (r ViewRef) IsZero() bool { return r.ID == "" }
