package entities

// Reference is a tagged {kind, id} pointer to any registered kind.
type Reference struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (r Reference) IsZero() bool {
	return r.Kind == "" || r.ID == ""
}

func (r Reference) String() string {
	return r.Kind + ":" + r.ID
}
