package entities

// GraphNode is the mirror of an entity in the graph store.
type GraphNode struct {
	Label     string `json:"label"`
	ModelKind string `json:"model_kind"`
	ModelID   string `json:"model_id"`
	IsDeleted bool   `json:"is_deleted"`
}

func (n GraphNode) Ref() Reference {
	return Reference{Kind: n.ModelKind, ID: n.ModelID}
}
