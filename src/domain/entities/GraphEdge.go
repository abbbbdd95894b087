package entities

// GraphEdge is the mirror of a Relation in the graph store. Label is the
// edge type used by the graph (e.g. "WasGeneratedBy"); ModelKind/ModelID
// point back to the relational record.
type GraphEdge struct {
	Label            string    `json:"label"`
	RelationshipType string    `json:"relationship_type"`
	ModelKind        string    `json:"model_kind"`
	ModelID          string    `json:"model_id"`
	From             GraphNode `json:"from"`
	To               GraphNode `json:"to"`
}

func (e GraphEdge) Ref() Reference {
	return Reference{Kind: e.ModelKind, ID: e.ModelID}
}
