package entities

import (
	"encoding/json"
	"time"
)

// É o "nó" do nosso grafo de proveniência, do lado relacional.
type Entity struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Reference string `json:"reference"`
	// Detalhes do objeto (nome, label, versão...). Só são expostos
	// quando o chamador tem visibilidade total sobre o nó.
	Properties json.RawMessage `json:"properties,omitempty"`
	IsDeleted  bool            `json:"is_deleted"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Ref returns the polymorphic reference of the entity.
func (e Entity) Ref() Reference {
	return Reference{Kind: e.Type, ID: e.Reference}
}

// Base lets the concrete kinds below be handled through their shared row.
func (e *Entity) Base() *Entity {
	return e
}

type Activity struct {
	Entity
}

type FileVersion struct {
	Entity
}

type User struct {
	Entity
}

type SoftwareAgent struct {
	Entity
}

// Model is implemented by every concrete kind through the embedded Entity.
type Model interface {
	Base() *Entity
}
