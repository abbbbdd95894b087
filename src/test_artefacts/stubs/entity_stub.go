package stubs

import (
	"encoding/json"
	"time"

	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-faker/faker/v4"
)

type EntityStub struct {
	entity entities.Entity
}

func NewEntityStub() EntityStub {
	now := time.Now().UTC()

	properties := map[string]interface{}{
		"name":  gofakeit.Name(),
		"email": gofakeit.Email(),
	}
	propsJSON, _ := json.Marshal(properties)

	entity := entities.Entity{
		ID:         gofakeit.Int64(),
		Type:       kinds.User,
		Reference:  "user-" + faker.UUIDHyphenated(),
		Properties: propsJSON,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	return EntityStub{entity: entity}
}

// NewActivityStub, NewFileVersionStub e NewSoftwareAgentStub trocam o tipo
// e o prefixo da referência.
func NewActivityStub() EntityStub {
	return NewEntityStub().
		WithType(kinds.Activity).
		WithReference("act-" + faker.UUIDHyphenated()).
		WithProperties(map[string]interface{}{"name": gofakeit.HackerVerb() + " " + gofakeit.HackerNoun()})
}

func NewFileVersionStub() EntityStub {
	return NewEntityStub().
		WithType(kinds.FileVersion).
		WithReference("fv-" + faker.UUIDHyphenated()).
		WithProperties(map[string]interface{}{
			"label":   gofakeit.Word() + "." + gofakeit.FileExtension(),
			"version": gofakeit.Number(1, 20),
		})
}

func NewSoftwareAgentStub() EntityStub {
	return NewEntityStub().
		WithType(kinds.SoftwareAgent).
		WithReference("agent-" + faker.UUIDHyphenated()).
		WithProperties(map[string]interface{}{"name": gofakeit.AppName(), "version": gofakeit.AppVersion()})
}

func (es EntityStub) WithType(entityType string) EntityStub {
	es.entity.Type = entityType
	return es
}

func (es EntityStub) WithReference(reference string) EntityStub {
	es.entity.Reference = reference
	return es
}

func (es EntityStub) WithProperties(properties map[string]interface{}) EntityStub {
	propsJSON, _ := json.Marshal(properties)
	es.entity.Properties = propsJSON
	return es
}

func (es EntityStub) Deleted() EntityStub {
	es.entity.IsDeleted = true
	return es
}

func (es EntityStub) Get() entities.Entity {
	return es.entity
}
