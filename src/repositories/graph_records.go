package repositories

import (
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Labels and relationship types cannot be Cypher parameters, so they are
// interpolated. They come from the registry and the catalog and are still
// checked here before reaching a query.
var cypherIdentifier = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

func checkIdentifier(identifier string) error {
	if !cypherIdentifier.MatchString(identifier) {
		return fmt.Errorf("invalid graph identifier %q", identifier)
	}
	return nil
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getBoolFromRecord(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return false
}
