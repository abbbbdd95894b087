package debezium

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	OperationCreate = "c"
	OperationUpdate = "u"
	OperationDelete = "d"
	OperationRead   = "r"
)

// CDCSerializer handles parsing and validation of CDC messages
type CDCSerializer struct {
	IncludeTables []string
}

// IsTableMonitored checks if table should be processed. A trailing '*'
// in the include list matches by prefix.
func (s *CDCSerializer) IsTableMonitored(tableName string) bool {
	for _, included := range s.IncludeTables {
		if tableName == included {
			return true
		}
		if strings.HasSuffix(included, "*") && strings.HasPrefix(tableName, strings.TrimSuffix(included, "*")) {
			return true
		}
	}
	return false
}

// ParseCDCEvent deserializes Kafka message to CDC event
func (s *CDCSerializer) ParseCDCEvent(messageValue []byte) (*CDCEvent, error) {
	var cdcEvent CDCEvent
	if err := json.Unmarshal(messageValue, &cdcEvent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal CDC event: %w", err)
	}

	if err := s.validateCDCEvent(&cdcEvent); err != nil {
		return nil, fmt.Errorf("invalid CDC event: %w", err)
	}

	return &cdcEvent, nil
}

// validateCDCEvent performs basic validation on CDC event
func (s *CDCSerializer) validateCDCEvent(event *CDCEvent) error {
	if event.Source.Table == "" {
		return fmt.Errorf("missing source table")
	}

	switch event.Operation {
	case OperationCreate, OperationRead, OperationUpdate:
		if event.After == nil {
			return fmt.Errorf("missing 'after' data for operation %s", event.Operation)
		}
	case OperationDelete:
		// Sem REPLICA IDENTITY FULL o 'before' só traz a chave primária.
		if event.Before == nil {
			return fmt.Errorf("missing 'before' data for delete operation")
		}
	case "":
		return fmt.Errorf("missing operation")
	default:
		return fmt.Errorf("invalid operation: %s", event.Operation)
	}

	return nil
}

// ShouldProcessEvent checks if CDC event should be processed based on filtering rules.
// Snapshot reads are processed: they rebuild the mirror from scratch.
func (s *CDCSerializer) ShouldProcessEvent(event *CDCEvent) bool {
	return s.IsTableMonitored(event.Source.Table)
}
