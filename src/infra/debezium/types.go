package debezium

// CDCEvent represents raw CDC event from Debezium
type CDCEvent struct {
	Before      Row         `json:"before"`
	After       Row         `json:"after"`
	Source      CDCSource   `json:"source"`
	Operation   string      `json:"op"` // c=create, u=update, d=delete, r=read
	TsMs        int64       `json:"ts_ms"`
	Transaction interface{} `json:"transaction"`
}

// Row é uma linha da tabela como o Debezium serializa: jsonb e timestamptz
// chegam como string, boolean como bool.
type Row map[string]interface{}

// String returns the column as a string, or "" when absent or of another type.
func (r Row) String(column string) string {
	value, _ := r[column].(string)
	return value
}

// Bool returns the column as a bool, false when absent.
func (r Row) Bool(column string) bool {
	value, _ := r[column].(bool)
	return value
}

type CDCSource struct {
	Version   string `json:"version"`
	Connector string `json:"connector"`
	Name      string `json:"name"`
	TsMs      int64  `json:"ts_ms"`
	Snapshot  string `json:"snapshot"`
	DB        string `json:"db"`
	Sequence  string `json:"sequence"`
	Schema    string `json:"schema"`
	Table     string `json:"table"`
	TxID      int64  `json:"txId"`
	LSN       int64  `json:"lsn"`
	XMIN      int64  `json:"xmin"`
}
